package main

import "simdex/cmd"

func main() {
	cmd.Execute()
}
