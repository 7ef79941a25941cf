package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"simdex/internal/server"
)

var (
	serveAddr  string
	serveWords string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query API and browser console",
	Long: `Start an HTTP server exposing the catalog.

Endpoints:
  /api/similar   Find images near a hash or local file
  /api/suggest   Spelling suggestions (needs --words)
  /api/dupes     Duplicate groups
  /api/stats     Catalog statistics
  /              Browser console

The similarity index is built from the catalog at startup; rescan and
restart to pick up new images.

Example:
  simdex serve
  simdex serve --listen :3000
  simdex serve --words /usr/share/dict/words`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "listen", "", "Listen address (default :8080)")
	serveCmd.Flags().StringVar(&serveWords, "words", "", "Word list file enabling /api/suggest")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := serveAddr
	if addr == "" && cfg != nil {
		addr = cfg.Listen
	}
	wordList := serveWords
	if wordList == "" && cfg != nil {
		wordList = cfg.WordList
	}

	srv, err := server.New(dbPath, server.Options{
		Addr:     addr,
		Algo:     algo,
		WordList: wordList,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	fmt.Println("Press Ctrl+C to stop")
	return srv.Start()
}
