package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"simdex/internal/dict"
)

var (
	wordsMax  int
	wordsJSON bool
)

var wordsCmd = &cobra.Command{
	Use:   "words <wordlist> <word>",
	Short: "Suggest corrections for a word",
	Long: `Look up a word in a word list and suggest close spellings.

The word list is a plain text file with one word per line; blank lines
and lines starting with # are skipped. Suggestions are ranked by edit
distance, closest first.

Example:
  simdex words /usr/share/dict/words helo
  simdex words words.txt recieve -n 3`,
	Args: cobra.ExactArgs(2),
	RunE: runWords,
}

func init() {
	wordsCmd.Flags().IntVarP(&wordsMax, "max-distance", "n", 2, "Maximum edit distance")
	wordsCmd.Flags().BoolVar(&wordsJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(wordsCmd)
}

func runWords(cmd *cobra.Command, args []string) error {
	d, err := dict.LoadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to load word list: %w", err)
	}
	word := args[1]

	if wordsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d.Suggest(word, wordsMax))
	}

	if d.Contains(word) {
		fmt.Printf("%s %s is in the word list\n", color.GreenString("✓"), word)
		return nil
	}

	suggestions := d.Suggest(word, wordsMax)
	if len(suggestions) == 0 {
		fmt.Printf("%s %s: no suggestions within %d edits (%d words searched)\n",
			color.RedString("✗"), word, wordsMax, d.Len())
		return nil
	}

	fmt.Printf("%s %s is not in the word list. Did you mean:\n", color.RedString("✗"), word)
	for _, s := range suggestions {
		fmt.Printf("  %2d  %s\n", s.Distance, s.Word)
	}

	return nil
}
