package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"simdex/internal/config"
)

var (
	cfgPath   string
	dbPath    string
	algo      string
	threshold int
	workers   int

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "simdex",
	Short: "Index and query images and words by similarity",
	Long: `simdex catalogs images by perceptual hash and answers similarity
queries over a metric-tree index.

Scanned images are stored in a local SQLite catalog together with their
hashes and quality scores. Queries run against an in-memory index, so
finding near-matches among thousands of images takes milliseconds. The
same index powers spelling suggestions over plain word lists.

Example usage:
  simdex scan ./photos              # Index a folder
  simdex similar ./query.jpg        # Find images similar to one file
  simdex dupes                      # List duplicate groups
  simdex dupes --move-to=./backup   # Move lower quality duplicates away
  simdex words words.txt helo       # Suggest corrections for a word
  simdex serve                      # Serve the query API and console`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Assigned here rather than in the rootCmd literal: applyConfig refers
	// back to rootCmd, and the compiler rejects that initialization cycle.
	rootCmd.PersistentPreRunE = applyConfig

	defaults := config.Default()

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config file (default ~/.simdex/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaults.DBPath, "Path to SQLite catalog")
	rootCmd.PersistentFlags().StringVar(&algo, "algo", defaults.Algo, "Hash algorithm: ahash, dhash or phash")
	rootCmd.PersistentFlags().IntVar(&threshold, "threshold", defaults.Threshold, "Hamming distance threshold (0-64, lower = stricter)")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", defaults.Workers, "Number of parallel workers for scanning")
}

// applyConfig layers settings: flags beat the config file, the config
// file beats built-in defaults.
func applyConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	cfg = c

	flags := rootCmd.PersistentFlags()
	if !flags.Changed("db") && c.DBPath != "" {
		dbPath = c.DBPath
	}
	if !flags.Changed("algo") && c.Algo != "" {
		algo = c.Algo
	}
	if !flags.Changed("threshold") && c.Threshold > 0 {
		threshold = c.Threshold
	}
	if !flags.Changed("workers") && c.Workers > 0 {
		workers = c.Workers
	}

	return nil
}
