package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"simdex/internal/imghash"
	"simdex/internal/match"
	"simdex/internal/storage"
)

var (
	similarMax  int
	similarJSON bool
)

var similarCmd = &cobra.Command{
	Use:   "similar <image|hash>",
	Short: "Find cataloged images similar to a query",
	Long: `Find cataloged images within a Hamming distance of a query.

The query is an image file to hash, or a raw 64-bit hash in decimal or
0x-prefixed hex. Results are sorted by distance, closest first; exact
hash matches are highlighted.

Example:
  simdex similar ./query.jpg
  simdex similar ./query.jpg -n 5
  simdex similar 0xe1e1e1e1f0f0f0f0`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func init() {
	similarCmd.Flags().IntVarP(&similarMax, "max-distance", "n", 10, "Maximum Hamming distance (0 = exact only)")
	similarCmd.Flags().BoolVar(&similarJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(similarCmd)
}

func runSimilar(cmd *cobra.Command, args []string) error {
	query := args[0]

	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	entries, err := store.GetEntriesByAlgo(algo)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("Catalog is empty.")
		fmt.Println("Run 'simdex scan <folder>' to index some images first.")
		return nil
	}

	// The argument is an image file if it exists on disk, otherwise
	// it is parsed as a raw hash
	var hash uint64
	if _, statErr := os.Stat(query); statErr == nil {
		entry, err := imghash.New(algo).Entry(query)
		if err != nil {
			return fmt.Errorf("failed to hash %s: %w", query, err)
		}
		hash = entry.Hash
	} else {
		v, err := strconv.ParseUint(query, 0, 64)
		if err != nil {
			return fmt.Errorf("not an image file or hash: %s", query)
		}
		hash = v
	}

	index := match.NewIndex(algo, entries)
	neighbors := index.Neighbors(hash, similarMax)

	if similarJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(neighbors)
	}

	if len(neighbors) == 0 {
		fmt.Printf("No images within distance %d (searched %d entries).\n", similarMax, index.Size())
		return nil
	}

	fmt.Printf("Found %d similar images (distance <= %d, %s)\n\n", len(neighbors), similarMax, algo)
	for _, n := range neighbors {
		img := n.Image
		dist := fmt.Sprintf("%2d", n.Distance)
		if n.Distance == 0 {
			dist = color.GreenString(dist)
		}
		fmt.Printf("  %s  %-50s  %dx%d  %8s\n",
			dist, shortenPath(img.Path, 50), img.Width, img.Height, formatSize(img.FileSize))
	}

	return nil
}
