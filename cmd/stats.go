package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"simdex/internal/storage"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	stats, err := store.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}
	last, err := store.GetLastScan()
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if statsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*storage.Stats
			LastScan any `json:"last_scan,omitempty"`
		}{stats, last})
	}

	fmt.Printf("Images:     %d\n", stats.Images)
	fmt.Printf("Groups:     %d\n", stats.Groups)
	fmt.Printf("Duplicates: %d\n", stats.Duplicates)
	fmt.Printf("Total size: %s\n", formatSize(stats.TotalSize))

	if len(stats.ByAlgo) > 0 {
		algos := make([]string, 0, len(stats.ByAlgo))
		for a := range stats.ByAlgo {
			algos = append(algos, a)
		}
		sort.Strings(algos)

		fmt.Println()
		fmt.Println("By algorithm:")
		for _, a := range algos {
			fmt.Printf("  %-6s %d\n", a, stats.ByAlgo[a])
		}
	}

	if last != nil {
		fmt.Println()
		fmt.Println("Last scan:")
		fmt.Printf("  Folder:  %s\n", last.Folder)
		fmt.Printf("  When:    %s\n", last.ScannedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Indexed: %d/%d", last.Indexed, last.TotalFiles)
		if last.Failed > 0 {
			fmt.Printf("  (%d failed)", last.Failed)
		}
		fmt.Println()
	}

	return nil
}
