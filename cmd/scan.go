package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"simdex/internal/imghash"
	"simdex/internal/match"
	"simdex/internal/models"
	"simdex/internal/scan"
	"simdex/internal/storage"
)

var scanExact bool

var scanCmd = &cobra.Command{
	Use:   "scan <folder>...",
	Short: "Scan folders and index their images",
	Long: `Scan folders recursively for images and add them to the catalog.

The scan will:
1. Find all supported images (jpg, png, gif, webp, etc.)
2. Compute a perceptual hash and a SHA256 file hash for each image
3. Group similar images across the whole catalog
4. Record the scan in history

Example:
  simdex scan ./photos
  simdex scan ./photos ./downloads --threshold 5
  simdex scan ./photos --algo dhash
  simdex scan ./photos --exact          # group byte-identical files only`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanExact, "exact", false, "Group by exact file hash instead of perceptual distance")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	absFolders := make([]string, 0, len(args))
	for _, folder := range args {
		absFolder, err := filepath.Abs(folder)
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		info, err := os.Stat(absFolder)
		if err != nil {
			return fmt.Errorf("folder not found: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("not a directory: %s", absFolder)
		}
		absFolders = append(absFolders, absFolder)
	}

	fmt.Printf("Scanning: %s\n", strings.Join(absFolders, ", "))
	fmt.Printf("Algorithm: %s\n", algo)
	fmt.Printf("Threshold: %d (Hamming distance)\n", threshold)
	fmt.Printf("Workers: %d\n\n", workers)

	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	// Create scanner with progress reporting
	lastLine := ""
	s := scan.NewScanner(
		imghash.New(algo),
		scan.WithWorkers(workers),
		scan.WithProgress(func(scanned, total int, current string) {
			// Clear previous line
			if lastLine != "" {
				fmt.Print("\r" + strings.Repeat(" ", len(lastLine)) + "\r")
			}
			shortPath := current
			if len(shortPath) > 50 {
				shortPath = "..." + shortPath[len(shortPath)-47:]
			}
			lastLine = fmt.Sprintf("Progress: %d/%d  %s", scanned, total, shortPath)
			fmt.Print(lastLine)
		}),
	)

	result, err := s.ScanFolders(absFolders)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	// Clear progress line
	if lastLine != "" {
		fmt.Print("\r" + strings.Repeat(" ", len(lastLine)) + "\r")
	}

	fmt.Printf("Scanned: %d images", len(result.Entries))
	if result.Failed > 0 {
		fmt.Printf(" (%d failed)", result.Failed)
	}
	fmt.Println()

	if len(result.Entries) == 0 {
		fmt.Println("No images found.")
		return nil
	}

	scanID := uuid.New().String()
	for _, e := range result.Entries {
		e.ScanID = scanID
	}

	if err := store.SaveEntries(result.Entries); err != nil {
		return fmt.Errorf("failed to save entries: %w", err)
	}

	// Group over the whole catalog so matches span earlier scans
	catalog, err := store.GetEntriesByAlgo(algo)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	fmt.Println("Finding duplicates...")
	var m match.Matcher
	if scanExact {
		m = match.NewExactMatcher()
	} else {
		m = match.NewPerceptualMatcher(threshold)
	}
	groups := m.FindGroups(catalog)

	if err := store.UpdateGroups(groups); err != nil {
		return fmt.Errorf("failed to update groups: %w", err)
	}

	totalDuplicates := 0
	for _, group := range groups {
		totalDuplicates += len(group.Remove)
	}

	// Record scan history
	store.RecordScan(&models.ScanSummary{
		ScanID:     scanID,
		Folder:     strings.Join(absFolders, ", "),
		ScannedAt:  time.Now(),
		TotalFiles: len(result.Entries) + result.Failed,
		Indexed:    len(result.Entries),
		Failed:     result.Failed,
	})

	// Print summary
	fmt.Println()
	fmt.Println("=== Scan Complete ===")
	fmt.Printf("Indexed images:   %d\n", len(result.Entries))
	fmt.Printf("Duplicate groups: %d\n", len(groups))
	fmt.Printf("Duplicates found: %d\n", totalDuplicates)

	if len(groups) > 0 {
		fmt.Println()
		fmt.Println("Run 'simdex dupes' to see duplicate groups")
		fmt.Println("Run 'simdex dupes --dry-run --move-to=DIR' to preview a cleanup")
	}

	return nil
}
