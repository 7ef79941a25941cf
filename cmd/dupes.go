package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"simdex/internal/fileutil"
	"simdex/internal/models"
	"simdex/internal/storage"
)

var (
	dupesJSON    bool
	dupesVerbose bool
	dupesSummary bool
	dupesLimit   int
	dupesOffset  int
	dupesGroups  []int

	dupesMoveTo  string
	dupesDelete  bool
	dupesDryRun  bool
	dupesConfirm bool
)

var dupesCmd = &cobra.Command{
	Use:   "dupes",
	Short: "List or clean up duplicate groups",
	Long: `Display detected duplicate groups, or clean them up.

Each group shows its images with their quality scores. The image that
would be kept (highest score) is marked with ✓, the rest with ✗.

With --move-to or --delete the marked duplicates are removed, keeping
the best image of each group:

  --move-to   Move duplicates to a folder (name collisions get a suffix)
  --delete    Delete duplicates permanently
  --dry-run   Preview without touching any files
  --yes       Skip the confirmation prompt
  --group     Restrict to specific group IDs (repeatable)

Example:
  simdex dupes                       # Show first 10 groups
  simdex dupes -n 0                  # Show all groups
  simdex dupes -s                    # Compact summary view
  simdex dupes --json                # Machine-readable output
  simdex dupes --move-to=./backup    # Move duplicates away
  simdex dupes --delete --group=3    # Delete group 3's duplicates`,
	RunE: runDupes,
}

func init() {
	dupesCmd.Flags().BoolVar(&dupesJSON, "json", false, "Output in JSON format")
	dupesCmd.Flags().BoolVarP(&dupesVerbose, "verbose", "v", false, "Show detailed image info")
	dupesCmd.Flags().BoolVarP(&dupesSummary, "summary", "s", false, "Show summary only (group counts and sizes)")
	dupesCmd.Flags().IntVarP(&dupesLimit, "limit", "n", 10, "Limit number of groups to display (0 = all)")
	dupesCmd.Flags().IntVar(&dupesOffset, "offset", 0, "Skip first N groups (for pagination)")
	dupesCmd.Flags().IntSliceVarP(&dupesGroups, "group", "g", nil, "Group IDs to act on (can be specified multiple times)")
	dupesCmd.Flags().StringVar(&dupesMoveTo, "move-to", "", "Move duplicates to this folder")
	dupesCmd.Flags().BoolVar(&dupesDelete, "delete", false, "Delete duplicates permanently")
	dupesCmd.Flags().BoolVar(&dupesDryRun, "dry-run", false, "Preview without removing")
	dupesCmd.Flags().BoolVarP(&dupesConfirm, "yes", "y", false, "Skip confirmation prompt")
	rootCmd.AddCommand(dupesCmd)
}

func runDupes(cmd *cobra.Command, args []string) error {
	if dupesMoveTo != "" && dupesDelete {
		return fmt.Errorf("--move-to and --delete are mutually exclusive")
	}

	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	groups, err := store.GetDuplicateGroups()
	if err != nil {
		return fmt.Errorf("failed to get groups: %w", err)
	}

	if len(groups) == 0 {
		fmt.Println("No duplicate groups found.")
		fmt.Println("Run 'simdex scan <folder>' to scan for duplicates.")
		return nil
	}

	// Filter groups if --group is specified
	if len(dupesGroups) > 0 {
		groupIDSet := make(map[int]bool)
		for _, id := range dupesGroups {
			groupIDSet[id] = true
		}

		var filtered []*models.DuplicateGroup
		for _, group := range groups {
			if groupIDSet[group.ID] {
				filtered = append(filtered, group)
			}
		}

		if len(filtered) == 0 {
			fmt.Printf("No matching groups found for IDs: %v\n", dupesGroups)
			fmt.Println("Run 'simdex dupes' to see available group IDs.")
			return nil
		}

		groups = filtered
	}

	if dupesMoveTo != "" || dupesDelete {
		return removeDuplicates(store, groups)
	}

	if dupesJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	}

	// Calculate totals
	totalDuplicates := 0
	var totalSavings int64
	for _, group := range groups {
		for _, img := range group.Remove {
			totalDuplicates++
			totalSavings += img.FileSize
		}
	}

	fmt.Printf("Found %d duplicate groups (%d duplicates, %s reclaimable)\n\n",
		len(groups), totalDuplicates, formatSize(totalSavings))

	// Apply pagination
	totalGroups := len(groups)
	startIdx := dupesOffset
	if startIdx > len(groups) {
		startIdx = len(groups)
	}
	groups = groups[startIdx:]

	if dupesLimit > 0 && dupesLimit < len(groups) {
		groups = groups[:dupesLimit]
	}

	// Display groups
	if len(groups) == 0 {
		fmt.Printf("No groups in range (offset %d exceeds total %d)\n", dupesOffset, totalGroups)
	} else if dupesSummary {
		printSummaryTable(groups)
	} else {
		for _, group := range groups {
			printGroup(group, dupesVerbose)
		}
	}

	// Show pagination info
	endIdx := startIdx + len(groups)
	if len(groups) > 0 {
		fmt.Printf("Showing groups %d-%d of %d\n", startIdx+1, endIdx, totalGroups)
		if endIdx < totalGroups {
			limitArg := ""
			if dupesLimit > 0 {
				limitArg = fmt.Sprintf(" -n %d", dupesLimit)
			}
			fmt.Printf("Next page: simdex dupes%s --offset %d\n", limitArg, endIdx)
		}
	}

	return nil
}

// removeDuplicates moves or deletes the lower quality images of each
// group, keeping the best one.
func removeDuplicates(store *storage.Storage, groups []*models.DuplicateGroup) error {
	// Collect files to remove, skipping any already gone
	var toRemove []string
	var totalSize int64
	for _, group := range groups {
		for _, img := range group.Remove {
			if _, err := os.Stat(img.Path); err == nil {
				toRemove = append(toRemove, img.Path)
				totalSize += img.FileSize
			}
		}
	}

	if len(toRemove) == 0 {
		fmt.Println("No files to remove (files may have been already deleted).")
		return nil
	}

	action := "permanently delete"
	if dupesMoveTo != "" {
		action = fmt.Sprintf("move to %s", dupesMoveTo)
	}

	fmt.Printf("Will %s %d files (%s)\n\n", action, len(toRemove), formatSize(totalSize))

	if dupesDryRun {
		fmt.Println("Files to be removed:")
		for _, path := range toRemove {
			fmt.Printf("  %s\n", path)
		}
		fmt.Println()
		fmt.Println("(Dry run - no files were modified)")
		return nil
	}

	// Confirm unless --yes flag is set
	if !dupesConfirm {
		fmt.Printf("Are you sure you want to %s %d files? [y/N]: ", action, len(toRemove))
		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if dupesMoveTo != "" {
		if err := os.MkdirAll(dupesMoveTo, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dupesMoveTo, err)
		}
	}

	var processed, failed int
	for _, path := range toRemove {
		var err error
		if dupesMoveTo != "" {
			err = fileutil.MoveFile(path, dupesMoveTo)
		} else {
			err = os.Remove(path)
		}

		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to process %s: %v\n", path, err)
			failed++
			continue
		}
		processed++
		store.DeleteEntry(path)
	}

	fmt.Println()
	if dupesMoveTo != "" {
		fmt.Printf("Moved %d files to %s\n", processed, dupesMoveTo)
	} else {
		fmt.Printf("Permanently deleted %d files\n", processed)
	}
	if failed > 0 {
		fmt.Printf("Failed: %d files\n", failed)
	}
	fmt.Printf("Space reclaimed: %s\n", formatSize(totalSize))

	return nil
}

func printSummaryTable(groups []*models.DuplicateGroup) {
	fmt.Printf("%-8s  %-8s  %-12s  %s\n", "Group", "Images", "Reclaimable", "Keep (best quality)")
	fmt.Println(strings.Repeat("-", 70))

	for _, group := range groups {
		var reclaimable int64
		for _, img := range group.Remove {
			reclaimable += img.FileSize
		}

		keepName := filepath.Base(group.Keep.Path)
		if len(keepName) > 35 {
			keepName = keepName[:32] + "..."
		}

		fmt.Printf("#%-7d  %-8d  %-12s  %s\n",
			group.ID, len(group.Images), formatSize(reclaimable), keepName)
	}
	fmt.Println()
}

func printGroup(group *models.DuplicateGroup, verbose bool) {
	fmt.Printf("Group #%d (%d images)\n", group.ID, len(group.Images))
	fmt.Println(strings.Repeat("-", 60))

	for _, img := range group.Images {
		marker := color.RedString("✗")
		if img.Path == group.Keep.Path {
			marker = color.GreenString("✓")
		}

		if verbose {
			fmt.Printf("  %s %s\n", marker, img.Path)
			fmt.Printf("      Resolution: %dx%d  Format: %s  Size: %s\n",
				img.Width, img.Height, strings.ToUpper(img.Format), formatSize(img.FileSize))
			fmt.Printf("      Score: %.0f\n", img.Score)
		} else {
			fmt.Printf("  %s %-40s  %dx%d  %-4s  %8s  Score: %.0f\n",
				marker, shortenPath(img.Path, 40), img.Width, img.Height,
				strings.ToUpper(img.Format), formatSize(img.FileSize), img.Score)
		}
	}
	fmt.Println()
}

func shortenPath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}

	// Try to show filename and as much of the path as possible
	dir, file := filepath.Split(path)
	if len(file) >= maxLen-3 {
		return "..." + file[len(file)-(maxLen-3):]
	}

	remaining := maxLen - len(file) - 4 // 4 for ".../"
	if remaining > 0 && len(dir) > remaining {
		dir = dir[len(dir)-remaining:]
	}
	return "..." + dir + file
}

func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
