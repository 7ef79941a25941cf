package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"simdex/internal/imghash"
	"simdex/internal/models"
)

// Scanner walks folders for images and computes perceptual hashes
type Scanner struct {
	hasher     *imghash.Hasher
	workers    int
	timeout    time.Duration
	progressFn func(scanned, total int, current string)
}

// Result holds the outcome of a scan
type Result struct {
	Entries []*models.ImageEntry
	Failed  int
}

// Option configures a Scanner
type Option func(*Scanner)

// WithWorkers sets the number of parallel workers
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithTimeout sets the timeout for hashing each image
func WithTimeout(d time.Duration) Option {
	return func(s *Scanner) {
		s.timeout = d
	}
}

// WithProgress sets a progress callback
func WithProgress(fn func(scanned, total int, current string)) Option {
	return func(s *Scanner) {
		s.progressFn = fn
	}
}

// NewScanner creates a new Scanner using the given hasher
func NewScanner(hasher *imghash.Hasher, opts ...Option) *Scanner {
	s := &Scanner{
		hasher:  hasher,
		workers: 8,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScanFolder scans a folder for images and returns their entries
func (s *Scanner) ScanFolder(folder string) (*Result, error) {
	// First, collect all image paths
	var paths []string
	err := filepath.Walk(folder, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if info.IsDir() {
			return nil
		}
		if imghash.IsSupportedImage(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk folder: %w", err)
	}

	if len(paths) == 0 {
		return &Result{}, nil
	}

	// Process images in parallel
	var (
		entries   []*models.ImageEntry
		entriesMu sync.Mutex
		wg        sync.WaitGroup
		scanned   int64
		failed    int64
		total     = len(paths)
	)

	// Create work channel
	work := make(chan string, len(paths))
	for _, p := range paths {
		work <- p
	}
	close(work)

	// Start workers
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range work {
				entry, err := s.hasher.EntryWithTimeout(path, s.timeout)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					atomic.AddInt64(&scanned, 1)
					continue
				}

				// Exact matching can live without a file hash, so a
				// read failure here doesn't discard the entry
				if fh, err := imghash.FileHash(path); err == nil {
					entry.FileHash = fh
				}

				entriesMu.Lock()
				entries = append(entries, entry)
				entriesMu.Unlock()

				n := atomic.AddInt64(&scanned, 1)
				if s.progressFn != nil {
					s.progressFn(int(n), total, path)
				}
			}
		}()
	}

	wg.Wait()

	return &Result{Entries: entries, Failed: int(failed)}, nil
}

// ScanFolders scans multiple folders and merges their results
func (s *Scanner) ScanFolders(folders []string) (*Result, error) {
	merged := &Result{}
	for _, folder := range folders {
		res, err := s.ScanFolder(folder)
		if err != nil {
			return nil, err
		}
		merged.Entries = append(merged.Entries, res.Entries...)
		merged.Failed += res.Failed
	}
	return merged, nil
}
