// Package imghash turns image files into catalog entries: a perceptual
// hash plus the metadata the keep/remove scoring needs.
package imghash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"simdex/internal/models"
)

// Supported perceptual hash algorithms. Hashes from different
// algorithms are not comparable; the catalog records which one
// produced each entry.
const (
	AlgoAverage    = "ahash"
	AlgoDifference = "dhash"
	AlgoPerception = "phash"
)

// Algos lists the supported algorithm names, for flag help text.
func Algos() []string {
	return []string{AlgoAverage, AlgoDifference, AlgoPerception}
}

// Hasher builds catalog entries using one perceptual hash algorithm.
type Hasher struct {
	algo string
}

// New creates a Hasher for the named algorithm. Unknown names fall back
// to phash, the most robust of the three against re-encoding.
func New(algo string) *Hasher {
	switch algo {
	case AlgoAverage, AlgoDifference, AlgoPerception:
	default:
		algo = AlgoPerception
	}
	return &Hasher{algo: algo}
}

// Algo returns the algorithm this hasher applies.
func (h *Hasher) Algo() string {
	return h.algo
}

// Entry decodes the image at path and builds its catalog entry:
// perceptual hash, dimensions, format, EXIF presence and quality score.
func (h *Hasher) Entry(path string) (*models.ImageEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	// Check EXIF before decoding; image.Decode consumes the reader.
	hasExif := checkExif(path)

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	hash, err := h.hashImage(img)
	if err != nil {
		return nil, fmt.Errorf("failed to compute %s: %w", h.algo, err)
	}

	bounds := img.Bounds()
	entry := &models.ImageEntry{
		Path:     path,
		Hash:     hash,
		Algo:     h.algo,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Format:   strings.ToLower(format),
		FileSize: stat.Size(),
		ModTime:  stat.ModTime(),
		HasExif:  hasExif,
	}
	entry.Score = Score(entry)

	return entry, nil
}

// EntryWithTimeout hashes path, giving up after timeout. Decoding a
// corrupt or enormous file can stall; the scanner uses this to keep its
// workers moving.
func (h *Hasher) EntryWithTimeout(path string, timeout time.Duration) (*models.ImageEntry, error) {
	done := make(chan struct{})
	var entry *models.ImageEntry
	var err error

	go func() {
		entry, err = h.Entry(path)
		close(done)
	}()

	select {
	case <-done:
		return entry, err
	case <-time.After(timeout):
		return nil, fmt.Errorf("timeout hashing image: %s", path)
	}
}

func (h *Hasher) hashImage(img image.Image) (uint64, error) {
	var ih *goimagehash.ImageHash
	var err error
	switch h.algo {
	case AlgoAverage:
		ih, err = goimagehash.AverageHash(img)
	case AlgoDifference:
		ih, err = goimagehash.DifferenceHash(img)
	default:
		ih, err = goimagehash.PerceptionHash(img)
	}
	if err != nil {
		return 0, err
	}
	return ih.GetHash(), nil
}

// checkExif reports whether the file at path carries EXIF data.
func checkExif(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	_, err = exif.Decode(file)
	return err == nil
}

// Score rates an entry for keep/remove decisions: resolution weighted
// by format and metadata multipliers.
func Score(e *models.ImageEntry) float64 {
	resolution := float64(e.Width) * float64(e.Height)
	return resolution * models.FormatQualityMultiplier(e.Format) * models.MetadataMultiplier(e.HasExif)
}

// FileHash computes the SHA256 hex digest of the file at path, used for
// byte-exact duplicate matching.
func FileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsSupportedImage reports whether path has a file extension the
// decoder stack handles.
func IsSupportedImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tiff", ".tif":
		return true
	default:
		return false
	}
}
