package models

import "time"

// ImageEntry is the catalog record for one indexed image.
type ImageEntry struct {
	ID       int64     `json:"id"`
	Path     string    `json:"path"`
	Hash     uint64    `json:"hash"`
	Algo     string    `json:"algo"`                // ahash, dhash or phash
	FileHash string    `json:"file_hash,omitempty"` // SHA256, for exact matching
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Format   string    `json:"format"`
	FileSize int64     `json:"file_size"`
	ModTime  time.Time `json:"mod_time"`
	HasExif  bool      `json:"has_exif"`
	Score    float64   `json:"score"`
	GroupID  int       `json:"group_id,omitempty"`
	ScanID   string    `json:"scan_id,omitempty"`
}

// Neighbor is one similarity-query result: an indexed image and its
// distance to the query.
type Neighbor struct {
	Distance int         `json:"distance"`
	Image    *ImageEntry `json:"image"`
}

// DuplicateGroup is a set of images considered the same picture.
type DuplicateGroup struct {
	ID     int           `json:"id"`
	Images []*ImageEntry `json:"images"`
	Keep   *ImageEntry   `json:"keep"`   // highest quality score
	Remove []*ImageEntry `json:"remove"` // the rest
}

// ScanSummary records one catalog scan.
type ScanSummary struct {
	ScanID     string    `json:"scan_id"`
	Folder     string    `json:"folder"`
	ScannedAt  time.Time `json:"scanned_at"`
	TotalFiles int       `json:"total_files"`
	Indexed    int       `json:"indexed"`
	Failed     int       `json:"failed"`
}

// FormatQualityMultiplier weights the quality score by image format;
// lossless formats beat lossy ones when picking which duplicate to keep.
func FormatQualityMultiplier(format string) float64 {
	switch format {
	case "png", "tiff", "bmp":
		return 1.2
	case "webp":
		return 1.1
	case "jpeg", "jpg":
		return 1.0
	case "gif":
		return 0.9
	default:
		return 1.0
	}
}

// MetadataMultiplier weights the quality score by metadata presence;
// an original with EXIF intact beats a stripped re-save.
func MetadataMultiplier(hasExif bool) float64 {
	if hasExif {
		return 1.1
	}
	return 1.0
}
