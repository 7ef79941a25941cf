package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"simdex/internal/models"
)

// Storage handles persistence of the image catalog and scan history
type Storage struct {
	db     *sql.DB
	dbPath string
}

// NewStorage opens (or creates) the catalog database at dbPath
func NewStorage(dbPath string) (*Storage, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Storage{db: db, dbPath: dbPath}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Current schema version
const schemaVersion = 2

// migrations defines all schema migrations
// Each migration should be idempotent (safe to run multiple times)
var migrations = []struct {
	version     int
	description string
	up          string
}{
	{
		version:     1,
		description: "Initial schema",
		up:          "", // Handled by base schema creation
	},
	{
		version:     2,
		description: "Add scan_id column linking images to scan history",
		up: `
			ALTER TABLE images ADD COLUMN scan_id TEXT DEFAULT '';
			CREATE INDEX IF NOT EXISTS idx_images_scan_id ON images(scan_id);
		`,
	},
}

// init creates the database schema
func (s *Storage) init() error {
	// Create schema_version table first
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	// Create base schema
	schema := `
	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT UNIQUE NOT NULL,
		hash INTEGER NOT NULL,
		file_hash TEXT DEFAULT '',
		algo TEXT NOT NULL DEFAULT 'phash',
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		format TEXT NOT NULL,
		file_size INTEGER NOT NULL,
		mod_time DATETIME NOT NULL,
		has_exif INTEGER DEFAULT 0,
		score REAL NOT NULL,
		group_id INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_images_hash ON images(hash);
	CREATE INDEX IF NOT EXISTS idx_images_file_hash ON images(file_hash);
	CREATE INDEX IF NOT EXISTS idx_images_group_id ON images(group_id);
	CREATE INDEX IF NOT EXISTS idx_images_path ON images(path);

	CREATE TABLE IF NOT EXISTS scan_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id TEXT NOT NULL,
		folder TEXT NOT NULL,
		scanned_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		total_files INTEGER NOT NULL,
		indexed INTEGER NOT NULL,
		failed INTEGER NOT NULL
	);
	`

	_, err = s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	// Run migrations
	if err := s.migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// migrate runs pending schema migrations
func (s *Storage) migrate() error {
	currentVersion := s.getSchemaVersion()

	for _, m := range migrations {
		if m.version <= currentVersion || m.up == "" {
			continue
		}

		// Check if migration is needed (column might already exist)
		if m.version == 2 {
			if s.columnExists("images", "scan_id") {
				s.setSchemaVersion(m.version)
				continue
			}
		}

		// Execute migration
		if _, err := s.db.Exec(m.up); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.description, err)
		}

		s.setSchemaVersion(m.version)
	}

	return nil
}

// getSchemaVersion returns the current schema version
func (s *Storage) getSchemaVersion() int {
	var version int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0
	}
	return version
}

// setSchemaVersion records a migration as applied
func (s *Storage) setSchemaVersion(version int) {
	s.db.Exec(`INSERT OR REPLACE INTO schema_version (version) VALUES (?)`, version)
}

// columnExists checks if a column exists in a table
func (s *Storage) columnExists(table, column string) bool {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?
	`, table, column).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

const entryColumns = `id, path, hash, file_hash, algo, scan_id, width, height, format, file_size, mod_time, has_exif, score, group_id`

// SaveEntries saves or updates multiple catalog entries
func (s *Storage) SaveEntries(entries []*models.ImageEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO images (path, hash, file_hash, algo, scan_id, width, height, format, file_size, mod_time, has_exif, score, group_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		// Cast uint64 to int64 for SQLite compatibility
		hashInt := int64(e.Hash)
		hasExifInt := 0
		if e.HasExif {
			hasExifInt = 1
		}
		_, err := stmt.Exec(
			e.Path,
			hashInt,
			e.FileHash,
			e.Algo,
			e.ScanID,
			e.Width,
			e.Height,
			e.Format,
			e.FileSize,
			e.ModTime,
			hasExifInt,
			e.Score,
			e.GroupID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", e.Path, err)
		}
	}

	return tx.Commit()
}

// collectEntries reads catalog rows selected with entryColumns
func collectEntries(rows *sql.Rows) ([]*models.ImageEntry, error) {
	var entries []*models.ImageEntry
	for rows.Next() {
		e := &models.ImageEntry{}
		var modTime string
		var hashInt int64
		var hasExifInt int
		var fileHash, scanID sql.NullString
		err := rows.Scan(
			&e.ID,
			&e.Path,
			&hashInt,
			&fileHash,
			&e.Algo,
			&scanID,
			&e.Width,
			&e.Height,
			&e.Format,
			&e.FileSize,
			&modTime,
			&hasExifInt,
			&e.Score,
			&e.GroupID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		e.Hash = uint64(hashInt)
		e.FileHash = fileHash.String
		e.ScanID = scanID.String
		e.HasExif = hasExifInt == 1
		e.ModTime, _ = time.Parse("2006-01-02 15:04:05", modTime)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// GetAllEntries returns all stored catalog entries
func (s *Storage) GetAllEntries() ([]*models.ImageEntry, error) {
	rows, err := s.db.Query(`SELECT ` + entryColumns + ` FROM images ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// GetEntriesByAlgo returns the entries hashed with a given algorithm.
// Hashes from different algorithms are not comparable, so similarity
// lookups must index one algorithm at a time.
func (s *Storage) GetEntriesByAlgo(algo string) ([]*models.ImageEntry, error) {
	rows, err := s.db.Query(`SELECT `+entryColumns+` FROM images WHERE algo = ? ORDER BY path`, algo)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// GetEntryByPath returns the entry for a path, or nil if not cataloged
func (s *Storage) GetEntryByPath(path string) (*models.ImageEntry, error) {
	rows, err := s.db.Query(`SELECT `+entryColumns+` FROM images WHERE path = ?`, path)
	if err != nil {
		return nil, fmt.Errorf("failed to query entry: %w", err)
	}
	defer rows.Close()

	entries, err := collectEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}

// GetEntriesByGroupID returns entries in a specific group, best score first
func (s *Storage) GetEntriesByGroupID(groupID int) ([]*models.ImageEntry, error) {
	rows, err := s.db.Query(`SELECT `+entryColumns+` FROM images WHERE group_id = ? ORDER BY score DESC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// UpdateGroups updates group IDs for catalog entries
func (s *Storage) UpdateGroups(groups []*models.DuplicateGroup) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Reset all group IDs
	_, err = tx.Exec("UPDATE images SET group_id = 0")
	if err != nil {
		return fmt.Errorf("failed to reset groups: %w", err)
	}

	stmt, err := tx.Prepare("UPDATE images SET group_id = ? WHERE path = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, group := range groups {
		for _, e := range group.Images {
			_, err := stmt.Exec(group.ID, e.Path)
			if err != nil {
				return fmt.Errorf("failed to update group for %s: %w", e.Path, err)
			}
		}
	}

	return tx.Commit()
}

// GetDuplicateGroups returns all duplicate groups with their entries
func (s *Storage) GetDuplicateGroups() ([]*models.DuplicateGroup, error) {
	// Get distinct group IDs
	rows, err := s.db.Query("SELECT DISTINCT group_id FROM images WHERE group_id > 0 ORDER BY group_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groupIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		groupIDs = append(groupIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Build groups
	var groups []*models.DuplicateGroup
	for _, id := range groupIDs {
		entries, err := s.GetEntriesByGroupID(id)
		if err != nil {
			return nil, err
		}

		if len(entries) < 2 {
			continue
		}

		group := &models.DuplicateGroup{
			ID:     id,
			Images: entries,
			Keep:   entries[0], // Already sorted by score DESC
			Remove: entries[1:],
		}
		groups = append(groups, group)
	}

	return groups, nil
}

// DeleteEntry removes a catalog entry by path
func (s *Storage) DeleteEntry(path string) error {
	_, err := s.db.Exec("DELETE FROM images WHERE path = ?", path)
	return err
}

// RecordScan records a completed scan in history
func (s *Storage) RecordScan(sum *models.ScanSummary) error {
	_, err := s.db.Exec(`
		INSERT INTO scan_history (scan_id, folder, total_files, indexed, failed)
		VALUES (?, ?, ?, ?, ?)
	`, sum.ScanID, sum.Folder, sum.TotalFiles, sum.Indexed, sum.Failed)
	return err
}

// GetLastScan returns the most recent scan, or nil if none recorded
func (s *Storage) GetLastScan() (*models.ScanSummary, error) {
	sum := &models.ScanSummary{}
	var scannedAt string
	err := s.db.QueryRow(`
		SELECT scan_id, folder, scanned_at, total_files, indexed, failed
		FROM scan_history
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&sum.ScanID, &sum.Folder, &scannedAt, &sum.TotalFiles, &sum.Indexed, &sum.Failed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query scan history: %w", err)
	}
	sum.ScannedAt, _ = time.Parse("2006-01-02 15:04:05", scannedAt)
	return sum, nil
}

// Stats summarizes the catalog
type Stats struct {
	Images     int            `json:"images"`
	Groups     int            `json:"groups"`
	Duplicates int            `json:"duplicates"` // entries that would be removed
	TotalSize  int64          `json:"total_size"`
	ByAlgo     map[string]int `json:"by_algo"`
}

// GetStats returns catalog statistics
func (s *Storage) GetStats() (*Stats, error) {
	stats := &Stats{ByAlgo: make(map[string]int)}

	err := s.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(file_size), 0) FROM images").
		Scan(&stats.Images, &stats.TotalSize)
	if err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}

	err = s.db.QueryRow("SELECT COUNT(DISTINCT group_id) FROM images WHERE group_id > 0").
		Scan(&stats.Groups)
	if err != nil {
		return nil, fmt.Errorf("failed to count groups: %w", err)
	}

	var inGroups int
	err = s.db.QueryRow("SELECT COUNT(*) FROM images WHERE group_id > 0").Scan(&inGroups)
	if err != nil {
		return nil, fmt.Errorf("failed to count grouped entries: %w", err)
	}
	stats.Duplicates = inGroups - stats.Groups

	rows, err := s.db.Query("SELECT algo, COUNT(*) FROM images GROUP BY algo")
	if err != nil {
		return nil, fmt.Errorf("failed to count by algorithm: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var algo string
		var count int
		if err := rows.Scan(&algo, &count); err != nil {
			return nil, err
		}
		stats.ByAlgo[algo] = count
	}

	return stats, rows.Err()
}
