package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"simdex/internal/models"
	"simdex/internal/storage"
)

// newTestServer seeds a catalog with four phash entries (hashes 0, 1,
// 3 and all-ones) where the first two form duplicate group 1, then
// opens a Server over it.
func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := storage.NewStorage(dbPath)
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}

	entries := []*models.ImageEntry{
		{Path: "/photos/a.jpg", Hash: 0b0000, Algo: "phash", Width: 100, Height: 100, Format: "jpeg", FileSize: 1000, Score: 10000},
		{Path: "/photos/b.jpg", Hash: 0b0001, Algo: "phash", Width: 80, Height: 80, Format: "jpeg", FileSize: 800, Score: 6400},
		{Path: "/photos/c.jpg", Hash: 0b0011, Algo: "phash", Width: 50, Height: 50, Format: "jpeg", FileSize: 500, Score: 2500},
		{Path: "/photos/d.jpg", Hash: ^uint64(0), Algo: "phash", Width: 10, Height: 10, Format: "jpeg", FileSize: 100, Score: 100},
	}
	if err := store.SaveEntries(entries); err != nil {
		t.Fatalf("SaveEntries failed: %v", err)
	}

	groups := []*models.DuplicateGroup{
		{ID: 1, Images: entries[:2]},
	}
	if err := store.UpdateGroups(groups); err != nil {
		t.Fatalf("UpdateGroups failed: %v", err)
	}

	sum := &models.ScanSummary{
		ScanID:     "scan-1",
		Folder:     "/photos",
		ScannedAt:  time.Now(),
		TotalFiles: 4,
		Indexed:    4,
	}
	if err := store.RecordScan(sum); err != nil {
		t.Fatalf("RecordScan failed: %v", err)
	}
	store.Close()

	if opts.Algo == "" {
		opts.Algo = "phash"
	}
	s, err := New(dbPath, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func doGET(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestSimilarByHash(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doGET(t, s, "/api/similar?hash=0&n=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp similarResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	// Hashes 0, 1 and 3 are within distance 2 of the query
	if len(resp.Neighbors) != 3 {
		t.Fatalf("expected 3 neighbors, got %d", len(resp.Neighbors))
	}
	if resp.Neighbors[0].Distance != 0 || resp.Neighbors[0].Image.Path != "/photos/a.jpg" {
		t.Errorf("expected exact match first, got %s at distance %d",
			resp.Neighbors[0].Image.Path, resp.Neighbors[0].Distance)
	}
	for i := 1; i < len(resp.Neighbors); i++ {
		if resp.Neighbors[i-1].Distance > resp.Neighbors[i].Distance {
			t.Errorf("neighbors not sorted: distance %d before %d",
				resp.Neighbors[i-1].Distance, resp.Neighbors[i].Distance)
		}
	}
	if resp.Algo != "phash" {
		t.Errorf("expected algo phash, got %s", resp.Algo)
	}
}

func TestSimilarHexHash(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doGET(t, s, "/api/similar?hash=0x3&n=0")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp similarResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Neighbors) != 1 {
		t.Fatalf("expected 1 exact neighbor, got %d", len(resp.Neighbors))
	}
	if resp.Neighbors[0].Image.Path != "/photos/c.jpg" {
		t.Errorf("expected c.jpg, got %s", resp.Neighbors[0].Image.Path)
	}
}

func TestSimilarBadRequest(t *testing.T) {
	s := newTestServer(t, Options{})

	urls := []string{
		"/api/similar",              // neither hash nor path
		"/api/similar?hash=nope",    // unparsable hash
		"/api/similar?hash=1&n=ten", // unparsable n
	}
	for _, u := range urls {
		if rec := doGET(t, s, u); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", u, rec.Code)
		}
	}
}

func TestSuggest(t *testing.T) {
	wordFile := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(wordFile, []byte("word\nhello\nworld\n"), 0644); err != nil {
		t.Fatalf("failed to write word list: %v", err)
	}
	s := newTestServer(t, Options{WordList: wordFile})

	rec := doGET(t, s, "/api/suggest?word=wrd&n=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp suggestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(resp.Suggestions))
	}
	if resp.Suggestions[0].Word != "word" || resp.Suggestions[0].Distance != 1 {
		t.Errorf("expected word at distance 1, got %s at %d",
			resp.Suggestions[0].Word, resp.Suggestions[0].Distance)
	}
}

func TestSuggestWithoutWordList(t *testing.T) {
	s := newTestServer(t, Options{})

	if rec := doGET(t, s, "/api/suggest?word=helo"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a word list, got %d", rec.Code)
	}
}

func TestDupes(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doGET(t, s, "/api/dupes")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var groups []*models.DuplicateGroup
	if err := json.Unmarshal(rec.Body.Bytes(), &groups); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	if g.Keep.Path != "/photos/a.jpg" {
		t.Errorf("expected highest-score entry kept, got %s", g.Keep.Path)
	}
	if len(g.Remove) != 1 || g.Remove[0].Path != "/photos/b.jpg" {
		t.Errorf("unexpected remove list: %+v", g.Remove)
	}
}

func TestStats(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doGET(t, s, "/api/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp statsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Images != 4 {
		t.Errorf("expected 4 images, got %d", resp.Images)
	}
	if resp.Algo != "phash" || resp.Indexed != 4 {
		t.Errorf("expected 4 phash entries indexed, got %d %s", resp.Indexed, resp.Algo)
	}
	if resp.LastScan == nil || resp.LastScan.ScanID != "scan-1" {
		t.Errorf("expected last scan scan-1, got %+v", resp.LastScan)
	}
}

func TestImage(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	imgPath := filepath.Join(dir, "real.png")

	content := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	if err := os.WriteFile(imgPath, content, 0644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}

	store, err := storage.NewStorage(dbPath)
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	entry := &models.ImageEntry{Path: imgPath, Hash: 1, Algo: "phash", Format: "png"}
	if err := store.SaveEntries([]*models.ImageEntry{entry}); err != nil {
		t.Fatalf("SaveEntries failed: %v", err)
	}
	store.Close()

	s, err := New(dbPath, Options{Algo: "phash"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	rec := doGET(t, s, "/api/image?path="+url.QueryEscape(imgPath))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !bytes.Equal(rec.Body.Bytes(), content) {
		t.Error("served image does not match file content")
	}
}

func TestImageNotInCatalog(t *testing.T) {
	s := newTestServer(t, Options{})

	if rec := doGET(t, s, "/api/image?path=/etc/passwd"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for uncataloged path, got %d", rec.Code)
	}
	if rec := doGET(t, s, "/api/image"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without path, got %d", rec.Code)
	}
}

func TestConsolePage(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doGET(t, s, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "simdex") {
		t.Error("console page missing expected content")
	}
}

func TestResponseCache(t *testing.T) {
	s := newTestServer(t, Options{})

	doGET(t, s, "/api/stats")
	s.cache.Wait()

	if _, ok := s.cache.Get("stats"); !ok {
		t.Error("expected stats response to be cached")
	}
}

func TestNewMissingWordList(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := storage.NewStorage(dbPath)
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	store.Close()

	if _, err := New(dbPath, Options{Algo: "phash", WordList: "/no/such/words.txt"}); err == nil {
		t.Error("expected error for missing word list")
	}
}
