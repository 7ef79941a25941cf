package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"simdex/internal/dict"
	"simdex/internal/imghash"
	"simdex/internal/models"
	"simdex/internal/storage"
)

// Cached responses stay valid briefly; the index itself never changes
// within a server's lifetime but the catalog tables can.
const (
	queryCacheTTL   = time.Minute
	catalogCacheTTL = 10 * time.Second
)

// respondCached serves a JSON response through the cache
func (s *Server) respondCached(w http.ResponseWriter, key string, ttl time.Duration, build func() (any, error)) {
	if body, ok := s.cache.Get(key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
		return
	}

	v, err := build()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.cache.SetWithTTL(key, body, int64(len(body)), ttl)

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

type similarResponse struct {
	Query     uint64             `json:"query"`
	Algo      string             `json:"algo"`
	MaxDist   int                `json:"max_distance"`
	Neighbors []*models.Neighbor `json:"neighbors"`
}

// handleSimilar finds catalog entries near a query hash. The query is
// either ?hash= (decimal or 0x-prefixed) or ?path=, a local image to
// hash first.
func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	maxDist := 10
	if n := r.URL.Query().Get("n"); n != "" {
		v, err := strconv.Atoi(n)
		if err != nil {
			http.Error(w, "invalid n", http.StatusBadRequest)
			return
		}
		maxDist = v
	}

	var hash uint64
	switch {
	case r.URL.Query().Get("path") != "":
		entry, err := imghash.New(s.index.Algo()).Entry(r.URL.Query().Get("path"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		hash = entry.Hash
	case r.URL.Query().Get("hash") != "":
		v, err := strconv.ParseUint(r.URL.Query().Get("hash"), 0, 64)
		if err != nil {
			http.Error(w, "invalid hash", http.StatusBadRequest)
			return
		}
		hash = v
	default:
		http.Error(w, "hash or path required", http.StatusBadRequest)
		return
	}

	s.respondCached(w, "similar?"+r.URL.RawQuery, queryCacheTTL, func() (any, error) {
		return &similarResponse{
			Query:     hash,
			Algo:      s.index.Algo(),
			MaxDist:   maxDist,
			Neighbors: s.index.Neighbors(hash, maxDist),
		}, nil
	})
}

type suggestResponse struct {
	Word        string            `json:"word"`
	MaxDist     int               `json:"max_distance"`
	Suggestions []dict.Suggestion `json:"suggestions"`
}

// handleSuggest returns spelling suggestions from the word list
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if s.words == nil {
		http.Error(w, "no word list loaded", http.StatusServiceUnavailable)
		return
	}

	word := r.URL.Query().Get("word")
	if word == "" {
		http.Error(w, "word required", http.StatusBadRequest)
		return
	}

	maxDist := 2
	if n := r.URL.Query().Get("n"); n != "" {
		v, err := strconv.Atoi(n)
		if err != nil {
			http.Error(w, "invalid n", http.StatusBadRequest)
			return
		}
		maxDist = v
	}

	s.respondCached(w, "suggest?"+r.URL.RawQuery, queryCacheTTL, func() (any, error) {
		return &suggestResponse{
			Word:        word,
			MaxDist:     maxDist,
			Suggestions: s.words.Suggest(word, maxDist),
		}, nil
	})
}

// handleDupes returns all duplicate groups
func (s *Server) handleDupes(w http.ResponseWriter, r *http.Request) {
	s.respondCached(w, "dupes", catalogCacheTTL, func() (any, error) {
		groups, err := s.store.GetDuplicateGroups()
		if err != nil {
			return nil, err
		}
		if groups == nil {
			groups = []*models.DuplicateGroup{}
		}
		return groups, nil
	})
}

type statsResponse struct {
	*storage.Stats
	Algo     string              `json:"algo"`
	Indexed  int                 `json:"indexed"`
	Words    int                 `json:"words"`
	LastScan *models.ScanSummary `json:"last_scan,omitempty"`
}

// handleStats returns catalog and index statistics
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respondCached(w, "stats", catalogCacheTTL, func() (any, error) {
		stats, err := s.store.GetStats()
		if err != nil {
			return nil, err
		}
		last, err := s.store.GetLastScan()
		if err != nil {
			return nil, err
		}

		resp := &statsResponse{
			Stats:    stats,
			Algo:     s.index.Algo(),
			Indexed:  s.index.Size(),
			LastScan: last,
		}
		if s.words != nil {
			resp.Words = s.words.Len()
		}
		return resp, nil
	})
}

// handleImage serves a cataloged image file for the console preview.
// Paths not present in the catalog are rejected.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "path required", http.StatusBadRequest)
		return
	}

	entry, err := s.store.GetEntryByPath(path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entry == nil {
		http.Error(w, "not in catalog", http.StatusNotFound)
		return
	}

	http.ServeFile(w, r, path)
}
