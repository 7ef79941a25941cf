// Package server exposes the catalog over HTTP: similarity and
// spelling queries, duplicate groups, stats and a small browser
// console.
package server

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"simdex/internal/dict"
	"simdex/internal/match"
	"simdex/internal/storage"
)

//go:embed static/*
var staticFiles embed.FS

// Options configures the server
type Options struct {
	// Addr is the listen address (defaults to :8080)
	Addr string

	// Algo selects which hash algorithm's entries to index
	Algo string

	// WordList is an optional word list file enabling /api/suggest
	WordList string
}

// Server serves the query API. The similarity index is built from the
// catalog at startup; rescan and restart to pick up new images.
type Server struct {
	store *storage.Storage
	index *match.Index
	words *dict.Dict
	cache *ristretto.Cache[string, []byte]

	addr       string
	mux        *http.ServeMux
	httpServer *http.Server
}

// New creates a Server over the catalog at dbPath
func New(dbPath string, opts Options) (*Server, error) {
	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return nil, err
	}

	entries, err := store.GetEntriesByAlgo(opts.Algo)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	var words *dict.Dict
	if opts.WordList != "" {
		words, err = dict.LoadFile(opts.WordList)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 100_000,
		MaxCost:     32 << 20, // 32 MB of cached response bodies
		BufferItems: 64,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	addr := opts.Addr
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		store: store,
		index: match.NewIndex(opts.Algo, entries),
		words: words,
		cache: cache,
		addr:  addr,
	}

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		s.Close()
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/similar", s.handleSimilar)
	mux.HandleFunc("/api/suggest", s.handleSuggest)
	mux.HandleFunc("/api/dupes", s.handleDupes)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/image", s.handleImage)
	mux.Handle("/", http.FileServer(http.FS(staticFS)))
	s.mux = mux

	return s, nil
}

// Handler returns the server's HTTP handler
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// Start listens on the configured address until SIGINT or SIGTERM
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	go s.handleShutdownSignals()

	slog.Info("server listening", "addr", s.addr, "algo", s.index.Algo(), "indexed", s.index.Size())

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleShutdownSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.httpServer.Shutdown(ctx)
	s.Close()
}

// Close releases the server's cache and database
func (s *Server) Close() {
	s.cache.Close()
	s.store.Close()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
