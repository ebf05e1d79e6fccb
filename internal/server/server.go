// Package server exposes the catalog over HTTP: ingestion, paging, search,
// grouped series, health, and metrics.
package server

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"github.com/streamdex/streamdex/internal/catalog"
	"github.com/streamdex/streamdex/internal/ingest"
)

// CatalogReader is the read side of the store.
type CatalogReader interface {
	Categories(ctx context.Context, tenant string) ([]string, error)
	ChannelsPage(ctx context.Context, tenant, category string, page, pageSize int) (catalog.PageResult, error)
	ChannelsForSearch(ctx context.Context, tenant, category string) ([]catalog.Channel, error)
	HasCatalog(ctx context.Context, tenant string) (bool, error)
	Metadata(ctx context.Context, tenant string) (map[string]string, error)
}

// Searcher ranks catalog entries for a query.
type Searcher interface {
	Search(ctx context.Context, tenant, query, category string, page, pageSize int) (catalog.PageResult, error)
}

// IngestRunner replaces and deletes tenant catalogs.
type IngestRunner interface {
	Ingest(ctx context.Context, tenant, raw string) (ingest.Summary, error)
	DeleteAll(ctx context.Context, tenant string) error
}

// PlaylistFetcher downloads a remote playlist document.
type PlaylistFetcher interface {
	Playlist(ctx context.Context, rawURL string) (string, error)
}

// Server wires the HTTP API. All fields must be set before Run.
type Server struct {
	Addr     string
	MaxConns int // concurrent connection cap; 0 disables the limiter

	DefaultPageSize int
	MaxPageSize     int
	MaxUploadBytes  int64

	Store    CatalogReader
	Searcher Searcher
	Ingester IngestRunner
	Fetcher  PlaylistFetcher

	// CacheStats feeds the search cache gauges; nil omits them.
	CacheStats func() (hits, misses uint64)

	metrics *metrics
}

// Handler builds the full routed handler, including request logging and
// metrics. Run uses it; tests can drive it directly.
func (s *Server) Handler() http.Handler {
	if s.metrics == nil {
		s.metrics = newMetrics(s.CacheStats)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/categories", s.handleCategories())
	mux.Handle("/api/channels", s.handleChannels())
	mux.Handle("/api/search", s.handleSearch())
	mux.Handle("/api/series", s.handleSeries())
	mux.Handle("/api/has-data", s.handleHasData())
	mux.Handle("/api/ingest", s.handleIngest())
	mux.Handle("/api/delete-all", s.handleDeleteAll())
	mux.Handle("/healthz", s.handleHealth())
	mux.Handle("/metrics", s.metrics.handler())
	return s.logRequests(mux)
}

// Run serves until ctx is cancelled, then drains with a 10 s grace period.
func (s *Server) Run(ctx context.Context) error {
	handler := s.Handler()

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	if s.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.MaxConns)
	}

	srv := &http.Server{Handler: handler}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("api listening on %s", ln.Addr())
		serverErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		log.Print("shutting down api ...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("api shutdown: %v", err)
		}
		<-serverErr
		return nil
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *loggingResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *loggingResponseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingResponseWriter{ResponseWriter: w}
		next.ServeHTTP(lw, r)
		status := lw.status
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.observeRequest(r.Method, status)
		log.Printf(
			"http: %s %s status=%d bytes=%d dur=%s remote=%s",
			r.Method, r.URL.Path, status, lw.bytes, time.Since(start).Round(time.Millisecond), r.RemoteAddr,
		)
	})
}
