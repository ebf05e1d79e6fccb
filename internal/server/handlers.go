package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/streamdex/streamdex/internal/catalog"
	"github.com/streamdex/streamdex/internal/classify"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var parseErr *catalog.ParseError
	switch {
	case errors.Is(err, catalog.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.As(err, &parseErr), errors.Is(err, catalog.ErrEmptyPlaylist):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.Is(err, catalog.ErrIngestInProgress):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, catalog.ErrFetchTimeout):
		writeJSON(w, http.StatusGatewayTimeout, errorBody{Error: err.Error()})
	default:
		log.Printf("http: internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// tenantParam resolves the tenant from the user or tenant query parameter,
// falling back to the X-Tenant header.
func tenantParam(r *http.Request) (string, error) {
	q := r.URL.Query()
	for _, v := range []string{q.Get("user"), q.Get("tenant"), r.Header.Get("X-Tenant")} {
		if tenant := strings.TrimSpace(v); tenant != "" {
			return tenant, nil
		}
	}
	return "", fmt.Errorf("%w: user parameter required", catalog.ErrValidation)
}

func categoryParam(r *http.Request) string {
	if c := r.URL.Query().Get("category"); c != "" {
		return c
	}
	return "all"
}

// pageParams parses page/pageSize with defaults and the configured cap.
func (s *Server) pageParams(r *http.Request) (page, pageSize int, err error) {
	q := r.URL.Query()
	page = 0
	if v := q.Get("page"); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page < 0 {
			return 0, 0, fmt.Errorf("%w: invalid page %q", catalog.ErrValidation, v)
		}
	}
	pageSize = s.DefaultPageSize
	if v := q.Get("pageSize"); v != "" {
		pageSize, err = strconv.Atoi(v)
		if err != nil || pageSize <= 0 {
			return 0, 0, fmt.Errorf("%w: invalid pageSize %q", catalog.ErrValidation, v)
		}
	}
	if pageSize > s.MaxPageSize {
		pageSize = s.MaxPageSize
	}
	return page, pageSize, nil
}

func (s *Server) handleCategories() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		tenant, err := tenantParam(r)
		if err != nil {
			writeError(w, err)
			return
		}
		cats, err := s.Store.Categories(r.Context(), tenant)
		if err != nil {
			writeError(w, err)
			return
		}
		if cats == nil {
			cats = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"categories": cats})
	})
}

func (s *Server) handleChannels() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		tenant, err := tenantParam(r)
		if err != nil {
			writeError(w, err)
			return
		}
		page, pageSize, err := s.pageParams(r)
		if err != nil {
			writeError(w, err)
			return
		}
		res, err := s.Store.ChannelsPage(r.Context(), tenant, categoryParam(r), page, pageSize)
		if err != nil {
			writeError(w, err)
			return
		}
		if res.Channels == nil {
			res.Channels = []catalog.Channel{}
		}
		writeJSON(w, http.StatusOK, res)
	})
}

func (s *Server) handleSearch() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		tenant, err := tenantParam(r)
		if err != nil {
			writeError(w, err)
			return
		}
		page, pageSize, err := s.pageParams(r)
		if err != nil {
			writeError(w, err)
			return
		}
		res, err := s.Searcher.Search(r.Context(), tenant, r.URL.Query().Get("q"), categoryParam(r), page, pageSize)
		if err != nil {
			writeError(w, err)
			return
		}
		s.metrics.searches.Inc()
		if res.Channels == nil {
			res.Channels = []catalog.Channel{}
		}
		writeJSON(w, http.StatusOK, res)
	})
}

func (s *Server) handleSeries() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		tenant, err := tenantParam(r)
		if err != nil {
			writeError(w, err)
			return
		}
		channels, err := s.Store.ChannelsForSearch(r.Context(), tenant, categoryParam(r))
		if err != nil {
			writeError(w, err)
			return
		}
		res := classify.Group(channels)
		if res.Series == nil {
			res.Series = []catalog.Series{}
		}
		if res.Standalone == nil {
			res.Standalone = []catalog.Channel{}
		}
		writeJSON(w, http.StatusOK, res)
	})
}

func (s *Server) handleHasData() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		tenant, err := tenantParam(r)
		if err != nil {
			writeError(w, err)
			return
		}
		has, err := s.Store.HasCatalog(r.Context(), tenant)
		if err != nil {
			writeError(w, err)
			return
		}
		body := map[string]interface{}{"has_data": has}
		if has {
			if meta, err := s.Store.Metadata(r.Context(), tenant); err == nil {
				body["metadata"] = meta
			}
		}
		writeJSON(w, http.StatusOK, body)
	})
}

// handleIngest accepts either a raw playlist body or a url form/query value
// pointing at a remote playlist.
func (s *Server) handleIngest() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		tenant, err := tenantParam(r)
		if err != nil {
			writeError(w, err)
			return
		}

		raw, err := s.playlistPayload(r)
		if err != nil {
			s.metrics.ingestFailures.Inc()
			writeError(w, err)
			return
		}

		sum, err := s.Ingester.Ingest(r.Context(), tenant, raw)
		if err != nil {
			s.metrics.ingestFailures.Inc()
			writeError(w, err)
			return
		}
		s.metrics.ingests.Inc()
		writeJSON(w, http.StatusOK, sum)
	})
}

func (s *Server) playlistPayload(r *http.Request) (string, error) {
	if remote := strings.TrimSpace(r.URL.Query().Get("url")); remote != "" {
		return s.Fetcher.Playlist(r.Context(), remote)
	}
	limit := s.MaxUploadBytes
	if limit <= 0 {
		limit = 128 << 20
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(body)) > limit {
		return "", fmt.Errorf("%w: upload exceeds %d bytes", catalog.ErrValidation, limit)
	}
	if len(body) == 0 {
		return "", fmt.Errorf("%w: empty request body and no url parameter", catalog.ErrValidation)
	}
	return string(body), nil
}

func (s *Server) handleDeleteAll() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		tenant, err := tenantParam(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.Ingester.DeleteAll(r.Context(), tenant); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	})
}

func (s *Server) handleHealth() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
