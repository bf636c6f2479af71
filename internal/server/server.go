// Package server exposes the coordinator over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/snapetech/mediadl/internal/coordinator"
	"github.com/snapetech/mediadl/internal/journal"
	"github.com/snapetech/mediadl/internal/materializer"
	"github.com/snapetech/mediadl/internal/metrics"
)

const (
	maxRequestBody  = 64 << 10
	shutdownTimeout = 10 * time.Second
)

// Server serves resolve requests, task status, fetch history, health and metrics.
type Server struct {
	Addr        string
	Coordinator *coordinator.Coordinator
	Journal     *journal.Journal // nil: /history answers 404
	Metrics     *metrics.Metrics // nil: /metrics answers 404
	Log         zerolog.Logger
}

type resolveRequest struct {
	URL       string `json:"url"`
	Index     uint32 `json:"index"`
	Requester string `json:"requester"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Handler returns the routed, access-logged handler. Run uses it; tests call it directly.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /resolve", s.serveResolve)
	mux.HandleFunc("POST /resolve/item", s.serveResolveItem)
	mux.HandleFunc("GET /tasks", s.serveTasks)
	mux.HandleFunc("GET /history", s.serveHistory)
	mux.Handle("GET /healthz", s.serveHealth())
	mux.Handle("GET /metrics", s.Metrics.Handler())
	return logRequests(s.Log, mux)
}

// Run listens on Addr until ctx is done, then drains for up to 10s.
func (s *Server) Run(ctx context.Context) error {
	addr := s.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.Log.Info().Str("addr", addr).Msg("listening")
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		s.Log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.Log.Warn().Err(err).Msg("shutdown")
		}
		<-serverErr
		return nil
	}
}

func (s *Server) serveResolve(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	a, err := s.Coordinator.Resolve(r.Context(), req.URL, req.Requester)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) serveResolveItem(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	a, err := s.Coordinator.ResolveItem(r.Context(), req.URL, req.Index, req.Requester)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) serveTasks(w http.ResponseWriter, r *http.Request) {
	if u := r.URL.Query().Get("url"); u != "" {
		t, ok := s.Coordinator.Task(u)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "no task for url", Code: "not_found"})
			return
		}
		writeJSON(w, http.StatusOK, t)
		return
	}
	writeJSON(w, http.StatusOK, s.Coordinator.Tasks())
}

func (s *Server) serveHistory(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "journal disabled", Code: "not_found"})
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be 1..1000", Code: "bad_request"})
			return
		}
		limit = n
	}
	entries, err := s.Journal.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// serveHealth returns 200 {"status":"ok",...} with cache and task counts.
func (s *Server) serveHealth() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := s.Coordinator.Stats()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":          "ok",
			"cache_entries":   st.CacheEntries,
			"tasks_in_flight": st.TasksInFlight,
		})
	})
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (resolveRequest, bool) {
	var req resolveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid body: " + err.Error(), Code: "bad_request"})
		return req, false
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "url is required", Code: "bad_request"})
		return req, false
	}
	return req, true
}

// statusFor maps resolve errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, coordinator.ErrUnsupportedSource):
		return http.StatusUnprocessableEntity
	case errors.Is(err, coordinator.ErrAlreadyInProgress):
		return http.StatusConflict
	case errors.Is(err, coordinator.ErrContentUnavailable):
		return http.StatusGone
	case errors.Is(err, materializer.ErrItemOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, coordinator.ErrFetchFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499 // client closed request
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := coordinator.Code(err)
	if errors.Is(err, materializer.ErrItemOutOfRange) {
		code = "item_out_of_range"
	}
	status := statusFor(err)
	if status >= 500 && status != http.StatusBadGateway {
		s.Log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
