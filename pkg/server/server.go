// Package server exposes a note store over HTTP, with a websocket change
// feed for stores that support subscriptions.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/justinas/alice"

	"github.com/aretw0/thoughts/pkg/core"
)

// Config holds the configuration for a Server.
type Config struct {
	Store  core.Store
	Logger *slog.Logger
	// Sentry reports handler panics to the Sentry hub set up by the caller.
	Sentry bool
	// WriteTimeout bounds each websocket write. Zero means 10s.
	WriteTimeout time.Duration
}

// Server serves the note API.
type Server struct {
	config Config

	mu          sync.Mutex
	ready       bool
	requests    int
	subscribers int
}

// New creates a Server that reports ready.
func New(config Config) (*Server, error) {
	if config.Store == nil {
		return nil, errors.New("server requires a store")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	return &Server{config: config, ready: true}, nil
}

// SetReady switches the health check between 200 and 503. Clients treat a
// 503 as "connected but the backend is unreachable".
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// Routes returns the API wrapped in the standard middleware chain.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.healthHandler)
	mux.HandleFunc("POST /v1/{collection}", s.createHandler)
	mux.HandleFunc("GET /v1/{collection}", s.queryHandler)
	mux.HandleFunc("DELETE /v1/{collection}/{id}", s.deleteHandler)
	mux.HandleFunc("GET /v1/{collection}/subscribe", s.subscribeHandler)

	handlers := []alice.Constructor{s.recoverer, s.logRequests}
	if s.config.Sentry {
		handlers = append([]alice.Constructor{
			sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle,
		}, handlers...)
	}

	return alice.New(handlers...).Then(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()

	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) createHandler(w http.ResponseWriter, r *http.Request) {
	var payload core.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorResponse(w, r, fmt.Errorf("invalid body: %w", err), http.StatusBadRequest)
		return
	}

	id, err := s.config.Store.Create(r.Context(), r.PathValue("collection"), payload)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateResponse{ID: id})
}

func (s *Server) queryHandler(w http.ResponseWriter, r *http.Request) {
	var order core.Order
	switch r.URL.Query().Get("order") {
	case "", OrderArrival:
		order = core.OrderNone
	case OrderNewest:
		order = core.OrderNewestFirst
	default:
		s.errorResponse(w, r, errors.New("order must be arrival or newest"), http.StatusBadRequest)
		return
	}

	notes, err := s.config.Store.Query(r.Context(), r.PathValue("collection"), order)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	if notes == nil {
		notes = []core.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) deleteHandler(w http.ResponseWriter, r *http.Request) {
	err := s.config.Store.Delete(r.Context(), r.PathValue("collection"), r.PathValue("id"))
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		s.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) subscribeHandler(w http.ResponseWriter, r *http.Request) {
	subscriber, ok := s.config.Store.(core.Subscriber)
	if !ok {
		s.errorResponse(w, r, core.ErrSubscribeUnsupported, http.StatusNotImplemented)
		return
	}
	collection := r.PathValue("collection")
	if err := core.ValidateCollection(collection); err != nil {
		s.errorResponse(w, r, err, http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.config.Logger.Warn("websocket accept error", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected exit")

	// Clients never send anything; this only watches for their close frame.
	ctx := conn.CloseRead(r.Context())

	sub, err := subscriber.Subscribe(ctx, collection)
	if err != nil {
		s.config.Logger.Error("failed to subscribe", "collection", collection, "error", err)
		conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer sub.Close()

	s.trackSubscriber(1)
	defer s.trackSubscriber(-1)

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case snapshot, ok := <-sub.Snapshots():
			if !ok {
				conn.Close(websocket.StatusGoingAway, "feed closed")
				return
			}
			if err := s.writeSnapshot(ctx, conn, snapshot); err != nil {
				s.config.Logger.Debug("websocket write failed", "collection", collection, "error", err)
				return
			}
		}
	}
}

func (s *Server) writeSnapshot(ctx context.Context, conn *websocket.Conn, snapshot []core.Note) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.WriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, snapshot)
}

func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrEmptyText),
		errors.Is(err, core.ErrInvalidCollection),
		errors.Is(err, core.ErrUnsupportedOrder):
		s.errorResponse(w, r, err, http.StatusBadRequest)
	default:
		s.config.Logger.Error("store error", "method", r.Method, "path", r.URL.Path, "error", err)
		s.errorResponse(w, r, errors.New("internal error"), http.StatusInternalServerError)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, _ *http.Request, err error, status int) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) trackSubscriber(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers += delta
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
