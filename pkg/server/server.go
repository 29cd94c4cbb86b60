// Package server exposes collection sessions over HTTP so a build host can
// push compile commands as they run.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/ritzau/compdb/pkg/collector"
	"github.com/ritzau/compdb/pkg/config"
	"github.com/ritzau/compdb/pkg/feed"
	"github.com/ritzau/compdb/pkg/logging"
	"github.com/ritzau/compdb/pkg/pubsub"
)

// maxBody bounds a single commands request.
const maxBody = 64 << 20

// BeginRequest is the optional body of POST /api/sessions.
type BeginRequest struct {
	Output string `json:"output,omitempty"`
}

// SessionInfo describes an open or ended session.
type SessionInfo struct {
	ID string `json:"id"`
	collector.Stats
}

// CommandsResponse answers a command delivery.
type CommandsResponse struct {
	Accepted int `json:"accepted"`
	SessionInfo
}

// Server represents the collection server
type Server struct {
	cfg       *config.Config
	router    *mux.Router
	publisher *pubsub.SSEPublisher

	mu       sync.Mutex
	sessions map[string]*collector.Session
	closed   bool
}

// NewServer creates a server whose sessions inherit cfg.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg:       cfg,
		router:    mux.NewRouter(),
		publisher: pubsub.NewSSEPublisher(pubsub.TopicConfig{BufferSize: 1}),
		sessions:  make(map[string]*collector.Session),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/api/sessions", s.handleBegin).Methods("POST")
	s.router.HandleFunc("/api/sessions", s.handleList).Methods("GET")
	s.router.HandleFunc("/api/sessions/{id}", s.handleStatus).Methods("GET")
	s.router.HandleFunc("/api/sessions/{id}", s.handleEnd).Methods("DELETE")
	s.router.HandleFunc("/api/sessions/{id}/commands", s.handleCommands).Methods("POST")
	s.router.HandleFunc("/api/sessions/{id}/events", s.handleEvents).Methods("GET")
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down and ends every
// open session.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logging.Info("collection server listening", "url", "http://"+ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errc:
	}

	// Streams never finish on their own; end them before draining requests.
	_ = s.publisher.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("server shutdown incomplete", "error", err)
	}

	endErr := s.Close()
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return endErr
}

// Close ends every open session. Sessions begun afterwards are refused.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	sessions := s.sessions
	s.sessions = make(map[string]*collector.Session)
	s.mu.Unlock()

	var errs []error
	for id, session := range sessions {
		logging.Info("ending session on shutdown", "session", id)
		if err := session.End(); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		}
	}
	_ = s.publisher.Close()
	return errors.Join(errs...)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := len(s.sessions)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": n})
}

func (s *Server) handleBegin(w http.ResponseWriter, r *http.Request) {
	var req BeginRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	cfg := *s.cfg
	if strings.TrimSpace(req.Output) != "" {
		cfg.Output = req.Output
	}
	want := absPath(cfg.Output)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		writeError(w, http.StatusServiceUnavailable, errors.New("server is shutting down"))
		return
	}
	for id, open := range s.sessions {
		if absPath(open.Stats().Output) == want {
			s.mu.Unlock()
			writeError(w, http.StatusConflict, fmt.Errorf("session %s is already writing %s", id, cfg.Output))
			return
		}
	}
	id := uuid.NewString()
	session := collector.Begin(&cfg)
	s.sessions[id] = session
	s.mu.Unlock()

	info := SessionInfo{ID: id, Stats: session.Stats()}
	logging.InfoContext(r.Context(), "session begun", "session", id, "output", cfg.Output, "disabled", info.Disabled)
	s.publish(id, "started", info)
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	infos := make([]SessionInfo, 0, len(s.sessions))
	for id, session := range s.sessions {
		infos = append(infos, SessionInfo{ID: id, Stats: session.Stats()})
	}
	s.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, session, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SessionInfo{ID: id, Stats: session.Stats()})
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	id, session, ok := s.lookup(w, r)
	if !ok {
		return
	}

	cmds, err := decodeCommands(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	for _, cmd := range cmds {
		if err := session.Process(cmd); errors.Is(err, collector.ErrEnded) {
			writeError(w, http.StatusGone, fmt.Errorf("session %s has ended", id))
			return
		}
	}

	resp := CommandsResponse{Accepted: len(cmds), SessionInfo: SessionInfo{ID: id, Stats: session.Stats()}}
	logging.Trace("commands accepted", "session", id, "count", len(cmds))
	s.publish(id, "progress", resp.SessionInfo)
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown session %q", id))
		return
	}

	err := session.End()
	info := SessionInfo{ID: id, Stats: session.Stats()}
	s.publish(id, "ended", info)
	s.publisher.Drop(pubsub.SessionTopic(id))

	if err != nil {
		logging.ErrorContext(r.Context(), "session end failed", "session", id, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	logging.InfoContext(r.Context(), "session ended", "session", id, "entries", info.Entries, "failures", info.Failures)
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id, _, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sub, err := s.publisher.Subscribe(r.Context(), pubsub.SessionTopic(id))
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	pubsub.ServeSSE(w, r, sub)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (string, *collector.Session, bool) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	session, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown session %q", id))
	}
	return id, session, ok
}

func (s *Server) publish(id, eventType string, info SessionInfo) {
	if err := s.publisher.Publish(pubsub.SessionTopic(id), eventType, info); err != nil && !errors.Is(err, pubsub.ErrClosed) {
		logging.Warn("failed to publish session event", "session", id, "error", err)
	}
}

// decodeCommands accepts a single event object, an array of them, or plain
// text with one raw command line per line.
func decodeCommands(r io.Reader) ([]collector.Command, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	trimmed := strings.TrimSpace(string(body))

	switch {
	case trimmed == "":
		return nil, nil
	case strings.HasPrefix(trimmed, "["):
		var cmds []collector.Command
		if err := json.Unmarshal(body, &cmds); err != nil {
			return nil, fmt.Errorf("decoding command array: %w", err)
		}
		return cmds, nil
	case strings.HasPrefix(trimmed, "{"):
		var cmd collector.Command
		if err := json.Unmarshal(body, &cmd); err != nil {
			return nil, fmt.Errorf("decoding command: %w", err)
		}
		return []collector.Command{cmd}, nil
	}

	var cmds []collector.Command
	for _, line := range strings.Split(string(body), "\n") {
		if cmd, ok := feed.ParseEvent(line); ok {
			cmds = append(cmds, cmd)
		}
	}
	return cmds, nil
}

func decodeOptional(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading request body: %w", err)
	}
	if strings.TrimSpace(string(body)) == "" {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding request: %w", err)
	}
	return nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return strings.ToLower(abs)
	}
	return strings.ToLower(p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
