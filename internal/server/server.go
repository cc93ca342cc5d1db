// Package server provides the HTTP and WebSocket control surface: REST for
// session lifecycle, WebSocket for live transcript and insight pushes.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/meetingmind/platform/internal/errdefs"
	"github.com/meetingmind/platform/internal/insight"
	"github.com/meetingmind/platform/internal/session"
	"github.com/meetingmind/platform/internal/store"
	"github.com/meetingmind/platform/internal/trace"
	"github.com/meetingmind/platform/internal/transcribe"
)

// Outbound message types.
type TranscriptMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type InsightMessage struct {
	Type   string         `json:"type"`
	Bundle insight.Bundle `json:"bundle"`
}

type StatusMessage struct {
	Type      string `json:"type"`
	State     string `json:"state"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Inbound command envelope. Commands may also carry a trace_id, picked up
// separately from the raw payload.
type command struct {
	Type string `json:"type"`
}

// History serves completed-session lookups for the read-side routes.
type History interface {
	RecentSessions(limit int) ([]store.Summary, error)
	Transcript(sessionID string) (string, error)
	Segments(sessionID string) ([]transcribe.Segment, error)
}

// Server owns the connection set and fans pipeline events out to every
// client.
type Server struct {
	ctrl *session.Controller
	hist History

	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}
}

// New creates a server and starts the broadcast loop. hist may be nil; the
// history routes are then not registered.
func New(ctx context.Context, ctrl *session.Controller, hist History) *Server {
	s := &Server{
		ctrl:  ctrl,
		hist:  hist,
		conns: make(map[*websocket.Conn]struct{}),
	}
	go s.broadcastLoop(ctx)
	return s
}

// Handler returns the HTTP handler with trace and CORS middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("POST /api/session/start", s.handleStart)
	mux.HandleFunc("POST /api/session/stop", s.handleStop)
	mux.HandleFunc("GET /api/session", s.handleGet)

	if s.hist != nil {
		mux.HandleFunc("GET /api/sessions", s.handleHistory)
		mux.HandleFunc("GET /api/sessions/{id}", s.handleHistoryDetail)
	}

	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	sess, err := s.ctrl.Start(r.Context())
	s.respondLifecycle(w, r, sess, err)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	sess, err := s.ctrl.Stop(r.Context())
	s.respondLifecycle(w, r, sess, err)
}

func (s *Server) respondLifecycle(w http.ResponseWriter, r *http.Request, sess session.Session, err error) {
	w.Header().Set("Content-Type", "application/json")
	status := statusOf(sess, err)
	if err != nil {
		trace.Logger(r.Context()).Warn("session request finished with error", "error", err)
		switch {
		case errdefs.IsCode(err, errdefs.CodeInvalidState):
			w.WriteHeader(http.StatusConflict)
		case sess.State == session.StateCompleted:
			// Stopped cleanly apart from a recoverable capture warning;
			// the error rides along in the body.
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
	json.NewEncoder(w).Encode(status)
	s.broadcast(status)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess := s.ctrl.Current()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"session":    sess,
		"state":      sess.State.String(),
		"transcript": s.ctrl.Transcript(),
		"insights":   s.ctrl.Insights(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	sums, err := s.hist.RecentSessions(limit)
	if err != nil {
		trace.Logger(r.Context()).Error("list sessions failed", "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if sums == nil {
		sums = []store.Summary{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"sessions": sums})
}

func (s *Server) handleHistoryDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	text, err := s.hist.Transcript(id)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	if err != nil {
		trace.Logger(r.Context()).Error("load session failed", "session_id", id, "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}

	segments, err := s.hist.Segments(id)
	if err != nil {
		trace.Logger(r.Context()).Error("load segments failed", "session_id", id, "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":         id,
		"transcript": text,
		"segments":   segments,
	})
}

func statusOf(sess session.Session, err error) StatusMessage {
	msg := StatusMessage{
		Type:      "status",
		State:     sess.State.String(),
		SessionID: sess.ID,
	}
	if err != nil {
		msg.Error = err.Error()
	}
	return msg
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	ctx := r.Context()
	log := trace.Logger(ctx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	// New clients get the current state immediately.
	_ = wsjson.Write(ctx, conn, statusOf(s.ctrl.Current(), nil))
	if text := s.ctrl.Transcript(); text != "" {
		_ = wsjson.Write(ctx, conn, TranscriptMessage{Type: "transcript", Text: text})
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			log.Debug("bad command payload", "error", err)
			continue
		}

		cmdCtx := ctx
		if tc, ok := trace.ExtractFromJSON(data); ok {
			cmdCtx = trace.WithContext(ctx, tc)
		}

		switch cmd.Type {
		case "start":
			sess, err := s.ctrl.Start(cmdCtx)
			s.broadcast(statusOf(sess, err))
		case "stop":
			sess, err := s.ctrl.Stop(cmdCtx)
			s.broadcast(statusOf(sess, err))
		default:
			log.Debug("unknown command", "type", cmd.Type)
		}
	}
}

// broadcastLoop pushes transcript and insight updates to all clients.
// Signals are coalesced upstream; each wakeup re-reads current state.
func (s *Server) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ctrl.TranscriptUpdates():
			s.broadcast(TranscriptMessage{
				Type: "transcript",
				Text: s.ctrl.Transcript(),
			})
		case <-s.ctrl.InsightUpdates():
			s.broadcast(InsightMessage{
				Type:   "insights",
				Bundle: s.ctrl.Insights(),
			})
		}
	}
}

func (s *Server) broadcast(msg any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.conns {
		go func(c *websocket.Conn) {
			_ = wsjson.Write(context.Background(), c, msg)
		}(conn)
	}
}
