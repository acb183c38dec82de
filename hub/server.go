package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"pkt.systems/pslog"

	"pkt.systems/tileboard/internal/auth"
	"pkt.systems/tileboard/schema"
)

const shutdownTimeout = 5 * time.Second

// Server serves the WebSocket endpoint and the HTTP API around a Hub.
type Server struct {
	hub      *Hub
	verifier *auth.Verifier
	upgrader websocket.Upgrader
	log      pslog.Logger
}

// NewServer constructs an HTTP server around a running hub.
func NewServer(h *Hub, verifier *auth.Verifier, logger pslog.Logger) *Server {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Server{
		hub:      h,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Participants connect from whatever host the presenter
			// shares, so origin checking stays open.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: logger,
	}
}

// Handler returns the router for the server.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWS)
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/auth-config", s.handleAuthConfig).Methods(http.MethodGet)
	r.HandleFunc("/api/clear-session", s.handleClearSession).Methods(http.MethodPost)
	r.HandleFunc("/api/ping", s.handlePing).Methods(http.MethodGet)
	return withRequestLogging(r)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	role := schema.Role(q.Get("role"))
	if !role.Valid() {
		role = schema.RoleStudent
	}
	var studentID schema.ParticipantID
	if raw := q.Get("studentId"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			studentID = schema.ParticipantID(n)
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err, "remote", clientIP(r))
		return
	}

	if role == schema.RoleTeacher {
		if err := s.verifier.Verify(q.Get("password")); err != nil {
			s.log.Warn("teacher authentication failed", "remote", clientIP(r))
			s.rejectAuth(conn)
			return
		}
	}

	if err := s.hub.Connect(conn, role, studentID); err != nil {
		s.log.Warn("join rejected", "err", err)
		_ = conn.Close()
	}
}

// rejectAuth tells the peer why it is being dropped, then closes with the
// auth failure code so clients know not to retry with the same password.
func (s *Server) rejectAuth(conn *websocket.Conn) {
	deadline := time.Now().Add(writeWait)
	msg := schema.AuthError{
		Type:    schema.MessageAuthError,
		Message: "Invalid teacher password",
	}
	if data, err := json.Marshal(msg); err == nil {
		_ = conn.SetWriteDeadline(deadline)
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
	closeFrame := websocket.FormatCloseMessage(schema.CloseAuthFailure, "invalid teacher password")
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.WriteMessage(websocket.CloseMessage, closeFrame)
	_ = conn.Close()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	users, err := s.hub.Roster(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	type userSummary struct {
		Name string `json:"name"`
		Role string `json:"role"`
	}
	summaries := make([]userSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, userSummary{Name: u.Name, Role: string(u.Role)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "running",
		"connectedUsers": len(users),
		"users":          summaries,
	})
}

func (s *Server) handleAuthConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"teacherPasswordRequired": s.verifier.Required(),
	})
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Session cleared",
	})
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"pong": time.Now().UnixMilli(),
	})
}

// ListenAndServe starts the HTTP server and shuts it down on context
// cancellation.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	logger := pslog.Ctx(ctx)
	server := &http.Server{
		Addr:     addr,
		Handler:  handler,
		ErrorLog: pslog.LogLoggerWithLevel(logger, pslog.ErrorLevel),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

type responseRecorder struct {
	status int
	bytes  int64
	writer http.ResponseWriter
}

func (r *responseRecorder) Header() http.Header {
	return r.writer.Header()
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.writer.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.writer.Write(p)
	r.bytes += int64(n)
	return n, err
}

func (r *responseRecorder) Flush() {
	if f, ok := r.writer.(http.Flusher); ok {
		f.Flush()
	}
}

func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			// Upgrades need the raw ResponseWriter for hijacking.
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &responseRecorder{writer: w}
		next.ServeHTTP(rec, r)
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		path := r.URL.Path
		if r.URL.RawQuery != "" {
			path = path + "?" + r.URL.RawQuery
		}
		logger := pslog.Ctx(r.Context()).With("remote", clientIP(r))
		logger.Info("http request", "method", r.Method, "path", path, "status", status, "bytes", rec.bytes, "duration_ms", time.Since(start).Milliseconds())
		logger.Debug("http request details", "ua", r.UserAgent())
	})
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
