package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	boarddomain "minicalen/internal/modules/board/domain"
	apperrors "minicalen/internal/platform/errors"
)

// Server exposes the relay's REST surface and the WebSocket endpoint.
type Server struct {
	store *SQLiteSessionStore
	hub   *Hub
	log   zerolog.Logger
}

func NewServer(store *SQLiteSessionStore, hub *Hub, log zerolog.Logger) *Server {
	return &Server{store: store, hub: hub, log: log}
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.corsMiddleware)
	r.Use(s.logMiddleware)

	r.Methods(http.MethodGet).Path("/health").HandlerFunc(s.health)
	r.Methods(http.MethodPost).Path("/api/sessions").HandlerFunc(s.saveSession)
	r.Methods(http.MethodGet).Path("/api/sessions").HandlerFunc(s.listSessions)
	r.Methods(http.MethodGet).Path("/api/sessions/{id}").HandlerFunc(s.getSession)
	r.Methods(http.MethodDelete).Path("/api/sessions/{id}").HandlerFunc(s.deleteSession)
	r.Methods(http.MethodOptions).PathPrefix("/").HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	r.Path("/ws").HandlerFunc(s.websocket)
	return r
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, req)
		s.log.Info().
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Int("status", m.Code).
			Dur("duration", m.Duration).
			Msg("handled")
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type saveSessionRequest struct {
	ID    string                `json:"id"`
	State *boarddomain.Snapshot `json:"state"`
}

func (s *Server) saveSession(w http.ResponseWriter, req *http.Request) {
	body := saveSessionRequest{}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if body.ID == "" || body.State == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id and state are required"})
		return
	}
	ts, err := s.store.Save(req.Context(), body.ID, *body.State)
	if err != nil {
		s.log.Error().Err(err).Str("session", body.ID).Msg("save session failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "save failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": body.ID, "timestamp": ts.Format(time.RFC3339Nano)})
}

func (s *Server) getSession(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	snap, ts, err := s.store.Load(req.Context(), id)
	if errors.Is(err, apperrors.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("session", id).Msg("load session failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "load failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":        id,
		"timestamp": ts.Format(time.RFC3339Nano),
		"state":     snap,
	})
}

func (s *Server) listSessions(w http.ResponseWriter, req *http.Request) {
	infos, err := s.store.List(req.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("list sessions failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list failed"})
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) deleteSession(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	err := s.store.Delete(req.Context(), id)
	if errors.Is(err, apperrors.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("session", id).Msg("delete session failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "delete failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) websocket(w http.ResponseWriter, req *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	go s.hub.HandleConnection(context.Background(), conn)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
