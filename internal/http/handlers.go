package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"medichat/internal/core"
	"medichat/internal/telemetry"
	"medichat/pkg"
)

// HandoffNotifier is notified when a chat turn confirms a doctor handoff.
type HandoffNotifier interface {
	NotifyHandoff(ctx context.Context, conversationID string) error
}

// Server bundles the dependencies required by the HTTP handlers and
// implements http.Handler so it can be passed to http.ListenAndServe.
type Server struct {
	Engine   *core.ChatEngine
	Notifier HandoffNotifier
	router   *mux.Router
}

// NewServer constructs a Server and registers its routes. The notifier may
// be nil, in which case handoff notifications are skipped.
func NewServer(engine *core.ChatEngine, notifier HandoffNotifier) *Server {
	s := &Server{Engine: engine, Notifier: notifier}
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", telemetry.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/api/conversations", s.handleCreateConversation).Methods(http.MethodPost)
	r.HandleFunc("/api/conversations", s.handleListConversations).Methods(http.MethodGet)
	r.HandleFunc("/api/conversations/{id}", s.handleGetConversation).Methods(http.MethodGet)
	r.HandleFunc("/api/conversations/{id}", s.handleDeleteConversation).Methods(http.MethodDelete)
	r.HandleFunc("/api/conversations/{id}/messages", s.handlePostMessage).Methods(http.MethodPost)
	r.HandleFunc("/api/triage", s.handleRunTriage).Methods(http.MethodPost)
	r.HandleFunc("/api/triage", s.handleListTriage).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/conversations/purge", s.handlePurge).Methods(http.MethodPost)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &core.ValidationError{Field: "user_id"})
		return
	}
	conv, err := s.Engine.CreateConversation(r.Context(), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("conversation_created", "conversation", conv.ID, "user", conv.UserID)
	writeJSON(w, http.StatusCreated, map[string]string{"conversation_id": conv.ID})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	previews, err := s.Engine.ListConversations(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, previews)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	conv, err := s.Engine.GetConversation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.Engine.DeleteConversation(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("conversation_deleted", "conversation", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req pkg.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &core.ValidationError{Field: "content"})
		return
	}
	result, err := s.Engine.PostMessage(r.Context(), id, req.UserID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("message_processed", "conversation", id, "mode", result.Mode)
	if result.HandoffConfirmed && s.Notifier != nil {
		// Fire and forget; a lost notification only delays the doctor side.
		go func() {
			if err := s.Notifier.NotifyHandoff(context.Background(), id); err != nil {
				slog.Warn("handoff_notify_failed", "conversation", id, "err", err)
			}
		}()
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRunTriage(w http.ResponseWriter, r *http.Request) {
	var req pkg.TriageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &core.ValidationError{Field: "symptoms"})
		return
	}
	result, err := s.Engine.RunTriage(r.Context(), req.UserID, req.Symptoms)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("triage_recorded", "user", req.UserID, "specialty", result.Triage.Specialty)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListTriage(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	records, err := s.Engine.ListTriage(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.Engine.PurgeEmptyConversations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("conversations_purged", "deleted", deleted)
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine error kinds onto HTTP statuses: validation 400,
// not found 404, upstream 502, anything else 500.
func writeError(w http.ResponseWriter, err error) {
	var (
		vErr *core.ValidationError
		uErr *core.UpstreamError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &vErr):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &uErr):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
