package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rainit/rainit/backend/internal/logging"
	"github.com/rainit/rainit/backend/internal/model/chat"
	chatservice "github.com/rainit/rainit/backend/internal/service/chat"
	"github.com/rainit/rainit/backend/internal/service/dialogue"
	"github.com/rainit/rainit/backend/pkg/utils"
)

const maxBodyBytes = 1 << 20

// Conversation is the dialogue surface the handler drives.
type Conversation interface {
	HandleMessage(ctx context.Context, sessionID, text string) (dialogue.Reply, error)
	ResetConversation(ctx context.Context, sessionID string) error
	Transcript(ctx context.Context, sessionID string) ([]chat.Turn, error)
	NewSession(ctx context.Context) (chat.Session, error)
}

// Handler serves the JSON chat endpoints.
type Handler struct {
	conversation Conversation
	logger       *zap.Logger
}

// New creates a chat handler.
func New(conversation Conversation, logger *zap.Logger) *Handler {
	return &Handler{
		conversation: conversation,
		logger:       logging.OrNop(logger),
	}
}

// RegisterRoutes mounts the chat routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Post("/reset", h.handleReset)
	r.Post("/session", h.handleCreateSession)
	r.Get("/history", h.handleHistory)
}

type chatRequest struct {
	Message   *string `json:"message"`
	SessionID string  `json:"sessionId"`
}

type chatResponse struct {
	Text     string `json:"text"`
	Intent   string `json:"intent,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.Message == nil || *payload.Message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := h.conversation.HandleMessage(r.Context(), payload.SessionID, *payload.Message)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, chatResponse{
		Text:     reply.Text,
		Intent:   string(reply.Intent),
		Fallback: reply.Fallback,
	})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	// Reset always succeeds: a missing or undecodable body resets the
	// default session.
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		if !errors.Is(err, io.EOF) {
			h.logger.Debug("ignoring undecodable reset body", zap.Error(err))
		}
		payload.SessionID = chat.DefaultSessionID
	}

	if err := h.conversation.ResetConversation(r.Context(), payload.SessionID); err != nil {
		h.respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": dialogue.ResetAcknowledgement})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.conversation.NewSession(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, session)
}

type historyResponse struct {
	SessionID string      `json:"sessionId"`
	Turns     []chat.Turn `json:"turns"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")

	turns, err := h.conversation.Transcript(r.Context(), sessionID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if turns == nil {
		turns = []chat.Turn{}
	}

	utils.RespondJSON(w, http.StatusOK, historyResponse{SessionID: sessionID, Turns: turns})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatservice.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatservice.ErrEmptyText):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("chat request failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
