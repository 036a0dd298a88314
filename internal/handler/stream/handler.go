package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rainit/rainit/backend/internal/logging"
	chatservice "github.com/rainit/rainit/backend/internal/service/chat"
	"github.com/rainit/rainit/backend/internal/service/dialogue"
	"github.com/rainit/rainit/backend/pkg/utils"
)

// Streamer answers a message chunk by chunk.
type Streamer interface {
	StreamMessage(ctx context.Context, sessionID, text string, emit func(string)) (dialogue.Reply, error)
}

// Handler serves replies as Server-Sent Events.
type Handler struct {
	streamer Streamer
	logger   *zap.Logger
}

// New creates a stream handler.
func New(streamer Streamer, logger *zap.Logger) *Handler {
	return &Handler{
		streamer: streamer,
		logger:   logging.OrNop(logger),
	}
}

// RegisterRoutes mounts the stream routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream", h.handleQuery)
	r.Post("/stream", h.handleBody)
}

// Chunk is one delta frame.
type Chunk struct {
	Text string `json:"text"`
}

// Summary is the frame sent after the last delta. Clients that rendered
// partial text replace it with Reply when Fallback is set.
type Summary struct {
	Reply    string `json:"reply"`
	Intent   string `json:"intent"`
	Fallback bool   `json:"fallback,omitempty"`
}

type errorFrame struct {
	Error string `json:"error"`
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	h.serve(w, r, query.Get("sessionId"), query.Get("message"))
}

func (h *Handler) handleBody(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message   *string `json:"message"`
		SessionID string  `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Message == nil {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}
	h.serve(w, r, payload.SessionID, *payload.Message)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, sessionID, message string) {
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// Headers are deferred until the first frame so store errors can still
	// be answered with a plain status code.
	started := false
	start := func() {
		if !started {
			utils.SetupSSEHeaders(w)
			w.WriteHeader(http.StatusOK)
			started = true
		}
	}

	reply, err := h.streamer.StreamMessage(r.Context(), sessionID, message, func(delta string) {
		if delta == "" {
			return
		}
		start()
		if err := utils.SendSSEChunk(w, flusher, Chunk{Text: delta}); err != nil {
			h.logger.Debug("client went away mid-stream", zap.Error(err))
		}
	})
	if err != nil {
		if !started {
			respondServiceError(w, err)
			return
		}
		h.logger.Error("stream failed", zap.Error(err))
		_ = utils.SendSSEEvent(w, flusher, "error", errorFrame{Error: "stream failed"})
		_ = utils.SendSSEDone(w, flusher)
		return
	}

	start()
	_ = utils.SendSSEChunk(w, flusher, Summary{
		Reply:    reply.Text,
		Intent:   string(reply.Intent),
		Fallback: reply.Fallback,
	})
	_ = utils.SendSSEDone(w, flusher)
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatservice.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatservice.ErrEmptyText):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
