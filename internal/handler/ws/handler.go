package ws

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rainit/rainit/backend/internal/logging"
	chatservice "github.com/rainit/rainit/backend/internal/service/chat"
	"github.com/rainit/rainit/backend/internal/service/dialogue"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// Conversation is the dialogue surface reachable over a socket.
type Conversation interface {
	HandleMessage(ctx context.Context, sessionID, text string) (dialogue.Reply, error)
	StreamMessage(ctx context.Context, sessionID, text string, emit func(string)) (dialogue.Reply, error)
	ResetConversation(ctx context.Context, sessionID string) error
}

// Handler serves chat over a WebSocket.
type Handler struct {
	conversation Conversation
	logger       *zap.Logger
	upgrader     websocket.Upgrader
}

// New creates a WebSocket handler. Browser origins are checked against
// allowedOrigins; a "*" entry accepts any origin.
func New(conversation Conversation, allowedOrigins []string, logger *zap.Logger) *Handler {
	return &Handler{
		conversation: conversation,
		logger:       logging.OrNop(logger),
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the socket route on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

// Message types.
const (
	TypeChat      = "chat"
	TypeReset     = "reset"
	TypeConnected = "connected"
	TypeDelta     = "delta"
	TypeReply     = "reply"
	TypeError     = "error"
)

// Inbound is a client frame.
type Inbound struct {
	Type      string  `json:"type"`
	Message   *string `json:"message,omitempty"`
	SessionID *string `json:"sessionId,omitempty"`
	Stream    bool    `json:"stream,omitempty"`
}

// Outbound is a server frame.
type Outbound struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Text      string `json:"text,omitempty"`
	Intent    string `json:"intent,omitempty"`
	Fallback  bool   `json:"fallback,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("websocket connected", zap.String("remote", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go h.pingLoop(ctx, conn)

	h.send(conn, Outbound{Type: TypeConnected, SessionID: sessionID})

	for {
		var msg Inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		target := sessionID
		if msg.SessionID != nil {
			target = *msg.SessionID
		}
		h.dispatch(ctx, conn, target, msg)
	}
}

func (h *Handler) dispatch(ctx context.Context, conn *websocket.Conn, sessionID string, msg Inbound) {
	switch msg.Type {
	case TypeChat:
		if msg.Message == nil || *msg.Message == "" {
			h.send(conn, Outbound{Type: TypeError, Error: "message is required"})
			return
		}

		var (
			reply dialogue.Reply
			err   error
		)
		if msg.Stream {
			reply, err = h.conversation.StreamMessage(ctx, sessionID, *msg.Message, func(delta string) {
				h.send(conn, Outbound{Type: TypeDelta, SessionID: sessionID, Text: delta})
			})
		} else {
			reply, err = h.conversation.HandleMessage(ctx, sessionID, *msg.Message)
		}
		if err != nil {
			h.send(conn, Outbound{Type: TypeError, SessionID: sessionID, Error: describe(err)})
			return
		}
		h.send(conn, Outbound{
			Type:      TypeReply,
			SessionID: sessionID,
			Text:      reply.Text,
			Intent:    string(reply.Intent),
			Fallback:  reply.Fallback,
		})

	case TypeReset:
		if err := h.conversation.ResetConversation(ctx, sessionID); err != nil {
			h.send(conn, Outbound{Type: TypeError, SessionID: sessionID, Error: describe(err)})
			return
		}
		h.send(conn, Outbound{Type: TypeReset, SessionID: sessionID, Message: dialogue.ResetAcknowledgement})

	default:
		h.send(conn, Outbound{Type: TypeError, Error: "unsupported message type"})
	}
}

// send is only called from the read loop goroutine, so writes never overlap.
func (h *Handler) send(conn *websocket.Conn, msg Outbound) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("websocket write failed", zap.String("type", msg.Type), zap.Error(err))
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, chatservice.ErrSessionNotFound):
		return "session not found"
	case errors.Is(err, chatservice.ErrEmptyText):
		return "message is required"
	default:
		return "internal error"
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}
