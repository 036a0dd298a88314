package dialogue

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rainit/rainit/backend/internal/analysis/intent"
	"github.com/rainit/rainit/backend/internal/logging"
	"github.com/rainit/rainit/backend/internal/model/chat"
	"github.com/rainit/rainit/backend/internal/model/persona"
	"github.com/rainit/rainit/backend/internal/service/ai"
)

// ResetAcknowledgement is returned to clients after a successful reset.
const ResetAcknowledgement = "대화 기록이 초기화되었습니다."

// Completer is the remote completion boundary. history holds the session
// log before the current user turn; text is that turn and must not be
// appended to history again.
type Completer interface {
	Complete(ctx context.Context, history []chat.Turn, systemInstruction, text string) (string, error)
	Stream(ctx context.Context, history []chat.Turn, systemInstruction, text string, onDelta func(string)) (string, error)
}

// Classifier decides whether a message gets a canned reply.
type Classifier interface {
	Classify(text string) intent.Result
}

// Log is the conversation store the coordinator appends to.
type Log interface {
	Lock(sessionID string) (func(), error)
	Append(ctx context.Context, sessionID string, role chat.Role, text string) (chat.Turn, error)
	LoadTranscript(ctx context.Context, sessionID string) ([]chat.Turn, error)
	Reset(ctx context.Context, sessionID string) error
	CreateSession(ctx context.Context) (chat.Session, error)
}

// Reply is the outcome of one exchange.
type Reply struct {
	Text     string     `json:"text"`
	Intent   intent.Tag `json:"intent"`
	Fallback bool       `json:"fallback,omitempty"`
}

// Coordinator runs each exchange: record the user turn, answer it from a
// canned intent or the model, record the model turn.
type Coordinator struct {
	log         Log
	classifier  Classifier
	completer   Completer
	instruction string
	fallback    string
	logger      *zap.Logger
}

// New wires a coordinator. completer may be nil, in which case every
// unhandled message gets the fallback reply.
func New(log Log, classifier Classifier, completer Completer, p persona.Persona, logger *zap.Logger) *Coordinator {
	fallback := p.FallbackReply
	if fallback == "" {
		fallback = persona.DefaultFallbackReply
	}
	return &Coordinator{
		log:         log,
		classifier:  classifier,
		completer:   completer,
		instruction: ai.SystemInstruction(p),
		fallback:    fallback,
		logger:      logging.OrNop(logger),
	}
}

// HandleMessage answers text within the given session. Completion failures
// never surface here; they become the fallback reply. The returned error is
// limited to store failures such as an unknown session.
func (c *Coordinator) HandleMessage(ctx context.Context, sessionID, text string) (Reply, error) {
	return c.exchange(ctx, sessionID, text, nil)
}

// StreamMessage is HandleMessage with incremental delivery: emit receives
// model deltas as they arrive, or the canned or fallback text in one piece.
// After a mid-stream failure the fallback follows the partial deltas; the
// returned Reply always holds the text that was logged.
func (c *Coordinator) StreamMessage(ctx context.Context, sessionID, text string, emit func(string)) (Reply, error) {
	if emit == nil {
		emit = func(string) {}
	}
	return c.exchange(ctx, sessionID, text, emit)
}

func (c *Coordinator) exchange(ctx context.Context, sessionID, text string, emit func(string)) (Reply, error) {
	unlock, err := c.log.Lock(sessionID)
	if err != nil {
		return Reply{}, err
	}
	defer unlock()

	started := time.Now()

	prior, err := c.log.LoadTranscript(ctx, sessionID)
	if err != nil {
		return Reply{}, err
	}
	if _, err := c.log.Append(ctx, sessionID, chat.RoleUser, text); err != nil {
		return Reply{}, err
	}

	result := c.classifier.Classify(text)
	reply := Reply{Intent: result.Tag}

	if result.Tag.Canned() {
		reply.Text = result.Reply
		if emit != nil {
			emit(reply.Text)
		}
	} else {
		generated, err := c.complete(ctx, prior, text, emit)
		reply.Text, reply.Fallback = c.resolve(sessionID, generated, err)
		if reply.Fallback && emit != nil {
			emit(reply.Text)
		}
	}

	if _, err := c.log.Append(ctx, sessionID, chat.RoleModel, reply.Text); err != nil {
		return Reply{}, err
	}

	c.logger.Info("exchange completed",
		zap.String("session", sessionLabel(sessionID)),
		zap.String("intent", string(reply.Intent)),
		zap.Bool("fallback", reply.Fallback),
		zap.Duration("elapsed", time.Since(started)))
	return reply, nil
}

func (c *Coordinator) complete(ctx context.Context, history []chat.Turn, text string, emit func(string)) (string, error) {
	if c.completer == nil {
		return "", &ai.Error{Kind: ai.KindUnavailable, Err: ai.ErrNotConfigured}
	}
	if emit != nil {
		return c.completer.Stream(ctx, history, c.instruction, text, emit)
	}
	return c.completer.Complete(ctx, history, c.instruction, text)
}

// resolve maps a completion outcome to the text that is logged and returned.
func (c *Coordinator) resolve(sessionID, generated string, err error) (string, bool) {
	if err == nil && generated == "" {
		err = &ai.Error{Kind: ai.KindEmptyResponse}
	}
	if err == nil {
		return generated, false
	}

	var aiErr *ai.Error
	switch {
	case errors.As(err, &aiErr):
		c.logger.Warn("completion failed, replying with fallback",
			zap.String("session", sessionLabel(sessionID)),
			zap.String("kind", string(aiErr.Kind)),
			zap.Error(aiErr.Err))
	default:
		c.logger.Warn("completion failed, replying with fallback",
			zap.String("session", sessionLabel(sessionID)),
			zap.Error(err))
	}
	return c.fallback, true
}

// ResetConversation empties the session log. It waits for an in-flight
// exchange of the same session to finish.
func (c *Coordinator) ResetConversation(ctx context.Context, sessionID string) error {
	unlock, err := c.log.Lock(sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.log.Reset(ctx, sessionID); err != nil {
		return err
	}
	c.logger.Info("conversation reset", zap.String("session", sessionLabel(sessionID)))
	return nil
}

// Transcript returns a copy of the session log.
func (c *Coordinator) Transcript(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	return c.log.LoadTranscript(ctx, sessionID)
}

// NewSession opens an isolated conversation.
func (c *Coordinator) NewSession(ctx context.Context) (chat.Session, error) {
	return c.log.CreateSession(ctx)
}

func sessionLabel(sessionID string) string {
	if sessionID == chat.DefaultSessionID {
		return "default"
	}
	return sessionID
}
