package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/rainit/rainit/backend/internal/logging"
	"github.com/rainit/rainit/backend/internal/model/chat"
)

// Options tunes a Service.
type Options struct {
	// Timeout bounds a single completion. Zero leaves it to the request context.
	Timeout time.Duration
	// Streaming selects the model's streaming mode for Stream calls.
	Streaming bool
	Logger    *zap.Logger
}

// Service sends a conversation to the chat model through an eino chain of
// system prompt, history placeholder and user query.
type Service struct {
	chatModel model.BaseChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
	opts      Options
	logger    *zap.Logger
}

// NewService compiles the chat chain around chatModel.
func NewService(ctx context.Context, chatModel model.BaseChatModel, opts Options) (*Service, error) {
	if chatModel == nil {
		return nil, ErrNotConfigured
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		chain:     runnable,
		opts:      opts,
		logger:    logging.OrNop(opts.Logger),
	}, nil
}

// StreamingEnabled reports whether Stream uses the model's streaming mode.
func (s *Service) StreamingEnabled() bool {
	return s != nil && s.opts.Streaming
}

// Complete returns the model's reply to text given the prior turns. Every
// failure is an *Error.
func (s *Service) Complete(ctx context.Context, history []chat.Turn, systemInstruction, text string) (string, error) {
	if s == nil {
		return "", newError(KindUnavailable, ErrNotConfigured)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	response, err := s.chain.Invoke(ctx, buildChainInput(history, systemInstruction, text))
	if err != nil {
		return "", newError(KindUpstream, err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", newError(KindEmptyResponse, nil)
	}

	s.logger.Debug("generated response",
		zap.Int("history", len(history)),
		zap.Int("length", len(response.Content)))
	return response.Content, nil
}

// Stream behaves like Complete but hands each delta to onDelta as it
// arrives. With streaming disabled the whole reply is delivered as one delta.
func (s *Service) Stream(ctx context.Context, history []chat.Turn, systemInstruction, text string, onDelta func(string)) (string, error) {
	if !s.StreamingEnabled() {
		reply, err := s.Complete(ctx, history, systemInstruction, text)
		if err != nil {
			return "", err
		}
		if onDelta != nil {
			onDelta(reply)
		}
		return reply, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	stream, err := s.chain.Stream(ctx, buildChainInput(history, systemInstruction, text))
	if err != nil {
		return "", newError(KindUpstream, err)
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", newError(KindUpstream, recvErr)
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" && onDelta != nil {
			onDelta(chunk.Content)
		}
	}

	if len(chunks) == 0 {
		return "", newError(KindEmptyResponse, nil)
	}
	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", newError(KindUpstream, err)
	}
	if strings.TrimSpace(response.Content) == "" {
		return "", newError(KindEmptyResponse, nil)
	}
	return response.Content, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout > 0 {
		return context.WithTimeout(ctx, s.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

func buildChainInput(history []chat.Turn, systemInstruction, text string) map[string]any {
	return map[string]any{
		"system":  systemInstruction,
		"history": buildHistoryMessages(history),
		"query":   text,
	}
}

func buildHistoryMessages(turns []chat.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Text))
		case chat.RoleModel:
			history = append(history, schema.AssistantMessage(turn.Text, nil))
		}
	}
	return history
}
