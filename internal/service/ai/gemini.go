package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini chat model.
type GeminiConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature *float32
	TopP        *float32
	MaxTokens   *int
}

// GeminiChatModel adapts the Gemini API to eino's chat model interface.
type GeminiChatModel struct {
	client      *genai.Client
	model       string
	temperature *float32
	topP        *float32
	maxTokens   *int
}

var _ model.BaseChatModel = (*GeminiChatModel)(nil)

// NewGeminiChatModel creates a client for the Gemini Developer API.
func NewGeminiChatModel(ctx context.Context, cfg GeminiConfig) (*GeminiChatModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiChatModel{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Generate returns the full reply for the conversation in input.
func (m *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	name, contents, gcfg := m.buildRequest(input, opts...)

	resp, err := m.client.Models.GenerateContent(ctx, name, contents, gcfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate failed: %w", err)
	}
	return schema.AssistantMessage(resp.Text(), nil), nil
}

// Stream returns the reply as a stream of assistant message chunks.
func (m *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	name, contents, gcfg := m.buildRequest(input, opts...)

	sr, sw := schema.Pipe[*schema.Message](8)
	go func() {
		defer sw.Close()
		for resp, err := range m.client.Models.GenerateContentStream(ctx, name, contents, gcfg) {
			if err != nil {
				sw.Send(nil, fmt.Errorf("gemini stream failed: %w", err))
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			if closed := sw.Send(schema.AssistantMessage(text, nil), nil); closed {
				return
			}
		}
	}()
	return sr, nil
}

func (m *GeminiChatModel) buildRequest(input []*schema.Message, opts ...model.Option) (string, []*genai.Content, *genai.GenerateContentConfig) {
	name := m.model
	common := model.GetCommonOptions(&model.Options{
		Temperature: m.temperature,
		TopP:        m.topP,
		MaxTokens:   m.maxTokens,
		Model:       &name,
	}, opts...)

	system, contents := toGeminiContents(input)

	gcfg := &genai.GenerateContentConfig{
		Temperature:   common.Temperature,
		TopP:          common.TopP,
		StopSequences: common.Stop,
	}
	if common.MaxTokens != nil {
		gcfg.MaxOutputTokens = int32(*common.MaxTokens)
	}
	if system != "" {
		gcfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if common.Model != nil && *common.Model != "" {
		name = *common.Model
	}
	return name, contents, gcfg
}

// toGeminiContents splits eino messages into the system instruction and the
// role-tagged contents Gemini expects. Assistant turns become "model".
func toGeminiContents(input []*schema.Message) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(input))

	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			if msg.Content != "" {
				system = append(system, msg.Content)
			}
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		case schema.User:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	return strings.Join(system, "\n\n"), contents
}
