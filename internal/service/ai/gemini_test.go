package ai

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestToGeminiContents(t *testing.T) {
	system, contents := toGeminiContents([]*schema.Message{
		schema.SystemMessage("너는 레이닛이야."),
		schema.UserMessage("안녕"),
		schema.AssistantMessage("안녕! 🐰", nil),
		nil,
		schema.UserMessage("날씨 어때?"),
	})

	require.Equal(t, "너는 레이닛이야.", system)
	require.Len(t, contents, 3)
	require.Equal(t, string(genai.RoleUser), contents[0].Role)
	require.Equal(t, "안녕", contents[0].Parts[0].Text)
	require.Equal(t, string(genai.RoleModel), contents[1].Role)
	require.Equal(t, "날씨 어때?", contents[2].Parts[0].Text)
}

func TestBuildRequestAppliesOptions(t *testing.T) {
	temp := float32(0.7)
	maxTokens := 4096
	m := &GeminiChatModel{model: "gemini-2.0-flash", temperature: &temp, maxTokens: &maxTokens}

	name, contents, gcfg := m.buildRequest([]*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("hi"),
	})
	require.Equal(t, "gemini-2.0-flash", name)
	require.Len(t, contents, 1)
	require.Equal(t, float32(0.7), *gcfg.Temperature)
	require.Equal(t, int32(4096), gcfg.MaxOutputTokens)
	require.NotNil(t, gcfg.SystemInstruction)
	require.Equal(t, "sys", gcfg.SystemInstruction.Parts[0].Text)

	override := float32(0.1)
	name, _, gcfg = m.buildRequest(nil, model.WithTemperature(override), model.WithModel("gemini-2.5-flash"))
	require.Equal(t, "gemini-2.5-flash", name)
	require.Equal(t, float32(0.1), *gcfg.Temperature)
	require.Nil(t, gcfg.SystemInstruction)
}

func TestNewGeminiChatModelRequiresKey(t *testing.T) {
	_, err := NewGeminiChatModel(context.Background(), GeminiConfig{})
	require.Error(t, err)
}
