package ai

import (
	"fmt"
	"strings"

	"github.com/rainit/rainit/backend/internal/model/persona"
)

// SystemInstruction returns the instruction sent with every completion for
// the persona. Catalog entries without an instruction get one assembled from
// their profile.
func SystemInstruction(p persona.Persona) string {
	if instruction := strings.TrimSpace(p.Instruction); instruction != "" {
		return instruction
	}
	return buildBasicSystemPrompt(p)
}

func buildBasicSystemPrompt(p persona.Persona) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("너는 %s, %s이야. ", p.Character, p.Name))
	if p.Personality != "" {
		builder.WriteString(fmt.Sprintf("항상 %s 성격으로, 사용자와 친근하게 반말을 사용해 대화해줘. ", p.Personality))
	}
	if p.FavoriteActivity != "" {
		builder.WriteString(fmt.Sprintf("%s을 정말 좋아해. ", p.FavoriteActivity))
	}
	if len(p.Hobbies) > 0 {
		builder.WriteString(fmt.Sprintf("취미는 %s 같은 것들이야. ", strings.Join(p.Hobbies, ", ")))
	}
	builder.WriteString("부적절하거나 공격적인 내용은 피하고, 항상 긍정적으로 대화해야 해.")
	return builder.String()
}
