package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/aura/backend/internal/model/persona"
)

// SystemInstruction returns the fixed instruction sent ahead of every exchange for the persona.
func SystemInstruction(p *persona.Persona) string {
	if p == nil {
		return ""
	}
	if strings.TrimSpace(p.Instruction) != "" {
		return p.Instruction
	}
	return buildBasicInstruction(p)
}

// buildBasicInstruction covers personas configured without an explicit instruction.
func buildBasicInstruction(p *persona.Persona) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("You are %s", p.Name))
	if p.Title != "" {
		builder.WriteString(fmt.Sprintf(", a %s", p.Title))
	}
	builder.WriteString(".")
	if p.Description != "" {
		builder.WriteString("\n")
		builder.WriteString(p.Description)
	}
	builder.WriteString("\nUse Markdown for formatting where appropriate.")
	return builder.String()
}
