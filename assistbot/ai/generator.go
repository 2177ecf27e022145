// Package ai produces support answers for the /support command. The
// Generator interface keeps the provider pluggable; the manager only
// ever sees a Response.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/goassist-bot/goassist/assistbot/database/models"
)

// Response is one generated answer plus the accounting the usage table
// records.
type Response struct {
	Content    string
	Provider   string
	Model      string
	TokensUsed int
}

// Generator turns a user question into a support answer. policyContext is
// the configuration's policy document, already fetched by the caller;
// implementations must respect ctx for cancellation.
type Generator interface {
	Generate(ctx context.Context, question, policyContext string, cfg *models.BotConfig) (*Response, error)
}

// StaticGenerator answers every question with a canned acknowledgment.
// It stands in until a real provider is configured and keeps the rest of
// the pipeline (logging, usage accounting) fully exercisable.
type StaticGenerator struct{}

var _ Generator = (*StaticGenerator)(nil)

func (StaticGenerator) Generate(ctx context.Context, question, policyContext string, cfg *models.BotConfig) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("empty question")
	}

	model := models.DefaultAIModel
	if cfg != nil && cfg.AIModel != "" {
		model = cfg.AIModel
	}

	content := fmt.Sprintf(
		"Thanks for your question: %q. A support team member will review it shortly.",
		question)
	if strings.TrimSpace(policyContext) != "" {
		content += " Our current policies may already cover this; please check the pinned policy summary."
	}

	return &Response{
		Content:    content,
		Provider:   "static",
		Model:      model,
		TokensUsed: estimateTokens(question + content + policyContext),
	}, nil
}

// estimateTokens approximates the usual ~4 chars/token rule so usage rows
// carry a plausible number even without a provider-reported count.
func estimateTokens(s string) int {
	n := len(s) / 4
	if n < 1 {
		n = 1
	}
	return n
}
