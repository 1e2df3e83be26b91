package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"contractdiff/internal/diff"
	u "contractdiff/internal/utils"
)

// ErrMissingAPIKey signals that an analysis was requested without credentials.
var ErrMissingAPIKey = errors.New("llm api key is required for analysis")

const systemPrompt = "You are a legal contract analyst. You review summaries of " +
	"differences between an original contract and its signed version and explain " +
	"the main implications for the contracting company."

// Analyst produces an implications analysis of a comparison summary through
// an OpenAI-compatible chat model. The API key is supplied per request by the
// client; it is never stored.
type Analyst struct {
	baseURL     string
	model       string
	maxTokens   int
	temperature float32
}

// NewAnalyst builds an Analyst from the service configuration.
func NewAnalyst(cfg u.Config) *Analyst {
	return &Analyst{
		baseURL:     cfg.LLM.BaseURL,
		model:       cfg.LLM.Model,
		maxTokens:   cfg.LLM.MaxTokens,
		temperature: cfg.LLM.Temperature,
	}
}

// Analyze asks the chat model for a short implications analysis of the given
// summary.
func (a *Analyst) Analyze(ctx context.Context, apiKey string, sum *diff.Summary) (string, error) {
	if apiKey == "" {
		return "", ErrMissingAPIKey
	}

	cm, err := openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		APIKey:  apiKey,
		BaseURL: a.baseURL,
		Model:   a.model,
	})
	if err != nil {
		return "", fmt.Errorf("create chat model: %w", err)
	}

	msg, err := cm.Generate(ctx,
		[]*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(buildPrompt(sum)),
		},
		model.WithMaxTokens(a.maxTokens),
		model.WithTemperature(a.temperature),
	)
	if err != nil {
		return "", fmt.Errorf("generate analysis: %w", err)
	}

	return strings.TrimSpace(msg.Content), nil
}

// buildPrompt condenses the summary into a short prompt: counts plus the
// leading changed terms per bucket.
func buildPrompt(sum *diff.Summary) string {
	var b strings.Builder
	b.WriteString("Based on this summary of changes between the original contract ")
	b.WriteString("and the signed version, write a short paragraph explaining the ")
	b.WriteString("main implications for the contracting company and two recommended actions.\n\n")

	fmt.Fprintf(&b, "Words added: %d, deleted: %d, replaced (old/new): %d/%d\n",
		sum.Counts.Added, sum.Counts.Deleted, sum.Counts.ReplacedOld, sum.Counts.ReplacedNew)
	writeTerms(&b, "Top added terms", sum.AddedTop)
	writeTerms(&b, "Top deleted terms", sum.DeletedTop)

	b.WriteString("\nAnswer with clear bullet points.")
	return b.String()
}

func writeTerms(b *strings.Builder, label string, terms []diff.TermCount) {
	const maxTerms = 8
	if len(terms) == 0 {
		return
	}
	if len(terms) > maxTerms {
		terms = terms[:maxTerms]
	}
	b.WriteString(label)
	b.WriteString(": ")
	for i, tc := range terms {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%s (%d)", tc.Term, tc.Count)
	}
	b.WriteString("\n")
}
