package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/bilgisen/newsbridge/internal/models"
	"github.com/bilgisen/newsbridge/internal/utils"
)

const DefaultContentMaxChars = 4000

// Summarizer is the summarization engine: headline plus body in, structured
// bilingual summary out.
type Summarizer struct {
	llm      Completer
	maxChars int
}

func NewSummarizer(llm Completer, maxChars int) *Summarizer {
	if maxChars <= 0 {
		maxChars = DefaultContentMaxChars
	}
	return &Summarizer{llm: llm, maxChars: maxChars}
}

// Summarize returns nil and an error on any model or schema failure; the
// caller keeps the record unchanged for a later run. An empty content falls
// back to the title.
func (s *Summarizer) Summarize(ctx context.Context, title, content string) (*models.Summary, error) {
	if strings.TrimSpace(content) == "" {
		content = title
	}
	content = utils.Truncate(content, s.maxChars)

	raw, err := s.llm.CompleteJSON(ctx, PromptTemplates.Summarize, BuildSummarizePrompt(title, content))
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	var out models.Summary
	if err := decodeStrict(raw, &out); err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	processSummary(&out)
	if out.TitlePrimary == "" || out.SummaryPrimary == "" || out.SummaryEN == "" {
		return nil, fmt.Errorf("summarize: %w: blank fields after cleaning", ErrInvalidResponse)
	}
	return &out, nil
}
