package ai

import (
	"context"
	"fmt"

	"github.com/bilgisen/newsbridge/internal/models"
	"github.com/bilgisen/newsbridge/internal/utils"
)

// TrendInput is one article offered to the weekly synthesis.
type TrendInput struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags,omitempty"`
}

// SynthesizeTrends writes the bilingual weekly digest. WeekStart and counts
// are left for the caller.
func (t *Translator) SynthesizeTrends(ctx context.Context, items []TrendInput) (*models.WeeklyTrends, error) {
	trimmed := make([]TrendInput, len(items))
	for i, it := range items {
		it.Summary = utils.Truncate(it.Summary, 300)
		trimmed[i] = it
	}
	prompt, err := BuildJSONPrompt(trimmed)
	if err != nil {
		return nil, err
	}
	raw, err := t.llm.CompleteJSON(ctx, PromptTemplates.WeeklyTrends, prompt)
	if err != nil {
		return nil, fmt.Errorf("weekly trends: %w", err)
	}

	var out models.WeeklyTrends
	if err := decodeStrict(raw, &out); err != nil {
		return nil, fmt.Errorf("weekly trends: %w", err)
	}
	out.TitleZH = cleanText(out.TitleZH)
	out.TitleEN = cleanText(out.TitleEN)
	out.MessageZH = cleanText(out.MessageZH)
	out.MessageEN = cleanText(out.MessageEN)
	out.AdviceZH = cleanText(out.AdviceZH)
	out.AdviceEN = cleanText(out.AdviceEN)
	out.TrendsZH = cleanTags(out.TrendsZH)
	out.TrendsEN = cleanTags(out.TrendsEN)
	return &out, nil
}
