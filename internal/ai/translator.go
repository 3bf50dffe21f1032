package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// PrimaryText is a translation into the primary language.
type PrimaryText struct {
	Title   string `json:"title_zh" validate:"required"`
	Summary string `json:"summary_zh"`
}

// EnglishText is a translation into English.
type EnglishText struct {
	Title   string `json:"title_en" validate:"required"`
	Summary string `json:"summary_en"`
}

// BatchItem is one record in a batch translation request.
type BatchItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
}

// BatchResult is one record in a batch translation response.
type BatchResult struct {
	ID        string `json:"id" validate:"required"`
	TitleEN   string `json:"title_en"`
	SummaryEN string `json:"summary_en"`
}

type batchEnvelope struct {
	Results []BatchResult `json:"results"`
}

// Translator wraps the translation calls of the consistency engine and the
// batch translation service.
type Translator struct {
	llm Completer
}

func NewTranslator(llm Completer) *Translator {
	return &Translator{llm: llm}
}

// ToPrimary translates title (and summary, when present) into the primary language.
func (t *Translator) ToPrimary(ctx context.Context, title, summary string) (*PrimaryText, error) {
	raw, err := t.llm.CompleteJSON(ctx, PromptTemplates.ToPrimary, BuildTranslatePrompt(title, summary))
	if err != nil {
		return nil, fmt.Errorf("translate to primary: %w", err)
	}
	var out PrimaryText
	if err := decodeStrict(raw, &out); err != nil {
		return nil, fmt.Errorf("translate to primary: %w", err)
	}
	out.Title = cleanText(out.Title)
	out.Summary = cleanText(out.Summary)
	return &out, nil
}

// ToEnglish translates primary-language title and summary into English.
func (t *Translator) ToEnglish(ctx context.Context, title, summary string) (*EnglishText, error) {
	raw, err := t.llm.CompleteJSON(ctx, PromptTemplates.ToEnglish, BuildTranslatePrompt(title, summary))
	if err != nil {
		return nil, fmt.Errorf("translate to english: %w", err)
	}
	var out EnglishText
	if err := decodeStrict(raw, &out); err != nil {
		return nil, fmt.Errorf("translate to english: %w", err)
	}
	out.Title = cleanText(out.Title)
	out.Summary = cleanText(out.Summary)
	return &out, nil
}

// TranslateBatch sends all items in one call. Results that fail validation
// are dropped; the caller treats missing ids as untranslated.
func (t *Translator) TranslateBatch(ctx context.Context, items []BatchItem) ([]BatchResult, error) {
	if len(items) == 0 {
		return nil, nil
	}
	prompt, err := BuildJSONPrompt(items)
	if err != nil {
		return nil, err
	}
	raw, err := t.llm.CompleteJSON(ctx, PromptTemplates.BatchEnglish, prompt)
	if err != nil {
		return nil, fmt.Errorf("batch translate: %w", err)
	}

	results, err := decodeBatch(raw)
	if err != nil {
		return nil, fmt.Errorf("batch translate: %w", err)
	}

	valid := make([]BatchResult, 0, len(results))
	for _, r := range results {
		r.ID = strings.TrimSpace(r.ID)
		r.TitleEN = cleanText(r.TitleEN)
		r.SummaryEN = cleanText(r.SummaryEN)
		if validate.Struct(r) != nil || (r.TitleEN == "" && r.SummaryEN == "") {
			continue
		}
		valid = append(valid, r)
	}
	return valid, nil
}

// decodeBatch accepts {"results": [...]}, a bare array, or an object whose
// only array of results sits under another key.
func decodeBatch(raw string) ([]BatchResult, error) {
	s := cleanJSON(raw)
	if s == "" {
		return nil, ErrEmptyResponse
	}

	if strings.HasPrefix(s, "[") {
		var arr []BatchResult
		if err := json.Unmarshal([]byte(s), &arr); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		return arr, nil
	}

	var env batchEnvelope
	if err := json.Unmarshal([]byte(s), &env); err == nil && len(env.Results) > 0 {
		return env.Results, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var arr []BatchResult
		if json.Unmarshal(obj[k], &arr) == nil && len(arr) > 0 && arr[0].ID != "" {
			return arr, nil
		}
	}

	var single BatchResult
	if json.Unmarshal([]byte(s), &single) == nil && single.ID != "" {
		return []BatchResult{single}, nil
	}
	return nil, fmt.Errorf("%w: no results array", ErrInvalidResponse)
}
