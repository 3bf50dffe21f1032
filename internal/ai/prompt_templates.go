package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PromptTemplates holds the system prompts for every model call.
var PromptTemplates = struct {
	Summarize    string
	ToPrimary    string
	ToEnglish    string
	BatchEnglish string
	WeeklyTrends string
}{
	Summarize: `You are a bilingual (Simplified Chinese / English) technology news editor.
Read the article and respond with a JSON object with exactly these fields:
- title_zh: a concise, accurate headline in Simplified Chinese
- summary_zh: a 2-4 sentence summary in Simplified Chinese
- summary_en: the same summary in English
- tags: 3 to 5 short topic tags in English (strings)
Do not invent facts that are not in the article.`,

	ToPrimary: `You translate technology news into Simplified Chinese.
Respond with a JSON object with fields:
- title_zh: the headline in Simplified Chinese
- summary_zh: a 2-4 sentence summary in Simplified Chinese. If a summary is given, translate it; otherwise write one from the headline.
Keep product and company names in their original form.`,

	ToEnglish: `You translate technology news from Simplified Chinese into English.
Respond with a JSON object with fields:
- title_en: the headline in English
- summary_en: the summary in English, or an empty string when no summary is given.
Keep product and company names in their original form.`,

	BatchEnglish: `You translate technology news from Simplified Chinese into English.
You receive a JSON array of items with id, title and summary.
Respond with a JSON object: {"results": [{"id": "...", "title_en": "...", "summary_en": "..."}]}
Return one result per input item, with the same id. Use an empty string for summary_en when the item has no summary.`,

	WeeklyTrends: `You are the editor of a weekly AI industry briefing written in both Simplified Chinese and English.
From the week's articles, respond with a JSON object with fields:
- title_zh, title_en: a headline for the week
- message_zh, message_en: a 3-5 sentence overview
- trends_zh, trends_en: 3 to 5 key trends (arrays of strings, same order in both languages)
- advice_zh, advice_en: one short piece of advice for practitioners`,
}

// BuildSummarizePrompt creates the user prompt for the summarization engine.
func BuildSummarizePrompt(title, content string) string {
	return fmt.Sprintf("Title: %s\n\nContent: %s", escapeForPrompt(title), escapeForPrompt(content))
}

// BuildTranslatePrompt creates the user prompt for single-record translation.
func BuildTranslatePrompt(title, summary string) string {
	if strings.TrimSpace(summary) == "" {
		return fmt.Sprintf("Title: %s", escapeForPrompt(title))
	}
	return fmt.Sprintf("Title: %s\n\nSummary: %s", escapeForPrompt(title), escapeForPrompt(summary))
}

// BuildJSONPrompt marshals v as the user prompt.
func BuildJSONPrompt(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal prompt: %w", err)
	}
	return string(b), nil
}

// escapeForPrompt flattens text onto one logical line for the prompt.
func escapeForPrompt(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.TrimSpace(s)
}
