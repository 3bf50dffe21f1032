package models

// Summary is the structured output of the summarization engine.
type Summary struct {
	TitlePrimary   string   `json:"title_zh" validate:"required"`
	SummaryPrimary string   `json:"summary_zh" validate:"required"`
	SummaryEN      string   `json:"summary_en" validate:"required"`
	Tags           []string `json:"tags" validate:"dive,required"`
}

// TranslationResult carries the English slots of one record as returned to
// translation callers.
type TranslationResult struct {
	ID        string  `json:"id"`
	TitleEN   *string `json:"title_en"`
	SummaryEN *string `json:"summary_en"`
}
