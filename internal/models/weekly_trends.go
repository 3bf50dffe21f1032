package models

import "time"

// WeeklyTrends is one synthesized weekly digest, keyed by the week's start date.
type WeeklyTrends struct {
	WeekStart    time.Time `json:"week_start"`
	TitleZH      string    `json:"title_zh" validate:"required"`
	TitleEN      string    `json:"title_en" validate:"required"`
	MessageZH    string    `json:"message_zh" validate:"required"`
	MessageEN    string    `json:"message_en" validate:"required"`
	TrendsZH     []string  `json:"trends_zh" validate:"required,min=1"`
	TrendsEN     []string  `json:"trends_en" validate:"required,min=1"`
	AdviceZH     string    `json:"advice_zh"`
	AdviceEN     string    `json:"advice_en"`
	ArticleCount int       `json:"article_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// WeekKey formats the week start as the storage and archive key.
func (w *WeeklyTrends) WeekKey() string {
	return w.WeekStart.Format("2006-01-02")
}
