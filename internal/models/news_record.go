package models

import (
	"time"
	"unicode/utf8"
)

// NewsRecord is the persisted news item. Language-paired slots are optional:
// Title/TitleEN and SummaryPrimary/SummaryEN are filled independently over
// the record's lifetime.
type NewsRecord struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	OriginalURL string `json:"original_url"`
	Source      string `json:"source"`

	Title          string  `json:"title"`
	TitleEN        *string `json:"title_en"`
	SummaryPrimary *string `json:"summary_primary"`
	SummaryEN      *string `json:"summary_en"`

	Tags            []string  `json:"tags"`
	Clicks          int64     `json:"clicks"`
	AudioURLPrimary *string   `json:"audio_url_primary,omitempty"`
	AudioURLEN      *string   `json:"audio_url_en,omitempty"`
	PublishedAt     time.Time `json:"published_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// Pending reports whether the record still waits for the summarizer.
func (r *NewsRecord) Pending() bool {
	return r.SummaryPrimary == nil
}

// NeedsEnglish reports whether a primary slot has content whose English
// counterpart is missing.
func (r *NewsRecord) NeedsEnglish() bool {
	if r.TitleEN == nil && r.Title != "" {
		return true
	}
	return r.SummaryEN == nil && r.SummaryPrimary != nil && *r.SummaryPrimary != ""
}

// RecordPatch is a field-level update. Nil fields are left untouched.
type RecordPatch struct {
	Title          *string   `json:"title,omitempty"`
	TitleEN        *string   `json:"title_en,omitempty"`
	SummaryPrimary *string   `json:"summary_primary,omitempty"`
	SummaryEN      *string   `json:"summary_en,omitempty"`
	Tags           *[]string `json:"tags,omitempty"`
}

// IsEmpty reports whether the patch would change nothing.
func (p RecordPatch) IsEmpty() bool {
	return p.Title == nil && p.TitleEN == nil && p.SummaryPrimary == nil &&
		p.SummaryEN == nil && p.Tags == nil
}

// Apply copies the set fields of p onto r.
func (p RecordPatch) Apply(r *NewsRecord) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.TitleEN != nil {
		r.TitleEN = StringPtr(*p.TitleEN)
	}
	if p.SummaryPrimary != nil {
		r.SummaryPrimary = StringPtr(*p.SummaryPrimary)
	}
	if p.SummaryEN != nil {
		r.SummaryEN = StringPtr(*p.SummaryEN)
	}
	if p.Tags != nil {
		r.Tags = append([]string(nil), (*p.Tags)...)
	}
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// RuneLen is the character length used by every length rule on record text.
func RuneLen(s *string) int {
	if s == nil {
		return 0
	}
	return utf8.RuneCountInString(*s)
}
