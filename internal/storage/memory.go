package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bilgisen/newsbridge/internal/models"
)

// MemoryStore keeps records in process. It backs local runs without a
// database and the package tests of every pipeline component.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.NewsRecord
	byURL   map[string]string
	weeks   map[string]*models.WeeklyTrends
	updates int
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*models.NewsRecord),
		byURL:   make(map[string]string),
		weeks:   make(map[string]*models.WeeklyTrends),
		now:     time.Now,
	}
}

func (s *MemoryStore) ExistsByURL(ctx context.Context, url string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byURL[url]
	return ok, nil
}

func (s *MemoryStore) Insert(ctx context.Context, rec *models.NewsRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byURL[rec.OriginalURL]; ok {
		return false, nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	c := cloneRecord(rec)
	s.records[c.ID] = c
	s.byURL[c.OriginalURL] = c.ID
	return true, nil
}

func (s *MemoryStore) LatestCreatedAt(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	for _, r := range s.records {
		if r.CreatedAt.After(latest) {
			latest = r.CreatedAt
		}
	}
	return latest, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.NewsRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(r), nil
}

func (s *MemoryStore) GetByIDs(ctx context.Context, ids []string) ([]models.NewsRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.NewsRecord, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		r, ok := s.records[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, *cloneRecord(r))
	}
	return out, nil
}

func (s *MemoryStore) List(ctx context.Context, q Query) ([]models.NewsRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(q.TitleContains)
	var out []models.NewsRecord
	for _, r := range s.records {
		if !q.PublishedSince.IsZero() && r.PublishedAt.Before(q.PublishedSince) {
			continue
		}
		if q.PendingSummary && r.SummaryPrimary != nil {
			continue
		}
		if q.HasSummary && r.SummaryPrimary == nil {
			continue
		}
		if q.MissingTitleEN && r.TitleEN != nil {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(r.Title), needle) &&
			!strings.Contains(strings.ToLower(models.Deref(r.TitleEN)), needle) {
			continue
		}
		out = append(out, *cloneRecord(r))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].PublishedAt.After(out[j].PublishedAt)
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, patch models.RecordPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	if patch.IsEmpty() {
		return nil
	}
	patch.Apply(r)
	s.updates++
	return nil
}

// Updates returns how many non-empty patches were applied.
func (s *MemoryStore) Updates() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updates
}

// Len returns the number of stored news records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) UpsertWeeklyTrends(ctx context.Context, w *models.WeeklyTrends) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c := *w
	if prev, ok := s.weeks[w.WeekKey()]; ok {
		c.CreatedAt = prev.CreatedAt
	} else {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.weeks[w.WeekKey()] = &c
	return nil
}

func (s *MemoryStore) GetWeeklyTrends(ctx context.Context, weekStart time.Time) (*models.WeeklyTrends, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.weeks[weekStart.Format("2006-01-02")]
	if !ok {
		return nil, ErrNotFound
	}
	c := *w
	return &c, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) Close() {}

func cloneRecord(r *models.NewsRecord) *models.NewsRecord {
	c := *r
	if r.Tags != nil {
		c.Tags = append([]string(nil), r.Tags...)
	}
	c.TitleEN = clonePtr(r.TitleEN)
	c.SummaryPrimary = clonePtr(r.SummaryPrimary)
	c.SummaryEN = clonePtr(r.SummaryEN)
	c.AudioURLPrimary = clonePtr(r.AudioURLPrimary)
	c.AudioURLEN = clonePtr(r.AudioURLEN)
	return &c
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
