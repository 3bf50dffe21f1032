// Package translate fills missing English slots for records requested by
// id, either on demand or from the scheduled backfill.
package translate

import (
	"context"
	"fmt"
	"sync"

	"github.com/bilgisen/newsbridge/internal/ai"
	"github.com/bilgisen/newsbridge/internal/logger"
	"github.com/bilgisen/newsbridge/internal/models"
	"github.com/bilgisen/newsbridge/internal/storage"
	"github.com/bilgisen/newsbridge/internal/utils"
)

const (
	// summaryContextChars caps the primary summary sent with each batch item.
	summaryContextChars = 500
	defaultBatchSize    = 10
)

// BatchTranslator is the language-model operation the service needs.
type BatchTranslator interface {
	TranslateBatch(ctx context.Context, items []ai.BatchItem) ([]ai.BatchResult, error)
}

// Service is the batch translation service.
type Service struct {
	store      storage.Store
	translator BatchTranslator
	batchSize  int
}

func NewService(store storage.Store, translator BatchTranslator, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Service{store: store, translator: translator, batchSize: batchSize}
}

// Translate returns the English slots of every existing record in ids,
// translating the missing ones first. Records that need no work never reach
// the language model. A failed model call is logged and the stored values
// are returned as they are.
func (s *Service) Translate(ctx context.Context, ids []string) ([]models.TranslationResult, error) {
	log := logger.Component("translate")

	recs, err := s.store.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	recs = inRequestOrder(recs, ids)

	results := make([]models.TranslationResult, len(recs))
	var pending []int
	for i := range recs {
		results[i] = resultOf(&recs[i])
		if recs[i].NeedsEnglish() {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return results, nil
	}

	items := make([]ai.BatchItem, 0, len(pending))
	for _, i := range pending {
		items = append(items, ai.BatchItem{
			ID:      recs[i].ID,
			Title:   recs[i].Title,
			Summary: utils.Truncate(models.Deref(recs[i].SummaryPrimary), summaryContextChars),
		})
	}

	translated, err := s.translator.TranslateBatch(ctx, items)
	if err != nil {
		log.Error().Err(err).Int("records", len(items)).Msg("Batch translation failed")
		return results, nil
	}
	if len(translated) < len(items) {
		log.Warn().Int("requested", len(items)).Int("returned", len(translated)).Msg("Partial batch translation")
	}

	index := make(map[string]int, len(pending))
	for _, i := range pending {
		index[recs[i].ID] = i
	}

	var wg sync.WaitGroup
	for _, tr := range translated {
		i, ok := index[tr.ID]
		if !ok {
			continue
		}
		patch := missingFields(&recs[i], tr)
		if patch.IsEmpty() {
			continue
		}
		delete(index, tr.ID)

		wg.Add(1)
		go func(i int, patch models.RecordPatch) {
			defer wg.Done()
			if err := s.store.Update(ctx, recs[i].ID, patch); err != nil {
				log.Error().Err(err).Str("id", recs[i].ID).Str("title", utils.Prefix(recs[i].Title)).Msg("Failed to store translation")
				return
			}
			// Each goroutine owns results[i].
			if patch.TitleEN != nil {
				results[i].TitleEN = patch.TitleEN
			}
			if patch.SummaryEN != nil {
				results[i].SummaryEN = patch.SummaryEN
			}
		}(i, patch)
	}
	wg.Wait()

	return results, nil
}

// TranslateOne is the synchronous single-record variant.
func (s *Service) TranslateOne(ctx context.Context, id string) (*models.TranslationResult, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	results, err := s.Translate(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, storage.ErrNotFound
	}
	return &results[0], nil
}

// Backfill translates up to limit records missing an English title, newest
// first, and returns how many received one.
func (s *Service) Backfill(ctx context.Context, limit int) (int, error) {
	log := logger.Component("translate")

	recs, err := s.store.List(ctx, storage.Query{MissingTitleEN: true, Limit: limit})
	if err != nil {
		return 0, fmt.Errorf("list untranslated: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}

	fixed := 0
	for start := 0; start < len(recs); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return fixed, err
		}
		end := min(start+s.batchSize, len(recs))
		ids := make([]string, 0, end-start)
		for _, r := range recs[start:end] {
			ids = append(ids, r.ID)
		}

		results, err := s.Translate(ctx, ids)
		if err != nil {
			log.Error().Err(err).Int("batch_start", start).Msg("Backfill batch failed")
			continue
		}
		for _, r := range results {
			if r.TitleEN != nil {
				fixed++
			}
		}
	}

	log.Info().Int("candidates", len(recs)).Int("translated", fixed).Msg("Backfill finished")
	return fixed, nil
}

// missingFields keeps only the translated values for slots that are empty
// on the record.
func missingFields(rec *models.NewsRecord, tr ai.BatchResult) models.RecordPatch {
	var patch models.RecordPatch
	if rec.TitleEN == nil && rec.Title != "" && tr.TitleEN != "" {
		patch.TitleEN = models.StringPtr(tr.TitleEN)
	}
	if rec.SummaryEN == nil && models.Deref(rec.SummaryPrimary) != "" && tr.SummaryEN != "" {
		patch.SummaryEN = models.StringPtr(tr.SummaryEN)
	}
	return patch
}

func resultOf(r *models.NewsRecord) models.TranslationResult {
	return models.TranslationResult{ID: r.ID, TitleEN: r.TitleEN, SummaryEN: r.SummaryEN}
}

// inRequestOrder orders recs like ids, dropping repeats.
func inRequestOrder(recs []models.NewsRecord, ids []string) []models.NewsRecord {
	byID := make(map[string]models.NewsRecord, len(recs))
	for _, r := range recs {
		byID[r.ID] = r
	}
	out := make([]models.NewsRecord, 0, len(recs))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
			delete(byID, id)
		}
	}
	return out
}
