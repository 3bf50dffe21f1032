// Package storage is the persistence boundary of the pipeline. Every write is
// a single-record, field-level patch; there are no cross-record transactions.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bilgisen/newsbridge/internal/models"
)

// ErrNotFound is returned when a record or week does not exist.
var ErrNotFound = errors.New("not found")

// Query selects news records. Zero-valued fields do not filter. Results are
// always ordered newest-published first.
type Query struct {
	PublishedSince time.Time
	PendingSummary bool
	HasSummary     bool
	MissingTitleEN bool
	TitleContains  string
	Limit          int
}

// Store is the storage collaborator used by every pipeline component.
type Store interface {
	ExistsByURL(ctx context.Context, url string) (bool, error)
	// Insert adds rec. It reports false when a record with the same
	// original URL already exists.
	Insert(ctx context.Context, rec *models.NewsRecord) (bool, error)
	// LatestCreatedAt returns the creation time of the newest record, or
	// the zero time for an empty store.
	LatestCreatedAt(ctx context.Context) (time.Time, error)
	Get(ctx context.Context, id string) (*models.NewsRecord, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.NewsRecord, error)
	List(ctx context.Context, q Query) ([]models.NewsRecord, error)
	Update(ctx context.Context, id string, patch models.RecordPatch) error

	UpsertWeeklyTrends(ctx context.Context, w *models.WeeklyTrends) error
	GetWeeklyTrends(ctx context.Context, weekStart time.Time) (*models.WeeklyTrends, error)

	Ping(ctx context.Context) error
	Close()
}
