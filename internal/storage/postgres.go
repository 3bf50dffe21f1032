package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/bilgisen/newsbridge/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// likeEscaper makes user text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

var newsColumns = []string{
	"id", "slug", "original_url", "source",
	"title", "title_en", "summary_primary", "summary_en",
	"tags", "clicks", "audio_url_primary", "audio_url_en",
	"published_at", "created_at",
}

var trendsColumns = []string{
	"week_start", "title_zh", "title_en", "message_zh", "message_en",
	"trends_zh", "trends_en", "advice_zh", "advice_en", "article_count",
	"created_at", "updated_at",
}

// PostgresStore is the Store backed by a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects, pings and applies the schema.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates tables and indexes that do not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) ExistsByURL(ctx context.Context, url string) (bool, error) {
	query, args, err := psql.Select("1").From("news").
		Where(sq.Eq{"original_url": url}).Limit(1).ToSql()
	if err != nil {
		return false, err
	}

	var one int
	err = s.pool.QueryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists by url: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec *models.NewsRecord) (bool, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}

	query, args, err := psql.Insert("news").Columns(newsColumns...).Values(
		rec.ID, rec.Slug, rec.OriginalURL, rec.Source,
		rec.Title, rec.TitleEN, rec.SummaryPrimary, rec.SummaryEN,
		tags, rec.Clicks, rec.AudioURLPrimary, rec.AudioURLEN,
		rec.PublishedAt, rec.CreatedAt,
	).Suffix("ON CONFLICT (original_url) DO NOTHING").ToSql()
	if err != nil {
		return false, err
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert news %s: %w", rec.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) LatestCreatedAt(ctx context.Context) (time.Time, error) {
	var latest time.Time
	err := s.pool.QueryRow(ctx, "SELECT created_at FROM news ORDER BY created_at DESC LIMIT 1").Scan(&latest)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("latest created_at: %w", err)
	}
	return latest, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.NewsRecord, error) {
	recs, err := s.GetByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return &recs[0], nil
}

func (s *PostgresStore) GetByIDs(ctx context.Context, ids []string) ([]models.NewsRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.selectNews(ctx, psql.Select(newsColumns...).From("news").Where(sq.Eq{"id": ids}))
}

func (s *PostgresStore) List(ctx context.Context, q Query) ([]models.NewsRecord, error) {
	b := psql.Select(newsColumns...).From("news")
	if !q.PublishedSince.IsZero() {
		b = b.Where(sq.GtOrEq{"published_at": q.PublishedSince})
	}
	if q.PendingSummary {
		b = b.Where(sq.Eq{"summary_primary": nil})
	}
	if q.HasSummary {
		b = b.Where(sq.NotEq{"summary_primary": nil})
	}
	if q.MissingTitleEN {
		b = b.Where(sq.Eq{"title_en": nil})
	}
	if q.TitleContains != "" {
		pattern := "%" + likeEscaper.Replace(q.TitleContains) + "%"
		b = b.Where(sq.Or{sq.ILike{"title": pattern}, sq.ILike{"title_en": pattern}})
	}
	b = b.OrderBy("published_at DESC", "id")
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}
	return s.selectNews(ctx, b)
}

func (s *PostgresStore) Update(ctx context.Context, id string, patch models.RecordPatch) error {
	set := map[string]interface{}{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.TitleEN != nil {
		set["title_en"] = *patch.TitleEN
	}
	if patch.SummaryPrimary != nil {
		set["summary_primary"] = *patch.SummaryPrimary
	}
	if patch.SummaryEN != nil {
		set["summary_en"] = *patch.SummaryEN
	}
	if patch.Tags != nil {
		set["tags"] = *patch.Tags
	}
	if len(set) == 0 {
		return nil
	}

	query, args, err := psql.Update("news").SetMap(set).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update news %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpsertWeeklyTrends(ctx context.Context, w *models.WeeklyTrends) error {
	now := time.Now().UTC()
	query, args, err := psql.Insert("weekly_trends").Columns(trendsColumns...).Values(
		w.WeekKey(), w.TitleZH, w.TitleEN, w.MessageZH, w.MessageEN,
		nonNil(w.TrendsZH), nonNil(w.TrendsEN), w.AdviceZH, w.AdviceEN, w.ArticleCount,
		now, now,
	).Suffix(`ON CONFLICT (week_start) DO UPDATE SET
		title_zh = EXCLUDED.title_zh, title_en = EXCLUDED.title_en,
		message_zh = EXCLUDED.message_zh, message_en = EXCLUDED.message_en,
		trends_zh = EXCLUDED.trends_zh, trends_en = EXCLUDED.trends_en,
		advice_zh = EXCLUDED.advice_zh, advice_en = EXCLUDED.advice_en,
		article_count = EXCLUDED.article_count, updated_at = EXCLUDED.updated_at`).ToSql()
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert weekly trends %s: %w", w.WeekKey(), err)
	}
	return nil
}

func (s *PostgresStore) GetWeeklyTrends(ctx context.Context, weekStart time.Time) (*models.WeeklyTrends, error) {
	query, args, err := psql.Select(trendsColumns...).From("weekly_trends").
		Where(sq.Eq{"week_start": weekStart.Format("2006-01-02")}).ToSql()
	if err != nil {
		return nil, err
	}

	var w models.WeeklyTrends
	err = s.pool.QueryRow(ctx, query, args...).Scan(
		&w.WeekStart, &w.TitleZH, &w.TitleEN, &w.MessageZH, &w.MessageEN,
		&w.TrendsZH, &w.TrendsEN, &w.AdviceZH, &w.AdviceEN, &w.ArticleCount,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get weekly trends: %w", err)
	}
	return &w, nil
}

func (s *PostgresStore) selectNews(ctx context.Context, b sq.SelectBuilder) ([]models.NewsRecord, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select news: %w", err)
	}
	defer rows.Close()

	var out []models.NewsRecord
	for rows.Next() {
		var r models.NewsRecord
		if err := rows.Scan(
			&r.ID, &r.Slug, &r.OriginalURL, &r.Source,
			&r.Title, &r.TitleEN, &r.SummaryPrimary, &r.SummaryEN,
			&r.Tags, &r.Clicks, &r.AudioURLPrimary, &r.AudioURLEN,
			&r.PublishedAt, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan news: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate news: %w", err)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
