package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/looplj/lakegate/internal/authz"
	"github.com/looplj/lakegate/internal/layers"
	"github.com/looplj/lakegate/internal/log"
)

// AggregateWeek computes the weekly rollup for a company over
// [weekStart, weekStart+7d), counting posts by sentiment sign.
//
// The scan runs in one read transaction and therefore sees a snapshot:
// cleaned writes committed after the scan begins are not observed. A window
// with zero matching rows fails with ErrEmptyWindow. Theme and summary
// sequences come from the external summarization collaborator; this method
// only slots them into the record.
func (s *Store) AggregateWeek(ctx context.Context, company string, weekStart time.Time, themes, summaries []string) (AggregatedRecord, error) {
	_, err := authz.RequireGrant(ctx, layers.LayerCleaned, layers.ActionRead)
	if err != nil {
		return AggregatedRecord{}, err
	}

	weekStart = weekStart.UTC().Truncate(24 * time.Hour)
	weekEnd := weekStart.AddDate(0, 0, 7)

	query, args, err := builder().
		Select(
			"COUNT(*)",
			"COALESCE(SUM(CASE WHEN sentiment_score > 0 THEN 1 ELSE 0 END), 0)",
			"COALESCE(SUM(CASE WHEN sentiment_score < 0 THEN 1 ELSE 0 END), 0)",
		).
		From("cleaned_posts").
		Where(sq.Eq{"company": company}).
		Where(sq.GtOrEq{"posted_at": encodeTime(weekStart)}).
		Where(sq.Lt{"posted_at": encodeTime(weekEnd)}).
		ToSql()
	if err != nil {
		return AggregatedRecord{}, fmt.Errorf("build week aggregate: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return AggregatedRecord{}, fmt.Errorf("begin aggregate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rec := AggregatedRecord{
		WeekStart:          weekStart,
		Company:            company,
		TopThemes:          themes,
		GeneratedSummaries: summaries,
		GeneratedAt:        time.Now().UTC(),
	}

	err = tx.QueryRowContext(ctx, query, args...).
		Scan(&rec.TotalPosts, &rec.PositivePosts, &rec.NegativePosts)
	if err != nil {
		return AggregatedRecord{}, fmt.Errorf("scan week aggregate: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return AggregatedRecord{}, fmt.Errorf("commit aggregate: %w", err)
	}

	if rec.TotalPosts == 0 {
		return AggregatedRecord{}, fmt.Errorf("%w: company %q week %s",
			ErrEmptyWindow, company, weekStart.Format(time.DateOnly))
	}

	log.Debug(ctx, "store: week aggregated",
		log.String("company", company),
		log.Time("week_start", weekStart),
		log.Int("total_posts", rec.TotalPosts),
		log.Int("positive_posts", rec.PositivePosts),
		log.Int("negative_posts", rec.NegativePosts),
	)

	return rec, nil
}

// PutAggregate persists a weekly rollup. Re-running a derivation for the
// same (week, company) replaces the previous rollup: aggregates are derived
// state, not history.
func (s *Store) PutAggregate(ctx context.Context, rec AggregatedRecord) error {
	_, err := authz.RequireGrant(ctx, layers.LayerAggregated, layers.ActionCreate)
	if err != nil {
		return err
	}

	if rec.PositivePosts+rec.NegativePosts > rec.TotalPosts {
		return fmt.Errorf("put aggregate: positive+negative (%d) exceeds total (%d)",
			rec.PositivePosts+rec.NegativePosts, rec.TotalPosts)
	}

	themes, err := encodeStrings(rec.TopThemes)
	if err != nil {
		return err
	}

	summaries, err := encodeStrings(rec.GeneratedSummaries)
	if err != nil {
		return err
	}

	query, args, err := builder().
		Insert("weekly_aggregates").
		Columns(
			"week_start", "company", "total_posts", "positive_posts",
			"negative_posts", "top_themes", "generated_summaries", "generated_at",
		).
		Values(
			encodeTime(rec.WeekStart.UTC().Truncate(24*time.Hour)), rec.Company,
			rec.TotalPosts, rec.PositivePosts, rec.NegativePosts,
			themes, summaries, encodeTime(rec.GeneratedAt),
		).
		Suffix(`ON CONFLICT (week_start, company) DO UPDATE SET
            total_posts = excluded.total_posts,
            positive_posts = excluded.positive_posts,
            negative_posts = excluded.negative_posts,
            top_themes = excluded.top_themes,
            generated_summaries = excluded.generated_summaries,
            generated_at = excluded.generated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build aggregate upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert aggregate: %w", err)
	}

	return nil
}

// GetAggregate returns the rollup for one (company, week).
func (s *Store) GetAggregate(ctx context.Context, company string, weekStart time.Time) (AggregatedRecord, error) {
	_, err := authz.RequireGrant(ctx, layers.LayerAggregated, layers.ActionRead)
	if err != nil {
		return AggregatedRecord{}, err
	}

	query, args, err := builder().
		Select(
			"week_start", "company", "total_posts", "positive_posts",
			"negative_posts", "top_themes", "generated_summaries", "generated_at",
		).
		From("weekly_aggregates").
		Where(sq.Eq{
			"company":    company,
			"week_start": encodeTime(weekStart.UTC().Truncate(24 * time.Hour)),
		}).
		ToSql()
	if err != nil {
		return AggregatedRecord{}, fmt.Errorf("build aggregate select: %w", err)
	}

	var (
		rec         AggregatedRecord
		ws          string
		themes      string
		summaries   string
		generatedAt string
	)

	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&ws, &rec.Company, &rec.TotalPosts, &rec.PositivePosts,
		&rec.NegativePosts, &themes, &summaries, &generatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AggregatedRecord{}, fmt.Errorf("%w: aggregate for %q week %s",
				ErrNotFound, company, weekStart.Format(time.DateOnly))
		}

		return AggregatedRecord{}, fmt.Errorf("scan aggregate: %w", err)
	}

	if rec.WeekStart, err = decodeTime(ws); err != nil {
		return AggregatedRecord{}, err
	}

	if rec.TopThemes, err = decodeStrings(themes); err != nil {
		return AggregatedRecord{}, err
	}

	if rec.GeneratedSummaries, err = decodeStrings(summaries); err != nil {
		return AggregatedRecord{}, err
	}

	if rec.GeneratedAt, err = decodeTime(generatedAt); err != nil {
		return AggregatedRecord{}, err
	}

	return rec, nil
}

// Companies returns the distinct companies with cleaned records in the week
// window, for derivation jobs fanning out per company.
func (s *Store) Companies(ctx context.Context, weekStart time.Time) ([]string, error) {
	_, err := authz.RequireGrant(ctx, layers.LayerCleaned, layers.ActionRead)
	if err != nil {
		return nil, err
	}

	weekStart = weekStart.UTC().Truncate(24 * time.Hour)

	query, args, err := builder().
		Select("DISTINCT company").
		From("cleaned_posts").
		Where(sq.GtOrEq{"posted_at": encodeTime(weekStart)}).
		Where(sq.Lt{"posted_at": encodeTime(weekStart.AddDate(0, 0, 7))}).
		OrderBy("company ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build companies select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	var companies []string

	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}

		companies = append(companies, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}

	return companies, nil
}
