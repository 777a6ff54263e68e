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

var cleanedColumns = []string{
	"id", "company", "platform", "author_identifier", "content", "posted_at",
	"sentiment_score", "embedding", "quality_score", "derived_at",
}

// DeriveCleaned creates the cleaned-layer row for an existing raw record.
//
// Derivation is itself a write and is re-subject to write-path masking: a
// non-privileged deriver never carries an unmasked identifier from raw into
// cleaned, even though raw may store one. The read of the source row and the
// insert run in one transaction so a concurrent reader never observes a
// partial derivation.
func (s *Store) DeriveCleaned(ctx context.Context, rawID string) (CleanedRecord, error) {
	p, err := authz.RequireGrant(ctx, layers.LayerCleaned, layers.ActionCreate)
	if err != nil {
		return CleanedRecord{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CleanedRecord{}, fmt.Errorf("begin derive: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := builder().
		Select(rawColumns...).
		From("raw_posts").
		Where(sq.Eq{"id": rawID}).
		ToSql()
	if err != nil {
		return CleanedRecord{}, fmt.Errorf("build raw select: %w", err)
	}

	raw, err := scanRaw(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CleanedRecord{}, fmt.Errorf("%w: raw record %q", ErrNotFound, rawID)
		}

		return CleanedRecord{}, err
	}

	rec := CleanedRecord{
		ID:               raw.ID,
		Company:          raw.Company,
		Platform:         raw.Platform,
		AuthorIdentifier: authz.Redact(p, raw.AuthorIdentifier),
		Content:          raw.Content,
		PostedAt:         raw.PostedAt,
		QualityScore:     DefaultQualityScore,
		DerivedAt:        time.Now().UTC(),
	}

	query, args, err = builder().
		Insert("cleaned_posts").
		Columns(cleanedColumns...).
		Values(
			rec.ID, rec.Company, rec.Platform,
			nullableString(rec.AuthorIdentifier), rec.Content,
			encodeTimePtr(rec.PostedAt), nil, nil,
			rec.QualityScore, encodeTime(rec.DerivedAt),
		).
		ToSql()
	if err != nil {
		return CleanedRecord{}, fmt.Errorf("build cleaned insert: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return CleanedRecord{}, fmt.Errorf("%w: cleaned record %q", ErrDuplicateKey, rec.ID)
		}

		return CleanedRecord{}, fmt.Errorf("insert cleaned record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return CleanedRecord{}, fmt.Errorf("commit derive: %w", err)
	}

	log.Debug(ctx, "store: cleaned record derived",
		log.String("id", rec.ID),
		log.String("company", rec.Company),
	)

	return rec, nil
}

// UpdateCleanedScores sets the two collaborator-owned score fields.
// The update is restricted to sentiment_score and embedding; everything else
// on the cleaned row is immutable derivation output.
func (s *Store) UpdateCleanedScores(ctx context.Context, id string, sentiment *float64, embedding []float64) error {
	_, err := authz.RequireGrant(ctx, layers.LayerCleaned, layers.ActionWrite)
	if err != nil {
		return err
	}

	if embedding != nil && len(embedding) != EmbeddingDim {
		return fmt.Errorf("update cleaned scores: embedding must have %d dimensions, got %d", EmbeddingDim, len(embedding))
	}

	enc, err := encodeEmbedding(embedding)
	if err != nil {
		return err
	}

	var sentimentArg any
	if sentiment != nil {
		sentimentArg = *sentiment
	}

	query, args, err := builder().
		Update("cleaned_posts").
		Set("sentiment_score", sentimentArg).
		Set("embedding", enc).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build scores update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update cleaned scores: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cleaned scores: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: cleaned record %q", ErrNotFound, id)
	}

	return nil
}

// GetCleaned returns one cleaned record with read-path masking applied.
func (s *Store) GetCleaned(ctx context.Context, id string) (CleanedRecord, error) {
	p, err := authz.RequireGrant(ctx, layers.LayerCleaned, layers.ActionRead)
	if err != nil {
		return CleanedRecord{}, err
	}

	query, args, err := builder().
		Select(cleanedColumns...).
		From("cleaned_posts").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return CleanedRecord{}, fmt.Errorf("build cleaned select: %w", err)
	}

	rec, err := scanCleaned(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CleanedRecord{}, fmt.Errorf("%w: cleaned record %q", ErrNotFound, id)
		}

		return CleanedRecord{}, err
	}

	rec.AuthorIdentifier = authz.Redact(p, rec.AuthorIdentifier)

	return rec, nil
}

func scanCleaned(row rowScanner) (CleanedRecord, error) {
	var (
		rec       CleanedRecord
		author    sql.NullString
		postedAt  sql.NullString
		sentiment sql.NullFloat64
		embedding sql.NullString
		derivedAt string
	)

	err := row.Scan(
		&rec.ID, &rec.Company, &rec.Platform, &author, &rec.Content,
		&postedAt, &sentiment, &embedding, &rec.QualityScore, &derivedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CleanedRecord{}, err
		}

		return CleanedRecord{}, fmt.Errorf("scan cleaned record: %w", err)
	}

	rec.AuthorIdentifier = stringPtr(author)

	if sentiment.Valid {
		v := sentiment.Float64
		rec.SentimentScore = &v
	}

	if rec.Embedding, err = decodeEmbedding(embedding); err != nil {
		return CleanedRecord{}, err
	}

	if rec.PostedAt, err = decodeTimePtr(postedAt); err != nil {
		return CleanedRecord{}, err
	}

	if rec.DerivedAt, err = decodeTime(derivedAt); err != nil {
		return CleanedRecord{}, err
	}

	return rec, nil
}
