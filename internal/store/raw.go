package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/looplj/lakegate/internal/authz"
	"github.com/looplj/lakegate/internal/layers"
	"github.com/looplj/lakegate/internal/log"
)

var rawColumns = []string{
	"id", "company", "platform", "author_identifier", "content",
	"posted_at", "url", "ingested_at", "provenance",
}

// PutRaw persists an ingested record into the raw layer.
//
// The record passes through the write-path masking gate first: a
// non-privileged principal never stores a real author identifier. Uniqueness
// of the id is enforced by the primary key inside the insert itself, so
// concurrent writers of the same id see exactly one success and one
// ErrDuplicateKey.
func (s *Store) PutRaw(ctx context.Context, rec RawRecord) (RawRecord, error) {
	p, err := authz.RequireGrant(ctx, layers.LayerRaw, layers.ActionCreate)
	if err != nil {
		return RawRecord{}, err
	}

	if rec.ID == "" {
		return RawRecord{}, fmt.Errorf("put raw: id is required")
	}

	if rec.Content == "" {
		return RawRecord{}, fmt.Errorf("put raw: content is required")
	}

	rec.AuthorIdentifier = authz.Redact(p, rec.AuthorIdentifier)
	rec.IngestedAt = time.Now().UTC()

	if rec.Provenance == "" {
		// Ingestion collaborators normally attach provenance; stamp a batch
		// id when they do not, so every row stays traceable.
		rec.Provenance = "batch:" + uuid.NewString()
	}

	query, args, err := builder().
		Insert("raw_posts").
		Columns(rawColumns...).
		Values(
			rec.ID, rec.Company, rec.Platform,
			nullableString(rec.AuthorIdentifier), rec.Content,
			encodeTimePtr(rec.PostedAt), nullableString(rec.URL),
			encodeTime(rec.IngestedAt), rec.Provenance,
		).
		ToSql()
	if err != nil {
		return RawRecord{}, fmt.Errorf("build raw insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return RawRecord{}, fmt.Errorf("%w: raw record %q", ErrDuplicateKey, rec.ID)
		}

		return RawRecord{}, fmt.Errorf("insert raw record: %w", err)
	}

	log.Debug(ctx, "store: raw record written",
		log.String("id", rec.ID),
		log.String("company", rec.Company),
		log.String("platform", rec.Platform),
		log.String("provenance", rec.Provenance),
	)

	return rec, nil
}

// GetRaw returns one raw record with read-path masking applied.
// Masking on read holds regardless of what is stored, so rows written by a
// privileged actor never leak an identifier to a non-privileged reader.
func (s *Store) GetRaw(ctx context.Context, id string) (RawRecord, error) {
	p, err := authz.RequireGrant(ctx, layers.LayerRaw, layers.ActionRead)
	if err != nil {
		return RawRecord{}, err
	}

	query, args, err := builder().
		Select(rawColumns...).
		From("raw_posts").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return RawRecord{}, fmt.Errorf("build raw select: %w", err)
	}

	rec, err := scanRaw(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RawRecord{}, fmt.Errorf("%w: raw record %q", ErrNotFound, id)
		}

		return RawRecord{}, err
	}

	rec.AuthorIdentifier = authz.Redact(p, rec.AuthorIdentifier)

	return rec, nil
}

// ListRaw returns raw records for a company ordered by ingestion time,
// masked per the reading principal.
func (s *Store) ListRaw(ctx context.Context, company string, limit uint64) ([]RawRecord, error) {
	p, err := authz.RequireGrant(ctx, layers.LayerRaw, layers.ActionRead)
	if err != nil {
		return nil, err
	}

	b := builder().
		Select(rawColumns...).
		From("raw_posts").
		OrderBy("ingested_at ASC", "id ASC")

	if company != "" {
		b = b.Where(sq.Eq{"company": company})
	}

	if limit > 0 {
		b = b.Limit(limit)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build raw list: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query raw records: %w", err)
	}
	defer rows.Close()

	var recs []RawRecord

	for rows.Next() {
		rec, err := scanRaw(rows)
		if err != nil {
			return nil, err
		}

		rec.AuthorIdentifier = authz.Redact(p, rec.AuthorIdentifier)
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw records: %w", err)
	}

	return recs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRaw(row rowScanner) (RawRecord, error) {
	var (
		rec        RawRecord
		author     sql.NullString
		postedAt   sql.NullString
		url        sql.NullString
		ingestedAt string
	)

	err := row.Scan(
		&rec.ID, &rec.Company, &rec.Platform, &author, &rec.Content,
		&postedAt, &url, &ingestedAt, &rec.Provenance,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RawRecord{}, err
		}

		return RawRecord{}, fmt.Errorf("scan raw record: %w", err)
	}

	rec.AuthorIdentifier = stringPtr(author)
	rec.URL = stringPtr(url)

	if rec.PostedAt, err = decodeTimePtr(postedAt); err != nil {
		return RawRecord{}, err
	}

	if rec.IngestedAt, err = decodeTime(ingestedAt); err != nil {
		return RawRecord{}, err
	}

	return rec, nil
}
