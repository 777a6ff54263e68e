package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"github.com/looplj/lakegate/internal/store"
)

// Built-in evaluators for the scheduled quality jobs. Each queries table
// contents directly (never identifiers) and reports an Outcome; thresholds
// follow the upstream pipeline's validation rules.

// NullContentRateThreshold is the tolerated fraction of cleaned rows with
// empty content before the check fails.
const NullContentRateThreshold = 0.01

func pct(ok, total int) float64 {
	if total == 0 {
		return 100
	}

	return float64(ok) / float64(total) * 100
}

// NullContentRate checks the fraction of cleaned rows with empty content.
// Under the threshold but non-zero is a warning; over it is a failure.
func NullContentRate(db *sql.DB) Evaluator {
	return func(ctx context.Context) (Outcome, error) {
		var total, empty int

		row := db.QueryRowContext(ctx,
			`SELECT COUNT(*), COALESCE(SUM(CASE WHEN content = '' THEN 1 ELSE 0 END), 0) FROM cleaned_posts`)
		if err := row.Scan(&total, &empty); err != nil {
			return Outcome{}, fmt.Errorf("null content rate: %w", err)
		}

		out := Outcome{Status: StatusPass, SuccessPercent: pct(total-empty, total)}

		switch {
		case total == 0:
			// Nothing to check yet.
		case float64(empty)/float64(total) > NullContentRateThreshold:
			out.Status = StatusFail
			out.ErrorDetail = lo.ToPtr(fmt.Sprintf("too many empty content rows: %d/%d", empty, total))
		case empty > 0:
			out.Status = StatusWarn
			out.ErrorDetail = lo.ToPtr(fmt.Sprintf("empty content rows: %d/%d", empty, total))
		}

		return out, nil
	}
}

// EmbeddingDimension checks that every stored embedding has the fixed
// vector length.
func EmbeddingDimension(db *sql.DB) Evaluator {
	return func(ctx context.Context) (Outcome, error) {
		rows, err := db.QueryContext(ctx,
			`SELECT embedding FROM cleaned_posts WHERE embedding IS NOT NULL`)
		if err != nil {
			return Outcome{}, fmt.Errorf("embedding dimension: %w", err)
		}
		defer rows.Close()

		var total, invalid int

		for rows.Next() {
			var raw string
			if err := rows.Scan(&raw); err != nil {
				return Outcome{}, fmt.Errorf("embedding dimension: %w", err)
			}

			total++

			var v []float64
			if err := json.Unmarshal([]byte(raw), &v); err != nil || len(v) != store.EmbeddingDim {
				invalid++
			}
		}

		if err := rows.Err(); err != nil {
			return Outcome{}, fmt.Errorf("embedding dimension: %w", err)
		}

		out := Outcome{Status: StatusPass, SuccessPercent: pct(total-invalid, total)}
		if invalid > 0 {
			out.Status = StatusFail
			out.ErrorDetail = lo.ToPtr(fmt.Sprintf("embeddings with wrong dimension: %d/%d (want %d)", invalid, total, store.EmbeddingDim))
		}

		return out, nil
	}
}

// QualityScoreRange checks quality_score stays within [0,100].
func QualityScoreRange(db *sql.DB) Evaluator {
	return rangeEvaluator(db, "quality score range",
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN quality_score < 0 OR quality_score > 100 THEN 1 ELSE 0 END), 0) FROM cleaned_posts`,
		"quality scores out of [0,100]")
}

// SentimentRange checks sentiment_score stays within [-1,1].
func SentimentRange(db *sql.DB) Evaluator {
	return rangeEvaluator(db, "sentiment range",
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN sentiment_score < -1 OR sentiment_score > 1 THEN 1 ELSE 0 END), 0)
         FROM cleaned_posts WHERE sentiment_score IS NOT NULL`,
		"sentiment scores out of [-1,1]")
}

func rangeEvaluator(db *sql.DB, name, query, detail string) Evaluator {
	return func(ctx context.Context) (Outcome, error) {
		var total, invalid int

		if err := db.QueryRowContext(ctx, query).Scan(&total, &invalid); err != nil {
			return Outcome{}, fmt.Errorf("%s: %w", name, err)
		}

		out := Outcome{Status: StatusPass, SuccessPercent: pct(total-invalid, total)}
		if invalid > 0 {
			out.Status = StatusFail
			out.ErrorDetail = lo.ToPtr(fmt.Sprintf("%s: %d/%d", detail, invalid, total))
		}

		return out, nil
	}
}

// ReferentialIntegrity checks every cleaned row still has its raw parent.
// Orphans fail the check; duplicate raw ids cannot occur under the primary
// key, so this guards against manual cleanup of the raw layer.
func ReferentialIntegrity(db *sql.DB) Evaluator {
	return func(ctx context.Context) (Outcome, error) {
		var total, orphans int

		row := db.QueryRowContext(ctx, `
            SELECT COUNT(*),
                   COALESCE(SUM(CASE WHEN r.id IS NULL THEN 1 ELSE 0 END), 0)
            FROM cleaned_posts c
            LEFT JOIN raw_posts r ON r.id = c.id`)
		if err := row.Scan(&total, &orphans); err != nil {
			return Outcome{}, fmt.Errorf("referential integrity: %w", err)
		}

		out := Outcome{Status: StatusPass, SuccessPercent: pct(total-orphans, total)}
		if orphans > 0 {
			out.Status = StatusFail
			out.ErrorDetail = lo.ToPtr(fmt.Sprintf("cleaned rows without raw parent: %d/%d", orphans, total))
		}

		return out, nil
	}
}
