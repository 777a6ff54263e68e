package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	_ "modernc.org/sqlite"
)

// Config controls how the store opens its database.
type Config struct {
	Dialect string `conf:"dialect" yaml:"dialect" json:"dialect"`
	DSN     string `conf:"dsn" yaml:"dsn" json:"dsn"`
	Debug   bool   `conf:"debug" yaml:"debug" json:"debug"`
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS raw_posts (
    id                TEXT PRIMARY KEY,
    company           TEXT NOT NULL,
    platform          TEXT NOT NULL,
    author_identifier TEXT,
    content           TEXT NOT NULL,
    posted_at         TEXT,
    url               TEXT,
    ingested_at       TEXT NOT NULL,
    provenance        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cleaned_posts (
    id                TEXT PRIMARY KEY,
    company           TEXT NOT NULL,
    platform          TEXT NOT NULL,
    author_identifier TEXT,
    content           TEXT NOT NULL,
    posted_at         TEXT,
    sentiment_score   REAL,
    embedding         TEXT,
    quality_score     REAL NOT NULL DEFAULT 100
        CHECK (quality_score >= 0 AND quality_score <= 100),
    derived_at        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cleaned_company_posted
    ON cleaned_posts (company, posted_at);

CREATE TABLE IF NOT EXISTS weekly_aggregates (
    week_start          TEXT NOT NULL,
    company             TEXT NOT NULL,
    total_posts         INTEGER NOT NULL,
    positive_posts      INTEGER NOT NULL,
    negative_posts      INTEGER NOT NULL,
    top_themes          TEXT NOT NULL,
    generated_summaries TEXT NOT NULL,
    generated_at        TEXT NOT NULL,
    PRIMARY KEY (week_start, company)
);

CREATE TABLE IF NOT EXISTS quality_checks (
    check_id        INTEGER PRIMARY KEY AUTOINCREMENT,
    check_name      TEXT NOT NULL,
    target_table    TEXT NOT NULL,
    status          TEXT NOT NULL,
    success_percent REAL NOT NULL,
    error_detail    TEXT,
    checked_at      TEXT NOT NULL
);
`

// Open opens the configured database and ensures the schema exists.
// Only sqlite is wired today; the switch keeps the shape for adding server
// dialects back when a deployment needs them.
func Open(cfg Config) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch cfg.Dialect {
	case "", "sqlite", "sqlite3":
		db, err = sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
	default:
		return nil, fmt.Errorf("invalid dialect: %s", cfg.Dialect)
	}

	// sqlite serializes writers; a single connection avoids table-lock
	// errors under concurrent transactions.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return db, nil
}

// builder returns the squirrel statement builder used by all queries.
func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}
