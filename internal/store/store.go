// Package store implements the tiered lake storage: raw, cleaned and
// aggregated layers over a relational database, with every read and write
// gated through the authz package.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timeFormat is the canonical column encoding for timestamps. Whole-second
// RFC3339 in UTC keeps the encoded strings fixed-width, so SQL range
// comparisons on time columns order correctly.
const timeFormat = time.RFC3339

// Store is the tiered lake store. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// New wires a Store over an opened database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying database for the quality-check evaluators,
// which read table contents directly (they never touch identifiers).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func encodeTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}

	return encodeTime(*t)
}

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode time %q: %w", s, err)
	}

	return t, nil
}

func decodeTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}

	t, err := decodeTime(ns.String)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func encodeEmbedding(v []float64) (any, error) {
	if v == nil {
		return nil, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode embedding: %w", err)
	}

	return string(b), nil
}

func decodeEmbedding(ns sql.NullString) ([]float64, error) {
	if !ns.Valid {
		return nil, nil
	}

	var v []float64
	if err := json.Unmarshal([]byte(ns.String), &v); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}

	return v, nil
}

func encodeStrings(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode string list: %w", err)
	}

	return string(b), nil
}

func decodeStrings(s string) ([]string, error) {
	var v []string
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("decode string list: %w", err)
	}

	return v, nil
}

func nullableString(p *string) any {
	if p == nil {
		return nil
	}

	return *p
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}

	s := ns.String
	return &s
}
