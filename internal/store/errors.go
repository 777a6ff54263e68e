package store

import (
	"errors"

	"github.com/looplj/lakegate/internal/authz"
)

var (
	// ErrDuplicateKey a write collided with an existing record id.
	// Raw history is never silently overwritten.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrNotFound the derivation or update target does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrEmptyWindow an aggregation window matched zero cleaned records.
	ErrEmptyWindow = errors.New("empty aggregation window")
	// ErrAccessDenied re-exported so callers can test the full taxonomy
	// against one package.
	ErrAccessDenied = authz.ErrAccessDenied
)
