package biz

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/looplj/lakegate/internal/ledger"
	"github.com/looplj/lakegate/internal/store"
)

type LedgerServiceParams struct {
	fx.In

	Ledger *ledger.Ledger
	Store  *store.Store
}

// LedgerService runs quality checks and exposes the ledger to the transport
// layer.
type LedgerService struct {
	ledger *ledger.Ledger
	store  *store.Store
}

func NewLedgerService(params LedgerServiceParams) *LedgerService {
	return &LedgerService{
		ledger: params.Ledger,
		store:  params.Store,
	}
}

// builtinCheck binds one built-in evaluator to its target table.
type builtinCheck struct {
	name   string
	table  string
	create func(*store.Store) ledger.Evaluator
}

var builtinChecks = []builtinCheck{
	{"null-content-rate", "cleaned_posts", func(s *store.Store) ledger.Evaluator { return ledger.NullContentRate(s.DB()) }},
	{"embedding-dimension", "cleaned_posts", func(s *store.Store) ledger.Evaluator { return ledger.EmbeddingDimension(s.DB()) }},
	{"quality-score-range", "cleaned_posts", func(s *store.Store) ledger.Evaluator { return ledger.QualityScoreRange(s.DB()) }},
	{"sentiment-range", "cleaned_posts", func(s *store.Store) ledger.Evaluator { return ledger.SentimentRange(s.DB()) }},
	{"referential-integrity", "cleaned_posts", func(s *store.Store) ledger.Evaluator { return ledger.ReferentialIntegrity(s.DB()) }},
}

// RunBuiltinChecks executes every built-in check and appends the outcomes.
// Failures are recorded entries, never errors; only an evaluator that could
// not run at all aborts the batch.
func (s *LedgerService) RunBuiltinChecks(ctx context.Context) ([]ledger.Entry, error) {
	entries := make([]ledger.Entry, 0, len(builtinChecks))

	for _, check := range builtinChecks {
		entry, err := s.ledger.RecordCheck(ctx, check.name, check.table, check.create(s.store))
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// RecordCheck appends one externally supplied check outcome.
func (s *LedgerService) RecordCheck(ctx context.Context, name, table string, evaluator ledger.Evaluator) (ledger.Entry, error) {
	return s.ledger.RecordCheck(ctx, name, table, evaluator)
}

// ListChecks lists ledger entries in ascending check_id order.
func (s *LedgerService) ListChecks(ctx context.Context, targetTable string, since *time.Time) ([]ledger.Entry, error) {
	return s.ledger.ListChecks(ctx, targetTable, since)
}

// LastStatus reports the latest check status for a table, for deployments
// that gate derivation on ledger health outside this core.
func (s *LedgerService) LastStatus(ctx context.Context, targetTable string) (ledger.Status, bool, error) {
	return s.ledger.LastStatus(ctx, targetTable)
}
