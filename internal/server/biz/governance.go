// Package biz hosts the services orchestrating the governance gate, the
// tiered store and the quality ledger for the transport layer.
package biz

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"

	"github.com/looplj/lakegate/internal/authz"
	"github.com/looplj/lakegate/internal/log"
	"github.com/looplj/lakegate/internal/store"
)

type GovernanceServiceParams struct {
	fx.In

	Store *store.Store
}

// GovernanceService exposes the tiered-store operations to the transport
// layer and runs the background derivation jobs.
type GovernanceService struct {
	store *store.Store
}

func NewGovernanceService(params GovernanceServiceParams) *GovernanceService {
	return &GovernanceService{store: params.Store}
}

// IngestRaw persists one raw record through the governance gate.
func (s *GovernanceService) IngestRaw(ctx context.Context, rec store.RawRecord) (store.RawRecord, error) {
	return s.store.PutRaw(ctx, rec)
}

// GetRaw reads one raw record, masked per the calling principal.
func (s *GovernanceService) GetRaw(ctx context.Context, id string) (store.RawRecord, error) {
	return s.store.GetRaw(ctx, id)
}

// ListRaw lists raw records for a company, masked per the calling principal.
func (s *GovernanceService) ListRaw(ctx context.Context, company string, limit uint64) ([]store.RawRecord, error) {
	return s.store.ListRaw(ctx, company, limit)
}

// DeriveCleaned derives the cleaned row for one raw record.
func (s *GovernanceService) DeriveCleaned(ctx context.Context, rawID string) (store.CleanedRecord, error) {
	return s.store.DeriveCleaned(ctx, rawID)
}

// GetCleaned reads one cleaned record, masked per the calling principal.
func (s *GovernanceService) GetCleaned(ctx context.Context, id string) (store.CleanedRecord, error) {
	return s.store.GetCleaned(ctx, id)
}

// UpdateScores applies the collaborator-owned score fields.
func (s *GovernanceService) UpdateScores(ctx context.Context, id string, sentiment *float64, embedding []float64) error {
	return s.store.UpdateCleanedScores(ctx, id, sentiment, embedding)
}

// AggregateWeek computes and persists the rollup for one (company, week).
// The summarization collaborator supplies themes and summaries; the
// aggregate write itself runs under a system bypass because no interactive
// role holds create on the aggregated layer.
func (s *GovernanceService) AggregateWeek(ctx context.Context, company string, weekStart time.Time, themes, summaries []string) (store.AggregatedRecord, error) {
	rec, err := s.store.AggregateWeek(ctx, company, weekStart, themes, summaries)
	if err != nil {
		return store.AggregatedRecord{}, err
	}

	if err := authz.RequireSystemPrincipal(ctx); err != nil {
		// Engineers may compute a rollup preview but only system jobs persist.
		return rec, nil
	}

	if err := s.store.PutAggregate(ctx, rec); err != nil {
		return store.AggregatedRecord{}, err
	}

	return rec, nil
}

// GetAggregate reads the rollup for one (company, week).
func (s *GovernanceService) GetAggregate(ctx context.Context, company string, weekStart time.Time) (store.AggregatedRecord, error) {
	return s.store.GetAggregate(ctx, company, weekStart)
}

// AggregateAllCompanies fans the weekly derivation out over every company
// with cleaned records in the window, persisting each rollup. Companies
// whose window turns out empty under the scan snapshot are skipped. Theme
// and summary generation is an external concern, so batch rollups carry
// empty sequences until the summarization collaborator fills them in.
func (s *GovernanceService) AggregateAllCompanies(ctx context.Context, weekStart time.Time) ([]store.AggregatedRecord, error) {
	return authz.RunWithSystemBypass(ctx, "weekly-aggregation", func(ctx context.Context) ([]store.AggregatedRecord, error) {
		companies, err := s.store.Companies(ctx, weekStart)
		if err != nil {
			return nil, err
		}

		var (
			g, gctx = errgroup.WithContext(ctx)
			results = make([]store.AggregatedRecord, len(companies))
			keep    = make([]bool, len(companies))
		)

		for i, company := range companies {
			g.Go(func() error {
				rec, err := s.store.AggregateWeek(gctx, company, weekStart, nil, nil)
				if err != nil {
					if errors.Is(err, store.ErrEmptyWindow) {
						log.Debug(gctx, "biz: skipping empty window",
							log.String("company", company),
							log.Time("week_start", weekStart),
						)

						return nil
					}

					return err
				}

				if err := s.store.PutAggregate(gctx, rec); err != nil {
					return err
				}

				results[i] = rec
				keep[i] = true

				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}

		var out []store.AggregatedRecord

		for i, ok := range keep {
			if ok {
				out = append(out, results[i])
			}
		}

		return out, nil
	})
}
