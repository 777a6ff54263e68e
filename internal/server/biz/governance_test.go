package biz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplj/lakegate/internal/authz"
	"github.com/looplj/lakegate/internal/layers"
	"github.com/looplj/lakegate/internal/ledger"
	"github.com/looplj/lakegate/internal/store"
)

func newTestServices(t *testing.T) (*GovernanceService, *LedgerService, *store.Store) {
	t.Helper()

	db, err := store.Open(store.Config{Dialect: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	st := store.New(db)
	gov := NewGovernanceService(GovernanceServiceParams{Store: st})
	led := NewLedgerService(LedgerServiceParams{Ledger: ledger.New(db), Store: st})

	return gov, led, st
}

func seedCompanyWeek(t *testing.T, gov *GovernanceService, company string, weekStart time.Time, scores []*float64) {
	t.Helper()

	ctx := authz.NewSystemContext(context.Background())

	for i, score := range scores {
		id := fmtID(company, i)
		postedAt := weekStart.Add(time.Duration(i) * time.Hour)

		_, err := gov.IngestRaw(ctx, store.RawRecord{
			ID: id, Company: company, Platform: "twitter",
			Content: "post", PostedAt: &postedAt,
		})
		require.NoError(t, err)

		_, err = gov.DeriveCleaned(ctx, id)
		require.NoError(t, err)

		if score != nil {
			require.NoError(t, gov.UpdateScores(ctx, id, score, nil))
		}
	}
}

func fmtID(company string, i int) string {
	return company + "-" + string(rune('a'+i))
}

func TestAggregateWeek_SystemPersists(t *testing.T) {
	gov, _, _ := newTestServices(t)
	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	seedCompanyWeek(t, gov, "acme", weekStart, []*float64{lo.ToPtr(0.8), lo.ToPtr(-0.2), nil})

	ctx := authz.NewSystemContext(context.Background())

	rec, err := gov.AggregateWeek(ctx, "acme", weekStart, []string{"pricing"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.TotalPosts)
	assert.Equal(t, 1, rec.PositivePosts)
	assert.Equal(t, 1, rec.NegativePosts)

	got, err := gov.GetAggregate(ctx, "acme", weekStart)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalPosts)
}

func TestAggregateWeek_EngineerPreviewNotPersisted(t *testing.T) {
	gov, _, _ := newTestServices(t)
	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	seedCompanyWeek(t, gov, "acme", weekStart, []*float64{lo.ToPtr(0.8)})

	ctx := authz.NewRoleContext(context.Background(), layers.RolePrivilegedEngineer, "eva")

	rec, err := gov.AggregateWeek(ctx, "acme", weekStart, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.TotalPosts)

	_, err = gov.GetAggregate(ctx, "acme", weekStart)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestAggregateAllCompanies(t *testing.T) {
	gov, _, _ := newTestServices(t)
	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	seedCompanyWeek(t, gov, "acme", weekStart, []*float64{lo.ToPtr(0.8), lo.ToPtr(0.1)})
	seedCompanyWeek(t, gov, "globex", weekStart, []*float64{lo.ToPtr(-0.5)})
	seedCompanyWeek(t, gov, "offweek", weekStart.AddDate(0, 0, 21), []*float64{nil})

	recs, err := gov.AggregateAllCompanies(context.Background(), weekStart)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	readCtx := authz.NewRoleContext(context.Background(), layers.RoleAnalyst, "amy")

	acme, err := gov.GetAggregate(readCtx, "acme", weekStart)
	require.NoError(t, err)
	assert.Equal(t, 2, acme.TotalPosts)
	assert.Equal(t, 2, acme.PositivePosts)

	globex, err := gov.GetAggregate(readCtx, "globex", weekStart)
	require.NoError(t, err)
	assert.Equal(t, 1, globex.TotalPosts)
	assert.Equal(t, 1, globex.NegativePosts)

	// The off-week company produced nothing for this window.
	_, err = gov.GetAggregate(readCtx, "offweek", weekStart)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestRunBuiltinChecks(t *testing.T) {
	gov, led, _ := newTestServices(t)
	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	seedCompanyWeek(t, gov, "acme", weekStart, []*float64{lo.ToPtr(0.5)})

	ctx := authz.NewSystemContext(context.Background())

	entries, err := led.RunBuiltinChecks(ctx)
	require.NoError(t, err)
	require.Len(t, entries, len(builtinChecks))

	for _, e := range entries {
		assert.Equal(t, ledger.StatusPass, e.Status, "check %s", e.CheckName)
	}

	status, ok, err := led.LastStatus(ctx, "cleaned_posts")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ledger.StatusPass, status)
}
