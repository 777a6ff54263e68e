package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplj/lakegate/internal/authz"
	"github.com/looplj/lakegate/internal/layers"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := Open(Config{Dialect: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	return New(db)
}

func engineerCtx() context.Context {
	return authz.NewRoleContext(context.Background(), layers.RolePrivilegedEngineer, "eva")
}

func analystCtx() context.Context {
	return authz.NewRoleContext(context.Background(), layers.RoleAnalyst, "amy")
}

func systemCtx() context.Context {
	return authz.NewSystemContext(context.Background())
}

func TestPutRaw_PrivilegedIdentifierPassThrough(t *testing.T) {
	s := newTestStore(t)

	// Under the shipped grant table every raw writer is privileged, so the
	// write gate must pass identifiers through unchanged. Masking for
	// non-privileged writers is covered at the gate itself in authz.
	rec, err := s.PutRaw(systemCtx(), RawRecord{
		ID:               "p-sys",
		Company:          "acme",
		Platform:         "twitter",
		AuthorIdentifier: lo.ToPtr("alice"),
		Content:          "hello",
	})
	require.NoError(t, err)
	require.NotNil(t, rec.AuthorIdentifier)
	assert.Equal(t, "alice", *rec.AuthorIdentifier)

	// Stored value for a privileged writer is the input identifier exactly.
	got, err := s.GetRaw(systemCtx(), "p-sys")
	require.NoError(t, err)
	require.NotNil(t, got.AuthorIdentifier)
	assert.Equal(t, "alice", *got.AuthorIdentifier)
}

func TestPutRaw_GrantTable(t *testing.T) {
	s := newTestStore(t)

	// Analyst holds no write on raw: rejected before masking even runs.
	_, err := s.PutRaw(analystCtx(), RawRecord{
		ID:               "p1",
		Company:          "acme",
		Platform:         "twitter",
		AuthorIdentifier: lo.ToPtr("alice"),
		Content:          "hello",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAccessDenied))

	// Nothing was persisted.
	_, err = s.GetRaw(engineerCtx(), "p1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPutRaw_DuplicateKey(t *testing.T) {
	s := newTestStore(t)
	ctx := engineerCtx()

	first, err := s.PutRaw(ctx, RawRecord{
		ID: "p1", Company: "acme", Platform: "reddit", Content: "one",
	})
	require.NoError(t, err)

	_, err = s.PutRaw(ctx, RawRecord{
		ID: "p1", Company: "acme", Platform: "reddit", Content: "two",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateKey))

	// Stored record equals the record after the first call alone.
	got, err := s.GetRaw(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, first.Content, got.Content)
}

func TestListRaw(t *testing.T) {
	s := newTestStore(t)
	ctx := engineerCtx()

	for _, rec := range []RawRecord{
		{ID: "a1", Company: "acme", Platform: "twitter", Content: "one", AuthorIdentifier: lo.ToPtr("alice")},
		{ID: "a2", Company: "acme", Platform: "reddit", Content: "two"},
		{ID: "g1", Company: "globex", Platform: "twitter", Content: "three"},
	} {
		_, err := s.PutRaw(ctx, rec)
		require.NoError(t, err)
	}

	t.Run("filters by company in ingestion order", func(t *testing.T) {
		recs, err := s.ListRaw(ctx, "acme", 0)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "a1", recs[0].ID)
		assert.Equal(t, "a2", recs[1].ID)
	})

	t.Run("limit caps the result", func(t *testing.T) {
		recs, err := s.ListRaw(ctx, "", 1)
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("analyst holds no raw read", func(t *testing.T) {
		_, err := s.ListRaw(analystCtx(), "acme", 0)
		assert.True(t, errors.Is(err, ErrAccessDenied))
	})
}

func TestPutRaw_ConcurrentSameID(t *testing.T) {
	s := newTestStore(t)
	ctx := engineerCtx()

	const writers = 8

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		duplicates int
	)

	for i := 0; i < writers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := s.PutRaw(ctx, RawRecord{
				ID: "contested", Company: "acme", Platform: "twitter", Content: "race",
			})

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrDuplicateKey):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, writers-1, duplicates)
}

func TestGetRaw_MasksOnReadRegardlessOfStored(t *testing.T) {
	s := newTestStore(t)

	// Privileged engineer writes the real identifier.
	_, err := s.PutRaw(engineerCtx(), RawRecord{
		ID:               "p1",
		Company:          "acme",
		Platform:         "twitter",
		AuthorIdentifier: lo.ToPtr("alice"),
		Content:          "hello",
		PostedAt:         lo.ToPtr(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	// Analyst cannot read raw at all per the grant table.
	_, err = s.GetRaw(analystCtx(), "p1")
	assert.True(t, errors.Is(err, ErrAccessDenied))

	// A non-privileged read of the derived cleaned row sees the sentinel,
	// all other fields unchanged.
	_, err = s.DeriveCleaned(engineerCtx(), "p1")
	require.NoError(t, err)

	cleaned, err := s.GetCleaned(analystCtx(), "p1")
	require.NoError(t, err)
	require.NotNil(t, cleaned.AuthorIdentifier)
	assert.Equal(t, authz.AnonymousSentinel, *cleaned.AuthorIdentifier)
	assert.Equal(t, "hello", cleaned.Content)
	assert.Equal(t, "acme", cleaned.Company)

	// The privileged reader still sees the stored identifier.
	cleaned, err = s.GetCleaned(engineerCtx(), "p1")
	require.NoError(t, err)
	require.NotNil(t, cleaned.AuthorIdentifier)
	assert.Equal(t, "alice", *cleaned.AuthorIdentifier)
}

func TestMasking_NilIdentifierStaysNil(t *testing.T) {
	s := newTestStore(t)

	_, err := s.PutRaw(engineerCtx(), RawRecord{
		ID: "p-null", Company: "acme", Platform: "reddit", Content: "no author",
	})
	require.NoError(t, err)

	_, err = s.DeriveCleaned(engineerCtx(), "p-null")
	require.NoError(t, err)

	got, err := s.GetCleaned(analystCtx(), "p-null")
	require.NoError(t, err)
	assert.Nil(t, got.AuthorIdentifier)
}

func TestDeriveCleaned_MasksOnWritePath(t *testing.T) {
	s := newTestStore(t)

	// Raw row stores the real identifier (privileged write).
	_, err := s.PutRaw(engineerCtx(), RawRecord{
		ID:               "p1",
		Company:          "acme",
		Platform:         "twitter",
		AuthorIdentifier: lo.ToPtr("alice"),
		Content:          "hello",
	})
	require.NoError(t, err)

	// Derivation through the system principal keeps the identifier; the value
	// stored in cleaned equals the raw value.
	rec, err := s.DeriveCleaned(systemCtx(), "p1")
	require.NoError(t, err)
	require.NotNil(t, rec.AuthorIdentifier)
	assert.Equal(t, "alice", *rec.AuthorIdentifier)
	assert.Equal(t, DefaultQualityScore, rec.QualityScore)
}

func TestDeriveCleaned_MissingRaw(t *testing.T) {
	s := newTestStore(t)

	_, err := s.DeriveCleaned(engineerCtx(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUpdateCleanedScores(t *testing.T) {
	s := newTestStore(t)
	ctx := engineerCtx()

	_, err := s.PutRaw(ctx, RawRecord{ID: "p1", Company: "acme", Platform: "x", Content: "c"})
	require.NoError(t, err)
	_, err = s.DeriveCleaned(ctx, "p1")
	require.NoError(t, err)

	embedding := make([]float64, EmbeddingDim)
	embedding[0] = 0.5

	err = s.UpdateCleanedScores(ctx, "p1", lo.ToPtr(0.8), embedding)
	require.NoError(t, err)

	got, err := s.GetCleaned(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got.SentimentScore)
	assert.InDelta(t, 0.8, *got.SentimentScore, 1e-9)
	assert.Len(t, got.Embedding, EmbeddingDim)

	t.Run("missing target", func(t *testing.T) {
		err := s.UpdateCleanedScores(ctx, "ghost", lo.ToPtr(0.1), nil)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("wrong embedding dimension", func(t *testing.T) {
		err := s.UpdateCleanedScores(ctx, "p1", nil, []float64{1, 2, 3})
		require.Error(t, err)
	})

	t.Run("analyst has no cleaned write grant", func(t *testing.T) {
		err := s.UpdateCleanedScores(analystCtx(), "p1", lo.ToPtr(0.2), nil)
		assert.True(t, errors.Is(err, ErrAccessDenied))
	})
}

func seedWeek(t *testing.T, s *Store, company string, weekStart time.Time, scores []*float64) {
	t.Helper()

	ctx := engineerCtx()

	for i, score := range scores {
		id := company + "-" + string(rune('a'+i))
		postedAt := weekStart.Add(time.Duration(i) * time.Hour)

		_, err := s.PutRaw(ctx, RawRecord{
			ID: id, Company: company, Platform: "twitter",
			Content: "post", PostedAt: &postedAt,
		})
		require.NoError(t, err)

		_, err = s.DeriveCleaned(ctx, id)
		require.NoError(t, err)

		if score != nil {
			require.NoError(t, s.UpdateCleanedScores(ctx, id, score, nil))
		}
	}
}

func TestAggregateWeek(t *testing.T) {
	s := newTestStore(t)
	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	seedWeek(t, s, "acme", weekStart, []*float64{
		lo.ToPtr(0.8), lo.ToPtr(-0.2), nil,
	})

	rec, err := s.AggregateWeek(engineerCtx(), "acme", weekStart, []string{"pricing"}, []string{"summary"})
	require.NoError(t, err)
	assert.Equal(t, 3, rec.TotalPosts)
	assert.Equal(t, 1, rec.PositivePosts)
	assert.Equal(t, 1, rec.NegativePosts)
	assert.Equal(t, []string{"pricing"}, rec.TopThemes)

	t.Run("empty window", func(t *testing.T) {
		_, err := s.AggregateWeek(engineerCtx(), "acme", weekStart.AddDate(0, 0, 14), nil, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrEmptyWindow))
	})

	t.Run("unknown company", func(t *testing.T) {
		_, err := s.AggregateWeek(engineerCtx(), "ghost-corp", weekStart, nil, nil)
		assert.True(t, errors.Is(err, ErrEmptyWindow))
	})

	t.Run("zero score counts neither side", func(t *testing.T) {
		ws := weekStart.AddDate(0, 0, 28)
		seedWeek(t, s, "zeroco", ws, []*float64{lo.ToPtr(0.0)})

		rec, err := s.AggregateWeek(engineerCtx(), "zeroco", ws, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, rec.TotalPosts)
		assert.Equal(t, 0, rec.PositivePosts)
		assert.Equal(t, 0, rec.NegativePosts)
	})
}

func TestAggregateRoundTrip(t *testing.T) {
	s := newTestStore(t)
	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	seedWeek(t, s, "acme", weekStart, []*float64{lo.ToPtr(0.9)})

	rec, err := s.AggregateWeek(systemCtx(), "acme", weekStart, []string{"launch"}, []string{"good week"})
	require.NoError(t, err)

	// Only the system principal may write the aggregated layer.
	require.NoError(t, s.PutAggregate(systemCtx(), rec))

	err = s.PutAggregate(engineerCtx(), rec)
	assert.True(t, errors.Is(err, ErrAccessDenied))

	// Every role reads aggregates; no personal fields are involved.
	for _, role := range []layers.Role{layers.RoleAnalyst, layers.RoleMarketing, layers.RoleExternalViewer} {
		ctx := authz.NewRoleContext(context.Background(), role, "")

		got, err := s.GetAggregate(ctx, "acme", weekStart)
		require.NoError(t, err, "role %s", role)
		assert.Equal(t, 1, got.TotalPosts)
		assert.Equal(t, []string{"launch"}, got.TopThemes)
		assert.Equal(t, []string{"good week"}, got.GeneratedSummaries)
	}

	t.Run("invariant positive+negative<=total", func(t *testing.T) {
		bad := rec
		bad.PositivePosts = 2
		bad.NegativePosts = 2
		bad.TotalPosts = 3

		err := s.PutAggregate(systemCtx(), bad)
		require.Error(t, err)
	})
}

func TestCompanies(t *testing.T) {
	s := newTestStore(t)
	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	seedWeek(t, s, "acme", weekStart, []*float64{lo.ToPtr(0.1)})
	seedWeek(t, s, "globex", weekStart, []*float64{lo.ToPtr(-0.1)})
	seedWeek(t, s, "offweek", weekStart.AddDate(0, 0, 21), []*float64{nil})

	companies, err := s.Companies(engineerCtx(), weekStart)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "globex"}, companies)
}
