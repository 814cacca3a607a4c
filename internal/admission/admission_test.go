package admission

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jobradar/harvester/internal/harvest"
)

func validResult(i int) harvest.SearchResult {
	return harvest.SearchResult{
		Source:      "x.test",
		Title:       "Go Developer " + strconv.Itoa(i),
		Description: "Write Go services.",
		DetailURL:   fmt.Sprintf("https://x.test/offer/%d", i),
		Locations:   []string{"Berlin"},
		CompanyName: "ACME",
	}
}

func TestRuleOrderFirstFailureWins(t *testing.T) {
	t.Parallel()

	base := validResult(1)

	noTitle := base
	noTitle.Title = "  "
	noTitle.Description = ""
	require.Equal(t, RejectEmptyTitle, EvaluateRules(noTitle, "de", nil))

	noDesc := base
	noDesc.Description = ""
	require.Equal(t, RejectEmptyDescription, EvaluateRules(noDesc, "de", nil))

	noLoc := base
	noLoc.Locations = []string{"", "  "}
	require.Equal(t, RejectNoLocation, EvaluateRules(noLoc, "de", nil))

	noCompany := base
	noCompany.CompanyName = ""
	require.Equal(t, RejectEmptyCompany, EvaluateRules(noCompany, "de", nil))

	require.Equal(t, RejectNone, EvaluateRules(base, "de", nil))
}

func TestUnsetCountryAdmitsPastLocationRule(t *testing.T) {
	t.Parallel()

	result := validResult(1)
	result.CompanyName = ""
	// Country unset: the company and denylist rules are never evaluated.
	require.Equal(t, RejectNone, EvaluateRules(result, "", nil))
}

func TestDenylistCaseInsensitiveSubstring(t *testing.T) {
	t.Parallel()

	denylist := map[string][]string{"de": {"staffing gmbh", "BodyLease"}}

	result := validResult(1)
	result.CompanyName = "Best STAFFING GmbH & Co"
	require.Equal(t, RejectDeniedCompany, EvaluateRules(result, "de", denylist))

	result.CompanyName = "bodylease24"
	require.Equal(t, RejectDeniedCompany, EvaluateRules(result, "de", denylist))

	// Denylist of another country does not apply.
	require.Equal(t, RejectNone, EvaluateRules(result, "pl", denylist))
}

func TestLimiterScenarioTailEviction(t *testing.T) {
	t.Parallel()

	// Running total 95, limit 100 -> ceiling 120, headroom 25.
	limiter := NewLimiter(100)
	seed := harvest.ReconciliationBatch{}
	for i := 0; i < 95; i++ {
		seed.NewResults = append(seed.NewResults, validResult(i))
	}
	require.False(t, limiter.Apply(&seed))
	require.Equal(t, 95, limiter.Total())

	batch := harvest.ReconciliationBatch{}
	for i := 100; i < 130; i++ {
		batch.NewResults = append(batch.NewResults, validResult(i))
	}
	require.True(t, limiter.Apply(&batch))
	require.Len(t, batch.NewResults, 25)
	// The last five appended are the ones discarded.
	require.Equal(t, "https://x.test/offer/124", batch.NewResults[24].DetailURL)
	require.Equal(t, 120, limiter.Total())
}

func TestLimiterTrimsNewBeforeExisting(t *testing.T) {
	t.Parallel()

	limiter := NewLimiter(10) // ceiling 12
	batch := harvest.ReconciliationBatch{}
	for i := 0; i < 10; i++ {
		batch.NewResults = append(batch.NewResults, validResult(i))
	}
	for i := 0; i < 6; i++ {
		batch.ExistingOffers = append(batch.ExistingOffers, harvest.OfferRef{
			ID: strconv.Itoa(i), Source: "x.test",
		})
	}
	require.True(t, limiter.Apply(&batch))
	// Excess 4: all trimmed from the new-results tail first.
	require.Len(t, batch.NewResults, 6)
	require.Len(t, batch.ExistingOffers, 6)
	require.Equal(t, 12, batch.CountAll())
}

func TestLimiterNeverExceedsFloorOfBonusCeiling(t *testing.T) {
	t.Parallel()

	for _, limit := range []int{1, 7, 99, 100, 250} {
		limiter := NewLimiter(limit)
		ceiling := limit + limit*20/100
		admitted := 0
		for page := 0; page < 50; page++ {
			batch := harvest.ReconciliationBatch{}
			for i := 0; i < 9; i++ {
				batch.NewResults = append(batch.NewResults, validResult(page*9+i))
			}
			limiter.Apply(&batch)
			admitted += batch.CountAll()
		}
		require.LessOrEqual(t, admitted, ceiling, "limit %d", limit)
		require.Equal(t, admitted, limiter.Total())
	}
}

func TestLimiterUnsetLimitUsesSafetyCap(t *testing.T) {
	t.Parallel()

	limiter := NewLimiter(0)
	batch := harvest.ReconciliationBatch{NewResults: []harvest.SearchResult{validResult(1)}}
	require.False(t, limiter.Apply(&batch))
	require.Len(t, batch.NewResults, 1)
}

type memoryOfferStore struct {
	byKey map[string]harvest.OfferRef
	saved []harvest.SearchResult
}

func newMemoryOfferStore() *memoryOfferStore {
	return &memoryOfferStore{byKey: make(map[string]harvest.OfferRef)}
}

func (s *memoryOfferStore) FindByNaturalKey(_ context.Context, key string) (harvest.OfferRef, bool, error) {
	ref, ok := s.byKey[key]
	return ref, ok, nil
}

func (s *memoryOfferStore) SaveOffer(_ context.Context, result harvest.SearchResult) (harvest.OfferRef, error) {
	ref := harvest.OfferRef{
		ID:        strconv.Itoa(len(s.saved) + 1),
		Source:    result.Source,
		DetailURL: result.DetailURL,
	}
	s.byKey[result.NaturalKey()] = ref
	s.saved = append(s.saved, result)
	return ref, nil
}

func TestControllerSplitsNewAndExisting(t *testing.T) {
	t.Parallel()

	store := newMemoryOfferStore()
	ctx := context.Background()
	_, err := store.SaveOffer(ctx, validResult(1))
	require.NoError(t, err)

	c := NewController(Config{Store: store, OffersLimit: 100})
	batch, limitReached, err := c.Process(ctx, "x.test", "de", []harvest.SearchResult{
		validResult(1), // existing
		validResult(2), // new
		{Source: "x.test", Title: "No description", DetailURL: "https://x.test/offer/9", Locations: []string{"Berlin"}},
	})
	require.NoError(t, err)
	require.False(t, limitReached)
	require.Len(t, batch.ExistingOffers, 1)
	require.Len(t, batch.NewResults, 1)
	require.Equal(t, "https://x.test/offer/2", batch.NewResults[0].DetailURL)
	require.Equal(t, 2, batch.CountAll())

	refs, err := c.Persist(ctx, batch)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Len(t, store.saved, 2)
}

func TestControllerSanitizesDescriptions(t *testing.T) {
	t.Parallel()

	store := newMemoryOfferStore()
	c := NewController(Config{Store: store, OffersLimit: 100})
	result := validResult(3)
	result.Description = "<p>Write <b>Go</b> services.</p><script>alert(1)</script>"
	batch, _, err := c.Process(context.Background(), "x.test", "de", []harvest.SearchResult{result})
	require.NoError(t, err)
	require.Len(t, batch.NewResults, 1)
	require.Equal(t, "Write Go services.", batch.NewResults[0].Description)
}
