package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/harvest"
	"github.com/jobradar/harvester/internal/source"
)

func domConfig() *source.Config {
	return &source.Config{
		Name:    "x.test",
		Country: "de",
		Kind:    source.KindDOM,
		SearchURI: source.SearchURI{
			BaseURI:  source.BaseURI{Standard: "https://x.test/jobs"},
			Keywords: source.KeywordRule{Param: "q", Separator: ","},
			Pagination: source.PaginationRule{
				Placement: source.PlacementQuery,
				Param:     "page",
			},
		},
		Selectors: &source.SelectorSet{ListItem: "li.job"},
	}
}

func TestSearchURLScenarioCommaSeparatedKeywords(t *testing.T) {
	t.Parallel()

	r := NewDOM(domConfig())
	got, err := r.SearchURL(Query{
		Params: harvest.SearchParameters{Keywords: []string{"go", "dev"}},
		Page:   1,
	})
	require.NoError(t, err)
	require.Equal(t, "https://x.test/jobs?q=go,dev&page=1", got)
}

func TestSearchURLDeterministic(t *testing.T) {
	t.Parallel()

	r := NewDOM(domConfig())
	q := Query{
		Params: harvest.SearchParameters{
			Keywords: []string{"backend engineer", "go"},
			Location: "München",
		},
		Page: 3,
	}
	first, err := r.SearchURL(q)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := r.SearchURL(q)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestSearchURLKeywordOrderOfOperations(t *testing.T) {
	t.Parallel()

	cfg := domConfig()
	cfg.SearchURI.Keywords = source.KeywordRule{
		Param:     "kw",
		Separator: "+",
		SpaceChar: "-",
		Encode:    true,
	}
	r := NewDOM(cfg)
	got, err := r.SearchURL(Query{
		Params: harvest.SearchParameters{Keywords: []string{"go dev", "c#"}},
		Page:   1,
	})
	require.NoError(t, err)
	// Spaces are substituted before encoding, then parts are joined raw.
	require.Equal(t, "https://x.test/jobs?kw=go-dev+c%23&page=1", got)
}

func TestSearchURLLocationSegment(t *testing.T) {
	t.Parallel()

	cfg := domConfig()
	cfg.SearchURI.Location = source.LocationRule{
		Placement:     source.PlacementSegment,
		SegmentPrefix: "in-",
		TrailingSlash: true,
		SpaceChar:     "-",
	}
	r := NewDOM(cfg)
	got, err := r.SearchURL(Query{
		Params: harvest.SearchParameters{
			Keywords: []string{"go"},
			Location: "Köln West",
		},
		Page: 2,
	})
	require.NoError(t, err)
	require.Equal(t, "https://x.test/jobs/in-Koeln-West/?q=go&page=2", got)
}

func TestSearchURLLocationQueryWithDistance(t *testing.T) {
	t.Parallel()

	cfg := domConfig()
	cfg.SearchURI.Location = source.LocationRule{
		Placement: source.PlacementQuery,
		Param:     "l",
		Distance:  source.DistanceRule{Placement: source.PlacementQuery, Param: "radius"},
	}
	r := NewDOM(cfg)
	got, err := r.SearchURL(Query{
		Params: harvest.SearchParameters{
			Keywords:   []string{"go"},
			Location:   "Berlin",
			DistanceKm: 25,
		},
		Page: 1,
	})
	require.NoError(t, err)
	require.Equal(t, "https://x.test/jobs?q=go&l=Berlin&radius=25&page=1", got)
}

func TestSearchURLPaginationSegment(t *testing.T) {
	t.Parallel()

	cfg := domConfig()
	cfg.SearchURI.Pagination = source.PaginationRule{
		Placement: source.PlacementSegment,
		Param:     "p",
	}
	r := NewDOM(cfg)
	got, err := r.SearchURL(Query{
		Params: harvest.SearchParameters{Keywords: []string{"go"}},
		Page:   4,
	})
	require.NoError(t, err)
	require.Equal(t, "https://x.test/jobs/p4?q=go", got)
}

func TestSearchURLSortedLatestVariant(t *testing.T) {
	t.Parallel()

	cfg := domConfig()
	cfg.SearchURI.BaseURI.SortedLatestFirst = "https://x.test/jobs?sort=date"
	r := NewDOM(cfg)
	got, err := r.SearchURL(Query{
		Params:       harvest.SearchParameters{Keywords: []string{"go"}},
		Page:         1,
		SortedLatest: true,
	})
	require.NoError(t, err)
	require.Equal(t, "https://x.test/jobs?sort=date&q=go&page=1", got)
}

func apiConfig() *source.Config {
	return &source.Config{
		Name:    "api.x.test",
		Country: "de",
		Kind:    source.KindAPI,
		SearchURI: source.SearchURI{
			BaseURI: source.BaseURI{Standard: "https://x.test/api/search"},
		},
		FieldPaths: &source.FieldPathSet{
			Items:      source.Path{Path: "jobs"},
			DetailURL:  source.Path{Path: "jobOfferUrl"},
			ExternalID: source.Path{Path: "id"},
			BaseHost:   "https://x.test",
		},
	}
}

func TestDetailURLDirectFieldWithoutHost(t *testing.T) {
	t.Parallel()

	r := NewAPI(apiConfig(), zap.NewNop())
	item := map[string]any{"jobOfferUrl": "/job/42", "id": "42"}
	got, err := r.DetailURL(item)
	require.NoError(t, err)
	require.Equal(t, "https://x.test/job/42", got)
}

func TestDetailURLDirectFieldWithHost(t *testing.T) {
	t.Parallel()

	r := NewAPI(apiConfig(), zap.NewNop())
	item := map[string]any{"jobOfferUrl": "https://x.test/job/42"}
	got, err := r.DetailURL(item)
	require.NoError(t, err)
	require.Equal(t, "https://x.test/job/42", got)
}

func TestDetailURLFallsBackToIdentifierSynthesis(t *testing.T) {
	t.Parallel()

	cfg := apiConfig()
	cfg.FieldPaths.DetailBaseURI = "https://x.test/offers"
	cfg.FieldPaths.IDAfterTrailingSlash = true
	r := NewAPI(cfg, zap.NewNop())

	// Direct URL field absent: synthesis from the identifier.
	got, err := r.DetailURL(map[string]any{"id": "1234"})
	require.NoError(t, err)
	require.Equal(t, "https://x.test/offers/1234", got)
}

func TestDetailURLIdentifierAsQueryParam(t *testing.T) {
	t.Parallel()

	cfg := apiConfig()
	cfg.FieldPaths.DetailURL = source.Path{}
	cfg.FieldPaths.DetailBaseURI = "https://x.test/offer"
	cfg.FieldPaths.IDParam = "id"
	r := NewAPI(cfg, zap.NewNop())

	got, err := r.DetailURL(map[string]any{"id": float64(77)})
	require.NoError(t, err)
	require.Equal(t, "https://x.test/offer?id=77", got)
}

func TestDetailURLMissingIdentifierIsResolutionError(t *testing.T) {
	t.Parallel()

	cfg := apiConfig()
	cfg.FieldPaths.DetailBaseURI = "https://x.test/offers"
	r := NewAPI(cfg, zap.NewNop())

	_, err := r.DetailURL(map[string]any{"title": "no ids here"})
	var resErr *harvest.ResolutionError
	require.ErrorAs(t, err, &resErr)
	require.Equal(t, "api.x.test", resErr.Source)
}

func TestNormalizeNational(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Krakow", NormalizeNational("Kraków"))
	require.Equal(t, "Muenchen", NormalizeNational("München"))
	require.Equal(t, "Orleans", NormalizeNational("Orléans"))
}
