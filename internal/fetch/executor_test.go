package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jobradar/harvester/internal/harvest"
	"github.com/jobradar/harvester/internal/source"
)

// MockFetcher is a mock implementation of the harvest.Fetcher interface.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, request harvest.FetchRequest) (harvest.RawPage, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(harvest.RawPage), args.Error(1)
}

func noDelayExecutor(httpF, browserF harvest.Fetcher) *Executor {
	e := NewExecutor(httpF, browserF, FixedDelay(0), nil)
	e.sleepFun = func(context.Context, time.Duration) error { return nil }
	return e
}

func TestFetchRoutesToHTTPEngine(t *testing.T) {
	t.Parallel()

	httpF := new(MockFetcher)
	browserF := new(MockFetcher)
	httpF.On("Fetch", mock.Anything, mock.MatchedBy(func(r harvest.FetchRequest) bool {
		return r.URL == "https://x.test/jobs" && r.Engine == harvest.EngineHTTP
	})).Return(harvest.RawPage{URL: "https://x.test/jobs", HTML: []byte("<html></html>")}, nil)

	cfg := &source.Config{
		Name:      "x.test",
		Kind:      source.KindDOM,
		Engine:    harvest.EngineHTTP,
		Selectors: &source.SelectorSet{ListItem: "li"},
	}
	page, err := noDelayExecutor(httpF, browserF).Fetch(context.Background(), cfg, "https://x.test/jobs", harvest.PageKindListing)
	require.NoError(t, err)
	require.Equal(t, "https://x.test/jobs", page.URL)
	browserF.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestFetchDecodesAPIPayload(t *testing.T) {
	t.Parallel()

	httpF := new(MockFetcher)
	httpF.On("Fetch", mock.Anything, mock.Anything).
		Return(harvest.RawPage{URL: "https://api.x.test", HTML: []byte(`{"jobs":[{"id":1}]}`)}, nil)

	cfg := &source.Config{
		Name:       "api.x.test",
		Kind:       source.KindAPI,
		Engine:     harvest.EngineHTTP,
		FieldPaths: &source.FieldPathSet{Items: source.Path{Path: "jobs"}},
	}
	page, err := noDelayExecutor(httpF, nil).Fetch(context.Background(), cfg, "https://api.x.test", harvest.PageKindListing)
	require.NoError(t, err)
	require.True(t, page.IsJSON())
}

func TestFetchMalformedAPIPayloadIsTransient(t *testing.T) {
	t.Parallel()

	httpF := new(MockFetcher)
	httpF.On("Fetch", mock.Anything, mock.Anything).
		Return(harvest.RawPage{URL: "https://api.x.test", HTML: []byte(`<html>not json`)}, nil)

	cfg := &source.Config{
		Name:       "api.x.test",
		Kind:       source.KindAPI,
		Engine:     harvest.EngineHTTP,
		FieldPaths: &source.FieldPathSet{Items: source.Path{Path: "jobs"}},
	}
	_, err := noDelayExecutor(httpF, nil).Fetch(context.Background(), cfg, "https://api.x.test", harvest.PageKindListing)
	var transient *harvest.TransientFetchError
	require.ErrorAs(t, err, &transient)
}

func TestFetchDetailFollowsIframe(t *testing.T) {
	t.Parallel()

	const detailHTML = `<html><body><div id="offer"><iframe src="/embed/5"></iframe></div></body></html>`

	httpF := new(MockFetcher)
	httpF.On("Fetch", mock.Anything, mock.MatchedBy(func(r harvest.FetchRequest) bool {
		return r.URL == "https://y.test/offer/5"
	})).Return(harvest.RawPage{URL: "https://y.test/offer/5", HTML: []byte(detailHTML)}, nil)

	browserF := new(MockFetcher)
	browserF.On("Fetch", mock.Anything, mock.MatchedBy(func(r harvest.FetchRequest) bool {
		return r.URL == "https://y.test/embed/5" && r.Engine == harvest.EngineBrowser
	})).Return(harvest.RawPage{URL: "https://y.test/embed/5", HTML: []byte("<html>embedded</html>")}, nil)

	cfg := &source.Config{
		Name:   "y.test",
		Kind:   source.KindDOM,
		Engine: harvest.EngineHTTP,
		Selectors: &source.SelectorSet{
			ListItem:     "li",
			DetailIframe: "#offer",
		},
	}
	page, err := noDelayExecutor(httpF, browserF).FetchDetail(context.Background(), cfg, "https://y.test/offer/5")
	require.NoError(t, err)
	require.Equal(t, "https://y.test/embed/5", page.URL)
	browserF.AssertExpectations(t)
}

func TestFetchDetailIframeMissingIsHardError(t *testing.T) {
	t.Parallel()

	httpF := new(MockFetcher)
	httpF.On("Fetch", mock.Anything, mock.Anything).
		Return(harvest.RawPage{URL: "https://y.test/offer/6", HTML: []byte("<html><body>plain</body></html>")}, nil)

	cfg := &source.Config{
		Name:   "y.test",
		Kind:   source.KindDOM,
		Engine: harvest.EngineHTTP,
		Selectors: &source.SelectorSet{
			ListItem:     "li",
			DetailIframe: "#offer",
		},
	}
	_, err := noDelayExecutor(httpF, nil).FetchDetail(context.Background(), cfg, "https://y.test/offer/6")
	require.Error(t, err)
	require.ErrorIs(t, err, errIframeNotFound)
}

func TestIframeSrcAbsoluteAndRelative(t *testing.T) {
	t.Parallel()

	src, err := iframeSrc("https://y.test/offer/5",
		[]byte(`<html><body><iframe id="f" src="/embed/5"></iframe></body></html>`), "#f")
	require.NoError(t, err)
	require.Equal(t, "https://y.test/embed/5", src)

	src, err = iframeSrc("https://y.test/offer/5",
		[]byte(`<html><body><iframe id="f" src="https://cdn.test/e/5"></iframe></body></html>`), "#f")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.test/e/5", src)

	_, err = iframeSrc("https://y.test/offer/5",
		[]byte(`<html><body><iframe id="f"></iframe></body></html>`), "#f")
	require.ErrorIs(t, err, errIframeNoSrc)
}

func TestRandomDelayWithinBounds(t *testing.T) {
	t.Parallel()

	d := NewRandomDelay(0, 0)
	for i := 0; i < 100; i++ {
		got := d.NextDelay()
		require.GreaterOrEqual(t, got, DefaultMinDelay)
		require.Less(t, got, DefaultMaxDelay)
	}
}

func TestFetchErrorPropagates(t *testing.T) {
	t.Parallel()

	httpF := new(MockFetcher)
	httpF.On("Fetch", mock.Anything, mock.Anything).
		Return(harvest.RawPage{}, errors.New("connection reset"))

	cfg := &source.Config{
		Name:      "x.test",
		Kind:      source.KindDOM,
		Engine:    harvest.EngineHTTP,
		Selectors: &source.SelectorSet{ListItem: "li"},
	}
	_, err := noDelayExecutor(httpF, nil).Fetch(context.Background(), cfg, "https://x.test", harvest.PageKindListing)
	require.Error(t, err)
}
