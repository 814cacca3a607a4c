package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jobradar/harvester/internal/harvest"
	"github.com/jobradar/harvester/internal/storage/memory"
)

type fakeSubmitter struct {
	msgs []harvest.TriggerMessage
	err  error
}

func (f *fakeSubmitter) Submit(_ context.Context, msg harvest.TriggerMessage) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func newTestServer(t *testing.T, submitter *fakeSubmitter) (*Server, *memory.ExtractionStore, fixedClock) {
	t.Helper()
	store := memory.NewExtractionStore()
	clock := fixedClock{at: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	srv := NewServer(store, submitter, clock, time.Hour, nil)
	return srv, store, clock
}

func TestSubmitExtractionAccepted(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{}
	srv, _, _ := newTestServer(t, submitter)

	body, _ := json.Marshal(map[string]any{
		"keywords":     []string{"go", "backend"},
		"country":      "pl",
		"location":     "Warszawa",
		"distance_km":  30,
		"offers_limit": 200,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/extractions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["correlation_id"])

	require.Len(t, submitter.msgs, 1)
	msg := submitter.msgs[0]
	require.Equal(t, resp["correlation_id"], msg.CorrelationID)
	require.Equal(t, []string{"go", "backend"}, msg.Parameters.Keywords)
	require.Equal(t, "pl", msg.Parameters.Country)
	require.Equal(t, 200, msg.Parameters.OffersLimit)
}

func TestSubmitExtractionValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body map[string]any
	}{
		{"no keywords", map[string]any{"country": "pl"}},
		{"blank keyword", map[string]any{"keywords": []string{" "}, "country": "pl"}},
		{"no country no sources", map[string]any{"keywords": []string{"go"}}},
		{"negative distance", map[string]any{"keywords": []string{"go"}, "country": "pl", "distance_km": -1}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			submitter := &fakeSubmitter{}
			srv, _, _ := newTestServer(t, submitter)

			body, _ := json.Marshal(tc.body)
			req := httptest.NewRequest(http.MethodPost, "/v1/extractions", bytes.NewReader(body))
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Empty(t, submitter.msgs)
		})
	}
}

func TestSubmitExtractionDebugRunWithoutCountry(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{}
	srv, _, _ := newTestServer(t, submitter)

	body, _ := json.Marshal(map[string]any{
		"keywords": []string{"go"},
		"sources":  []string{"x.test"},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/extractions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, submitter.msgs, 1)
	require.Equal(t, []string{"x.test"}, submitter.msgs[0].Sources)
}

func TestSubmitExtractionSubmitterFailure(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{err: errors.New("transport down")}
	srv, _, _ := newTestServer(t, submitter)

	body, _ := json.Marshal(map[string]any{"keywords": []string{"go"}, "country": "pl"})
	req := httptest.NewRequest(http.MethodPost, "/v1/extractions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetExtractionWithStaleFlag(t *testing.T) {
	t.Parallel()

	srv, store, clock := newTestServer(t, &fakeSubmitter{})

	fresh := harvest.Extraction{
		ID:      "run-fresh",
		Status:  harvest.StatusRunning,
		Created: clock.at.Add(-10 * time.Minute),
	}
	stale := harvest.Extraction{
		ID:      "run-stale",
		Status:  harvest.StatusRunning,
		Created: clock.at.Add(-2 * time.Hour),
	}
	done := harvest.Extraction{
		ID:      "run-done",
		Status:  harvest.StatusCompleted,
		Created: clock.at.Add(-3 * time.Hour),
	}
	require.NoError(t, store.CreateExtraction(context.Background(), fresh))
	require.NoError(t, store.CreateExtraction(context.Background(), stale))
	require.NoError(t, store.CreateExtraction(context.Background(), done))

	for _, tc := range []struct {
		id        string
		wantStale bool
	}{
		{"run-fresh", false},
		{"run-stale", true},
		{"run-done", false},
	} {
		req := httptest.NewRequest(http.MethodGet, "/v1/extractions/"+tc.id, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp extractionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, tc.id, resp.ID)
		require.Equal(t, tc.wantStale, resp.Stale, tc.id)
	}
}

func TestGetExtractionNotFound(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t, &fakeSubmitter{})
	req := httptest.NewRequest(http.MethodGet, "/v1/extractions/missing", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t, &fakeSubmitter{})
	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}
