package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutdex/scoutdex"
	"github.com/scoutdex/scoutdex/ingest"
	"github.com/scoutdex/scoutdex/record"
	"github.com/scoutdex/scoutdex/source"
)

// stubEngine returns canned values and records the inputs it saw.
type stubEngine struct {
	searchResults []scoutdex.SearchResult
	searchErr     error
	answer        *scoutdex.Answer
	askErr        error
	report        ingest.Report
	syncErr       error
	health        scoutdex.Health

	lastQuery    string
	lastK        int
	lastQuestion string
	syncCalls    int
}

func (s *stubEngine) Search(_ context.Context, query string, k int) ([]scoutdex.SearchResult, error) {
	s.lastQuery, s.lastK = query, k
	return s.searchResults, s.searchErr
}

func (s *stubEngine) Ask(_ context.Context, question string) (*scoutdex.Answer, error) {
	s.lastQuestion = question
	return s.answer, s.askErr
}

func (s *stubEngine) Sync(context.Context, source.Fetcher) (ingest.Report, error) {
	s.syncCalls++
	return s.report, s.syncErr
}

func (s *stubEngine) Health() scoutdex.Health { return s.health }

type nopFetcher struct{}

func (nopFetcher) Fetch(context.Context) ([]record.Record, error) { return nil, nil }
func (nopFetcher) Name() string                                   { return "nop" }

func postJSON(t *testing.T, srv *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestServer_Search(t *testing.T) {
	eng := &stubEngine{
		searchResults: []scoutdex.SearchResult{
			{Record: record.Record{ID: "test:MediScan", Name: "MediScan"}, Rank: 1, Percent: 88.5, Label: "excellent"},
		},
	}
	srv := NewServer(eng, nopFetcher{})

	rec := postJSON(t, srv, "/v1/search", searchRequest{Query: "ai healthcare", K: 3})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ai healthcare", eng.lastQuery)
	assert.Equal(t, 3, eng.lastK)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "MediScan", resp.Results[0].Record.Name)
}

func TestServer_SearchEmptyResultsIsArray(t *testing.T) {
	srv := NewServer(&stubEngine{}, nopFetcher{})

	rec := postJSON(t, srv, "/v1/search", searchRequest{Query: "nothing"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[]}`, rec.Body.String())
}

func TestServer_SearchInvalidBody(t *testing.T) {
	srv := NewServer(&stubEngine{}, nopFetcher{})

	req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid query", scoutdex.ErrInvalidQuery, http.StatusBadRequest},
		{"not ready", scoutdex.ErrNotReady, http.StatusServiceUnavailable},
		{"source unavailable", scoutdex.ErrSourceUnavailable, http.StatusBadGateway},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(&stubEngine{searchErr: tt.err}, nopFetcher{})
			rec := postJSON(t, srv, "/v1/search", searchRequest{Query: "q"})
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestServer_Ask(t *testing.T) {
	eng := &stubEngine{
		answer: &scoutdex.Answer{
			Question: "what?",
			Text:     "MediScan does early disease detection.",
			Sources:  []string{"test:MediScan"},
		},
	}
	srv := NewServer(eng, nopFetcher{})

	rec := postJSON(t, srv, "/v1/ask", askRequest{Question: "what?"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "what?", eng.lastQuestion)

	var ans scoutdex.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ans))
	assert.Equal(t, eng.answer.Text, ans.Text)
	assert.Equal(t, eng.answer.Sources, ans.Sources)
}

func TestServer_Sync(t *testing.T) {
	eng := &stubEngine{report: ingest.Report{RunID: "run-1", Added: 5}}
	srv := NewServer(eng, nopFetcher{})

	rec := postJSON(t, srv, "/v1/sync", struct{}{})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, eng.syncCalls)

	var report ingest.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 5, report.Added)
}

func TestServer_SyncDisabledWithoutFetcher(t *testing.T) {
	srv := NewServer(&stubEngine{}, nil)

	rec := postJSON(t, srv, "/v1/sync", struct{}{})

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestServer_Health(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		srv := NewServer(&stubEngine{health: scoutdex.Health{Ready: true, Records: 3}}, nopFetcher{})

		req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var h scoutdex.Health
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
		assert.True(t, h.Ready)
		assert.Equal(t, 3, h.Records)

		// Wire names follow the public health contract.
		assert.Contains(t, rec.Body.String(), `"index_loaded":true`)
		assert.Contains(t, rec.Body.String(), `"record_count":3`)
	})

	t.Run("not ready", func(t *testing.T) {
		srv := NewServer(&stubEngine{}, nopFetcher{})

		req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := NewServer(&stubEngine{}, nopFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/v1/search", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
