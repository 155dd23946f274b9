package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chartflow/chart"
	"chartflow/models"
)

type stubService struct {
	bars []models.Bar
	err  error
}

func (s *stubService) GetHistoricalBars(_ context.Context, _, _ string, _, _ int64) ([]models.Bar, error) {
	return s.bars, s.err
}

func newTestServer(svc ChartService) *Server {
	return NewServer(":0", time.Second, svc)
}

func doKlines(t *testing.T, s *Server, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	s.handleKlines(rec, req)
	return rec
}

func TestKlinesOK(t *testing.T) {
	svc := &stubService{bars: []models.Bar{{Timestamp: 1000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 3}}}
	rec := doKlines(t, newTestServer(svc), "/api/v1/klines?symbol=BTCUSDT&interval=1h&from=0&to=5000")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var tuples [][]float64
	if err := json.Unmarshal(rec.Body.Bytes(), &tuples); err != nil {
		t.Fatalf("response is not a tuple array: %v", err)
	}
	if len(tuples) != 1 || len(tuples[0]) != 6 || tuples[0][0] != 1000 {
		t.Fatalf("unexpected payload: %v", tuples)
	}
}

func TestKlinesEmptyIsArray(t *testing.T) {
	rec := doKlines(t, newTestServer(&stubService{}), "/api/v1/klines?symbol=BTCUSDT&interval=1h&from=0&to=5000")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("empty result should be a JSON array, got %q", body)
	}
}

func TestKlinesValidation(t *testing.T) {
	s := newTestServer(&stubService{})
	cases := []string{
		"/api/v1/klines?interval=1h&from=0&to=1",                // no symbol
		"/api/v1/klines?symbol=BTCUSDT&interval=7h&from=0&to=1", // bad interval
		"/api/v1/klines?symbol=BTCUSDT&interval=1h&from=x&to=1", // bad from
		"/api/v1/klines?symbol=BTCUSDT&interval=1h&from=0&to=x", // bad to
		"/api/v1/klines?symbol=BTCUSDT&interval=1h&from=9&to=1", // to < from
	}
	for _, url := range cases {
		if rec := doKlines(t, s, url); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", url, rec.Code)
		}
	}
}

func TestKlinesUpstreamFailure(t *testing.T) {
	svc := &stubService{err: chart.ErrUpstreamUnavailable}
	rec := doKlines(t, newTestServer(svc), "/api/v1/klines?symbol=BTCUSDT&interval=1h&from=0&to=1")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestKlinesStorageFailure(t *testing.T) {
	svc := &stubService{err: errors.New("series file corrupted")}
	rec := doKlines(t, newTestServer(svc), "/api/v1/klines?symbol=BTCUSDT&interval=1h&from=0&to=1")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
