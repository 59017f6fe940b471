package dataflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/MacroAgent/config"
	"github.com/dyike/MacroAgent/models"
)

func testOptions() Options {
	return Options{Retry: &RetryConfig{MaxAttempts: 3, Delay: 0}}
}

func newServer(t *testing.T, calls *int32, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestECOSFetch(t *testing.T) {
	var calls int32
	var gotPath string
	srv := newServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"StatisticSearch":{"list_total_count":2,"row":[
			{"TIME":"202301","DATA_VALUE":"1260.5"},
			{"TIME":"202302","DATA_VALUE":"1270.1"}]}}`)
	})

	c := NewECOSClient(srv.URL+"/api", "KEY", testOptions())
	s := c.Fetch(context.Background(), Request{
		Name: "USD/KRW(Avg)", Table: "731Y004", Item: "0000001/0000100",
		Start: "202301", End: "202512",
	})

	assert.Equal(t, "/api/StatisticSearch/KEY/json/kr/1/100/731Y004/M/202301/202512/0000001/0000100", gotPath)
	assert.Equal(t, "ecos", s.Source)
	assert.Equal(t, []models.Observation{
		{Period: "202301", Value: "1260.5"},
		{Period: "202302", Value: "1270.1"},
	}, s.Observations)
	assert.EqualValues(t, 1, calls)
}

func TestECOSResultEnvelopeIsEmpty(t *testing.T) {
	var calls int32
	srv := newServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"RESULT":{"CODE":"INFO-200","MESSAGE":"no data"}}`)
	})

	s := NewECOSClient(srv.URL, "KEY", testOptions()).Fetch(context.Background(), Request{Name: "x", Table: "t", Item: "i"})

	assert.True(t, s.Empty())
	assert.EqualValues(t, 1, calls)
}

func TestECOSMissingRowsIsEmpty(t *testing.T) {
	var calls int32
	srv := newServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"StatisticSearch":{"list_total_count":0}}`)
	})

	s := NewECOSClient(srv.URL, "KEY", testOptions()).Fetch(context.Background(), Request{Name: "x", Table: "t", Item: "i"})
	assert.True(t, s.Empty())
}

func TestRetryRecoversFromServerErrors(t *testing.T) {
	var calls int32
	srv := newServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&calls) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"StatisticSearch":{"row":[{"TIME":"202301","DATA_VALUE":"3.5"}]}}`)
	})

	s := NewECOSClient(srv.URL, "KEY", testOptions()).Fetch(context.Background(), Request{Name: "BaseRate(%)", Table: "722Y001", Item: "0101000"})

	assert.EqualValues(t, 3, calls)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "3.5", s.Observations[0].Value)
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := newServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	s := NewFREDClient(srv.URL, "KEY", testOptions()).Fetch(context.Background(), Request{Name: "FedFundsRate(%)", SeriesID: "FEDFUNDS"})

	assert.True(t, s.Empty())
	assert.EqualValues(t, 3, calls)
}

func TestMalformedJSONIsNotRetried(t *testing.T) {
	var calls int32
	srv := newServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"observations": [`)
	})

	s := NewFREDClient(srv.URL, "KEY", testOptions()).Fetch(context.Background(), Request{Name: "x", SeriesID: "X"})

	assert.True(t, s.Empty())
	assert.EqualValues(t, 1, calls)
}

func TestFREDFetchSkipsMissingValues(t *testing.T) {
	var calls int32
	var query map[string]string
	srv := newServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fred/series/observations", r.URL.Path)
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		fmt.Fprint(w, `{"observations":[
			{"date":"2023-01-01","value":"4.33"},
			{"date":"2023-02-01","value":"."},
			{"date":"2023-03-01","value":""},
			{"date":"","value":"4.50"},
			{"date":"2023-04-01","value":"4.83"}]}`)
	})

	s := NewFREDClient(srv.URL, "FREDKEY", testOptions()).Fetch(context.Background(), Request{
		Name: "FedFundsRate(%)", SeriesID: "FEDFUNDS", Start: "2023-01-01", End: "2025-12-31",
	})

	assert.Equal(t, map[string]string{
		"series_id":         "FEDFUNDS",
		"api_key":           "FREDKEY",
		"file_type":         "json",
		"observation_start": "2023-01-01",
		"observation_end":   "2025-12-31",
	}, query)
	assert.Equal(t, []models.Observation{
		{Period: "2023-01-01", Value: "4.33"},
		{Period: "2023-04-01", Value: "4.83"},
	}, s.Observations)
}

func TestFREDMissingObservationsIsEmpty(t *testing.T) {
	var calls int32
	srv := newServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error_code":400,"error_message":"Bad Request"}`)
	})

	s := NewFREDClient(srv.URL, "KEY", testOptions()).Fetch(context.Background(), Request{Name: "x", SeriesID: "X"})
	assert.True(t, s.Empty())
}

func TestWorldBankFetch(t *testing.T) {
	var calls int32
	srv := newServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/country/WLD/indicator/NY.GDP.MKTP.KD.ZG", r.URL.Path)
		assert.Equal(t, "2023:2025", r.URL.Query().Get("date"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "2000", r.URL.Query().Get("per_page"))
		fmt.Fprint(w, `[{"page":1,"pages":1,"per_page":2000,"total":4},[
			{"date":"2025","value":null},
			{"date":"2024","value":2.71828182845904523},
			{"date":"","value":1.0},
			{"date":"2023","value":"2.5"},
			{"date":"2022","value":1500000000000}]]`)
	})

	s := NewWorldBankClient(srv.URL, testOptions()).Fetch(context.Background(), Request{
		Name: "WLD_GDP_Growth(%)", Country: "WLD", Indicator: "NY.GDP.MKTP.KD.ZG", Start: "2023", End: "2025",
	})

	assert.Equal(t, "worldbank", s.Source)
	assert.Equal(t, []models.Observation{
		{Period: "2024", Value: "2.71828182845904523"},
		{Period: "2023", Value: "2.5"},
		{Period: "2022", Value: "1500000000000"},
	}, s.Observations)
}

func TestWorldBankErrorEnvelopeIsEmpty(t *testing.T) {
	var calls int32
	srv := newServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"message":[{"id":"120","key":"Invalid value","value":"The provided parameter value is not valid"}]}]`)
	})

	s := NewWorldBankClient(srv.URL, testOptions()).Fetch(context.Background(), Request{Name: "x", Country: "XXX", Indicator: "Y"})

	assert.True(t, s.Empty())
	assert.EqualValues(t, 1, calls)
}

func TestWorldBankNullDataElementIsEmpty(t *testing.T) {
	var calls int32
	srv := newServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"page":0,"total":0},null]`)
	})

	s := NewWorldBankClient(srv.URL, testOptions()).Fetch(context.Background(), Request{Name: "x", Country: "WLD", Indicator: "Y"})
	assert.True(t, s.Empty())
}

func TestWithRetry(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), &RetryConfig{MaxAttempts: 3}, func(int) error {
		attempts++
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "boom")

	attempts = 0
	err = WithRetry(context.Background(), &RetryConfig{MaxAttempts: 3}, func(attempt int) error {
		attempts++
		if attempt < 2 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := WithRetry(ctx, &RetryConfig{MaxAttempts: 5, Delay: time.Hour}, func(int) error {
		attempts++
		cancel()
		return errors.New("boom")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestScalarString(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{`null`, "", false},
		{``, "", false},
		{`"3.50"`, "3.50", true},
		{`3.50`, "3.5", true},
		{`-0.123456789012345678`, "-0.123456789012345678", true},
		{`1e3`, "1000", true},
	}
	for _, tc := range cases {
		got, ok := scalarString(json.RawMessage(tc.raw))
		assert.Equal(t, tc.ok, ok, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

type fakeSource struct {
	requests []Request
}

func (f *fakeSource) Fetch(_ context.Context, req Request) models.Series {
	f.requests = append(f.requests, req)
	return models.Series{Name: req.Name, Observations: []models.Observation{{Period: req.Start, Value: "1"}}}
}

func TestFetcherFetchSection(t *testing.T) {
	src := &fakeSource{}
	f := NewFetcher(map[string]SeriesFetcher{"worldbank": src}, nil)
	section := config.DefaultCatalog().Sections[2]

	out := f.FetchSection(context.Background(), section)

	require.Len(t, out, 4)
	require.Len(t, src.requests, 4)
	assert.Equal(t, "USA", src.requests[2].Country)
	assert.Equal(t, "NY.GDP.MKTP.KD.ZG", src.requests[2].Indicator)
	assert.Equal(t, "USA_GDP_Growth(%)", out[2].Name)

	assert.Nil(t, f.FetchSection(context.Background(), config.DefaultCatalog().Sections[1]))
}

func TestNewFetcherFromConfigSkipsFREDWithoutKey(t *testing.T) {
	cfg := config.New()
	f := NewFetcherFromConfig(cfg, nil, nil)
	assert.True(t, f.Available("ecos"))
	assert.True(t, f.Available("worldbank"))
	assert.False(t, f.Available("fred"))

	cfg.FREDAPIKey = "k"
	assert.True(t, NewFetcherFromConfig(cfg, nil, nil).Available("fred"))
}

func TestRequestFor(t *testing.T) {
	ecos := config.DefaultCatalog().Sections[0]
	req := RequestFor(ecos, ecos.Series[1])
	assert.Equal(t, Request{
		Name: "CoreCPI(2020=100)", Table: "901Y010", Item: "DB", Cycle: "M",
		Start: "202301", End: "202512",
	}, req)
}
