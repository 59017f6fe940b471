package dataflows

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/dyike/MacroAgent/internal/metrics"
	"github.com/dyike/MacroAgent/models"
	"github.com/dyike/MacroAgent/pkg/logger"
)

// ErrHTTPStatus marks a response that arrived with a status other than 200.
var ErrHTTPStatus = errors.New("unexpected http status")

// Request names one series to fetch. Which fields apply depends on the
// source: ECOS reads Table, Item and Cycle; FRED reads SeriesID; World Bank
// reads Country and Indicator.
type Request struct {
	Name      string
	Table     string
	Item      string
	Cycle     string
	SeriesID  string
	Country   string
	Indicator string
	Start     string
	End       string
}

// SeriesFetcher retrieves one series. Failures yield an empty series and a
// log line, never an error.
type SeriesFetcher interface {
	Fetch(ctx context.Context, req Request) models.Series
}

// Options are shared by every source client.
type Options struct {
	Retry    *RetryConfig
	Throttle time.Duration
	Timeout  time.Duration
	Logger   *zap.Logger
	Recorder *metrics.Recorder
}

func (o Options) withDefaults() Options {
	if o.Retry == nil {
		o.Retry = DefaultRetryConfig()
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	o.Logger = logger.OrNop(o.Logger)
	return o
}

// fetcher holds the HTTP plumbing common to all sources.
type fetcher struct {
	source   string
	client   *resty.Client
	retry    *RetryConfig
	throttle time.Duration
	logger   *zap.Logger
	recorder *metrics.Recorder
}

func newFetcher(source, baseURL string, opts Options) *fetcher {
	opts = opts.withDefaults()

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(opts.Timeout)
	client.SetHeader("Accept", "application/json")

	return &fetcher{
		source:   source,
		client:   client,
		retry:    opts.Retry,
		throttle: opts.Throttle,
		logger:   opts.Logger.Named(source),
		recorder: opts.Recorder,
	}
}

// get performs a GET with retries and returns the body of the first 200
// response. The throttle delay is taken once afterwards whatever the outcome.
func (f *fetcher) get(ctx context.Context, name, path string, build func(*resty.Request)) ([]byte, bool) {
	defer func() { _ = sleep(ctx, f.throttle) }()

	var body []byte
	err := WithRetry(ctx, f.retry, func(attempt int) error {
		req := f.client.R().SetContext(ctx)
		if build != nil {
			build(req)
		}
		resp, err := req.Get(path)
		if err != nil {
			f.recorder.RecordFetchAttempt(f.source, false)
			f.logger.Warn("request failed",
				zap.String("series", name),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		if resp.StatusCode() != http.StatusOK {
			f.recorder.RecordFetchAttempt(f.source, false)
			f.logger.Warn("non-200 response",
				zap.String("series", name),
				zap.Int("attempt", attempt),
				zap.Int("status", resp.StatusCode()))
			return fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode())
		}
		f.recorder.RecordFetchAttempt(f.source, true)
		body = resp.Body()
		return nil
	})
	if err != nil {
		f.logger.Error("giving up on series", zap.String("series", name), zap.Error(err))
		return nil, false
	}
	return body, true
}

func (f *fetcher) done(name string, obs []models.Observation) models.Series {
	f.recorder.RecordSeriesLength(f.source, name, len(obs))
	f.logger.Info("fetched series", zap.String("series", name), zap.Int("observations", len(obs)))
	return models.Series{Name: name, Source: f.source, Observations: obs}
}

func (f *fetcher) empty(name string) models.Series {
	return f.done(name, nil)
}
