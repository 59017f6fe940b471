package dataflows

import (
	"context"

	"go.uber.org/zap"

	"github.com/dyike/MacroAgent/config"
	"github.com/dyike/MacroAgent/consts"
	"github.com/dyike/MacroAgent/internal/metrics"
	"github.com/dyike/MacroAgent/models"
	"github.com/dyike/MacroAgent/pkg/logger"
)

// Fetcher routes catalog sections to the client for their source.
type Fetcher struct {
	sources map[string]SeriesFetcher
	logger  *zap.Logger
}

func NewFetcher(sources map[string]SeriesFetcher, l *zap.Logger) *Fetcher {
	return &Fetcher{sources: sources, logger: logger.OrNop(l)}
}

// NewFetcherFromConfig builds clients for every source whose credentials are
// present. FRED is left out when its key is unset.
func NewFetcherFromConfig(cfg *config.Config, l *zap.Logger, recorder *metrics.Recorder) *Fetcher {
	opts := Options{
		Retry: &RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			Delay:       cfg.RetryDelay,
		},
		Throttle: cfg.Throttle,
		Timeout:  cfg.HTTPTimeout,
		Logger:   l,
		Recorder: recorder,
	}

	sources := map[string]SeriesFetcher{
		consts.SourceECOS:      NewECOSClient(cfg.ECOSBaseURL, cfg.ECOSAPIKey, opts),
		consts.SourceWorldBank: NewWorldBankClient(cfg.WorldBankBaseURL, opts),
	}
	if cfg.HasFRED() {
		sources[consts.SourceFRED] = NewFREDClient(cfg.FREDBaseURL, cfg.FREDAPIKey, opts)
	}
	return NewFetcher(sources, l)
}

// Available reports whether a client is configured for source.
func (f *Fetcher) Available(source string) bool {
	_, ok := f.sources[source]
	return ok
}

// FetchSection fetches every series of s sequentially, in catalog order.
// The result has one entry per series; unavailable sources yield nil.
func (f *Fetcher) FetchSection(ctx context.Context, s config.Section) []models.Series {
	client, ok := f.sources[s.Source]
	if !ok {
		f.logger.Warn("no client for source", zap.String("source", s.Source), zap.String("section", s.Title))
		return nil
	}

	out := make([]models.Series, 0, len(s.Series))
	for _, spec := range s.Series {
		if ctx.Err() != nil {
			out = append(out, models.Series{Name: spec.Label, Source: s.Source})
			continue
		}
		out = append(out, client.Fetch(ctx, RequestFor(s, spec)))
	}
	return out
}

// RequestFor maps a catalog entry to a fetch request.
func RequestFor(s config.Section, spec config.SeriesSpec) Request {
	req := Request{
		Name:  spec.Label,
		Cycle: s.Cycle,
		Start: s.Start,
		End:   s.End,
	}
	switch s.Source {
	case consts.SourceECOS:
		req.Table = spec.Table
		req.Item = spec.Item
	case consts.SourceFRED:
		req.SeriesID = spec.ID
	case consts.SourceWorldBank:
		req.Country = spec.Country
		req.Indicator = spec.ID
	}
	return req
}
