package dataflows

import (
	"context"
	"encoding/json"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/dyike/MacroAgent/consts"
	"github.com/dyike/MacroAgent/models"
)

// FREDClient reads observations from the St. Louis Fed FRED API.
type FREDClient struct {
	*fetcher
	apiKey string
}

func NewFREDClient(baseURL, apiKey string, opts Options) *FREDClient {
	return &FREDClient{
		fetcher: newFetcher(consts.SourceFRED, baseURL, opts),
		apiKey:  apiKey,
	}
}

type fredResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// Fetch returns req.SeriesID between req.Start and req.End (YYYY-MM-DD).
// Observations with an empty date or an empty or "." value are dropped.
func (c *FREDClient) Fetch(ctx context.Context, req Request) models.Series {
	body, ok := c.get(ctx, req.Name, "/fred/series/observations", func(r *resty.Request) {
		r.SetQueryParams(map[string]string{
			"series_id":         req.SeriesID,
			"api_key":           c.apiKey,
			"file_type":         "json",
			"observation_start": req.Start,
			"observation_end":   req.End,
		})
	})
	if !ok {
		return c.empty(req.Name)
	}

	var payload fredResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Error("malformed response", zap.String("series", req.Name), zap.Error(err))
		return c.empty(req.Name)
	}
	if payload.Observations == nil {
		c.logger.Warn("no observations in response", zap.String("series", req.Name))
		return c.empty(req.Name)
	}

	obs := make([]models.Observation, 0, len(payload.Observations))
	for _, o := range payload.Observations {
		if o.Date == "" || o.Value == "" || o.Value == "." {
			continue
		}
		obs = append(obs, models.Observation{Period: o.Date, Value: o.Value})
	}
	return c.done(req.Name, obs)
}
