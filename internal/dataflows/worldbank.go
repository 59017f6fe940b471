package dataflows

import (
	"context"
	"encoding/json"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/dyike/MacroAgent/consts"
	"github.com/dyike/MacroAgent/models"
)

// WorldBankClient reads annual indicators from the World Bank v2 API. No key
// is required.
type WorldBankClient struct {
	*fetcher
}

func NewWorldBankClient(baseURL string, opts Options) *WorldBankClient {
	return &WorldBankClient{fetcher: newFetcher(consts.SourceWorldBank, baseURL, opts)}
}

type worldBankRow struct {
	Date  string          `json:"date"`
	Value json.RawMessage `json:"value"`
}

// Fetch returns req.Indicator for req.Country between req.Start and req.End
// (YYYY). Null values and rows without a date are dropped; order is kept.
func (c *WorldBankClient) Fetch(ctx context.Context, req Request) models.Series {
	path := "/v2/country/{country}/indicator/{indicator}"
	body, ok := c.get(ctx, req.Name, path, func(r *resty.Request) {
		r.SetPathParams(map[string]string{
			"country":   req.Country,
			"indicator": req.Indicator,
		})
		r.SetQueryParams(map[string]string{
			"date":     req.Start + ":" + req.End,
			"format":   "json",
			"per_page": "2000",
		})
	})
	if !ok {
		return c.empty(req.Name)
	}

	// [metadata, rows]; error envelopes carry only the first element
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Error("malformed response", zap.String("series", req.Name), zap.Error(err))
		return c.empty(req.Name)
	}
	if len(payload) < 2 {
		c.logger.Warn("response has no data element", zap.String("series", req.Name))
		return c.empty(req.Name)
	}

	var rows []worldBankRow
	if err := json.Unmarshal(payload[1], &rows); err != nil {
		c.logger.Warn("data element is not a list", zap.String("series", req.Name), zap.Error(err))
		return c.empty(req.Name)
	}

	obs := make([]models.Observation, 0, len(rows))
	for _, row := range rows {
		if row.Date == "" {
			continue
		}
		value, ok := scalarString(row.Value)
		if !ok {
			continue
		}
		obs = append(obs, models.Observation{Period: row.Date, Value: value})
	}
	return c.done(req.Name, obs)
}
