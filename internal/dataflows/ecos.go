package dataflows

import (
	"context"
	"encoding/json"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/dyike/MacroAgent/consts"
	"github.com/dyike/MacroAgent/models"
)

const ecosPath = "/StatisticSearch/{key}/json/kr/1/100/{table}/{cycle}/{start}/{end}/{item}"

// ECOSClient reads monthly statistics from the Bank of Korea ECOS API.
type ECOSClient struct {
	*fetcher
	apiKey string
}

func NewECOSClient(baseURL, apiKey string, opts Options) *ECOSClient {
	return &ECOSClient{
		fetcher: newFetcher(consts.SourceECOS, baseURL, opts),
		apiKey:  apiKey,
	}
}

type ecosResponse struct {
	Result *struct {
		Code    string `json:"CODE"`
		Message string `json:"MESSAGE"`
	} `json:"RESULT"`
	StatisticSearch *struct {
		Row []struct {
			Time      string          `json:"TIME"`
			DataValue json.RawMessage `json:"DATA_VALUE"`
		} `json:"row"`
	} `json:"StatisticSearch"`
}

// Fetch returns the series for req.Table/req.Item between req.Start and
// req.End (YYYYMM). An API-level RESULT envelope yields an empty series.
func (c *ECOSClient) Fetch(ctx context.Context, req Request) models.Series {
	cycle := req.Cycle
	if cycle == "" {
		cycle = "M"
	}

	body, ok := c.get(ctx, req.Name, ecosPath, func(r *resty.Request) {
		// item codes may contain '/', which must reach the server unescaped
		r.SetRawPathParams(map[string]string{
			"key":   c.apiKey,
			"table": req.Table,
			"cycle": cycle,
			"start": req.Start,
			"end":   req.End,
			"item":  req.Item,
		})
	})
	if !ok {
		return c.empty(req.Name)
	}

	var payload ecosResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Error("malformed response", zap.String("series", req.Name), zap.Error(err))
		return c.empty(req.Name)
	}
	if payload.Result != nil {
		c.logger.Error("api error",
			zap.String("series", req.Name),
			zap.String("code", payload.Result.Code),
			zap.String("message", payload.Result.Message))
		return c.empty(req.Name)
	}
	if payload.StatisticSearch == nil || payload.StatisticSearch.Row == nil {
		c.logger.Warn("no rows in response", zap.String("series", req.Name))
		return c.empty(req.Name)
	}

	obs := make([]models.Observation, 0, len(payload.StatisticSearch.Row))
	for _, row := range payload.StatisticSearch.Row {
		value, _ := scalarString(row.DataValue)
		obs = append(obs, models.Observation{Period: row.Time, Value: value})
	}
	return c.done(req.Name, obs)
}
