package models

import "time"

// RunResult reports the outcome of one pipeline execution.
type RunResult struct {
	RunID        string        `json:"run_id"`
	Timestamp    string        `json:"timestamp"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	UploadedKeys []string      `json:"uploaded_files"`
	Errors       []string      `json:"errors"`
	Success      bool          `json:"success"`
}

func (r *RunResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

func (r *RunResult) AddUpload(key string) {
	r.UploadedKeys = append(r.UploadedKeys, key)
	r.Success = true
}

// AnalysisSnapshot is the latest pair of summaries read back from storage.
type AnalysisSnapshot struct {
	PositiveSummary string     `json:"positive_summary"`
	NegativeSummary string     `json:"negative_summary"`
	MarketBiasHint  string     `json:"market_bias_hint"`
	LastUpdate      *time.Time `json:"last_update"`
}
