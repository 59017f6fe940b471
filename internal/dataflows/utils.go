package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryConfig returns three attempts spaced one second apart
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		Delay:       1 * time.Second,
	}
}

// WithRetry runs fn until it succeeds or the attempts are used up, sleeping a
// fixed delay between attempts. No sleep follows the final attempt.
func WithRetry(ctx context.Context, config *RetryConfig, fn func(attempt int) error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = fn(attempt); lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if err := sleep(ctx, config.Delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("max attempts exceeded: %w", lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// scalarString renders a JSON scalar as text. Numbers keep their full
// precision; null reports false.
func scalarString(raw json.RawMessage) (string, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return "", false
	}
	if s[0] == '"' {
		var out string
		if err := json.Unmarshal(raw, &out); err != nil {
			return "", false
		}
		return out, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s, true
	}
	return d.String(), true
}
