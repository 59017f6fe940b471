package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/MacroAgent/models"
	"github.com/dyike/MacroAgent/pkg/logger"
)

type Runner interface {
	Execute(ctx context.Context) *models.RunResult
}

// Jobs serializes pipeline runs so two never overlap.
type Jobs struct {
	runner Runner
	logger *zap.Logger

	mu   sync.Mutex
	wg   sync.WaitGroup
	last *models.RunResult
	lmu  sync.RWMutex
}

func NewJobs(runner Runner, l *zap.Logger) *Jobs {
	return &Jobs{runner: runner, logger: logger.OrNop(l)}
}

// Run executes the pipeline, waiting for any run already in progress.
func (j *Jobs) Run(ctx context.Context) *models.RunResult {
	j.mu.Lock()
	defer j.mu.Unlock()

	res := j.runner.Execute(ctx)
	j.lmu.Lock()
	j.last = res
	j.lmu.Unlock()

	if !res.Success {
		j.logger.Error("analysis run produced no artifacts", zap.String("run_id", res.RunID), zap.Strings("errors", res.Errors))
	}
	return res
}

// Start runs the pipeline on its own goroutine.
func (j *Jobs) Start(ctx context.Context) {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.Run(ctx)
	}()
}

// Wait blocks until every background run has returned.
func (j *Jobs) Wait() {
	j.wg.Wait()
}

// Last returns the result of the most recent finished run, nil before the
// first one.
func (j *Jobs) Last() *models.RunResult {
	if j == nil {
		return nil
	}
	j.lmu.RLock()
	defer j.lmu.RUnlock()
	return j.last
}

// Schedule loops run, settle, refresh, interval until ctx is done.
func Schedule(ctx context.Context, jobs *Jobs, cache *Cache, settle, interval time.Duration, l *zap.Logger) {
	l = logger.OrNop(l)
	for {
		jobs.Run(ctx)
		if !wait(ctx, settle) {
			return
		}
		cache.Refresh(ctx)

		l.Info("next analysis scheduled", zap.Duration("in", interval))
		if !wait(ctx, interval) {
			return
		}
	}
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
