package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/MacroAgent/consts"
	"github.com/dyike/MacroAgent/internal/analysis"
	"github.com/dyike/MacroAgent/internal/storage"
	"github.com/dyike/MacroAgent/models"
	"github.com/dyike/MacroAgent/pkg/logger"
)

type SummaryReader interface {
	LatestSummaryKey(ctx context.Context, bucket, prefix string) (string, bool)
	Read(ctx context.Context, bucket, key string) (string, error)
}

// Cache holds the newest positive and negative summaries read back from
// object storage.
type Cache struct {
	reader SummaryReader
	bucket string
	folder string
	logger *zap.Logger
	now    func() time.Time

	mu   sync.RWMutex
	snap models.AnalysisSnapshot
}

func NewCache(reader SummaryReader, bucket, folder string, l *zap.Logger) *Cache {
	return &Cache{
		reader: reader,
		bucket: bucket,
		folder: folder,
		logger: logger.OrNop(l),
		now:    time.Now,
		snap:   models.AnalysisSnapshot{MarketBiasHint: consts.BiasUncertain},
	}
}

// Refresh reloads both summaries. A persona whose lookup or read fails
// keeps its previous text. The bias hint is recomputed only when both
// summaries are present.
func (c *Cache) Refresh(ctx context.Context) {
	fetched := make(map[models.Persona]string, len(models.Personas))
	for _, p := range models.Personas {
		if text := c.latest(ctx, p); text != "" {
			fetched[p] = text
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if text, ok := fetched[models.PersonaPositive]; ok {
		c.snap.PositiveSummary = text
	}
	if text, ok := fetched[models.PersonaNegative]; ok {
		c.snap.NegativeSummary = text
	}
	if c.snap.PositiveSummary != "" && c.snap.NegativeSummary != "" {
		c.snap.MarketBiasHint = analysis.DetermineBias(c.snap.PositiveSummary, c.snap.NegativeSummary)
	}
	now := c.now().UTC()
	c.snap.LastUpdate = &now

	c.logger.Info("cache refreshed",
		zap.Bool("positive", c.snap.PositiveSummary != ""),
		zap.Bool("negative", c.snap.NegativeSummary != ""),
		zap.String("bias", c.snap.MarketBiasHint))
}

func (c *Cache) latest(ctx context.Context, p models.Persona) string {
	key, ok := c.reader.LatestSummaryKey(ctx, c.bucket, storage.ReportPrefix(c.folder, p))
	if !ok {
		return ""
	}
	text, err := c.reader.Read(ctx, c.bucket, key)
	if err != nil {
		c.logger.Error("read summary failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return text
}

func (c *Cache) Snapshot() models.AnalysisSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// HasData reports whether at least one summary is cached.
func (c *Cache) HasData() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.PositiveSummary != "" || c.snap.NegativeSummary != ""
}
