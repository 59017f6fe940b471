package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/MacroAgent/internal/metrics"
	"github.com/dyike/MacroAgent/models"
	"github.com/dyike/MacroAgent/pkg/logger"
	"github.com/dyike/MacroAgent/pkg/utils"
)

const (
	timestampLayout = "20060102_150405"
	summarySuffix   = "_short.md"
)

// Timestamp formats t as used in artifact keys.
func Timestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

// ReportKey builds "{folder}Report_{Persona}_{ts}.md", or the "_short.md"
// variant for summaries.
func ReportKey(folder string, p models.Persona, ts string, summary bool) string {
	if summary {
		return fmt.Sprintf("%s%s%s%s", folder, ReportPrefix("", p), ts, summarySuffix)
	}
	return fmt.Sprintf("%s%s%s.md", folder, ReportPrefix("", p), ts)
}

// ReportPrefix is the listing prefix shared by every artifact of a persona.
func ReportPrefix(folder string, p models.Persona) string {
	return fmt.Sprintf("%sReport_%s_", folder, p.Title())
}

type Option func(*Artifacts)

// WithMirrorDir also writes every uploaded artifact below dir.
func WithMirrorDir(dir string) Option {
	return func(a *Artifacts) { a.mirrorDir = dir }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Artifacts) { a.logger = logger.OrNop(l).Named("storage") }
}

func WithRecorder(r *metrics.Recorder) Option {
	return func(a *Artifacts) { a.recorder = r }
}

// Artifacts uploads and reads back report markdown.
type Artifacts struct {
	store     ObjectStore
	mirrorDir string
	logger    *zap.Logger
	recorder  *metrics.Recorder
}

func NewArtifacts(store ObjectStore, opts ...Option) *Artifacts {
	a := &Artifacts{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Upload writes content to bucket/key in a single attempt. It reports false
// and logs the provider message on failure; existing objects are replaced.
func (a *Artifacts) Upload(ctx context.Context, bucket, key, content string) bool {
	if err := a.store.Put(ctx, bucket, key, []byte(content), MarkdownContentType); err != nil {
		a.recorder.RecordUpload(false)
		a.logger.Error("upload failed", zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
		return false
	}
	a.recorder.RecordUpload(true)
	a.logger.Info("uploaded", zap.String("bucket", bucket), zap.String("key", key), zap.Int("bytes", len(content)))

	if a.mirrorDir != "" {
		dir := filepath.Join(a.mirrorDir, filepath.FromSlash(path.Dir(key)))
		if written, err := utils.WriteMarkdown(dir, path.Base(key), content); err != nil {
			a.logger.Warn("local copy failed", zap.String("key", key), zap.Error(err))
		} else {
			a.logger.Debug("local copy written", zap.String("path", written))
		}
	}
	return true
}

// LatestSummaryKey returns the newest summary key under prefix. Keys embed
// a sortable timestamp, so the newest is the greatest.
func (a *Artifacts) LatestSummaryKey(ctx context.Context, bucket, prefix string) (string, bool) {
	keys, err := a.store.List(ctx, bucket, prefix)
	if err != nil {
		a.logger.Error("list failed", zap.String("prefix", prefix), zap.Error(err))
		return "", false
	}
	return latestSummary(keys)
}

func latestSummary(keys []string) (string, bool) {
	sorted := append([]string(nil), keys...)
	sort.Sort(sort.Reverse(sort.StringSlice(sorted)))
	for _, k := range sorted {
		if strings.Contains(k, summarySuffix) {
			return k, true
		}
	}
	return "", false
}

func (a *Artifacts) Read(ctx context.Context, bucket, key string) (string, error) {
	data, err := a.store.Get(ctx, bucket, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
