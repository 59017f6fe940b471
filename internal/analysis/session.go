package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dyike/MacroAgent/config"
	"github.com/dyike/MacroAgent/consts"
	"github.com/dyike/MacroAgent/internal/metrics"
	"github.com/dyike/MacroAgent/internal/processing"
	"github.com/dyike/MacroAgent/internal/storage"
	"github.com/dyike/MacroAgent/models"
	"github.com/dyike/MacroAgent/pkg/logger"
)

// ErrRequiredSectionEmpty aborts a run when a required section has no rows.
var ErrRequiredSectionEmpty = errors.New("required section has no data")

var errECOSEmpty = errors.New("ecos returned no observations")

const ecosFailureMessage = "한국 ECOS 데이터를 가져오는데 실패했습니다. 키나 인터넷 연결을 확인하세요."

type SeriesSource interface {
	Available(source string) bool
	FetchSection(ctx context.Context, s config.Section) []models.Series
}

type Generator interface {
	Generate(ctx context.Context, data string, p models.Persona) string
	Summarize(ctx context.Context, report string, p models.Persona) string
}

type Uploader interface {
	Upload(ctx context.Context, bucket, key, content string) bool
}

type SessionOption func(*Session)

func WithLogger(l *zap.Logger) SessionOption {
	return func(s *Session) { s.logger = logger.OrNop(l) }
}

func WithRecorder(r *metrics.Recorder) SessionOption {
	return func(s *Session) { s.recorder = r }
}

// WithClock replaces time.Now, which stamps artifact keys.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// Session runs the pipeline once per Execute: fetch, align, render, then
// per persona generate, upload, summarize, upload.
type Session struct {
	cfg       *config.Config
	catalog   *config.Catalog
	source    SeriesSource
	generator Generator
	uploader  Uploader
	logger    *zap.Logger
	recorder  *metrics.Recorder
	now       func() time.Time
}

func NewSession(cfg *config.Config, catalog *config.Catalog, source SeriesSource, generator Generator, uploader Uploader, opts ...SessionOption) *Session {
	s := &Session{
		cfg:       cfg,
		catalog:   catalog,
		source:    source,
		generator: generator,
		uploader:  uploader,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildTable fetches every available section and renders the combined
// text. Sections whose source has no client are skipped with a warning.
func (s *Session) BuildTable(ctx context.Context) (string, error) {
	tables := make([]models.Table, 0, len(s.catalog.Sections))
	for _, section := range s.catalog.Sections {
		if !s.source.Available(section.Source) {
			s.logger.Warn("skipping section, source not configured",
				zap.String("section", section.Title),
				zap.String("source", section.Source))
			continue
		}

		series := s.source.FetchSection(ctx, section)
		for _, sr := range series {
			s.logger.Info("series fetched",
				zap.String("section", section.Title),
				zap.String("series", sr.Name),
				zap.Int("observations", sr.Len()))
		}

		tbl := processing.BuildTable(section.Title, section.Columns(), series...)
		if len(tbl.Rows) == 0 {
			if section.Required {
				if section.Source == consts.SourceECOS {
					return "", fmt.Errorf("%w: %w", ErrRequiredSectionEmpty, errECOSEmpty)
				}
				return "", fmt.Errorf("%w: %s", ErrRequiredSectionEmpty, section.Title)
			}
			if section.OmitEmpty {
				s.logger.Info("omitting empty section", zap.String("section", section.Title))
				continue
			}
		}
		tables = append(tables, tbl)
	}
	return processing.RenderSections(tables...), nil
}

// Execute runs the whole pipeline. Step failures are soft: they are logged
// and recorded in the result, and the run moves on.
func (s *Session) Execute(ctx context.Context) *models.RunResult {
	started := s.now()
	result := &models.RunResult{
		RunID:        uuid.NewString(),
		Timestamp:    storage.Timestamp(started),
		StartedAt:    started,
		UploadedKeys: []string{},
		Errors:       []string{},
	}
	log := s.logger.With(zap.String("run_id", result.RunID), zap.String("timestamp", result.Timestamp))
	defer func() {
		result.Duration = s.now().Sub(started)
		s.recorder.RecordRun(result.Duration)
	}()

	if err := s.cfg.Validate(); err != nil {
		log.Error("configuration invalid", zap.Error(err))
		result.AddError(err.Error())
		return result
	}
	if !s.cfg.HasFRED() {
		log.Warn("FRED_API_KEY not set, US section will be skipped")
	}

	log.Info("fetching macroeconomic data")
	data, err := s.BuildTable(ctx)
	if err != nil {
		log.Error("data collection failed", zap.Error(err))
		if errors.Is(err, errECOSEmpty) {
			result.AddError(ecosFailureMessage)
		} else {
			result.AddError(err.Error())
		}
		return result
	}

	for _, p := range models.Personas {
		if ctx.Err() != nil {
			result.AddError(ctx.Err().Error())
			break
		}
		s.runPersona(ctx, log, result, data, p)
	}

	log.Info("run finished",
		zap.Bool("success", result.Success),
		zap.Strings("uploaded", result.UploadedKeys))
	return result
}

func (s *Session) runPersona(ctx context.Context, log *zap.Logger, result *models.RunResult, data string, p models.Persona) {
	log = log.With(zap.String("persona", string(p)))

	log.Info("generating report")
	report := s.generator.Generate(ctx, data, p)
	if report == "" {
		result.AddError(fmt.Sprintf("%s report generation failed", p))
		return
	}
	s.upload(ctx, result, storage.ReportKey(s.cfg.S3Folder, p, result.Timestamp, false), report)

	if !s.cfg.Summaries {
		return
	}

	log.Info("generating summary")
	summary := s.generator.Summarize(ctx, report, p)
	if summary == "" {
		result.AddError(fmt.Sprintf("%s summary generation failed", p))
		return
	}
	s.upload(ctx, result, storage.ReportKey(s.cfg.S3Folder, p, result.Timestamp, true), summary)
}

func (s *Session) upload(ctx context.Context, result *models.RunResult, key, content string) {
	if s.uploader.Upload(ctx, s.cfg.S3Bucket, key, content) {
		result.AddUpload(key)
		return
	}
	result.AddError(fmt.Sprintf("upload failed: %s", key))
}
