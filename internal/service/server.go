package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dyike/MacroAgent/models"
	"github.com/dyike/MacroAgent/pkg/logger"
)

const (
	positiveFallback = "거시경제 긍정 보고서를 아직 사용할 수 없습니다."
	negativeFallback = "거시경제 부정 보고서를 아직 사용할 수 없습니다."

	isoLayout       = "2006-01-02T15:04:05.000000Z"
	shutdownTimeout = 10 * time.Second
)

type analysisResponse struct {
	PositiveSummary string  `json:"positive_summary"`
	NegativeSummary string  `json:"negative_summary"`
	MarketBiasHint  string  `json:"market_bias_hint"`
	LastUpdate      *string `json:"last_update"`
}

type readyResponse struct {
	Status        string            `json:"status"`
	DataAvailable bool              `json:"data_available"`
	LastUpdate    *string           `json:"last_update"`
	LastRun       *models.RunResult `json:"last_run,omitempty"`
}

// Server exposes cached analysis results over HTTP and triggers runs.
type Server struct {
	echo    *echo.Echo
	cache   *Cache
	jobs    *Jobs
	logger  *zap.Logger
	now     func() time.Time
	baseCtx context.Context
}

// NewServer builds the echo instance. Background runs started over HTTP
// inherit baseCtx rather than the request context.
func NewServer(baseCtx context.Context, cache *Cache, jobs *Jobs, metrics http.Handler, l *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		cache:   cache,
		jobs:    jobs,
		logger:  logger.OrNop(l),
		now:     time.Now,
		baseCtx: baseCtx,
	}

	e.Use(s.recoverPanics())
	e.Use(s.requestLogging())

	e.GET("/health/live", s.live)
	e.GET("/health/ready", s.ready)
	e.GET("/result/analysis", s.analysis)
	e.POST("/refresh", s.refresh)
	e.POST("/run-analysis", s.runAnalysis)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
	return s
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) live(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ready(c echo.Context) error {
	snap := s.cache.Snapshot()
	return c.JSON(http.StatusOK, readyResponse{
		Status:        "ok",
		DataAvailable: s.cache.HasData(),
		LastUpdate:    formatTime(snap.LastUpdate),
		LastRun:       s.jobs.Last(),
	})
}

func (s *Server) analysis(c echo.Context) error {
	if !s.cache.HasData() {
		s.cache.Refresh(c.Request().Context())
	}
	snap := s.cache.Snapshot()

	resp := analysisResponse{
		PositiveSummary: snap.PositiveSummary,
		NegativeSummary: snap.NegativeSummary,
		MarketBiasHint:  snap.MarketBiasHint,
		LastUpdate:      formatTime(snap.LastUpdate),
	}
	if resp.PositiveSummary == "" {
		resp.PositiveSummary = positiveFallback
	}
	if resp.NegativeSummary == "" {
		resp.NegativeSummary = negativeFallback
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) refresh(c echo.Context) error {
	s.cache.Refresh(c.Request().Context())
	now := s.now()
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "refreshed",
		"timestamp": *formatTime(&now),
	})
}

func (s *Server) runAnalysis(c echo.Context) error {
	s.jobs.Start(s.baseCtx)
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "started",
		"message": "Analysis job started in background",
	})
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	out := t.UTC().Format(isoLayout)
	return &out
}

func (s *Server) recoverPanics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				if r := recover(); r != nil {
					err, ok := r.(error)
					if !ok {
						err = fmt.Errorf("%v", r)
					}
					s.logger.Error("panic in handler", zap.Error(err), zap.ByteString("stack", debug.Stack()))
					_ = c.JSON(http.StatusInternalServerError, map[string]interface{}{
						"status":  http.StatusInternalServerError,
						"message": "Internal Server Error",
					})
				}
			}()
			return next(c)
		}
	}
}

func (s *Server) requestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)

			s.logger.Info("request",
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)))
			return err
		}
	}
}
