package debug

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/devops"
	"go.uber.org/zap"

	"github.com/dyike/MacroAgent/config"
	"github.com/dyike/MacroAgent/pkg/logger"
)

// EinoDebugger starts the eino visual debug server for the report graphs.
// It must be initialized before the graphs are compiled.
type EinoDebugger struct {
	config *config.Config
	logger *zap.Logger
}

func NewEinoDebugger(cfg *config.Config, l *zap.Logger) *EinoDebugger {
	return &EinoDebugger{config: cfg, logger: logger.OrNop(l)}
}

func (d *EinoDebugger) Initialize(ctx context.Context) error {
	if !d.IsEnabled() {
		return nil
	}

	d.logger.Debug("initializing eino debug plugin", zap.Int("port", d.config.EinoDebugPort))
	if err := devops.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize Eino debug plugin: %w", err)
	}
	d.logger.Info("eino debug server ready", zap.String("url", d.GetDebugURL()))
	return nil
}

func (d *EinoDebugger) IsEnabled() bool {
	return d.config.EinoDebugEnabled
}

func (d *EinoDebugger) GetDebugURL() string {
	if !d.IsEnabled() {
		return ""
	}
	return fmt.Sprintf("http://localhost:%d", d.config.EinoDebugPort)
}
