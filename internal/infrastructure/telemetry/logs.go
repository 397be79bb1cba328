package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/liquorledger/backend/internal/infrastructure/config"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerProvider owns the SDK log provider when log export is enabled
type LoggerProvider struct {
	provider *sdklog.LoggerProvider
	logger   *zap.Logger
}

// NewLoggerProvider exports log records over OTLP/gRPC with a batch processor
// and installs the provider globally.
func NewLoggerProvider(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (*LoggerProvider, error) {
	lp := &LoggerProvider{logger: logger}
	if !cfg.LogsEnabled {
		return lp, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP logs exporter: %w", err)
	}

	res, err := serviceResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	lp.provider = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(lp.provider)

	logger.Info("OpenTelemetry log export enabled",
		zap.String("collector_endpoint", cfg.CollectorEndpoint))
	return lp, nil
}

// Enabled reports whether log records are exported
func (lp *LoggerProvider) Enabled() bool {
	return lp.provider != nil
}

// Core returns a zap core forwarding entries at or above level to the
// collector. It is a no-op core when export is disabled.
//
//	log = log.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
//		return zapcore.NewTee(c, lp.Core(name, zapcore.InfoLevel))
//	}))
func (lp *LoggerProvider) Core(name string, level zapcore.Level) zapcore.Core {
	if lp.provider == nil {
		return zapcore.NewNopCore()
	}
	core := otelzap.NewCore(name, otelzap.WithLoggerProvider(lp.provider))
	filtered, err := zapcore.NewIncreaseLevelCore(core, level)
	if err != nil {
		return core
	}
	return filtered
}

// Tee returns logger with its entries also forwarded to the collector
func (lp *LoggerProvider) Tee(logger *zap.Logger, name string, level zapcore.Level) *zap.Logger {
	if lp.provider == nil {
		return logger
	}
	return logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, lp.Core(name, level))
	}))
}

// Shutdown flushes pending records, waiting at most ten seconds
func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if lp.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := lp.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown logger provider: %w", err)
	}
	return nil
}
