package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/liquorledger/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

func (e *recordingExporter) bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.records))
	for i, r := range e.records {
		out[i] = r.Body().AsString()
	}
	return out
}

func TestLoggerProvider_Disabled(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), config.TelemetryConfig{LogsEnabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, lp.Enabled())

	base := zap.NewNop()
	assert.Same(t, base, lp.Tee(base, "liquor-ledger", zapcore.InfoLevel))
	assert.False(t, lp.Core("liquor-ledger", zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
	assert.NoError(t, lp.Shutdown(context.Background()))
}

func TestLoggerProvider_TeeForwardsAtLevel(t *testing.T) {
	exporter := &recordingExporter{}
	lp := &LoggerProvider{
		provider: sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter))),
		logger:   zap.NewNop(),
	}
	t.Cleanup(func() { _ = lp.Shutdown(context.Background()) })

	core, local := observer.New(zapcore.DebugLevel)
	log := lp.Tee(zap.New(core), "liquor-ledger", zapcore.InfoLevel)

	log.Debug("sql statement")
	log.Info("purchase settled", zap.Int("lines", 2))
	log.Warn("day-end report rejected for insufficient stock")

	assert.Equal(t, 3, local.Len())
	assert.Equal(t, []string{"purchase settled", "day-end report rejected for insufficient stock"}, exporter.bodies())
}
