package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/liquorledger/backend/internal/infrastructure/config"
	"github.com/liquorledger/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := telemetry.NewTracerProvider(context.Background(), config.TelemetryConfig{
		Enabled:     false,
		ServiceName: "test-service",
	}, zaptest.NewLogger(t))

	require.NoError(t, err)
	assert.False(t, tp.Enabled())
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestStartSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	_, span := telemetry.StartSpan(context.Background(), "settlement.create_purchase", attribute.Int("lines", 2))
	telemetry.EndSpan(span, errors.New("insufficient stock"))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "settlement.create_purchase", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), attribute.Int("lines", 2))
}

func TestRegisterDBTracing(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, telemetry.RegisterDBTracing(db, "sqlite", zaptest.NewLogger(t)))
	assert.NoError(t, db.Exec("SELECT 1").Error)
}
