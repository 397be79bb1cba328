package telemetry

import (
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterDBTracing installs the otelgorm plugin so every statement becomes a
// child span of the request. Query variables are never attached to spans.
func RegisterDBTracing(db *gorm.DB, dbSystem string, logger *zap.Logger) error {
	plugin := otelgorm.NewPlugin(
		otelgorm.WithDBName(dbSystem),
		otelgorm.WithoutQueryVariables(),
	)
	if err := db.Use(plugin); err != nil {
		return fmt.Errorf("register otelgorm: %w", err)
	}
	logger.Info("Database tracing enabled", zap.String("db_system", dbSystem))
	return nil
}
