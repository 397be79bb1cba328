package persistence

import (
	"fmt"

	"github.com/liquorledger/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertByID turns a Create into an insert-or-update keyed on the primary key
var upsertByID = clause.OnConflict{
	Columns:   []clause.Column{{Name: "id"}},
	UpdateAll: true,
}

// orderClause builds a whitelisted ORDER BY expression with the id as tie-breaker
func orderClause(filter shared.Filter, allowed map[string]bool, defaultField string) string {
	field := ValidateSortField(filter.OrderBy, allowed, defaultField)
	return fmt.Sprintf("%s %s, id ASC", field, ValidateSortOrder(filter.OrderDir))
}

// paginate applies the filter's page window
func paginate(filter shared.Filter) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
}
