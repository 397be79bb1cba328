package persistence

import (
	"context"
	"errors"

	"github.com/liquorledger/backend/internal/domain/setting"
	"gorm.io/gorm"
)

// settingRowID is the primary key of the single settings row
const settingRowID = 1

// GormSettingRepository implements setting.Repository using GORM
type GormSettingRepository struct {
	db *gorm.DB
}

// NewGormSettingRepository creates a new GormSettingRepository
func NewGormSettingRepository(db *gorm.DB) *GormSettingRepository {
	return &GormSettingRepository{db: db}
}

// Get returns the settings row, or nil when none has been stored
func (r *GormSettingRepository) Get(ctx context.Context) (*setting.Setting, error) {
	var s setting.Setting
	if err := r.db.WithContext(ctx).Order("id ASC").First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError("get settings", err)
	}
	return &s, nil
}

// Save creates or replaces the settings row
func (r *GormSettingRepository) Save(ctx context.Context, s *setting.Setting) error {
	if s.ID == 0 {
		s.ID = settingRowID
	}
	return translateError("save settings", r.db.WithContext(ctx).Save(s).Error)
}

// Ensure GormSettingRepository implements setting.Repository
var _ setting.Repository = (*GormSettingRepository)(nil)
