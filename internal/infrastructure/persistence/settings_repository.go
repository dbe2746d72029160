package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/settings"
	"gorm.io/gorm"
)

// GormSettingsRepository implements settings.Repository using GORM
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewGormSettingsRepository creates a new GormSettingsRepository
func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db}
}

// Find returns the saved settings of an organization
func (r *GormSettingsRepository) Find(ctx context.Context, orgID uuid.UUID) (*settings.OrganizationSettings, error) {
	var s settings.OrganizationSettings
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		First(&s).Error; err != nil {
		return nil, findError(err, "settings", orgID)
	}
	return &s, nil
}

// Save upserts the settings row
func (r *GormSettingsRepository) Save(ctx context.Context, s *settings.OrganizationSettings) error {
	if err := r.db.WithContext(ctx).Save(s).Error; err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

var _ settings.Repository = (*GormSettingsRepository)(nil)
