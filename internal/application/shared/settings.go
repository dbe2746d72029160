package shared

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/settings"
	"github.com/retail/backend/internal/domain/shared"
)

// LoadSettings returns the organization's saved settings, or the defaults when it has none
func LoadSettings(ctx context.Context, repos Repositories, orgID uuid.UUID) (*settings.OrganizationSettings, error) {
	s, err := repos.Settings().Find(ctx, orgID)
	if errors.Is(err, shared.ErrNotFound) {
		return settings.Defaults(orgID), nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
