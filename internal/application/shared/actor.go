package shared

import (
	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/shared"
)

// Actor is the authenticated caller of a use case
type Actor struct {
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	Role           identity.Role
}

// Require fails with a PermissionError when the actor's role lacks p
func (a Actor) Require(p identity.Permission) error {
	if !identity.HasPermission(a.Role, p) {
		return shared.NewPermissionError(string(p))
	}
	return nil
}
