package identity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
)

// Member links an identity-provider user to an organization with a role.
// Credentials never reach this service.
type Member struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email          string    `gorm:"type:varchar(255);not null"`
	DisplayName    string    `gorm:"type:varchar(200)"`
	Role           Role      `gorm:"type:varchar(20);not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName returns the table name for GORM
func (Member) TableName() string {
	return "members"
}

// NewMember validates and builds a member record
func NewMember(orgID, userID uuid.UUID, email string, role Role) (*Member, error) {
	if orgID == uuid.Nil || userID == uuid.Nil {
		return nil, shared.NewValidationError("organization and user are required")
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, shared.NewValidationError("email is required")
	}
	if !role.IsValid() {
		return nil, shared.NewValidationError("unknown role %q", role)
	}
	now := time.Now()
	return &Member{
		UserID:         userID,
		OrganizationID: orgID,
		Email:          email,
		Role:           role,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ChangeRole applies a role change requested by actor.
// Only SUPER_ADMIN may manage roles, and a super admin cannot demote themself.
func (m *Member) ChangeRole(actorID uuid.UUID, actorRole Role, newRole Role) error {
	if !CanManageRoles(actorRole) {
		return shared.NewPermissionError(string(PermUsersManageRoles))
	}
	if !newRole.IsValid() {
		return shared.NewValidationError("unknown role %q", newRole)
	}
	if m.UserID == actorID && newRole != m.Role {
		return shared.NewDomainError(shared.CodeInvalidState, "you cannot change your own role")
	}
	m.Role = newRole
	m.UpdatedAt = time.Now()
	return nil
}

// MemberRepository persists organization members
type MemberRepository interface {
	FindByUser(ctx context.Context, orgID, userID uuid.UUID) (*Member, error)
	List(ctx context.Context, orgID uuid.UUID) ([]Member, error)
	Save(ctx context.Context, m *Member) error
}
