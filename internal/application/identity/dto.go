package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/identity"
)

// ChangeRoleRequest is the body of a role change
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=STAFF ADMIN SUPER_ADMIN"`
}

// MemberResponse represents an organization member
type MemberResponse struct {
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MeResponse describes the caller and what it may do
type MeResponse struct {
	UserID              uuid.UUID `json:"user_id"`
	OrganizationID      uuid.UUID `json:"organization_id"`
	Email               string    `json:"email,omitempty"`
	Role                string    `json:"role"`
	Permissions         []string  `json:"permissions"`
	CanAccessAdminPages bool      `json:"can_access_admin_pages"`
}

// ToMemberResponse converts a member to a response
func ToMemberResponse(m *identity.Member) MemberResponse {
	return MemberResponse{
		UserID:      m.UserID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		Role:        m.Role.String(),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
