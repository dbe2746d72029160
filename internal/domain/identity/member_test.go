package identity

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMember_ChangeRole(t *testing.T) {
	orgID := uuid.New()
	actor := uuid.New()

	t.Run("super admin promotes staff", func(t *testing.T) {
		m, err := NewMember(orgID, uuid.New(), "Staff@Shop.ma", RoleStaff)
		require.NoError(t, err)
		assert.Equal(t, "staff@shop.ma", m.Email)

		require.NoError(t, m.ChangeRole(actor, RoleSuperAdmin, RoleAdmin))
		assert.Equal(t, RoleAdmin, m.Role)
	})

	t.Run("admin cannot manage roles", func(t *testing.T) {
		m, _ := NewMember(orgID, uuid.New(), "a@b.c", RoleStaff)
		err := m.ChangeRole(actor, RoleAdmin, RoleAdmin)
		assert.True(t, errors.Is(err, shared.ErrForbidden))
		assert.Equal(t, RoleStaff, m.Role)
	})

	t.Run("super admin cannot demote themself", func(t *testing.T) {
		m, _ := NewMember(orgID, actor, "me@b.c", RoleSuperAdmin)
		err := m.ChangeRole(actor, RoleSuperAdmin, RoleStaff)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := NewMember(orgID, uuid.New(), "x@y.z", Role("OWNER"))
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}
