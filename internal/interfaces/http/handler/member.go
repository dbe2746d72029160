package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appidentity "github.com/retail/backend/internal/application/identity"
	appshared "github.com/retail/backend/internal/application/shared"
)

// MemberService reads and administers organization members
type MemberService interface {
	Me(ctx context.Context, actor appshared.Actor) (*appidentity.MeResponse, error)
	ListMembers(ctx context.Context, actor appshared.Actor) ([]appidentity.MemberResponse, error)
	ChangeRole(ctx context.Context, actor appshared.Actor, userID uuid.UUID, req appidentity.ChangeRoleRequest) (*appidentity.MemberResponse, error)
}

// MemberHandler handles the caller and member endpoints
type MemberHandler struct {
	BaseHandler
	members MemberService
}

// NewMemberHandler creates a new MemberHandler
func NewMemberHandler(members MemberService) *MemberHandler {
	return &MemberHandler{members: members}
}

// Me returns the caller's role and the permissions it grants
func (h *MemberHandler) Me(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	me, err := h.members.Me(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, me)
}

// List returns the members of the caller's organization
func (h *MemberHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	members, err := h.members.ListMembers(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if members == nil {
		members = []appidentity.MemberResponse{}
	}
	h.Success(c, members)
}

// ChangeRole godoc
// @Summary      Change a member's role
// @Description  Only a super admin may grant SUPER_ADMIN, and a super admin cannot demote themself.
// @Tags         members
// @Router       /members/{userId}/role [put]
func (h *MemberHandler) ChangeRole(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	userID, ok := h.ParamID(c, "userId")
	if !ok {
		return
	}
	var req appidentity.ChangeRoleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	member, err := h.members.ChangeRole(c.Request.Context(), actor, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, member)
}
