package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Principal is what a validated access token says about the caller
type Principal struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Email          string
	Name           string
	// Role is the role claim of the token, empty when the provider sends none
	Role string
}

// MemberService resolves callers to members and administers their roles
type MemberService struct {
	repos  appshared.Repositories
	logger *zap.Logger
}

// NewMemberService creates a new MemberService
func NewMemberService(repos appshared.Repositories, logger *zap.Logger) *MemberService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemberService{repos: repos, logger: logger}
}

// Resolve turns a token principal into an Actor. The stored member role is
// authoritative; a first-time caller is registered with the token's role claim,
// or STAFF when the claim is missing or unknown.
func (s *MemberService) Resolve(ctx context.Context, p Principal) (appshared.Actor, error) {
	member, err := s.repos.Members().FindByUser(ctx, p.OrganizationID, p.UserID)
	if err == nil {
		return appshared.Actor{OrganizationID: member.OrganizationID, UserID: member.UserID, Role: member.Role}, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return appshared.Actor{}, err
	}

	role, parseErr := identity.ParseRole(p.Role)
	if parseErr != nil {
		role = identity.RoleStaff
	}
	member, err = identity.NewMember(p.OrganizationID, p.UserID, p.Email, role)
	if err != nil {
		return appshared.Actor{}, err
	}
	member.DisplayName = p.Name
	if err := s.repos.Members().Save(ctx, member); err != nil {
		return appshared.Actor{}, err
	}
	s.logger.Info("registered organization member",
		zap.String("organization_id", member.OrganizationID.String()),
		zap.String("user_id", member.UserID.String()),
		zap.String("role", member.Role.String()),
	)
	return appshared.Actor{OrganizationID: member.OrganizationID, UserID: member.UserID, Role: member.Role}, nil
}

// Me returns the caller's role and the permission keys it holds
func (s *MemberService) Me(ctx context.Context, actor appshared.Actor) (*MeResponse, error) {
	resp := &MeResponse{
		UserID:              actor.UserID,
		OrganizationID:      actor.OrganizationID,
		Role:                actor.Role.String(),
		CanAccessAdminPages: identity.CanAccessAdminPages(actor.Role),
	}
	for _, p := range identity.PermissionsFor(actor.Role) {
		resp.Permissions = append(resp.Permissions, p.String())
	}
	member, err := s.repos.Members().FindByUser(ctx, actor.OrganizationID, actor.UserID)
	switch {
	case err == nil:
		resp.Email = member.Email
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}
	return resp, nil
}

// ListMembers returns the organization's members
func (s *MemberService) ListMembers(ctx context.Context, actor appshared.Actor) ([]MemberResponse, error) {
	if err := actor.Require(identity.PermUsersView); err != nil {
		return nil, err
	}
	members, err := s.repos.Members().List(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	out := make([]MemberResponse, len(members))
	for i := range members {
		out[i] = ToMemberResponse(&members[i])
	}
	return out, nil
}

// ChangeRole sets a member's role
func (s *MemberService) ChangeRole(ctx context.Context, actor appshared.Actor, userID uuid.UUID, req ChangeRoleRequest) (*MemberResponse, error) {
	if err := actor.Require(identity.PermUsersManageRoles); err != nil {
		return nil, err
	}
	role, err := identity.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	member, err := s.repos.Members().FindByUser(ctx, actor.OrganizationID, userID)
	if err != nil {
		return nil, err
	}
	previous := member.Role
	if err := member.ChangeRole(actor.UserID, actor.Role, role); err != nil {
		return nil, err
	}
	if err := s.repos.Members().Save(ctx, member); err != nil {
		return nil, err
	}

	s.logger.Info("member role changed",
		zap.String("organization_id", actor.OrganizationID.String()),
		zap.String("user_id", userID.String()),
		zap.String("from", previous.String()),
		zap.String("to", role.String()),
		zap.String("changed_by", actor.UserID.String()),
	)
	resp := ToMemberResponse(member)
	return &resp, nil
}
