package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/identity"
	"gorm.io/gorm"
)

// GormMemberRepository implements MemberRepository using GORM
type GormMemberRepository struct {
	db *gorm.DB
}

// NewGormMemberRepository creates a new GormMemberRepository
func NewGormMemberRepository(db *gorm.DB) *GormMemberRepository {
	return &GormMemberRepository{db: db}
}

// FindByUser finds the membership of a user in an organization
func (r *GormMemberRepository) FindByUser(ctx context.Context, orgID, userID uuid.UUID) (*identity.Member, error) {
	var m identity.Member
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		First(&m).Error; err != nil {
		return nil, findError(err, "member", userID)
	}
	return &m, nil
}

// List returns the members of an organization ordered by email
func (r *GormMemberRepository) List(ctx context.Context, orgID uuid.UUID) ([]identity.Member, error) {
	var members []identity.Member
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("email ASC").
		Find(&members).Error; err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// Save creates or updates a member
func (r *GormMemberRepository) Save(ctx context.Context, m *identity.Member) error {
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return fmt.Errorf("save member: %w", err)
	}
	return nil
}

var _ identity.MemberRepository = (*GormMemberRepository)(nil)
