package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
)

// Brand groups products by manufacturer
type Brand struct {
	shared.OrgAggregateRoot
	Name string `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (Brand) TableName() string {
	return "brands"
}

// Category groups products by kind
type Category struct {
	shared.OrgAggregateRoot
	Name string `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "categories"
}

// NewBrand creates a brand
func NewBrand(orgID uuid.UUID, name string) (*Brand, error) {
	name, err := normalizeLabel("brand", name)
	if err != nil {
		return nil, err
	}
	return &Brand{OrgAggregateRoot: shared.NewOrgAggregateRoot(orgID), Name: name}, nil
}

// Rename changes the brand name
func (b *Brand) Rename(name string) error {
	name, err := normalizeLabel("brand", name)
	if err != nil {
		return err
	}
	b.Name = name
	b.UpdatedAt = time.Now()
	return nil
}

// NewCategory creates a category
func NewCategory(orgID uuid.UUID, name string) (*Category, error) {
	name, err := normalizeLabel("category", name)
	if err != nil {
		return nil, err
	}
	return &Category{OrgAggregateRoot: shared.NewOrgAggregateRoot(orgID), Name: name}, nil
}

// Rename changes the category name
func (c *Category) Rename(name string) error {
	name, err := normalizeLabel("category", name)
	if err != nil {
		return err
	}
	c.Name = name
	c.UpdatedAt = time.Now()
	return nil
}

func normalizeLabel(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", shared.NewValidationError("%s name cannot be empty", kind)
	}
	if len(name) > 100 {
		return "", shared.NewValidationError("%s name cannot exceed 100 characters", kind)
	}
	return name, nil
}
