package persistence

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// findError translates gorm.ErrRecordNotFound into a domain not-found error and
// wraps anything else with the operation name.
func findError(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewNotFoundError(entity, id)
	}
	return fmt.Errorf("find %s: %w", entity, err)
}

// forUpdate adds SELECT ... FOR UPDATE. SQLite ignores the clause.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// deleteScoped removes one organization-owned row and reports not-found when nothing matched
func deleteScoped(db *gorm.DB, model any, entity string, orgID, id uuid.UUID) error {
	result := db.Where("organization_id = ? AND id = ?", orgID, id).Delete(model)
	if result.Error != nil {
		return fmt.Errorf("delete %s: %w", entity, result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError(entity, id)
	}
	return nil
}
