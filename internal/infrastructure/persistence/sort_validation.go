package persistence

import (
	"strings"

	"github.com/retail/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// ProductSortFields contains allowed sort fields for products
var ProductSortFields = map[string]bool{
	"created_at":         true,
	"updated_at":         true,
	"name":               true,
	"sku":                true,
	"selling_price_dh":   true,
	"purchase_price_mad": true,
	"quantity_received":  true,
	"quantity_sold":      true,
}

// ArrivageSortFields contains allowed sort fields for arrivages
var ArrivageSortFields = map[string]bool{
	"created_at":     true,
	"arrival_date":   true,
	"reference":      true,
	"total_cost_eur": true,
	"total_cost_dh":  true,
}

// SaleSortFields contains allowed sort fields for sales
var SaleSortFields = map[string]bool{
	"created_at":     true,
	"sale_date":      true,
	"total_amount":   true,
	"total_quantity": true,
}

// ExpenseSortFields contains allowed sort fields for expenses
var ExpenseSortFields = map[string]bool{
	"created_at":   true,
	"expense_date": true,
	"amount_eur":   true,
	"amount_dh":    true,
	"category":     true,
}

// MovementSortFields contains allowed sort fields for stock movements
var MovementSortFields = map[string]bool{
	"occurred_at": true,
	"quantity":    true,
	"type":        true,
}

// paginate normalizes the filter and applies ordering, offset and limit
func paginate(query *gorm.DB, filter shared.Filter, allowed map[string]bool, defaultField string) *gorm.DB {
	f := filter.Normalize()
	field := ValidateSortField(f.OrderBy, allowed, defaultField)
	return query.
		Order(field + " " + ValidateSortOrder(f.OrderDir)).
		Order("id " + ValidateSortOrder(f.OrderDir)).
		Offset(f.Offset()).
		Limit(f.PageSize)
}

// likePattern builds a case-insensitive LIKE pattern for LOWER(column) comparisons
func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}
