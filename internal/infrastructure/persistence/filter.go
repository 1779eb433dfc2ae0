package persistence

import (
	"fmt"

	"github.com/mealfee/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// allowed sort columns, guarding against SQL injection through OrderBy
var sortableColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"year":       true,
	"month_no":   true,
	"start_date": true,
	"status":     true,
}

// applyFilter applies pagination and ordering from a shared.Filter
func applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	orderBy := filter.OrderBy
	if !sortableColumns[orderBy] {
		orderBy = "created_at"
	}
	dir := "desc"
	if filter.OrderDir == "asc" {
		dir = "asc"
	}
	query = query.Order(fmt.Sprintf("%s %s", orderBy, dir))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}
