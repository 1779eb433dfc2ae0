package dto

import "github.com/mealfee/backend/internal/domain/shared"

// ListRequest holds common list query parameters
type ListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
}

// ToFilter converts the request to a domain filter with defaults applied
func (r ListRequest) ToFilter() shared.Filter {
	filter := shared.DefaultFilter()
	if r.Page > 0 {
		filter.Page = r.Page
	}
	if r.PageSize > 0 && r.PageSize <= 100 {
		filter.PageSize = r.PageSize
	}
	if r.OrderBy != "" {
		filter.OrderBy = r.OrderBy
	}
	if r.OrderDir == "asc" || r.OrderDir == "desc" {
		filter.OrderDir = r.OrderDir
	}
	return filter
}
