package types

// Page is one offset-based slice of an ordered result set.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

// NormalizePaging clamps page to >= 1 and pageSize to [MinPageSize, max],
// using fallback when pageSize is not set.
func NormalizePaging(page, pageSize, fallback, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = fallback
	}
	if pageSize < MinPageSize {
		pageSize = MinPageSize
	}
	if pageSize > max {
		pageSize = max
	}
	return page, pageSize
}

// Offset is the number of rows before page.
func Offset(page, pageSize int) int {
	return (page - 1) * pageSize
}

func NewPage[T any](items []T, page, pageSize int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}

	return Page[T]{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    int64(page*pageSize) < total,
	}
}
