package paginate

// OffsetPage is a numbered page of a listing with a known total.
type OffsetPage[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

// Offset converts a 1-based page number into offset and limit. Page numbers
// below 1 are treated as 1.
func Offset(pageNumber, pageSize int) (offset, limit int) {
	limit = ClampPageSize(pageSize)
	if pageNumber < 1 {
		pageNumber = 1
	}
	return (pageNumber - 1) * limit, limit
}

// NewOffsetPage assembles the page metadata for items read at pageNumber.
func NewOffsetPage[T any](items []T, pageNumber, pageSize, total int) OffsetPage[T] {
	offset, limit := Offset(pageNumber, pageSize)
	if items == nil {
		items = []T{}
	}
	pages := 0
	if total > 0 {
		pages = (total + limit - 1) / limit
	}
	return OffsetPage[T]{
		Items:      items,
		Page:       offset/limit + 1,
		PageSize:   limit,
		Total:      total,
		TotalPages: pages,
		HasMore:    offset+len(items) < total,
	}
}
