package pagination

// PageResult is one page of T plus the totals a client needs to page on.
type PageResult[T any] struct {
	Data       []T  `json:"data"`
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

// NewPageResult wraps a page already cut by the caller, typically with
// LIMIT/OFFSET, given the total row count.
func NewPageResult[T any](data []T, total, page, pageSize int) PageResult[T] {
	pageSize = max(pageSize, 1)
	pages := max((total+pageSize-1)/pageSize, 1)

	if data == nil {
		data = []T{}
	}

	return PageResult[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: pages,
		HasMore:    page < pages,
	}
}

// PageOf cuts the requested page out of an in-memory listing.
// Pages past the end are empty rather than an error.
func PageOf[T any](items []T, req PageRequest) PageResult[T] {
	size := max(req.PageSize, 1)
	page := max(req.Page, 1)

	start := min((page-1)*size, len(items))
	end := min(start+size, len(items))

	return NewPageResult(items[start:end:end], len(items), page, size)
}
