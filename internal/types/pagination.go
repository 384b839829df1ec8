package types

// Pagination describes one page of a list view. CurrentPage is 1-indexed.
type Pagination struct {
	TotalCount  int  `json:"total_count"`
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	PageSize    int  `json:"page_size"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

// NewPagination derives page numbers from a skip/limit window so the result
// does not depend on how the backend numbers its pages.
func NewPagination(totalCount, skip, limit int) Pagination {
	if totalCount < 0 {
		totalCount = 0
	}
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		return Pagination{
			TotalCount:  totalCount,
			CurrentPage: 1,
			TotalPages:  1,
		}
	}
	page := skip/limit + 1
	pages := (totalCount + limit - 1) / limit
	if pages < 1 {
		pages = 1
	}
	return Pagination{
		TotalCount:  totalCount,
		CurrentPage: page,
		TotalPages:  pages,
		PageSize:    limit,
		HasNext:     page < pages,
		HasPrev:     page > 1,
	}
}

// WithTotal returns a copy adjusted for a new total count, keeping the
// current page.
func (p Pagination) WithTotal(totalCount int) Pagination {
	if p.PageSize <= 0 {
		p.TotalCount = max(totalCount, 0)
		return p
	}
	skip := (p.CurrentPage - 1) * p.PageSize
	return NewPagination(totalCount, skip, p.PageSize)
}
