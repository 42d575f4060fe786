package catalog

// Page describes one page of a listing.
type Page struct {
	Number     int
	Limit      int
	Total      int64
	TotalPages int
	Skip       int64
	InRange    bool
}

// Paginate computes the page window for total matching documents. Pages outside
// [1, TotalPages] are valid requests that simply have no items.
func Paginate(total int64, page, limit int) Page {
	if limit < 1 {
		limit = DefaultLimit
	}
	if total < 0 {
		total = 0
	}
	p := Page{
		Number:     page,
		Limit:      limit,
		Total:      total,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}
	p.InRange = page >= 1 && page <= p.TotalPages
	if p.InRange {
		p.Skip = int64(page-1) * int64(limit)
	}
	return p
}
