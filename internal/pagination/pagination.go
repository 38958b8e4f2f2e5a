package pagination

const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPage        = 10000
	MaxPerPage     = 100
)

// Ellipsis marks a gap in a page list.
const Ellipsis = 0

// Pagination describes the page links shown around the current page.
// Pages holds page numbers with Ellipsis (0) standing for skipped ranges.
type Pagination struct {
	Pages    []int `json:"pages"`
	Previous int   `json:"previous,omitempty"`
	Next     int   `json:"next,omitempty"`
}

// Clamp validates raw paging input: out-of-range values are clamped and
// non-positive values fall back to the defaults.
func Clamp(page, perPage int) (int, int) {
	switch {
	case page < 1:
		page = DefaultPage
	case page > MaxPage:
		page = MaxPage
	}

	switch {
	case perPage < 1:
		perPage = DefaultPerPage
	case perPage > MaxPerPage:
		perPage = MaxPerPage
	}

	return page, perPage
}

// TotalPages returns how many pages of perPage records hold total records.
func TotalPages(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// Window builds the page list for current out of total pages: first and last
// page, neighbours of the current page and ellipses in between. It returns
// nil when there is nothing to paginate.
func Window(current, total int) *Pagination {
	if total <= 1 || current <= 0 {
		return nil
	}

	var pages []int
	if current > 1 {
		pages = append(pages, 1)
	}
	if current > 3 {
		pages = append(pages, Ellipsis)
	}
	if current-1 > 1 {
		pages = append(pages, current-1)
	}
	pages = append(pages, current)
	if current < total {
		pages = append(pages, current+1)
	}
	if current < total-2 {
		pages = append(pages, Ellipsis)
	}
	if current < total-1 {
		pages = append(pages, total)
	}

	p := &Pagination{Pages: pages}
	if current > 1 {
		p.Previous = current - 1
	}
	if current < total {
		p.Next = current + 1
	}
	return p
}
