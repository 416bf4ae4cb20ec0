package view

// DefaultPageSize is the number of rows shown before the user picks a size.
const DefaultPageSize = 10

// PageSizes are the selectable page sizes.
var PageSizes = []int{5, 10, 25}

// Page is one page of an in-memory list plus the data the pager needs.
type Page[T any] struct {
	Items       []T
	CurrentPage int
	TotalPages  int
	PerPage     int
	Total       int
	HasPrevious bool
	HasNext     bool
	PrevPage    int
	NextPage    int
}

// ValidPageSize returns size when it is one of PageSizes, else the default.
func ValidPageSize(size int) int {
	for _, s := range PageSizes {
		if s == size {
			return size
		}
	}
	return DefaultPageSize
}

// Paginate slices items into page number page (1-based) of perPage rows.
// Out-of-range pages are clamped.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	perPage = ValidPageSize(perPage)
	total := len(items)
	totalPages := (total + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * perPage
	end := min(start+perPage, total)

	return Page[T]{
		Items:       items[start:end],
		CurrentPage: page,
		TotalPages:  totalPages,
		PerPage:     perPage,
		Total:       total,
		HasPrevious: page > 1,
		HasNext:     page < totalPages,
		PrevPage:    page - 1,
		NextPage:    page + 1,
	}
}

// Pages returns the page numbers to show in the pager. -1 marks an ellipsis.
func (p Page[T]) Pages() []int {
	return PageRange(p.CurrentPage, p.TotalPages)
}

// PageRange returns a slice of page numbers for pagination display.
// Returns -1 for ellipsis positions.
func PageRange(currentPage, totalPages int) []int {
	if totalPages <= 7 {
		pages := make([]int, totalPages)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages
	}

	pages := []int{1}

	start := max(currentPage-1, 2)
	end := min(currentPage+1, totalPages-1)

	if start > 2 {
		pages = append(pages, -1)
	}
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	if end < totalPages-1 {
		pages = append(pages, -1)
	}

	return append(pages, totalPages)
}
