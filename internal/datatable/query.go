package datatable

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// URL parameter names shared by the API, the dashboard and the console.
const (
	ParamPage      = "page"
	ParamLimit     = "limit"
	ParamSortBy    = "sortBy"
	ParamSortOrder = "sortOrder"
	ParamSearch    = "search"
)

// ParseQuery decodes a query from URL values. page is 1-based on the wire.
// Invalid or missing values fall back to defaults; limit is capped at
// MaxPageSize. A sortBy outside allowed (when allowed is non-empty) is
// dropped.
func ParseQuery(v url.Values, allowed ...string) Query {
	q := DefaultQuery()

	if n, err := strconv.Atoi(strings.TrimSpace(v.Get(ParamLimit))); err == nil && n > 0 {
		q.Page.Size = min(n, MaxPageSize)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(v.Get(ParamPage))); err == nil && n > 1 {
		q.Page.Index = n - 1
	}

	col := strings.TrimSpace(v.Get(ParamSortBy))
	if col != "" && (len(allowed) == 0 || slices.Contains(allowed, col)) {
		dir, ok := ParseDirection(strings.ToLower(strings.TrimSpace(v.Get(ParamSortOrder))))
		if !ok {
			dir = Ascending
		}
		q.Sort = SortSpec{Column: col, Direction: dir}
	}

	q.Search = strings.TrimSpace(v.Get(ParamSearch))
	return q
}

// Values encodes q the way ParseQuery reads it.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set(ParamPage, strconv.Itoa(q.Page.Index+1))
	size := q.Page.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	v.Set(ParamLimit, strconv.Itoa(size))
	if q.Sort.Active() {
		v.Set(ParamSortBy, q.Sort.Column)
		v.Set(ParamSortOrder, string(q.Sort.Direction))
	}
	if q.Search != "" {
		v.Set(ParamSearch, q.Search)
	}
	return v
}

// WithPage returns a copy of q on another zero-based page.
func (q Query) WithPage(index int) Query {
	q.Page.Index = max(0, index)
	return q
}

// WithPageSize returns a copy of q with a new size, back on the first page.
func (q Query) WithPageSize(size int) Query {
	if size > 0 {
		q.Page.Size = size
		q.Page.Index = 0
	}
	return q
}

// WithToggledSort returns a copy of q with column toggled through the
// ascending, descending, unsorted cycle.
func (q Query) WithToggledSort(column string) Query {
	switch {
	case q.Sort.Column != column:
		q.Sort = SortSpec{Column: column, Direction: Ascending}
	case q.Sort.Direction == Ascending:
		q.Sort.Direction = Descending
	default:
		q.Sort = SortSpec{}
	}
	return q
}

// Pagination is the pagination block of a paginated API response.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// PaginationOf describes the page of q within total rows.
func PaginationOf(q Query, total int) Pagination {
	size := q.Page.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	return Pagination{
		Page:       q.Page.Index + 1,
		Limit:      size,
		Total:      total,
		TotalPages: PageCount(total, size),
	}
}
