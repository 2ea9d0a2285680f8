// Package datatable holds the state machine behind every paginated, sortable
// and searchable grid in the admin: page window, single-column sort and a
// debounced search term.
//
// A Controller is built over one of two sources. ClientManaged owns the whole
// dataset and computes the visible window itself. ServerManaged only keeps the
// advisory state and forwards every settled change to a fetch callback; rows
// and the total count come back through Begin/Resolve.
package datatable

import "time"

const (
	DefaultPageSize    = 10
	MaxPageSize        = 100
	DefaultSearchDelay = 500 * time.Millisecond
)

// PageSizes is the page-size menu offered by pagers.
var PageSizes = []int{5, 10, 20, 30, 40, 50}

// Direction of a sort.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection returns the direction for "asc"/"desc" and false otherwise.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case Ascending, Descending:
		return Direction(s), true
	default:
		return "", false
	}
}

// SortSpec is the single active sort. The zero value means no sort.
type SortSpec struct {
	Column    string    `json:"sortBy,omitempty"`
	Direction Direction `json:"sortOrder,omitempty"`
}

// Active reports whether a sort is applied.
func (s SortSpec) Active() bool {
	return s.Column != "" && s.Direction != ""
}

// PageRequest is a zero-based page window.
type PageRequest struct {
	Index int `json:"pageIndex"`
	Size  int `json:"pageSize"`
}

// Offset returns the first row of the window.
func (p PageRequest) Offset() int {
	if p.Index < 0 || p.Size <= 0 {
		return 0
	}
	return p.Index * p.Size
}

// Query is everything a data source needs to produce one page.
type Query struct {
	Page   PageRequest `json:"page"`
	Sort   SortSpec    `json:"sort"`
	Search string      `json:"search,omitempty"`
}

// DefaultQuery is the state of a freshly mounted table.
func DefaultQuery() Query {
	return Query{Page: PageRequest{Index: 0, Size: DefaultPageSize}}
}

// PageCount returns max(1, ceil(total/size)).
func PageCount(total, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	n := (total + size - 1) / size
	if n < 1 {
		return 1
	}
	return n
}

func clampIndex(index, pageCount int) int {
	if index < 0 {
		return 0
	}
	if index > pageCount-1 {
		return pageCount - 1
	}
	return index
}

// LoadState tracks a server-managed fetch.
type LoadState int

const (
	LoadIdle LoadState = iota
	LoadLoading
	LoadLoaded
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadLoading:
		return "loading"
	case LoadLoaded:
		return "loaded"
	case LoadFailed:
		return "failed"
	default:
		return "idle"
	}
}

// State is a read-only snapshot of a controller.
type State struct {
	Page      PageRequest
	Sort      SortSpec
	RawSearch string
	Search    string
	Total     int
	PageCount int
	Load      LoadState
	Err       error
}

// Query returns the effective query of the snapshot.
func (s State) Query() Query {
	return Query{Page: s.Page, Sort: s.Sort, Search: s.Search}
}

// Empty reports a successful load without rows.
func (s State) Empty() bool {
	return s.Load == LoadLoaded && s.Total == 0
}
