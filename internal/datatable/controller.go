package datatable

import (
	"slices"
	"sync"
	"time"
)

// Config describes the columns and defaults of a table.
type Config[T any] struct {
	Columns []Column[T]
	// SearchKey names the column the search box filters on.
	SearchKey   string
	PageSize    int
	SearchDelay time.Duration
}

// Ticket identifies one server-managed fetch. Only the latest ticket issued
// by Begin is accepted by Resolve.
type Ticket struct {
	Seq   uint64
	Query Query
}

// Controller owns the page, sort and search state of one mounted table.
// Mutators never fail: out-of-range input is clamped.
//
// Mutations apply synchronously. Page and sort notifications are delivered
// before the mutator returns; search notifications are delivered from the
// debounce timer once the term has settled.
type Controller[T any] struct {
	cols      []Column[T]
	searchKey string
	server    bool
	notify    func(Change)
	debouncer *Debouncer

	mu      sync.Mutex
	page    PageRequest
	sort    SortSpec
	raw     string
	settled string
	total   int
	all     []T
	rows    []T
	load    LoadState
	err     error
	seq     uint64
	closed  bool
}

// New builds a controller in the mode selected by src.
func New[T any](src Source[T], cfg Config[T]) *Controller[T] {
	size := cfg.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	c := &Controller[T]{
		cols:      cfg.Columns,
		searchKey: cfg.SearchKey,
		page:      PageRequest{Index: 0, Size: size},
	}

	switch s := src.(type) {
	case ClientManaged[T]:
		c.all = slices.Clone(s.Rows)
		c.notify = s.OnChange
	case ServerManaged[T]:
		c.server = true
		c.notify = s.Notify
	}

	c.debouncer = NewDebouncer(cfg.SearchDelay, c.settle)
	if !c.server {
		c.recomputeLocked()
	}
	return c
}

// ServerManagedMode reports whether rows come from an external fetch.
func (c *Controller[T]) ServerManagedMode() bool {
	return c.server
}

// Columns returns the column definitions.
func (c *Controller[T]) Columns() []Column[T] {
	return c.cols
}

// SetPage moves to the zero-based page index, clamped to the valid range.
func (c *Controller[T]) SetPage(index int) {
	c.mu.Lock()
	before := c.page.Index
	c.page.Index = clampIndex(index, PageCount(c.total, c.page.Size))
	var ch *Change
	if c.page.Index != before {
		ch = c.commitLocked(ChangePage)
	}
	c.mu.Unlock()
	c.emit(ch)
}

// NextPage advances one page when possible.
func (c *Controller[T]) NextPage() {
	c.mu.Lock()
	i := c.page.Index + 1
	c.mu.Unlock()
	c.SetPage(i)
}

// PrevPage goes back one page when possible.
func (c *Controller[T]) PrevPage() {
	c.mu.Lock()
	i := c.page.Index - 1
	c.mu.Unlock()
	c.SetPage(i)
}

// CanPrev reports whether a previous page exists.
func (c *Controller[T]) CanPrev() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page.Index > 0
}

// CanNext reports whether a next page exists.
func (c *Controller[T]) CanNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page.Index < PageCount(c.total, c.page.Size)-1
}

// SetPageSize changes the page size and returns to the first page.
// Non-positive sizes are ignored.
func (c *Controller[T]) SetPageSize(size int) {
	if size <= 0 {
		return
	}
	c.mu.Lock()
	if size == c.page.Size && c.page.Index == 0 {
		c.mu.Unlock()
		return
	}
	c.page.Size = size
	c.page.Index = 0
	ch := c.commitLocked(ChangePage)
	c.mu.Unlock()
	c.emit(ch)
}

// ToggleSort cycles column through ascending, descending and unsorted.
// Selecting another column replaces the active sort with an ascending one.
// Columns declared as not sortable are ignored.
func (c *Controller[T]) ToggleSort(column string) {
	if len(c.cols) > 0 {
		col, ok := findColumn(c.cols, column)
		if !ok || !col.Sortable {
			return
		}
	}

	c.mu.Lock()
	c.sort = Query{Sort: c.sort}.WithToggledSort(column).Sort
	ch := c.commitLocked(ChangeSort)
	c.mu.Unlock()
	c.emit(ch)
}

// SetSearch records the raw term right away and schedules it to settle.
func (c *Controller[T]) SetSearch(term string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.raw = term
	c.mu.Unlock()
	c.debouncer.Schedule(term)
}

func (c *Controller[T]) settle(term string) {
	c.mu.Lock()
	if c.closed || term == c.settled {
		c.mu.Unlock()
		return
	}
	c.settled = term
	c.page.Index = 0
	ch := c.commitLocked(ChangeSearch)
	c.mu.Unlock()
	c.emit(ch)
}

// Restore applies a whole query at once, typically decoded from a URL. The
// search term is settled immediately and nothing is notified.
func (c *Controller[T]) Restore(q Query) {
	c.debouncer.Cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if q.Page.Size > 0 {
		c.page.Size = q.Page.Size
	}
	c.page.Index = max(0, q.Page.Index)
	if q.Sort.Active() {
		c.sort = q.Sort
	} else {
		c.sort = SortSpec{}
	}
	c.raw = q.Search
	c.settled = q.Search
	if !c.server {
		c.recomputeLocked()
	}
}

// SetRows replaces the dataset of a client-managed table.
func (c *Controller[T]) SetRows(rows []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.server {
		return
	}
	c.all = slices.Clone(rows)
	c.recomputeLocked()
}

// Begin marks a server-managed fetch for the current query as in flight.
func (c *Controller[T]) Begin() Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.load = LoadLoading
	c.err = nil
	return Ticket{Seq: c.seq, Query: c.queryLocked()}
}

// Resolve applies the result of the fetch identified by t. Results of
// superseded tickets are dropped and false is returned. A failed fetch moves
// the table to LoadFailed, which is distinct from an empty result.
func (c *Controller[T]) Resolve(t Ticket, rows []T, total int, err error) bool {
	c.mu.Lock()
	if !c.server || t.Seq != c.seq {
		c.mu.Unlock()
		return false
	}
	if err != nil {
		c.load = LoadFailed
		c.err = err
		c.rows = nil
		c.mu.Unlock()
		return true
	}

	c.rows = slices.Clone(rows)
	c.total = max(0, total)
	c.load = LoadLoaded
	var ch *Change
	if idx := clampIndex(c.page.Index, PageCount(c.total, c.page.Size)); idx != c.page.Index {
		c.page.Index = idx
		ch = c.commitLocked(ChangePage)
	}
	c.mu.Unlock()
	c.emit(ch)
	return true
}

// State returns a snapshot of the controller.
func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Page:      c.page,
		Sort:      c.sort,
		RawSearch: c.raw,
		Search:    c.settled,
		Total:     c.total,
		PageCount: PageCount(c.total, c.page.Size),
		Load:      c.load,
		Err:       c.err,
	}
}

// Rows returns the visible rows.
func (c *Controller[T]) Rows() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.rows)
}

// PageNumbers returns the pager labels for the current page.
func (c *Controller[T]) PageNumbers() []PageLabel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return PageNumbers(c.page.Index+1, PageCount(c.total, c.page.Size))
}

// Close cancels a pending search and stops all further notifications.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.debouncer.Close()
}

func (c *Controller[T]) queryLocked() Query {
	return Query{Page: c.page, Sort: c.sort, Search: c.settled}
}

func (c *Controller[T]) commitLocked(kind ChangeKind) *Change {
	if !c.server {
		c.recomputeLocked()
	}
	if c.notify == nil || c.closed {
		return nil
	}
	return &Change{Kind: kind, Query: c.queryLocked()}
}

func (c *Controller[T]) emit(ch *Change) {
	if ch != nil {
		c.notify(*ch)
	}
}

func (c *Controller[T]) recomputeLocked() {
	rows := c.all
	if col, ok := findColumn(c.cols, c.searchKey); ok {
		rows = FilterRows(rows, col, c.settled)
	}
	rows = slices.Clone(rows)
	if c.sort.Active() {
		if col, ok := findColumn(c.cols, c.sort.Column); ok {
			SortRows(rows, col, c.sort.Direction)
		}
	}

	c.total = len(rows)
	c.page.Index = clampIndex(c.page.Index, PageCount(c.total, c.page.Size))
	start := min(c.page.Offset(), len(rows))
	end := min(start+c.page.Size, len(rows))
	c.rows = rows[start:end]
	c.load = LoadLoaded
}
