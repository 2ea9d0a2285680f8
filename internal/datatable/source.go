package datatable

// Source selects where rows are computed. It is sealed: only ClientManaged and
// ServerManaged implement it.
type Source[T any] interface {
	source(*T)
}

// ClientManaged computes filter, sort and pagination in memory over Rows.
// OnChange, when set, is told after each recompute so a view can redraw.
type ClientManaged[T any] struct {
	Rows     []T
	OnChange func(Change)
}

func (ClientManaged[T]) source(*T) {}

// ServerManaged forwards state changes to Notify; the caller fetches and
// reports back through Controller.Begin and Controller.Resolve.
type ServerManaged[T any] struct {
	Notify func(Change)
}

func (ServerManaged[T]) source(*T) {}

// ChangeKind tells which interaction produced a Change.
type ChangeKind int

const (
	ChangePage ChangeKind = iota
	ChangeSort
	ChangeSearch
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeSort:
		return "sort"
	case ChangeSearch:
		return "search"
	default:
		return "page"
	}
}

// Change is the normalized notification sent to a server-managed source.
// Query carries the full effective state; for ChangeSort an inactive
// Query.Sort means the sort was cleared.
type Change struct {
	Kind  ChangeKind
	Query Query
}
