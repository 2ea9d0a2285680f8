package datatable

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID    int
	Name  string
	Score *int
}

func intp(v int) *int { return &v }

func rowColumns() []Column[row] {
	return []Column[row]{
		{Key: "id", Label: "ID", Sortable: true, Value: func(r row) any { return r.ID }},
		{Key: "name", Label: "Name", Sortable: true, Value: func(r row) any { return r.Name }},
		{Key: "score", Label: "Score", Sortable: true, Value: func(r row) any { return r.Score }},
		{Key: "note", Label: "Note", Value: func(r row) any { return nil }},
	}
}

func makeRows(n int) []row {
	rows := make([]row, n)
	for i := range rows {
		rows[i] = row{ID: i + 1, Name: fmt.Sprintf("intent_%02d", i+1)}
	}
	return rows
}

type recorder struct {
	mu      sync.Mutex
	changes []Change
	times   []time.Time
}

func (r *recorder) notify(ch Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ch)
	r.times = append(r.times, time.Now())
}

func (r *recorder) snapshot() ([]Change, []time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Change(nil), r.changes...), append([]time.Time(nil), r.times...)
}

func newServer(t *testing.T, rec *recorder, delay time.Duration) *Controller[row] {
	t.Helper()
	c := New[row](ServerManaged[row]{Notify: rec.notify}, Config[row]{
		Columns:     rowColumns(),
		SearchKey:   "name",
		SearchDelay: delay,
	})
	t.Cleanup(c.Close)
	return c
}

func TestNew_Defaults(t *testing.T) {
	c := New[row](ClientManaged[row]{Rows: makeRows(3)}, Config[row]{Columns: rowColumns()})
	defer c.Close()

	st := c.State()
	assert.Equal(t, PageRequest{Index: 0, Size: 10}, st.Page)
	assert.False(t, st.Sort.Active())
	assert.Equal(t, "", st.RawSearch)
	assert.Equal(t, 3, st.Total)
	assert.Len(t, c.Rows(), 3)
}

func TestSetPage_ClampsToValidRange(t *testing.T) {
	for _, total := range []int{0, 1, 9, 10, 11, 95, 100} {
		for _, size := range []int{1, 5, 10, 20} {
			c := New[row](ClientManaged[row]{Rows: makeRows(total)}, Config[row]{Columns: rowColumns(), PageSize: size})
			pageCount := PageCount(total, size)
			for _, i := range []int{-5, -1, 0, 1, pageCount - 1, pageCount, pageCount + 7, 1 << 20} {
				c.SetPage(i)
				idx := c.State().Page.Index
				if idx < 0 || idx > pageCount-1 {
					t.Fatalf("total=%d size=%d page=%d: index %d outside [0,%d]", total, size, i, idx, pageCount-1)
				}
			}
			c.Close()
		}
	}
}

func TestServerManaged_EndToEnd(t *testing.T) {
	rec := &recorder{}
	c := newServer(t, rec, time.Hour)

	tk := c.Begin()
	require.True(t, c.Resolve(tk, makeRows(10), 95, nil))
	assert.Equal(t, 10, c.State().PageCount)

	c.SetPage(9)
	assert.Equal(t, 9, c.State().Page.Index)

	c.SetPage(15)
	assert.Equal(t, 9, c.State().Page.Index)

	c.SetPageSize(20)
	st := c.State()
	assert.Equal(t, 0, st.Page.Index)
	assert.Equal(t, 20, st.Page.Size)
	assert.Equal(t, 5, st.PageCount)

	changes, _ := rec.snapshot()
	require.Len(t, changes, 2)
	assert.Equal(t, ChangePage, changes[0].Kind)
	assert.Equal(t, PageRequest{Index: 9, Size: 10}, changes[0].Query.Page)
	assert.Equal(t, PageRequest{Index: 0, Size: 20}, changes[1].Query.Page)
}

func TestSetPageSize_IgnoresNonPositive(t *testing.T) {
	c := New[row](ClientManaged[row]{Rows: makeRows(30)}, Config[row]{Columns: rowColumns()})
	defer c.Close()
	c.SetPage(2)
	c.SetPageSize(0)
	c.SetPageSize(-3)
	assert.Equal(t, PageRequest{Index: 2, Size: 10}, c.State().Page)
}

func TestClientManaged_WindowAndOutOfRange(t *testing.T) {
	c := New[row](ClientManaged[row]{Rows: makeRows(25)}, Config[row]{Columns: rowColumns()})
	defer c.Close()

	c.SetPage(2)
	rows := c.Rows()
	require.Len(t, rows, 5)
	assert.Equal(t, 21, rows[0].ID)
	assert.False(t, c.CanNext())
	assert.True(t, c.CanPrev())

	c.PrevPage()
	assert.Equal(t, 1, c.State().Page.Index)
	c.NextPage()
	c.NextPage()
	assert.Equal(t, 2, c.State().Page.Index)
}

func TestToggleSort_Cycle(t *testing.T) {
	rec := &recorder{}
	c := newServer(t, rec, time.Hour)

	c.ToggleSort("name")
	assert.Equal(t, SortSpec{Column: "name", Direction: Ascending}, c.State().Sort)
	c.ToggleSort("name")
	assert.Equal(t, SortSpec{Column: "name", Direction: Descending}, c.State().Sort)
	c.ToggleSort("name")
	assert.False(t, c.State().Sort.Active())

	changes, _ := rec.snapshot()
	require.Len(t, changes, 3)
	for _, ch := range changes {
		assert.Equal(t, ChangeSort, ch.Kind)
	}
	assert.False(t, changes[2].Query.Sort.Active(), "third toggle must send the cleared signal")
}

func TestToggleSort_OtherColumnReplaces(t *testing.T) {
	c := New[row](ClientManaged[row]{Rows: makeRows(3)}, Config[row]{Columns: rowColumns()})
	defer c.Close()

	c.ToggleSort("name")
	c.ToggleSort("name")
	c.ToggleSort("id")
	assert.Equal(t, SortSpec{Column: "id", Direction: Ascending}, c.State().Sort)
}

func TestToggleSort_IgnoresUnsortableColumns(t *testing.T) {
	c := New[row](ClientManaged[row]{Rows: makeRows(3)}, Config[row]{Columns: rowColumns()})
	defer c.Close()

	c.ToggleSort("note")
	c.ToggleSort("missing")
	assert.False(t, c.State().Sort.Active())
}

func TestClientManaged_SortIsStable(t *testing.T) {
	rows := []row{
		{ID: 1, Name: "b"},
		{ID: 2, Name: "a"},
		{ID: 3, Name: "b"},
		{ID: 4, Name: "a"},
	}
	c := New[row](ClientManaged[row]{Rows: rows}, Config[row]{Columns: rowColumns()})
	defer c.Close()

	c.ToggleSort("name")
	assert.Equal(t, []int{2, 4, 1, 3}, ids(c.Rows()))

	c.ToggleSort("name")
	assert.Equal(t, []int{1, 3, 2, 4}, ids(c.Rows()))

	c.ToggleSort("name")
	assert.Equal(t, []int{1, 2, 3, 4}, ids(c.Rows()), "clearing the sort restores the original order")
}

func TestClientManaged_AbsentValuesSortLast(t *testing.T) {
	rows := []row{
		{ID: 1, Score: nil},
		{ID: 2, Score: intp(5)},
		{ID: 3, Score: intp(1)},
		{ID: 4, Score: nil},
	}
	c := New[row](ClientManaged[row]{Rows: rows}, Config[row]{Columns: rowColumns()})
	defer c.Close()

	c.ToggleSort("score")
	assert.Equal(t, []int{3, 2, 1, 4}, ids(c.Rows()))
	c.ToggleSort("score")
	assert.Equal(t, []int{2, 3, 1, 4}, ids(c.Rows()))
}

func TestSearch_DebouncedAndCoalesced(t *testing.T) {
	const delay = 40 * time.Millisecond
	rec := &recorder{}
	c := newServer(t, rec, delay)

	var last time.Time
	for _, term := range []string{"g", "gr", "gre", "gree", "greet"} {
		last = time.Now()
		c.SetSearch(term)
		assert.Equal(t, term, c.State().RawSearch, "raw term echoes immediately")
		time.Sleep(delay / 4)
	}
	assert.Equal(t, "", c.State().Search, "settled term must not change while typing")

	require.Eventually(t, func() bool {
		changes, _ := rec.snapshot()
		return len(changes) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(2 * delay)
	changes, times := rec.snapshot()
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeSearch, changes[0].Kind)
	assert.Equal(t, "greet", changes[0].Query.Search)
	assert.Equal(t, 0, changes[0].Query.Page.Index)
	assert.GreaterOrEqual(t, times[0].Sub(last), delay)
}

func TestSearch_ClientManagedFilters(t *testing.T) {
	rows := []row{
		{ID: 1, Name: "Greeting"},
		{ID: 2, Name: "check_balance"},
		{ID: 3, Name: "GREET_back"},
	}
	done := make(chan Change, 1)
	c := New[row](ClientManaged[row]{Rows: rows, OnChange: func(ch Change) { done <- ch }}, Config[row]{
		Columns:     rowColumns(),
		SearchKey:   "name",
		SearchDelay: 10 * time.Millisecond,
	})
	defer c.Close()

	c.SetSearch("greet")
	select {
	case ch := <-done:
		assert.Equal(t, ChangeSearch, ch.Kind)
	case <-time.After(time.Second):
		t.Fatal("search never settled")
	}
	assert.Equal(t, []int{1, 3}, ids(c.Rows()))
	assert.Equal(t, 2, c.State().Total)
}

func TestClose_CancelsPendingSearch(t *testing.T) {
	rec := &recorder{}
	c := newServer(t, rec, 20*time.Millisecond)

	c.SetSearch("abc")
	c.Close()
	time.Sleep(60 * time.Millisecond)

	changes, _ := rec.snapshot()
	assert.Empty(t, changes)
}

func TestRestore_SettlesWithoutNotifying(t *testing.T) {
	rec := &recorder{}
	c := newServer(t, rec, 20*time.Millisecond)

	c.SetSearch("pending")
	c.Restore(Query{
		Page:   PageRequest{Index: 3, Size: 20},
		Sort:   SortSpec{Column: "name", Direction: Descending},
		Search: "hello",
	})
	time.Sleep(60 * time.Millisecond)

	st := c.State()
	assert.Equal(t, PageRequest{Index: 3, Size: 20}, st.Page)
	assert.Equal(t, "hello", st.Search)
	assert.Equal(t, "hello", st.RawSearch)
	changes, _ := rec.snapshot()
	assert.Empty(t, changes)

	c.SetSearch("again")
	require.Eventually(t, func() bool {
		changes, _ := rec.snapshot()
		return len(changes) == 1 && changes[0].Query.Search == "again"
	}, time.Second, 5*time.Millisecond)
}

func TestResolve_LatestWins(t *testing.T) {
	rec := &recorder{}
	c := newServer(t, rec, time.Hour)

	first := c.Begin()
	second := c.Begin()

	assert.False(t, c.Resolve(first, makeRows(3), 3, nil))
	assert.Equal(t, LoadLoading, c.State().Load)

	assert.True(t, c.Resolve(second, makeRows(2), 2, nil))
	assert.Equal(t, LoadLoaded, c.State().Load)
	assert.Len(t, c.Rows(), 2)
}

func TestResolve_FailedIsDistinctFromEmpty(t *testing.T) {
	rec := &recorder{}
	c := newServer(t, rec, time.Hour)

	tk := c.Begin()
	c.Resolve(tk, nil, 0, errors.New("connection refused"))
	st := c.State()
	assert.Equal(t, LoadFailed, st.Load)
	assert.EqualError(t, st.Err, "connection refused")
	assert.False(t, st.Empty())

	tk = c.Begin()
	c.Resolve(tk, nil, 0, nil)
	st = c.State()
	assert.Equal(t, LoadLoaded, st.Load)
	assert.True(t, st.Empty())
	assert.NoError(t, st.Err)
}

func TestResolve_ShrinkingTotalReclamps(t *testing.T) {
	rec := &recorder{}
	c := newServer(t, rec, time.Hour)

	c.Resolve(c.Begin(), makeRows(10), 95, nil)
	c.SetPage(9)
	c.Resolve(c.Begin(), nil, 30, nil)

	assert.Equal(t, 2, c.State().Page.Index)
	changes, _ := rec.snapshot()
	require.Len(t, changes, 2)
	assert.Equal(t, 2, changes[1].Query.Page.Index)
}

func TestResolve_IgnoredInClientMode(t *testing.T) {
	c := New[row](ClientManaged[row]{Rows: makeRows(4)}, Config[row]{Columns: rowColumns()})
	defer c.Close()
	assert.False(t, c.Resolve(c.Begin(), nil, 0, nil))
	assert.Len(t, c.Rows(), 4)
}

func ids(rows []row) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}
