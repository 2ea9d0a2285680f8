package console

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"omnia/internal/datatable"
	"omnia/internal/domain"
	"omnia/internal/domain/models"
	"omnia/internal/utils"
)

type intentsFetchedMsg struct {
	src    *signal
	ticket datatable.Ticket
	page   domain.Page[models.Intent]
	err    error
}

var intentColumnWidths = map[string]int{
	"id":          10,
	"name":        28,
	"description": 36,
	"questions":   10,
	"createdAt":   17,
	"updatedAt":   17,
}

// intentsScreen shows the intents table. Every change of page, sort or
// settled search reaches the screen through sig and triggers one fetch; a
// response to an older fetch is dropped by the controller.
type intentsScreen struct {
	d         *deps
	ctl       *datatable.Controller[models.Intent]
	sig       *signal
	search    textinput.Model
	searching bool
	table     table.Model
}

func newIntentsScreen(d *deps, q datatable.Query) (*intentsScreen, tea.Cmd) {
	sig := newSignal()
	ctl := datatable.New[models.Intent](
		datatable.ServerManaged[models.Intent]{Notify: sig.notify},
		datatable.Config[models.Intent]{
			Columns:     models.IntentColumns(),
			SearchKey:   "name",
			PageSize:    d.pageSize,
			SearchDelay: d.searchDelay,
		},
	)
	ctl.Restore(q)

	search := textinput.New()
	search.Placeholder = "Filter by name..."
	search.Prompt = "/ "
	search.CharLimit = 120
	search.SetValue(q.Search)

	s := &intentsScreen{
		d:      d,
		ctl:    ctl,
		sig:    sig,
		search: search,
		table:  table.New(table.WithFocused(true)),
	}
	s.sync()
	return s, tea.Batch(s.fetch(), sig.wait)
}

func (s *intentsScreen) fetch() tea.Cmd {
	t := s.ctl.Begin()
	d, src := s.d, s.sig
	return func() tea.Msg {
		page, err := d.api.ListIntents(d.ctx, t.Query)
		return intentsFetchedMsg{src: src, ticket: t, page: page, err: err}
	}
}

func (s *intentsScreen) update(msg tea.Msg) tea.Cmd {
	defer s.sync()

	switch msg := msg.(type) {
	case tableChangedMsg:
		if msg.src != s.sig {
			return nil
		}
		return tea.Batch(s.fetch(), s.sig.wait)

	case intentsFetchedMsg:
		if msg.src != s.sig {
			return nil
		}
		if !s.ctl.Resolve(msg.ticket, msg.page.Data, msg.page.Pagination.Total, msg.err) {
			return nil
		}
		if domain.IsUnauthorized(msg.err) {
			return s.reauthenticate()
		}
		if msg.err != nil {
			s.d.log.Warn(s.d.ctx, "intents fetch failed", "error", msg.err)
		}
		return nil

	case tea.KeyMsg:
		if s.searching {
			return s.updateSearch(msg)
		}
		return s.updateKeys(msg)
	}

	var cmd tea.Cmd
	s.table, cmd = s.table.Update(msg)
	return cmd
}

func (s *intentsScreen) updateSearch(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, intentKeyMap.Blur) {
		s.searching = false
		s.search.Blur()
		s.table.Focus()
		return nil
	}
	before := s.search.Value()
	var cmd tea.Cmd
	s.search, cmd = s.search.Update(msg)
	if v := s.search.Value(); v != before {
		s.ctl.SetSearch(strings.TrimSpace(v))
	}
	return cmd
}

func (s *intentsScreen) updateKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, intentKeyMap.Search):
		s.searching = true
		s.table.Blur()
		return s.search.Focus()
	case key.Matches(msg, intentKeyMap.Next):
		s.ctl.NextPage()
	case key.Matches(msg, intentKeyMap.Prev):
		s.ctl.PrevPage()
	case key.Matches(msg, intentKeyMap.First):
		s.ctl.SetPage(0)
	case key.Matches(msg, intentKeyMap.Last):
		s.ctl.SetPage(s.ctl.State().PageCount - 1)
	case key.Matches(msg, intentKeyMap.Sort):
		cols := s.ctl.Columns()
		if i := int(msg.Runes[0] - '1'); i >= 0 && i < len(cols) {
			s.ctl.ToggleSort(cols[i].Key)
		}
	case key.Matches(msg, intentKeyMap.Bigger):
		s.ctl.SetPageSize(stepPageSize(s.ctl.State().Page.Size, 1))
	case key.Matches(msg, intentKeyMap.Smaller):
		s.ctl.SetPageSize(stepPageSize(s.ctl.State().Page.Size, -1))
	case key.Matches(msg, intentKeyMap.Reload):
		return s.fetch()
	case key.Matches(msg, intentKeyMap.NewIntent):
		return navigate(pathNewIntent)
	case key.Matches(msg, intentKeyMap.Back):
		return navigate(pathDashboard)
	default:
		var cmd tea.Cmd
		s.table, cmd = s.table.Update(msg)
		return cmd
	}
	return nil
}

// reauthenticate re-resolves the session after the server rejected the
// token; the guard then sends the user to the login screen and back here.
func (s *intentsScreen) reauthenticate() tea.Cmd {
	d := s.d
	target := pathIntents + "?" + s.ctl.State().Query().Values().Encode()
	return func() tea.Msg {
		d.store.Refresh(d.ctx)
		return navigateMsg{target: target}
	}
}

// stepPageSize moves through the page-size menu.
func stepPageSize(cur, step int) int {
	i := slices.Index(datatable.PageSizes, cur)
	if i < 0 {
		return datatable.DefaultPageSize
	}
	i = min(max(i+step, 0), len(datatable.PageSizes)-1)
	return datatable.PageSizes[i]
}

// sync copies the controller state into the table widget.
func (s *intentsScreen) sync() {
	st := s.ctl.State()
	cols := s.ctl.Columns()

	tc := make([]table.Column, 0, len(cols))
	for i, c := range cols {
		title := fmt.Sprintf("%d %s", i+1, c.Label)
		if st.Sort.Active() && st.Sort.Column == c.Key {
			if st.Sort.Direction == datatable.Descending {
				title += " ▼"
			} else {
				title += " ▲"
			}
		}
		tc = append(tc, table.Column{Title: title, Width: intentColumnWidths[c.Key]})
	}

	rows := s.ctl.Rows()
	tr := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		row := make(table.Row, 0, len(cols))
		for _, c := range cols {
			row = append(row, cellText(c.Value(r)))
		}
		tr = append(tr, row)
	}

	s.table.SetRows(nil)
	s.table.SetColumns(tc)
	s.table.SetRows(tr)
	s.table.SetHeight(max(len(tr), 1) + 1)
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		if x == "" {
			return "-"
		}
		return utils.Truncate(x, 60)
	case time.Time:
		return utils.FormatDateTime(x)
	default:
		return fmt.Sprint(x)
	}
}

func (s *intentsScreen) view() string {
	st := s.ctl.State()
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Intents") + "\n")
	b.WriteString(s.search.View() + "\n\n")

	switch {
	case st.Load == datatable.LoadFailed:
		b.WriteString(errorStyle.Render("Could not load intents: "+st.Err.Error()) + "\n" +
			mutedStyle.Render("press r to retry") + "\n")
	case st.Load == datatable.LoadLoading && st.Total == 0:
		b.WriteString(mutedStyle.Render("Loading...") + "\n")
	case st.Empty():
		b.WriteString(mutedStyle.Render("No results.") + "\n")
	default:
		b.WriteString(s.table.View() + "\n")
		if st.Load == datatable.LoadLoading {
			b.WriteString(mutedStyle.Render("Loading...") + "\n")
		}
	}

	b.WriteString("\n" + s.pager(st) + "\n")
	if s.searching {
		b.WriteString(helpLine(intentKeyMap.Blur))
	} else {
		b.WriteString(helpLine(
			intentKeyMap.Search, intentKeyMap.Prev, intentKeyMap.Next, intentKeyMap.Sort,
			intentKeyMap.Bigger, intentKeyMap.Smaller, intentKeyMap.Reload, intentKeyMap.NewIntent, intentKeyMap.Back,
		))
	}
	return b.String()
}

func (s *intentsScreen) pager(st datatable.State) string {
	parts := make([]string, 0, 12)
	for _, l := range s.ctl.PageNumbers() {
		if !l.Gap && l.Page == st.Page.Index+1 {
			parts = append(parts, currentStyle.Render(l.String()))
			continue
		}
		parts = append(parts, l.String())
	}
	return fmt.Sprintf("Page %d of %d  %s   Rows per page: %d   Total: %d",
		st.Page.Index+1, max(st.PageCount, 1), strings.Join(parts, " "), st.Page.Size, st.Total)
}

func (s *intentsScreen) close() {
	s.ctl.Close()
	s.sig.close()
}
