// Package console is a terminal client for omnia. Screens are reached by
// path and every navigation goes through the route guard, so the console
// follows the same access rules as the web dashboard.
package console

import (
	"context"
	"net/url"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"omnia/internal/datatable"
	"omnia/internal/domain/models"
	"omnia/internal/guard"
	"omnia/internal/logging"
)

const (
	pathLogin     = guard.DefaultLoginPath
	pathDashboard = guard.DefaultLandingPath
	pathIntents   = "/nlp/intent"
	pathNewIntent = "/nlp/intent/new"
)

var routes = map[string]guard.Access{
	pathLogin:     guard.AccessRequiresGuest,
	pathDashboard: guard.AccessRequiresAuth,
	pathIntents:   guard.AccessRequiresAuth,
	pathNewIntent: guard.AccessRequiresAuth,
}

// screen is one page of the console.
type screen interface {
	update(msg tea.Msg) tea.Cmd
	view() string
	close()
}

type navigateMsg struct{ target string }

type routedMsg struct {
	target   string
	decision guard.Decision
}

func navigate(target string) tea.Cmd {
	return func() tea.Msg { return navigateMsg{target: target} }
}

// deps are shared by all screens.
type deps struct {
	ctx         context.Context
	api         API
	store       *guard.Store
	guard       guard.Guard
	log         logging.Logger
	searchDelay time.Duration
	pageSize    int
}

// Options configure an App.
type Options struct {
	// Start is the first path visited. Defaults to the dashboard.
	Start string
	// SearchDelay overrides the search debounce.
	SearchDelay time.Duration
	PageSize    int
	Logger      logging.Logger
}

// App is the root bubbletea model.
type App struct {
	d       *deps
	start   string
	hint    string
	path    string
	pending string
	current screen
	user    string
	width   int
	height  int
}

// New builds the console. store should already be initialised so that the
// persisted identity can prefill the login screen.
func New(ctx context.Context, api API, store *guard.Store, opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	start := opts.Start
	if start == "" {
		start = pathDashboard
	}
	a := &App{
		d: &deps{
			ctx:         ctx,
			api:         api,
			store:       store,
			guard:       guard.New(),
			log:         log,
			searchDelay: opts.SearchDelay,
			pageSize:    opts.PageSize,
		},
		start: start,
	}
	if snap := store.Snapshot(); snap.User != nil {
		a.hint = snap.User.Username
	}
	return a
}

func (a *App) Init() tea.Cmd {
	return navigate(a.start)
}

// Path returns the path of the current screen.
func (a *App) Path() string { return a.path }

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, global.Quit) {
			a.Close()
			return a, tea.Quit
		}
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
	case quitMsg:
		a.Close()
		return a, tea.Quit
	case navigateMsg:
		return a, a.evaluate(msg.target)
	case routedMsg:
		if msg.target != a.pending {
			return a, nil
		}
		if !msg.decision.Allow {
			a.d.log.Debug(a.d.ctx, "navigation redirected", "from", msg.target, "to", msg.decision.Redirect.URL())
			return a, a.evaluate(msg.decision.Redirect.URL())
		}
		return a, a.enter(msg.target, msg.decision.Session)
	}

	if a.current == nil {
		return a, nil
	}
	return a, a.current.update(msg)
}

// evaluate runs the guard off the update loop; the first evaluation may
// resolve the session over the network.
func (a *App) evaluate(target string) tea.Cmd {
	a.pending = target
	path, _ := splitTarget(target)
	access, ok := routes[path]
	if !ok {
		a.d.log.Warn(a.d.ctx, "unknown console path", "path", path)
		target, access = pathDashboard, routes[pathDashboard]
		a.pending = target
	}
	d := a.d
	return func() tea.Msg {
		dec := d.guard.Evaluate(d.ctx, d.store, guard.Navigation{Path: target, Access: access})
		return routedMsg{target: target, decision: dec}
	}
}

func (a *App) enter(target string, sess guard.Session) tea.Cmd {
	path, query := splitTarget(target)
	if a.current != nil {
		a.current.close()
	}
	a.path = path
	a.pending = ""
	a.user = ""
	if sess.User != nil {
		a.user = sess.User.Username + " (" + sess.User.Role + ")"
	}
	a.d.log.Info(a.d.ctx, "screen opened", "path", path)

	var cmd tea.Cmd
	switch path {
	case pathLogin:
		a.current, cmd = newLoginScreen(a.d, a.hint, query.Get(guard.RedirectParam))
	case pathIntents:
		q := datatable.ParseQuery(query, models.IntentSortColumns...)
		if query.Get(datatable.ParamLimit) == "" && a.d.pageSize > 0 {
			q.Page.Size = a.d.pageSize
		}
		a.current, cmd = newIntentsScreen(a.d, q)
	case pathNewIntent:
		a.current, cmd = newIntentFormScreen(a.d)
	default:
		a.current, cmd = newDashboardScreen(a.d, sess)
	}
	return cmd
}

// Close releases the current screen.
func (a *App) Close() {
	if a.current != nil {
		a.current.close()
	}
}

func (a *App) View() string {
	header := titleStyle.Render("Omnia console")
	if a.user != "" {
		header = lipgloss.JoinHorizontal(lipgloss.Top, header, " ", userStyle.Render(a.user))
	}
	body := mutedStyle.Render("Checking session...")
	if a.current != nil && a.pending == "" {
		body = a.current.view()
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, "", body) + "\n"
}

type quitMsg struct{}

func quit() tea.Msg { return quitMsg{} }

// signOut ends the session and returns to the login screen.
func signOut(d *deps) tea.Cmd {
	return func() tea.Msg {
		if err := d.api.SignOut(d.ctx); err != nil {
			d.log.Warn(d.ctx, "sign out failed", "error", err)
		}
		d.store.Clear(d.ctx)
		return navigateMsg{target: pathLogin}
	}
}

func splitTarget(target string) (string, url.Values) {
	u, err := url.Parse(target)
	if err != nil {
		return target, url.Values{}
	}
	return u.Path, u.Query()
}
