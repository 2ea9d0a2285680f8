package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnia/internal/datatable"
	"omnia/internal/domain"
	"omnia/internal/domain/models"
	"omnia/internal/guard"
	"omnia/internal/repositories"
	"omnia/internal/services"
)

type fakeAPI struct {
	mu       sync.Mutex
	repo     *repositories.MemoryIntentRepository
	password string
	user     models.PublicUser
	signedIn bool
	listErr  error
	queries  []datatable.Query
	signOuts int
}

func newFakeAPI(t *testing.T, intents int) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		repo:     repositories.NewMemoryIntentRepository(),
		password: "secret-pass",
		user:     models.PublicUser{ID: "u1", Name: "Alice", Username: "alice", Role: "admin"},
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= intents; i++ {
		it := models.Intent{
			ID:        fmt.Sprintf("id-%02d", i),
			Name:      fmt.Sprintf("Intent number %02d", i),
			Slug:      fmt.Sprintf("intent-number-%02d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, f.repo.Create(context.Background(), &it))
	}
	return f
}

func (f *fakeAPI) SignIn(_ context.Context, username, password string) (services.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if username == "" {
		return services.AuthResult{}, domain.FieldErrors{"username": "is required"}
	}
	if username != f.user.Username || password != f.password {
		return services.AuthResult{}, domain.UnauthorizedError{Msg: "invalid username or password"}
	}
	f.signedIn = true
	return services.AuthResult{Token: "tok", User: f.user}, nil
}

func (f *fakeAPI) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedIn = false
	f.signOuts++
	return nil
}

func (f *fakeAPI) Session(context.Context) (guard.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.signedIn {
		return guard.Anonymous(), nil
	}
	return guard.Authenticated(f.user), nil
}

func (f *fakeAPI) ListIntents(ctx context.Context, q datatable.Query) (domain.Page[models.Intent], error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	err := f.listErr
	f.mu.Unlock()
	if err != nil {
		return domain.Page[models.Intent]{}, err
	}
	rows, total, err := f.repo.List(ctx, q)
	if err != nil {
		return domain.Page[models.Intent]{}, err
	}
	return domain.NewPage(rows, q, total), nil
}

func (f *fakeAPI) CreateIntent(ctx context.Context, in models.IntentInput) (models.Intent, error) {
	if len(strings.TrimSpace(in.Name)) < 5 {
		return models.Intent{}, domain.FieldErrors{"name": "must have at least 5 characters"}
	}
	it := models.Intent{ID: "new", Name: in.Name, Slug: "new", Questions: in.Questions, CreatedAt: time.Now()}
	return it, f.repo.Create(ctx, &it)
}

func (f *fakeAPI) setListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

func (f *fakeAPI) lastQuery() (datatable.Query, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return datatable.Query{}, 0
	}
	return f.queries[len(f.queries)-1], len(f.queries)
}

func (f *fakeAPI) searchQueries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, q := range f.queries {
		if q.Search != "" {
			out = append(out, q.Search)
		}
	}
	return out
}

type memPersister struct {
	mu      sync.Mutex
	sess    guard.Session
	cleared bool
}

func (p *memPersister) Load() (guard.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sess, nil
}

func (p *memPersister) Save(s guard.Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sess = s
	return nil
}

func (p *memPersister) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sess, p.cleared = guard.Anonymous(), true
	return nil
}

func (p *memPersister) snapshot() guard.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sess
}

// driver runs an App the way tea.Program would: Update on one goroutine,
// commands on others.
type driver struct {
	t    *testing.T
	app  *App
	msgs chan tea.Msg
}

func newDriver(t *testing.T, api API, persist guard.Persister, start string) *driver {
	t.Helper()
	ctx := context.Background()
	store := guard.NewStore(guard.ResolverFunc(api.Session), guard.WithPersister(persist))
	require.NoError(t, store.Init(ctx))
	app := New(ctx, api, store, Options{Start: start, SearchDelay: 30 * time.Millisecond, PageSize: 10})
	d := &driver{t: t, app: app, msgs: make(chan tea.Msg, 512)}
	t.Cleanup(app.Close)
	d.exec(app.Init())
	return d
}

func (d *driver) exec(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() {
		msg := cmd()
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, c := range batch {
				d.exec(c)
			}
			return
		}
		if msg == nil {
			return
		}
		select {
		case d.msgs <- msg:
		default:
		}
	}()
}

func (d *driver) send(msg tea.Msg) {
	_, cmd := d.app.Update(msg)
	d.exec(cmd)
}

var specialKeys = map[string]tea.KeyType{
	"enter":  tea.KeyEnter,
	"esc":    tea.KeyEsc,
	"tab":    tea.KeyTab,
	"right":  tea.KeyRight,
	"left":   tea.KeyLeft,
	"ctrl+s": tea.KeyCtrlS,
}

func (d *driver) press(k string) {
	if t, ok := specialKeys[k]; ok {
		d.send(tea.KeyMsg{Type: t})
		return
	}
	d.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

func (d *driver) typeText(s string) {
	for _, r := range s {
		d.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func (d *driver) waitFor(what string, cond func() bool) {
	d.t.Helper()
	deadline := time.After(3 * time.Second)
	for !cond() {
		select {
		case msg := <-d.msgs:
			d.send(msg)
		case <-deadline:
			d.t.Fatalf("timed out waiting for %s; view:\n%s", what, d.app.View())
		}
	}
}

func (d *driver) waitPath(path string) {
	d.t.Helper()
	d.waitFor("path "+path, func() bool { return d.app.Path() == path && d.app.pending == "" })
}

func (d *driver) intents() *intentsScreen {
	d.t.Helper()
	s, ok := d.app.current.(*intentsScreen)
	require.True(d.t, ok, "current screen is %T", d.app.current)
	return s
}

func (d *driver) waitLoaded() {
	d.t.Helper()
	d.waitFor("intents loaded", func() bool {
		s, ok := d.app.current.(*intentsScreen)
		return ok && s.ctl.State().Load == datatable.LoadLoaded
	})
}

func TestAnonymousStartGoesToLoginWithHint(t *testing.T) {
	api := newFakeAPI(t, 0)
	persist := &memPersister{sess: guard.Authenticated(models.PublicUser{Username: "alice"})}
	d := newDriver(t, api, persist, pathDashboard)

	d.waitPath(pathLogin)
	login := d.app.current.(*loginScreen)
	assert.Equal(t, "alice", login.inputs[0].Value())
	assert.Equal(t, pathDashboard, login.redirect)
	assert.False(t, persist.snapshot().Authenticated)
}

func TestSignInResumesNavigation(t *testing.T) {
	api := newFakeAPI(t, 3)
	persist := &memPersister{}
	d := newDriver(t, api, persist, pathIntents)
	d.waitPath(pathLogin)

	d.typeText("alice")
	d.press("enter")
	d.typeText("wrong")
	d.press("enter")
	d.waitFor("sign-in error", func() bool {
		return strings.Contains(d.app.View(), "invalid username or password")
	})
	assert.Equal(t, pathLogin, d.app.Path())

	login := d.app.current.(*loginScreen)
	login.inputs[1].SetValue("secret-pass")
	d.press("enter")
	d.waitPath(pathIntents)
	assert.True(t, persist.snapshot().Authenticated)
	assert.Equal(t, "alice", persist.snapshot().User.Username)
}

func TestSignInFieldErrors(t *testing.T) {
	api := newFakeAPI(t, 0)
	d := newDriver(t, api, &memPersister{}, pathLogin)
	d.waitPath(pathLogin)

	d.press("tab")
	d.press("enter")
	d.waitFor("field error", func() bool { return strings.Contains(d.app.View(), "is required") })
}

func TestGuestOnlyLoginRedirectsSignedInUser(t *testing.T) {
	api := newFakeAPI(t, 0)
	api.signedIn = true
	d := newDriver(t, api, &memPersister{}, pathLogin)

	d.waitPath(pathDashboard)
	assert.Contains(t, d.app.View(), "Welcome, Alice")
}

func TestIntentsPagingSortAndSearch(t *testing.T) {
	api := newFakeAPI(t, 25)
	api.signedIn = true
	d := newDriver(t, api, &memPersister{}, pathDashboard)
	d.waitPath(pathDashboard)

	d.press("i")
	d.waitPath(pathIntents)
	d.waitLoaded()
	st := d.intents().ctl.State()
	assert.Equal(t, 25, st.Total)
	assert.Equal(t, 3, st.PageCount)
	assert.Len(t, d.intents().ctl.Rows(), 10)

	d.press("right")
	d.waitFor("page 2 fetch", func() bool {
		q, _ := api.lastQuery()
		return q.Page.Index == 1 && d.intents().ctl.State().Load == datatable.LoadLoaded
	})
	assert.Contains(t, d.app.View(), "Page 2 of 3")

	d.press("2")
	d.waitFor("sorted fetch", func() bool {
		q, _ := api.lastQuery()
		return q.Sort == datatable.SortSpec{Column: "name", Direction: datatable.Ascending} &&
			d.intents().ctl.State().Load == datatable.LoadLoaded
	})
	// Sorting keeps the current page.
	rows := d.intents().ctl.Rows()
	require.NotEmpty(t, rows)
	assert.Equal(t, "Intent number 11", rows[0].Name)

	d.press("/")
	d.typeText("number 1")
	d.waitFor("search fetch", func() bool {
		q, _ := api.lastQuery()
		return q.Search == "number 1" && d.intents().ctl.State().Load == datatable.LoadLoaded
	})
	assert.Equal(t, []string{"number 1"}, api.searchQueries())
	st = d.intents().ctl.State()
	assert.Equal(t, 10, st.Total)
	assert.Equal(t, 0, st.Page.Index)

	d.press("esc")
	d.press("+")
	d.waitFor("page size fetch", func() bool {
		q, _ := api.lastQuery()
		return q.Page.Size == 20
	})
}

func TestIntentsOpenFromURLClampsPage(t *testing.T) {
	api := newFakeAPI(t, 12)
	api.signedIn = true
	d := newDriver(t, api, &memPersister{}, pathIntents+"?page=9&limit=5")
	d.waitPath(pathIntents)

	d.waitFor("clamped refetch", func() bool {
		q, _ := api.lastQuery()
		return q.Page.Index == 2 && d.intents().ctl.State().Load == datatable.LoadLoaded
	})
	assert.Len(t, d.intents().ctl.Rows(), 2)
}

func TestIntentsFailedLoadIsNotEmpty(t *testing.T) {
	api := newFakeAPI(t, 5)
	api.signedIn = true
	api.setListErr(errors.New("server error (status 500)"))
	d := newDriver(t, api, &memPersister{}, pathIntents)
	d.waitPath(pathIntents)

	d.waitFor("failed state", func() bool { return d.intents().ctl.State().Load == datatable.LoadFailed })
	view := d.app.View()
	assert.Contains(t, view, "Could not load intents")
	assert.NotContains(t, view, "No results.")

	api.setListErr(nil)
	d.press("r")
	d.waitLoaded()
	assert.Equal(t, 5, d.intents().ctl.State().Total)
}

func TestIntentsUnauthorizedReturnsToLogin(t *testing.T) {
	api := newFakeAPI(t, 5)
	api.signedIn = true
	d := newDriver(t, api, &memPersister{}, pathIntents)
	d.waitPath(pathIntents)
	d.waitLoaded()

	api.mu.Lock()
	api.signedIn = false
	api.mu.Unlock()
	api.setListErr(domain.UnauthorizedError{Msg: "session expired"})
	d.press("r")

	d.waitPath(pathLogin)
	assert.True(t, strings.HasPrefix(d.app.current.(*loginScreen).redirect, pathIntents+"?"))
}

func TestSignOut(t *testing.T) {
	api := newFakeAPI(t, 0)
	api.signedIn = true
	persist := &memPersister{}
	d := newDriver(t, api, persist, pathDashboard)
	d.waitPath(pathDashboard)

	d.press("o")
	d.waitPath(pathLogin)
	assert.Equal(t, 1, api.signOuts)
	assert.True(t, persist.cleared)
}

func TestNewIntentForm(t *testing.T) {
	api := newFakeAPI(t, 0)
	api.signedIn = true
	d := newDriver(t, api, &memPersister{}, pathNewIntent)
	d.waitPath(pathNewIntent)

	d.typeText("Hey")
	d.press("ctrl+s")
	d.waitFor("name error", func() bool { return strings.Contains(d.app.View(), "must have at least 5 characters") })

	d.typeText(" there")
	d.press("tab")
	d.press("tab")
	d.typeText("hello")
	d.press("ctrl+s")
	d.waitPath(pathIntents)
	d.waitLoaded()

	q, _ := api.lastQuery()
	assert.Equal(t, datatable.SortSpec{Column: "createdAt", Direction: datatable.Descending}, q.Sort)
	rows := d.intents().ctl.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "Hey there", rows[0].Name)
	assert.Equal(t, []string{"hello"}, rows[0].Questions)
}

func TestStepPageSize(t *testing.T) {
	assert.Equal(t, 20, stepPageSize(10, 1))
	assert.Equal(t, 5, stepPageSize(10, -1))
	assert.Equal(t, 5, stepPageSize(5, -1))
	assert.Equal(t, 50, stepPageSize(50, 1))
	assert.Equal(t, datatable.DefaultPageSize, stepPageSize(7, 1))
}
