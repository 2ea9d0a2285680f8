package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"omnia/internal/datatable"
	"omnia/internal/domain"
	"omnia/internal/domain/models"
	"omnia/internal/guard"
	"omnia/internal/http/middleware"
	"omnia/internal/services"
	"omnia/internal/utils"
)

const intentsPath = "/nlp/intent"

// Pages serves the server-rendered dashboard. Templates come from the
// engine's HTMLRender.
type Pages struct {
	Intents      *services.IntentService
	Auth         *services.AuthService
	Guard        guard.Guard
	SecureCookie bool
}

type pageBase struct {
	Title string
	User  *models.PublicUser
}

func basePage(c *gin.Context, title string) pageBase {
	return pageBase{Title: title, User: middleware.CurrentSession(c).User}
}

type loginPage struct {
	pageBase
	Redirect    string
	Username    string
	Error       string
	FieldErrors domain.FieldErrors
}

// GET /login
func (h Pages) LoginForm(c *gin.Context) {
	c.HTML(http.StatusOK, "login", loginPage{
		pageBase: basePage(c, "Sign in"),
		Redirect: c.Query(guard.RedirectParam),
	})
}

// POST /login resumes the navigation that was sent to the login page.
func (h Pages) LoginSubmit(c *gin.Context) {
	var in models.SignInInput
	_ = c.ShouldBind(&in)
	page := loginPage{
		pageBase: basePage(c, "Sign in"),
		Redirect: c.PostForm(guard.RedirectParam),
		Username: in.Username,
	}

	res, err := h.Auth.SignIn(c.Request.Context(), in)
	if err != nil {
		status := http.StatusUnauthorized
		if fe, ok := domain.AsFieldErrors(err); ok {
			status, page.FieldErrors = http.StatusBadRequest, fe
		} else if domain.IsUnauthorized(err) {
			page.Error = err.Error()
		} else {
			_ = c.Error(err)
			status, page.Error = http.StatusInternalServerError, "sign in failed, try again"
		}
		c.HTML(status, "login", page)
		return
	}

	setSessionCookie(c, res.Token, res.ExpiresAt, h.SecureCookie)
	c.Redirect(http.StatusSeeOther, h.Guard.ResumePath(page.Redirect))
}

// POST /logout
func (h Pages) Logout(c *gin.Context) {
	if err := h.Auth.SignOut(c.Request.Context(), middleware.TokenFrom(c)); err != nil {
		_ = c.Error(err)
	}
	clearSessionCookie(c, h.SecureCookie)
	c.Redirect(http.StatusSeeOther, guard.DefaultLoginPath)
}

type dashboardPage struct {
	pageBase
	IntentTotal int
	Failed      bool
}

// GET /dashboard
func (h Pages) Dashboard(c *gin.Context) {
	q := datatable.DefaultQuery()
	q.Page.Size = 1
	page, err := h.Intents.List(c.Request.Context(), q)
	if err != nil {
		_ = c.Error(err)
	}
	c.HTML(http.StatusOK, "dashboard", dashboardPage{
		pageBase:    basePage(c, "Dashboard"),
		IntentTotal: page.Pagination.Total,
		Failed:      err != nil,
	})
}

type headerCell struct {
	Label     string
	SortURL   string
	Indicator string
}

type intentRow struct {
	ID    string
	Cells []string
}

type pageLink struct {
	Label   string
	URL     string
	Gap     bool
	Current bool
}

type sizeLink struct {
	Size    int
	URL     string
	Current bool
}

type intentsPage struct {
	pageBase
	Headers   []headerCell
	Rows      []intentRow
	Pages     []pageLink
	PageSizes []sizeLink
	PrevURL   string
	NextURL   string
	ExportURL string
	Search    string
	SortBy    string
	SortOrder string
	PageSize  int
	Page      int
	PageCount int
	Total     int
	Failed    bool
	Empty     bool
	CanDelete bool
}

func intentsURL(q datatable.Query) string {
	return intentsPath + "?" + q.Values().Encode()
}

// GET /nlp/intent renders one page of the intents table. The table runs a
// server-managed controller for the request: a page index beyond the last
// page is clamped and the browser is redirected to the canonical URL.
func (h Pages) IntentsPage(c *gin.Context) {
	var clamped *datatable.Query
	ctl := datatable.New[models.Intent](datatable.ServerManaged[models.Intent]{
		Notify: func(ch datatable.Change) {
			q := ch.Query
			clamped = &q
		},
	}, datatable.Config[models.Intent]{Columns: models.IntentColumns(), SearchKey: "name"})
	defer ctl.Close()

	ctl.Restore(intentQuery(c))
	t := ctl.Begin()
	res, err := h.Intents.List(c.Request.Context(), t.Query)
	if err != nil {
		_ = c.Error(err)
		ctl.Resolve(t, nil, 0, err)
	} else {
		ctl.Resolve(t, res.Data, res.Pagination.Total, nil)
	}
	if clamped != nil {
		c.Redirect(http.StatusFound, intentsURL(*clamped))
		return
	}

	st := ctl.State()
	q := st.Query()
	page := intentsPage{
		pageBase:  basePage(c, "Intents"),
		Search:    q.Search,
		PageSize:  q.Page.Size,
		Page:      q.Page.Index + 1,
		PageCount: st.PageCount,
		Total:     st.Total,
		Failed:    st.Load == datatable.LoadFailed,
		Empty:     st.Empty(),
		ExportURL: "/api/nlp/intents/export.pdf?" + q.Values().Encode(),
		CanDelete: isAdmin(c),
	}
	if q.Sort.Active() {
		page.SortBy, page.SortOrder = q.Sort.Column, string(q.Sort.Direction)
	}

	cols := ctl.Columns()
	for _, col := range cols {
		hc := headerCell{Label: col.Label}
		if col.Sortable {
			hc.SortURL = intentsURL(q.WithToggledSort(col.Key))
			if q.Sort.Column == col.Key {
				hc.Indicator = sortIndicator(q.Sort.Direction)
			}
		}
		page.Headers = append(page.Headers, hc)
	}
	for _, it := range ctl.Rows() {
		row := intentRow{ID: it.ID}
		for _, col := range cols {
			row.Cells = append(row.Cells, cellText(col.Value(it)))
		}
		page.Rows = append(page.Rows, row)
	}

	for _, l := range ctl.PageNumbers() {
		pl := pageLink{Label: l.String(), Gap: l.Gap, Current: l.Page == page.Page}
		if !l.Gap {
			pl.URL = intentsURL(q.WithPage(l.Page - 1))
		}
		page.Pages = append(page.Pages, pl)
	}
	for _, n := range datatable.PageSizes {
		page.PageSizes = append(page.PageSizes, sizeLink{
			Size:    n,
			URL:     intentsURL(q.WithPageSize(n)),
			Current: n == q.Page.Size,
		})
	}
	if ctl.CanPrev() {
		page.PrevURL = intentsURL(q.WithPage(q.Page.Index - 1))
	}
	if ctl.CanNext() {
		page.NextURL = intentsURL(q.WithPage(q.Page.Index + 1))
	}

	c.HTML(http.StatusOK, "intents", page)
}

func isAdmin(c *gin.Context) bool {
	u := middleware.CurrentSession(c).User
	return u != nil && u.Role == string(domain.RoleAdmin)
}

func sortIndicator(d datatable.Direction) string {
	if d == datatable.Descending {
		return "▼"
	}
	return "▲"
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		if x == "" {
			return "-"
		}
		return x
	case time.Time:
		return utils.FormatDateTime(x)
	default:
		return fmt.Sprint(x)
	}
}

type intentForm struct {
	Name        string
	Description string
	Questions   []string
	Responses   []string
}

type intentFormPage struct {
	pageBase
	Form        intentForm
	Error       string
	FieldErrors domain.FieldErrors
}

// GET /nlp/intent/new
func (h Pages) NewIntentForm(c *gin.Context) {
	c.HTML(http.StatusOK, "intent_form", intentFormPage{pageBase: basePage(c, "New intent")})
}

// POST /nlp/intent/new
func (h Pages) NewIntentSubmit(c *gin.Context) {
	in := models.IntentInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Questions:   utils.SplitLines(c.PostForm("questions")),
		Responses:   utils.SplitLines(c.PostForm("responses")),
	}
	_, err := h.Intents.Create(c.Request.Context(), in)
	if err == nil {
		sorted := datatable.DefaultQuery()
		sorted.Sort = datatable.SortSpec{Column: "createdAt", Direction: datatable.Descending}
		c.Redirect(http.StatusSeeOther, intentsURL(sorted))
		return
	}

	page := intentFormPage{
		pageBase: basePage(c, "New intent"),
		Form: intentForm{
			Name:        in.Name,
			Description: in.Description,
			Questions:   in.Questions,
			Responses:   in.Responses,
		},
	}
	status := http.StatusUnprocessableEntity
	switch fe, ok := domain.AsFieldErrors(err); {
	case ok:
		page.FieldErrors = fe
	case domain.IsConflict(err):
		page.FieldErrors = domain.FieldErrors{"name": "an intent with this name already exists"}
		status = http.StatusConflict
	default:
		_ = c.Error(err)
		page.Error = "could not save the intent"
		status = http.StatusInternalServerError
	}
	c.HTML(status, "intent_form", page)
}

// POST /nlp/intent/:id/delete
func (h Pages) DeleteIntent(c *gin.Context) {
	if err := h.Intents.Delete(c.Request.Context(), c.Param("id")); err != nil && !domain.IsNotFound(err) {
		_ = c.Error(err)
	}
	c.Redirect(http.StatusSeeOther, intentsPath)
}
