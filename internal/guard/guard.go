package guard

import (
	"context"
	"net/url"
	"strings"
)

const (
	DefaultLoginPath   = "/login"
	DefaultLandingPath = "/dashboard"
	RedirectParam      = "redirect"
)

// Navigation is an attempt to reach Path, which declares Access.
type Navigation struct {
	Path   string
	Access Access
}

// Redirect sends the navigation elsewhere.
type Redirect struct {
	Path  string
	Query url.Values
}

// URL renders the redirect target.
func (r Redirect) URL() string {
	if len(r.Query) == 0 {
		return r.Path
	}
	return r.Path + "?" + r.Query.Encode()
}

// Decision is the outcome of Evaluate. Exactly one of Allow or Redirect is
// set. Session is the session the decision was based on.
type Decision struct {
	Allow    bool
	Redirect *Redirect
	Session  Session
}

// SessionSource is what the guard reads the session from; *Store is one.
type SessionSource interface {
	Session(ctx context.Context) Session
}

// Guard holds the destinations used for redirects.
type Guard struct {
	LoginPath   string
	LandingPath string
}

func New() Guard {
	return Guard{LoginPath: DefaultLoginPath, LandingPath: DefaultLandingPath}
}

// Evaluate decides nav against the session of src:
//
//   - requiresAuth without a session goes to the login page, remembering
//     nav.Path in the redirect parameter;
//   - requiresGuest with a session goes to the landing page;
//   - everything else is allowed.
func (g Guard) Evaluate(ctx context.Context, src SessionSource, nav Navigation) Decision {
	sess := src.Session(ctx)

	switch {
	case nav.Access == AccessRequiresAuth && !sess.Authenticated:
		q := url.Values{}
		if nav.Path != "" {
			q.Set(RedirectParam, nav.Path)
		}
		return Decision{Redirect: &Redirect{Path: g.loginPath(), Query: q}, Session: sess}
	case nav.Access == AccessRequiresGuest && sess.Authenticated:
		return Decision{Redirect: &Redirect{Path: g.landingPath()}, Session: sess}
	default:
		return Decision{Allow: true, Session: sess}
	}
}

// ResumePath returns where to go after sign-in: target when it is a local
// path, the landing page otherwise.
func (g Guard) ResumePath(target string) string {
	if !isLocalPath(target) || strings.HasPrefix(target, g.loginPath()) {
		return g.landingPath()
	}
	return target
}

func (g Guard) loginPath() string {
	if g.LoginPath == "" {
		return DefaultLoginPath
	}
	return g.LoginPath
}

func (g Guard) landingPath() string {
	if g.LandingPath == "" {
		return DefaultLandingPath
	}
	return g.LandingPath
}

func isLocalPath(p string) bool {
	if p == "" || p[0] != '/' || strings.HasPrefix(p, "//") || strings.Contains(p, `\`) {
		return false
	}
	u, err := url.Parse(p)
	return err == nil && u.Scheme == "" && u.Host == ""
}
