package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"omnia/internal/domain"
	"omnia/internal/guard"
	"omnia/internal/logging"
	"omnia/internal/services"
)

const (
	// SessionCookie carries the session token of browser clients.
	SessionCookie = "omnia_session"

	sessionStoreKey = "sessionStore"
	sessionIDKey    = "sessionID"
	userIDKey       = "userID"
	userRoleKey     = "userRole"
)

// TokenResolver turns a session token into an identity.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (services.Identity, error)
}

// Session attaches a lazily resolved guard.Store to the request. The token
// is read from the Authorization header or, failing that, the session cookie.
// Invalid tokens resolve to an anonymous session; lookup failures fail
// closed and are logged by the store.
func Session(tokens TokenResolver, log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFrom(c)
		resolver := guard.ResolverFunc(func(ctx context.Context) (guard.Session, error) {
			if token == "" {
				return guard.Anonymous(), nil
			}
			id, err := tokens.ResolveToken(ctx, token)
			if domain.IsUnauthorized(err) {
				return guard.Anonymous(), nil
			}
			if err != nil {
				return guard.Anonymous(), err
			}
			c.Set(sessionIDKey, id.SessionID)
			return guard.Authenticated(id.User), nil
		})
		c.Set(sessionStoreKey, guard.NewStore(resolver, guard.WithLogger(log)))
		c.Next()
	}
}

// TokenFrom returns the bearer token or the session cookie value.
func TokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	if v, err := c.Cookie(SessionCookie); err == nil {
		return v
	}
	return ""
}

// SessionStore returns the store attached by Session. Without it every
// request is anonymous.
func SessionStore(c *gin.Context) guard.SessionSource {
	if v, ok := c.Get(sessionStoreKey); ok {
		if s, ok := v.(*guard.Store); ok {
			return s
		}
	}
	return anonymous{}
}

// CurrentSession resolves the session of the request.
func CurrentSession(c *gin.Context) guard.Session {
	return SessionStore(c).Session(c.Request.Context())
}

// CurrentUserID returns the user id set by RequireAccess.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

type anonymous struct{}

func (anonymous) Session(context.Context) guard.Session { return guard.Anonymous() }

// RequireAccess runs g for the route's access level. Browser navigations
// that are refused are redirected; API calls get a JSON error carrying the
// redirect target (401 for requiresAuth, 403 for requiresGuest).
func RequireAccess(g guard.Guard, access guard.Access) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := g.Evaluate(c.Request.Context(), SessionStore(c), guard.Navigation{
			Path:   c.Request.URL.RequestURI(),
			Access: access,
		})
		if d.Allow {
			if d.Session.Authenticated && d.Session.User != nil {
				c.Set(userIDKey, d.Session.User.ID)
				c.Set(userRoleKey, d.Session.User.Role)
			}
			c.Next()
			return
		}

		target := d.Redirect.URL()
		if WantsHTML(c) {
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}

		status, code, msg := http.StatusUnauthorized, "unauthorized", "sign in required"
		if access == guard.AccessRequiresGuest {
			status, code, msg = http.StatusForbidden, "already_signed_in", "already signed in"
		}
		c.AbortWithStatusJSON(status, gin.H{
			"error":      msg,
			"code":       code,
			"redirect":   target,
			"request_id": GetRequestID(c),
		})
	}
}

// WantsHTML reports whether the request is a browser page navigation.
func WantsHTML(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return false
	}
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}
