package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"omnia/internal/domain/models"
	"omnia/internal/http/middleware"
	"omnia/internal/services"
)

// Auth serves the /api/auth endpoints. Browser clients get the token in an
// HttpOnly cookie as well as in the body.
type Auth struct {
	Auth         *services.AuthService
	SecureCookie bool
}

// POST /api/auth/sign-in
func (h Auth) SignIn(c *gin.Context) {
	var in models.SignInInput
	if !BindJSONOrError(c, &in) {
		return
	}
	res, err := h.Auth.SignIn(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	setSessionCookie(c, res.Token, res.ExpiresAt, h.SecureCookie)
	c.JSON(http.StatusOK, res)
}

// POST /api/auth/sign-out
func (h Auth) SignOut(c *gin.Context) {
	if err := h.Auth.SignOut(c.Request.Context(), middleware.TokenFrom(c)); err != nil {
		RespondDomainError(c, err)
		return
	}
	clearSessionCookie(c, h.SecureCookie)
	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

// GET /api/auth/session
func (h Auth) Session(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentSession(c))
}

// POST /api/auth/register
func (h Auth) Register(c *gin.Context) {
	var in models.RegisterInput
	if !BindJSONOrError(c, &in) {
		return
	}
	u, err := h.Auth.Register(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "registered", "user": u})
}

func setSessionCookie(c *gin.Context, token string, expires time.Time, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(c *gin.Context, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
