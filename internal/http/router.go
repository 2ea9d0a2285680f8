package api

import (
	"context"
	"database/sql"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"

	intconfig "omnia/internal/config"
	"omnia/internal/domain"
	"omnia/internal/guard"
	h "omnia/internal/http/handlers"
	"omnia/internal/http/middleware"
	"omnia/internal/http/views"
	"omnia/internal/logging"
	"omnia/internal/services"
)

// Deps are the collaborators the router wires into handlers. DB is nil for
// the memory driver; Metrics is optional.
type Deps struct {
	Env     intconfig.Env
	Log     logging.Logger
	DB      *sql.DB
	Intents *services.IntentService
	Auth    *services.AuthService
	Export  *services.ExportService
	Metrics *middleware.Metrics
}

func NewRouter(d Deps) (*gin.Engine, error) {
	renderer, err := views.New()
	if err != nil {
		return nil, err
	}
	loginLimit, err := middleware.RateLimit(d.Env.LoginRateLimit, d.Log)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.HTMLRender = renderer
	r.Use(middleware.RequestID(), middleware.Logger(d.Log), gin.Recovery(), middleware.CORS(d.Env.CORSAllowedOrigins))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", d.Metrics.Handler())
	}
	r.Use(middleware.Session(d.Auth, d.Log))

	if err := r.SetTrustedProxies(nil); err != nil {
		d.Log.Warn(context.Background(), "failed to set trusted proxies", "error", err)
	}

	r.OPTIONS("/*path", func(c *gin.Context) { c.AbortWithStatus(stdhttp.StatusNoContent) })

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	g := guard.New()
	authOnly := middleware.RequireAccess(g, guard.AccessRequiresAuth)
	guestOnly := middleware.RequireAccess(g, guard.AccessRequiresGuest)
	adminOnly := middleware.RequireRoles(string(domain.RoleAdmin))
	secure := d.Env.GinMode == gin.ReleaseMode

	system := h.System{DB: d.DB, Driver: d.Env.StoreDriver}
	auth := h.Auth{Auth: d.Auth, SecureCookie: secure}
	intents := h.Intents{Intents: d.Intents, Export: d.Export}
	pages := h.Pages{Intents: d.Intents, Auth: d.Auth, Guard: g, SecureCookie: secure}

	api := r.Group("/api")
	{
		api.GET("/health", system.Health)
		api.GET("/db-check", system.DBCheck)
		api.GET("/routes", h.Routes)

		// Auth
		a := api.Group("/auth")
		a.POST("/sign-in", loginLimit, auth.SignIn)
		a.POST("/register", loginLimit, auth.Register)
		a.POST("/sign-out", auth.SignOut)
		a.GET("/session", auth.Session)

		// Intents
		in := api.Group("/nlp/intents", authOnly)
		in.GET("", intents.List)
		in.GET("/export.pdf", intents.ExportPDF)
		in.GET("/:id", intents.Get)
		in.POST("", intents.Create)
		in.PUT("/:id", intents.Update)
		in.DELETE("/:id", adminOnly, intents.Delete)
	}

	// Pages
	r.GET("/", func(c *gin.Context) { c.Redirect(stdhttp.StatusFound, guard.DefaultLandingPath) })
	r.GET("/login", guestOnly, pages.LoginForm)
	r.POST("/login", guestOnly, loginLimit, pages.LoginSubmit)
	r.POST("/logout", pages.Logout)
	r.GET("/dashboard", authOnly, pages.Dashboard)
	r.GET("/nlp/intent", authOnly, pages.IntentsPage)
	r.GET("/nlp/intent/new", authOnly, pages.NewIntentForm)
	r.POST("/nlp/intent/new", authOnly, pages.NewIntentSubmit)
	r.POST("/nlp/intent/:id/delete", authOnly, adminOnly, pages.DeleteIntent)

	h.SetRouter(r)
	return r, nil
}
