package handlers

import (
	"database/sql"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	intdb "omnia/internal/db"
)

var (
	routerMu sync.RWMutex
	router   *gin.Engine
)

// SetRouter stores the active gin engine for later inspection (e.g., /api/routes).
func SetRouter(r *gin.Engine) {
	routerMu.Lock()
	defer routerMu.Unlock()
	router = r
}

// System serves the operational endpoints. DB is nil for the memory driver.
type System struct {
	DB     *sql.DB
	Driver string
}

func (s System) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "omnia is running", "driver": s.Driver})
}

// DBCheck pings the database and reports missing tables.
func (s System) DBCheck(c *gin.Context) {
	if s.DB == nil {
		c.JSON(http.StatusOK, gin.H{"message": "no database configured", "driver": s.Driver})
		return
	}
	ctx := c.Request.Context()
	if err := s.DB.PingContext(ctx); err != nil {
		RespondError(c, http.StatusServiceUnavailable, "database unreachable", err)
		return
	}
	missing, err := intdb.MissingTables(ctx, s.DB)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "schema check failed", err)
		return
	}
	if len(missing) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "schema incomplete", "missing_tables": missing})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "database OK", "tables": intdb.RequiredTables})
}

func Routes(c *gin.Context) {
	routerMu.RLock()
	r := router
	routerMu.RUnlock()
	if r == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "router not ready"})
		return
	}

	routes := r.Routes()
	out := make([]gin.H, 0, len(routes))
	for _, rt := range routes {
		out = append(out, gin.H{
			"method":  rt.Method,
			"path":    rt.Path,
			"handler": rt.Handler,
		})
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}
