package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	intconfig "omnia/internal/config"
	intdb "omnia/internal/db"
	router "omnia/internal/http"
	"omnia/internal/http/middleware"
	"omnia/internal/logging"
	"omnia/internal/repositories"
	"omnia/internal/services"
)

const sessionPurgeInterval = time.Hour

func main() {
	if err := intconfig.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	env := intconfig.LoadEnv()

	log, err := logging.New(env.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, env, log); err != nil {
		log.Error(ctx, "server stopped with error", "error", err)
		os.Exit(1)
	}
}

type stores struct {
	db       *sql.DB
	intents  repositories.IntentRepository
	users    repositories.UserRepository
	sessions repositories.SessionRepository
}

func openStores(ctx context.Context, env intconfig.Env, log logging.Logger) (stores, error) {
	if env.StoreDriver == intconfig.DriverMemory {
		log.Warn(ctx, "using in-memory store; data is lost on restart")
		return stores{
			intents:  repositories.NewMemoryIntentRepository(),
			users:    repositories.NewMemoryUserRepository(),
			sessions: repositories.NewMemorySessionRepository(),
		}, nil
	}

	db, err := intconfig.OpenDB(ctx, env.DatabaseDSN)
	if err != nil {
		return stores{}, err
	}
	if err := intdb.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return stores{}, err
	}
	log.Info(ctx, "database ready")
	return stores{
		db:       db,
		intents:  &repositories.MySQLIntentRepository{DB: db},
		users:    &repositories.MySQLUserRepository{DB: db},
		sessions: &repositories.MySQLSessionRepository{DB: db},
	}, nil
}

func run(ctx context.Context, env intconfig.Env, log logging.Logger) error {
	if err := env.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	st, err := openStores(ctx, env, log)
	if err != nil {
		return err
	}
	if st.db != nil {
		defer st.db.Close()
	}

	auth := services.NewAuthService(st.users, st.sessions, env.JWTSecret, env.SessionTTL, log)
	if env.AdminPassword != "" {
		if err := auth.SeedAdmin(ctx, env.AdminUsername, env.AdminPassword); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r, err := router.NewRouter(router.Deps{
		Env:     env,
		Log:     log,
		DB:      st.db,
		Intents: services.NewIntentService(st.intents, log),
		Auth:    auth,
		Export:  services.NewExportService(st.intents, log),
		Metrics: middleware.NewMetrics(reg),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "server listening", "addr", env.AppAddr, "driver", env.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		purgeSessions(gctx, auth, log)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Info(context.Background(), "server stopped cleanly")
		return nil
	})
	return g.Wait()
}

// purgeSessions deletes expired sessions until ctx is done.
func purgeSessions(ctx context.Context, auth *services.AuthService, log logging.Logger) {
	t := time.NewTicker(sessionPurgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := auth.PurgeExpired(ctx)
			if err != nil {
				log.Warn(ctx, "session purge failed", "error", err)
				continue
			}
			if n > 0 {
				log.Info(ctx, "expired sessions purged", "count", n)
			}
		}
	}
}
