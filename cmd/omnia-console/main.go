package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	intconfig "omnia/internal/config"
	"omnia/internal/console"
	"omnia/internal/guard"
	"omnia/internal/logging"
)

type options struct {
	server      string
	stateDir    string
	start       string
	logLevel    string
	timeout     time.Duration
	searchDelay time.Duration
	pageSize    int
}

func main() {
	_ = intconfig.LoadDotEnv(".env")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "omnia-console",
		Short:        "Terminal client for the omnia intent dashboard",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.server, "server", envOr("OMNIA_SERVER", "http://localhost:8080"), "omnia server base URL")
	f.StringVar(&opts.stateDir, "state-dir", defaultStateDir(), "directory for the session snapshot, token and log")
	f.StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	f.DurationVar(&opts.timeout, "timeout", 10*time.Second, "HTTP request timeout")
	cmd.Flags().StringVar(&opts.start, "open", "/dashboard", "screen to open first (e.g. /nlp/intent?page=2)")
	cmd.Flags().DurationVar(&opts.searchDelay, "search-delay", 0, "search debounce (default 500ms)")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 0, "rows per page (default 10)")

	cmd.AddCommand(newLogoutCmd(opts))
	return cmd
}

func newLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := setup(opts)
			if err != nil {
				return err
			}
			defer s.log.Sync()
			ctx := cmd.Context()
			if err := s.client.SignOut(ctx); err != nil {
				s.log.Warn(ctx, "server sign out failed", "error", err)
			}
			s.store.Clear(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

type session struct {
	log    *logging.ZapLogger
	client *console.Client
	store  *guard.Store
}

func setup(opts *options) (*session, error) {
	if err := os.MkdirAll(opts.stateDir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	log, err := logging.New(opts.logLevel, filepath.Join(opts.stateDir, "console.log"))
	if err != nil {
		return nil, err
	}
	client := console.NewClient(opts.server, opts.timeout, console.NewTokenFile(filepath.Join(opts.stateDir, "token")))
	store := guard.NewStore(
		guard.ResolverFunc(client.Session),
		guard.WithPersister(guard.NewFileSnapshot(filepath.Join(opts.stateDir, "session.json"))),
		guard.WithLogger(log),
	)
	return &session{log: log, client: client, store: store}, nil
}

func run(ctx context.Context, opts *options) error {
	s, err := setup(opts)
	if err != nil {
		return err
	}
	defer s.log.Sync()

	if err := s.store.Init(ctx); err != nil {
		s.log.Warn(ctx, "ignoring session snapshot", "error", err)
	}
	s.log.Info(ctx, "console started", "server", opts.server)

	app := console.New(ctx, s.client, s.store, console.Options{
		Start:       opts.start,
		SearchDelay: opts.searchDelay,
		PageSize:    opts.pageSize,
		Logger:      s.log,
	})
	defer app.Close()

	_, err = tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".omnia"
	}
	return filepath.Join(dir, "omnia")
}
