package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chrisdamba/excursiondesk/internal/auth"
	"github.com/chrisdamba/excursiondesk/internal/client"
	"github.com/chrisdamba/excursiondesk/internal/repository"
	"github.com/chrisdamba/excursiondesk/internal/sessionstore"
	"github.com/chrisdamba/excursiondesk/internal/validator"
	"github.com/chrisdamba/excursiondesk/pkg/config"
	"github.com/chrisdamba/excursiondesk/pkg/salesapi"
	"github.com/chrisdamba/excursiondesk/pkg/session"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

type App struct {
	config *config.Config
	out    io.Writer
	logger *slog.Logger

	session   *session.Session
	api       *salesapi.Client
	bookings  *client.BookingClient
	catalog   *client.CatalogClient
	guard     *auth.Guard
	validator *validator.CustomValidator

	db        *pgxpool.Pool
	snapshots *repository.SnapshotRepository
	redis     *redis.Client
	store     *sessionstore.RedisStore
}

func NewApp(cfg *config.Config, out io.Writer) *App {
	return &App{
		config: cfg,
		out:    out,
	}
}

func (a *App) Initialize(ctx context.Context) error {
	a.setupLogger()

	if err := a.setupSession(ctx); err != nil {
		return fmt.Errorf("session setup failed: %w", err)
	}

	if a.config.Database.Enabled {
		if err := a.setupDatabase(ctx); err != nil {
			return fmt.Errorf("database setup failed: %w", err)
		}
	}

	a.setupClients(ctx)
	return nil
}

func (a *App) setupLogger() {
	opts := &slog.HandlerOptions{Level: a.config.Log.SlogLevel()}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if a.config.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	a.logger = slog.New(handler)
}

func (a *App) setupSession(ctx context.Context) error {
	sess, err := session.New(a.config.SalesAPI.Backend)
	if err != nil {
		return err
	}
	a.session = sess

	if !a.config.Redis.Enabled() {
		return nil
	}
	a.redis = redis.NewClient(&redis.Options{
		Addr:     a.config.Redis.Addr,
		Password: a.config.Redis.Password,
		DB:       a.config.Redis.DB,
	})
	if err := a.redis.Ping(ctx).Err(); err != nil {
		a.logger.Warn("redis unavailable, session will not be kept", "addr", a.config.Redis.Addr, "error", err)
		a.redis.Close()
		a.redis = nil
		return nil
	}
	a.store = sessionstore.NewRedisStore(a.redis, a.config.Redis.Profile, a.config.Redis.SessionTTL)
	if err := a.session.Restore(ctx, a.store); err != nil {
		a.logger.Warn("could not restore session", "error", err)
	}
	return nil
}

func (a *App) setupDatabase(ctx context.Context) error {
	config, err := pgxpool.ParseConfig(a.config.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = pool
	a.snapshots = repository.NewSnapshotRepository(pool)
	return a.snapshots.EnsureSchema(ctx)
}

func (a *App) setupClients(ctx context.Context) {
	a.api = salesapi.NewClient(a.session,
		salesapi.WithBaseURL(a.config.SalesAPI.BaseURL()),
		salesapi.WithCSRFPath(a.config.SalesAPI.CSRFPath),
		salesapi.WithLogger(a.logger),
		salesapi.WithHTTPClient(&http.Client{Timeout: a.config.SalesAPI.Timeout}),
	)
	a.bookings = client.NewBookingClient(a.api)
	a.catalog = client.NewCatalogClient(a.api)
	a.guard = auth.NewGuard(a.api,
		auth.WithProbePath(a.config.SalesAPI.ProbePath),
		auth.WithLoginPath(a.config.SalesAPI.LoginPath),
		auth.WithLogger(a.logger),
	)
	a.validator = validator.NewCustomValidator()

	if a.session.CSRFToken() == "" {
		a.api.InitCSRF(ctx)
	}
}

// Run dispatches args to the matching subcommand.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.printUsage()
		return errUsage
	}
	cmd := a.lookup(args[0])
	if cmd == nil {
		a.printUsage()
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}

	flagSet := pflag.NewFlagSet(cmd.name, pflag.ContinueOnError)
	flagSet.SetOutput(a.out)
	if cmd.flags != nil {
		cmd.flags(flagSet)
	}
	if err := flagSet.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	if !cmd.public {
		if ok, redirect := a.guard.Require(ctx, "/"+cmd.name); !ok {
			fmt.Fprintf(a.out, "not signed in, continue at %s (run: desk login)\n", redirect)
			return errNotAuthenticated
		}
	}
	return cmd.run(ctx, flagSet.Args())
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if a.store != nil {
		if err := a.session.Persist(shutdownCtx, a.store); err != nil {
			a.logger.Warn("could not persist session", "error", err)
		}
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	return nil
}

func main() {
	var configPath string
	flagSet := pflag.NewFlagSet("desk", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&configPath, "config", "", "YAML config file (default: $DESK_CONFIG)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if configPath == "" {
		configPath = os.Getenv("DESK_CONFIG")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	app := NewApp(cfg, os.Stdout)
	if err := app.Initialize(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	runErr := app.Run(ctx, flagSet.Args())
	if err := app.Shutdown(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
	stop()
	os.Exit(exitCode(runErr))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	case errors.Is(err, errNotAuthenticated):
		return 3
	}
	fmt.Fprintf(os.Stderr, "error: %s\n", describe(err))
	return 1
}
