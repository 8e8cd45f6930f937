package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/clinicconsole/internal/config"
	"github.com/ehr/clinicconsole/internal/console"
	"github.com/ehr/clinicconsole/internal/domain/clinic"
	"github.com/ehr/clinicconsole/internal/domain/scheduling"
	"github.com/ehr/clinicconsole/internal/domain/staff"
	"github.com/ehr/clinicconsole/internal/platform/auth"
	"github.com/ehr/clinicconsole/internal/platform/db"
	"github.com/ehr/clinicconsole/internal/platform/middleware"
	"github.com/ehr/clinicconsole/internal/platform/notification"
	"github.com/ehr/clinicconsole/internal/platform/telemetry"
	"github.com/ehr/clinicconsole/internal/platform/websocket"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "console-server",
		Short:        "Clinic console API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic console API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Running migrations on schema: %s\n", schema)
				count, err := db.NewMigrator(pool, dir).Up(ctx, schema)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				statuses, err := db.NewMigrator(pool, dir).Status(ctx, schema)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Migration status for schema: %s\n", schema)
				fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				for _, s := range statuses {
					status, appliedAt := "pending", ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	}

	for _, c := range []*cobra.Command{upCmd, statusCmd} {
		c.Flags().String("schema", db.DefaultSchema, "Target schema for migrations")
		c.Flags().String("dir", "./migrations", "Path to migrations directory")
		cmd.AddCommand(c)
	}
	return cmd
}

func withPool(ctx context.Context, fn func(ctx context.Context, pool *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.UsesDatabase() {
		return errors.New("DATABASE_URL is required for migrations")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, pool)
}

// tokenCmd signs a bearer token for local testing against AUTH_MODE=jwt.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed console token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AuthSigningKey == "" {
				return errors.New("AUTH_SIGNING_KEY is required to sign tokens")
			}
			userID, _ := cmd.Flags().GetString("user")
			name, _ := cmd.Flags().GetString("name")
			roles, _ := cmd.Flags().GetStringSlice("role")
			clinicID, _ := cmd.Flags().GetString("clinic")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			u := auth.CurrentUser{ID: userID, Name: name, Roles: roles, ClinicID: clinicID}
			tok, err := auth.IssueToken(jwtConfig(cfg), u, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().String("user", "dev-user", "Subject of the token")
	cmd.Flags().String("name", "Dev User", "Display name")
	cmd.Flags().StringSlice("role", []string{auth.RoleClinicAdmin}, "Roles, repeatable")
	cmd.Flags().String("clinic", "dev-clinic", "Clinic the user works in")
	cmd.Flags().Duration("ttl", 12*time.Hour, "Token lifetime")
	return cmd
}

func jwtConfig(cfg *config.Config) auth.JWTConfig {
	return auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.AuthSigningKey),
		Skipper:    auth.AuthSkipper,
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// app is the wired server: the HTTP router plus the resources it owns.
type app struct {
	echo     *echo.Echo
	sessions *console.SessionStore
	closers  []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type repositories struct {
	clinics      clinic.Repository
	staff        staff.Repository
	appointments scheduling.Repository
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{}
	var checks []db.Check

	// Storage
	var pool *pgxpool.Pool
	repos := repositories{
		clinics:      clinic.NewMemoryRepo(),
		staff:        staff.NewMemoryRepo(),
		appointments: scheduling.NewMemoryRepo(),
	}
	if cfg.UsesDatabase() {
		var err error
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		checks = append(checks, db.PoolCheck(pool))
		repos = repositories{
			clinics:      clinic.NewRepo(pool),
			staff:        staff.NewRepo(pool),
			appointments: scheduling.NewRepo(pool),
		}
		logger.Info().Msg("connected to database")
	}

	// Toast store
	var toastStore notification.Store = notification.NewMemoryStore()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		a.closers = append(a.closers, func() { _ = client.Close() })
		checks = append(checks, db.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
		toastStore = notification.NewRedisStore(client, cfg.ToastTTL)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	center := notification.NewCenter(toastStore, logger)
	center.SetObserver(metrics)
	hub := websocket.NewHub()
	center.SetListener(hub)

	// Mail
	var mailer notification.EmailSender = notification.NewLogSender(logger)
	if cfg.SendGridAPIKey != "" {
		mailer = notification.NewSendGridSender(notification.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.MailFrom,
			FromName:  cfg.MailFromName,
		}, logger)
	}
	templates := notification.NewTemplateEngine()

	// Services
	clinicSvc := clinic.NewService(repos.clinics, logger)
	clinicSvc.SetMailer(mailer, templates)
	if pool != nil {
		clinicSvc.SetTxPool(pool)
	}
	staffSvc := staff.NewService(repos.staff, logger)
	staffSvc.SetMailer(mailer, templates)
	apptSvc := scheduling.NewService(repos.appointments, logger)

	deps := console.Deps{
		Clinics:      clinicSvc,
		Staff:        staffSvc,
		Appointments: apptSvc,
		Center:       center,
		Metrics:      metrics,
		Logger:       logger,
		ClinicName:   clinicNameResolver(clinicSvc),
	}
	a.sessions = console.NewSessionStore(deps, cfg.SessionTTL)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger, "/health", "/metrics"))
	e.Use(metrics.Middleware())
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader, console.SessionHeader, "X-Dev-Role", "X-Dev-Clinic"},
		ExposeHeaders: []string{middleware.RequestIDHeader, console.SessionHeader},
	}))
	e.Use(middleware.RequestTimeout(30*time.Second, "/api/v1/notifications/ws"))

	e.GET("/health", db.HealthHandler(checks...))
	e.GET("/metrics", telemetry.Handler(reg))

	var authMW echo.MiddlewareFunc
	switch cfg.ResolvedAuthMode() {
	case config.AuthModeDevelopment:
		authMW = auth.DevAuthMiddleware()
	default:
		authMW = auth.JWTMiddleware(jwtConfig(cfg))
	}
	e.Use(authMW)
	api := e.Group("/api/v1", middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	consoleHandler := console.NewHandler(a.sessions, deps)
	consoleHandler.RegisterRoutes(api)
	websocket.NewHandler(hub, center, consoleHandler.SessionID, cfg.CORSOrigins, logger).RegisterRoutes(api)
	clinic.NewHandler(clinicSvc).RegisterRoutes(api)
	scheduling.NewHandler(apptSvc).RegisterRoutes(api)

	a.echo = e
	return a, nil
}

// clinicNameResolver names a clinic by its registration, falling back to the
// id for clinics registered elsewhere.
func clinicNameResolver(svc *clinic.Service) func(string) string {
	return func(id string) string {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		rec, err := svc.Get(ctx, id)
		if err != nil || rec == nil || rec.Name == "" {
			return id
		}
		return rec.Name
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}
	for _, w := range cfg.Warnings() {
		logger.Warn().Msg(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start")
		return err
	}
	defer a.Close()

	go a.sessions.Run(ctx, cfg.SessionSweep)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("auth_mode", cfg.ResolvedAuthMode()).Msg("starting server")
		if err := a.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
