package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	log "github.com/sirupsen/logrus"

	authhttp "github.com/open-rails/linkconfirm/adapters/http"
	"github.com/open-rails/linkconfirm/core"
	"github.com/open-rails/linkconfirm/gotrue"
	pgmigrations "github.com/open-rails/linkconfirm/migrations/postgres"
	"github.com/open-rails/linkconfirm/riverjobs"
	pgstore "github.com/open-rails/linkconfirm/storage/postgres"
)

type config struct {
	ListenAddr string

	ProviderURL     string
	ProviderKey     string
	ProviderTimeout time.Duration
	JWTSecret       string
	JWKSURL         string

	LoginURL       string
	RedirectDelay  time.Duration
	TrustedProxies []string

	RedisURL string

	DBURL          string
	MigrateOnStart bool
	RetentionDays  int
	PurgeCron      string
}

func main() {
	setupLogging()
	cfg := loadConfig()

	cmd := "serve"
	if len(os.Args) > 1 && strings.TrimSpace(os.Args[1]) != "" {
		cmd = strings.TrimSpace(os.Args[1])
	}

	switch cmd {
	case "serve":
		if err := runServe(cfg); err != nil {
			fatal(err)
		}
	case "migrate":
		if cfg.DBURL == "" {
			fatal(fmt.Errorf("DB_URL (or DATABASE_URL) is required for migrate"))
		}
		if err := runMigrations(context.Background(), cfg.DBURL); err != nil {
			fatal(err)
		}
	default:
		fatal(fmt.Errorf("unknown command %q (supported: serve, migrate)", cmd))
	}
}

func setupLogging() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
	if lvl, err := log.ParseLevel(envOr("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(lvl)
	}
}

// loadConfig never fails on missing provider settings: the service then answers
// every link with the configuration error page.
func loadConfig() *config {
	providerURL := strings.TrimRight(firstEnv("GOTRUE_URL"), "/")
	if providerURL == "" {
		if base := strings.TrimRight(firstEnv("SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL"), "/"); base != "" {
			providerURL = base + "/auth/v1"
		}
	}
	return &config{
		ListenAddr:      envOr("LINKCONFIRM_LISTEN_ADDR", ":8080"),
		ProviderURL:     providerURL,
		ProviderKey:     firstEnv("GOTRUE_ANON_KEY", "SUPABASE_ANON_KEY", "NEXT_PUBLIC_SUPABASE_ANON_KEY"),
		ProviderTimeout: envDuration("LINKCONFIRM_PROVIDER_TIMEOUT", 10*time.Second),
		JWTSecret:       firstEnv("GOTRUE_JWT_SECRET", "SUPABASE_JWT_SECRET"),
		JWKSURL:         firstEnv("GOTRUE_JWKS_URL"),
		LoginURL:        envOr("LINKCONFIRM_LOGIN_URL", "/login"),
		RedirectDelay:   envDuration("LINKCONFIRM_REDIRECT_DELAY", 3*time.Second),
		TrustedProxies:  parseCSVEnv("LINKCONFIRM_TRUSTED_PROXIES", nil),
		RedisURL:        firstEnv("REDIS_URL"),
		DBURL:           firstEnv("DB_URL", "DATABASE_URL"),
		MigrateOnStart:  envBool("LINKCONFIRM_MIGRATE_ON_START", true),
		RetentionDays:   envInt("LINKCONFIRM_AUDIT_RETENTION_DAYS", 90),
		PurgeCron:       envOr("LINKCONFIRM_PURGE_CRON", "30 3 * * *"),
	}
}

func newProviderClient(cfg *config) *gotrue.Client {
	return gotrue.NewClient(cfg.ProviderURL, cfg.ProviderKey).WithTimeout(cfg.ProviderTimeout)
}

func runServe(cfg *config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coreSvc := core.NewService(core.Config{
		ProviderURL:   cfg.ProviderURL,
		ProviderKey:   cfg.ProviderKey,
		LoginURL:      cfg.LoginURL,
		RedirectDelay: cfg.RedirectDelay,
	}, newProviderClient(cfg))
	if err := coreSvc.ConfigErr(); err != nil {
		// Names only; values never reach the log.
		log.WithError(err).Error("linkconfirm: provider configuration incomplete, serving configuration error page")
	}

	verifier := gotrue.NewVerifier(gotrue.VerifierConfig{
		JWTSecret: cfg.JWTSecret,
		JWKSURL:   cfg.JWKSURL,
		Issuer:    cfg.ProviderURL,
	})
	defer verifier.Close()
	if verifier.Enabled() {
		coreSvc.WithTokenVerifier(verifier)
	}

	svc := authhttp.NewService(coreSvc)

	if len(cfg.TrustedProxies) > 0 {
		prefixes, err := authhttp.ParseTrustedProxies(cfg.TrustedProxies)
		if err != nil {
			return err
		}
		svc.WithClientIPFunc(authhttp.ClientIPFromForwardedHeaders(prefixes))
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rd := redis.NewClient(opts)
		defer rd.Close()
		if err := rd.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		svc.WithRedis(rd)
	}

	if cfg.DBURL != "" {
		if cfg.MigrateOnStart {
			if err := runMigrations(ctx, cfg.DBURL); err != nil {
				return err
			}
		}
		pg, err := pgxpool.New(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()

		events := pgstore.NewEventStore(pg)
		svc.WithEventLogger(events)

		rc, err := startRiver(ctx, pg, events, cfg)
		if err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := rc.Stop(stopCtx); err != nil {
				log.WithError(err).Warn("linkconfirm: river stop")
			}
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/", svc.Handler())

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("linkconfirm: listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func startRiver(ctx context.Context, pg *pgxpool.Pool, events *pgstore.EventStore, cfg *config) (*river.Client[pgx.Tx], error) {
	workers := river.NewWorkers()
	riverjobs.RegisterPurgeConfirmationEventsWorker(workers, events)

	rc, err := river.NewClient(riverpgxv5.New(pg), &river.Config{
		Queues:  map[string]river.QueueConfig{river.QueueDefault: {MaxWorkers: 2}},
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("river client: %w", err)
	}
	args := riverjobs.PurgeConfirmationEventsArgs{RetentionDays: cfg.RetentionDays}
	if err := riverjobs.AddPurgeConfirmationEventsPeriodicJob(rc, cfg.PurgeCron, args, false); err != nil {
		return nil, err
	}
	if err := rc.Start(ctx); err != nil {
		return nil, fmt.Errorf("river start: %w", err)
	}
	return rc, nil
}

func runMigrations(ctx context.Context, dbURL string) error {
	sqlDB, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("open sql db: %w", err)
	}
	defer sqlDB.Close()

	files, err := fs.Glob(pgmigrations.FS, "sql/*.up.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no postgres migrations found")
	}
	slices.Sort(files)

	for _, name := range files {
		sqlBytes, err := pgmigrations.FS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(sqlBytes)) == "" {
			continue
		}
		if _, err := sqlDB.ExecContext(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}

	pg, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()
	migrator, err := rivermigrate.New(riverpgxv5.New(pg), nil)
	if err != nil {
		return fmt.Errorf("river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("river migrate: %w", err)
	}
	return nil
}

func parseCSVEnv(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func fatal(err error) {
	if err == nil {
		os.Exit(0)
	}
	if errors.Is(err, http.ErrServerClosed) {
		os.Exit(0)
	}
	log.WithError(err).Error("linkconfirm: exiting")
	os.Exit(1)
}
