/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the inventory ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env, config file and environment
  2. Apply command-line flag overrides
  3. Open the SQLite store (migrations run on open)
  4. Create the bootstrap admin when no admin exists
  5. Configure sessions (Redis or in-memory revocation)
  6. Start the HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to a TOML config file (default: ./config.toml if present)
  -port    HTTP server port (overrides app.port)
  -db      SQLite database path (overrides database.path)
           Use ":memory:" for an in-memory database
  -demo    Load a demo scenario on startup (corner-shop, oversold)

ENVIRONMENT:
  INVENTORY_* variables override the config file, for example
  INVENTORY_SESSION_SECRET, INVENTORY_REDIS_ADDR, INVENTORY_LOG_LEVEL.
  INVENTORY_DB_KEY is accepted as the session secret.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (http.shutdown_timeout)
  3. Close Redis and database connections
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys and defaults
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/warp/inventory-ledger/access"
	"github.com/warp/inventory-ledger/api"
	"github.com/warp/inventory-ledger/auth"
	"github.com/warp/inventory-ledger/config"
	"github.com/warp/inventory-ledger/demo"
	"github.com/warp/inventory-ledger/inventory"
	"github.com/warp/inventory-ledger/logger"
	"github.com/warp/inventory-ledger/store/sqlite"
)

func main() {
	os.Exit(start())
}

// start returns the process exit code. Deferred calls, including the
// logger flush, run before main exits.
func start() int {
	// Flags
	configPath := flag.String("config", "", "Path to a TOML config file")
	port := flag.Int("port", 0, "HTTP server port")
	dbPath := flag.String("db", "", "SQLite database path")
	scenario := flag.String("demo", "", "Demo scenario to load on startup")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	if *port != 0 {
		cfg.App.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	log, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	if err := run(cfg, *scenario, log); err != nil {
		log.Error("server failed", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg *config.Config, scenario string, log *zap.Logger) error {
	ctx := logger.WithContext(context.Background(), log)

	if cfg.UsesInsecureSecret() {
		log.Warn("using the development session secret; set INVENTORY_SESSION_SECRET")
	}

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path, log)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	users := inventory.NewUsers(store, auth.NewBcryptHasher(0))
	if _, err := users.EnsureAdmin(ctx, cfg.Admin.BootstrapPassword); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	// Session revocation: Redis when configured, otherwise process memory
	var revoked auth.RevocationList
	if cfg.Redis.Addr != "" {
		redisList, err := auth.NewRedisRevocationList(ctx, auth.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer redisList.Close()
		revoked = redisList
		log.Info("session revocation backed by Redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		memList := auth.NewMemoryRevocationList()
		sweeper := auth.NewSweeper(memList, cfg.Session.TTL, log)
		sweeper.Start()
		defer sweeper.Stop()
		revoked = memList
	}

	sessions := auth.NewSessions(auth.Config{
		Secret: cfg.Session.Secret,
		TTL:    cfg.Session.TTL,
		Issuer: cfg.Session.Issuer,
	}, revoked, users)

	svc := api.Services{
		Sales:     inventory.NewSales(store),
		Ledger:    inventory.NewLedger(store),
		Projector: inventory.NewProjector(store),
		Catalog:   inventory.NewCatalog(store),
		Users:     users,
		Sessions:  sessions,
		Health:    store,
	}

	if scenario != "" {
		if err := loadDemo(ctx, scenario, svc, users); err != nil {
			return err
		}
	}

	handler := api.NewHandler(svc, api.CookieOptions{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.CookieSecure,
	}, cfg.HTTP.MaxBodySize)
	router := api.NewRouter(handler, api.RouterOptions{
		Logger:         log,
		AllowedOrigins: cfg.HTTP.CORSAllowOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.Int("port", cfg.App.Port),
			zap.String("env", cfg.App.Env),
			zap.String("db", cfg.Database.Path))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// loadDemo seeds a scenario as the bootstrap admin.
func loadDemo(ctx context.Context, scenario string, svc api.Services, users *inventory.Users) error {
	var admin inventory.User
	all, err := users.List(access.WithActor(ctx, access.Actor{Role: access.RoleAdmin}))
	if err != nil {
		return err
	}
	for _, u := range all {
		if u.Role == access.RoleAdmin {
			admin = u
			break
		}
	}
	if admin.ID == 0 {
		return errors.New("demo data needs an admin account")
	}

	actorCtx := access.WithActor(ctx, access.Actor{UserID: int64(admin.ID), Username: admin.Username, Role: admin.Role})
	return demo.Load(actorCtx, scenario, demo.Services{
		Catalog: svc.Catalog,
		Ledger:  svc.Ledger,
		Sales:   svc.Sales,
	})
}
