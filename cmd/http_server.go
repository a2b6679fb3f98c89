package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/paras-verma7454/DriveDeck/internal"
	"github.com/paras-verma7454/DriveDeck/internal/auth"
	authPostgres "github.com/paras-verma7454/DriveDeck/internal/auth/postgres"
	"github.com/paras-verma7454/DriveDeck/internal/core/events"
	"github.com/paras-verma7454/DriveDeck/internal/observability"
	"github.com/paras-verma7454/DriveDeck/internal/rbac"
	rbacPostgres "github.com/paras-verma7454/DriveDeck/internal/rbac/postgres"
	"github.com/paras-verma7454/DriveDeck/internal/transport"
	"github.com/paras-verma7454/DriveDeck/internal/transport/rest"
	"github.com/paras-verma7454/DriveDeck/internal/user"
	userPostgres "github.com/paras-verma7454/DriveDeck/internal/user/postgres"
	"github.com/paras-verma7454/DriveDeck/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Redis  *redis.Client
	Router *chi.Mux
	Logger *slog.Logger
}

func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("redis close error", "error", err)
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Error("database close error", "error", err)
		}
	}
}

func startHTTPServer() error {
	deps, err := initializeDependencies()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	cfg := deps.Config.Server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           deps.Router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		deps.Logger.Info("starting HTTP server", "address", server.Addr, "env", cfg.Env)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	deps.Logger.Info("server stopped")
	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps := &Dependencies{Config: config, DB: db, Logger: lg}

	deps.Gorm, err = initGorm(db)
	if err != nil {
		deps.Close()
		return nil, err
	}

	if config.Cache.Driver == internal.CacheDriverRedis {
		deps.Redis = redis.NewClient(&redis.Options{Addr: config.Cache.RedisAddr})
	}
	cache, err := auth.NewEntitlementCache(config.Cache, deps.Redis)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to build entitlement cache: %w", err)
	}

	var metrics *observability.Metrics
	if config.Observability.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}

	bus := events.NewEventBus(lg)

	tokens := auth.NewJWTTokenGenerator(config.Security)
	authService := auth.NewService(authPostgres.NewRepository(deps.Gorm), tokens, cache, metrics, config.Security.BCryptCost)
	authService.RegisterEventHandlers(bus)

	base := transport.NewBaseHandler(lg)
	rbacService := rbac.NewService(rbacPostgres.NewRepository(deps.Gorm), bus, lg)
	userService := user.NewService(userPostgres.NewUserRepository(deps.Gorm), bus, lg)

	deps.Router = rest.NewRouter(rest.Handlers{
		Config:  config,
		Health:  rest.NewHealthHandler(base, db, deps.Redis),
		Auth:    auth.NewHandler(authService),
		Gate:    auth.NewRBACAuthorization(metrics, lg),
		Users:   user.NewHandler(base, userService),
		RBAC:    rbac.NewHandler(base, rbacService),
		Metrics: metrics,
	})

	lg.Info("dependencies ready", "cache_driver", config.Cache.Driver, "metrics", metrics != nil)
	return deps, nil
}

// initDB opens the pgx pool every other component shares.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	db, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

// initGorm wraps the existing pool instead of opening a second one.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}
	return gdb, nil
}
