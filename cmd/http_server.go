package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/frahmantamala/mollie-checkout/internal"
	"github.com/frahmantamala/mollie-checkout/internal/auth"
	cartpkg "github.com/frahmantamala/mollie-checkout/internal/cart"
	cartpostgres "github.com/frahmantamala/mollie-checkout/internal/cart/postgres"
	"github.com/frahmantamala/mollie-checkout/internal/core/events"
	"github.com/frahmantamala/mollie-checkout/internal/metrics"
	orderpkg "github.com/frahmantamala/mollie-checkout/internal/order"
	orderpostgres "github.com/frahmantamala/mollie-checkout/internal/order/postgres"
	"github.com/frahmantamala/mollie-checkout/internal/payment"
	"github.com/frahmantamala/mollie-checkout/internal/paymentgateway"
	transactionpkg "github.com/frahmantamala/mollie-checkout/internal/transaction"
	transactiondynamodb "github.com/frahmantamala/mollie-checkout/internal/transaction/dynamodb"
	transactionpostgres "github.com/frahmantamala/mollie-checkout/internal/transaction/postgres"
	"github.com/frahmantamala/mollie-checkout/internal/tracing"
	"github.com/frahmantamala/mollie-checkout/internal/transport/rest"
	"github.com/frahmantamala/mollie-checkout/pkg/logger"
)

const webhookPath = "/api/v1/payments/%s/webhook"

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server serving payment intents and gateway webhooks`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config          *internal.Config
	DB              *sqlx.DB
	Gorm            *gorm.DB
	Logger          *slog.Logger
	Metrics         *metrics.Metrics
	Carts           cartpkg.RepositoryAPI
	Gateway         *paymentgateway.Client
	Adapter         *payment.Adapter
	Checks          map[string]rest.CheckFunc
	ShutdownTracing tracing.ShutdownFunc
}

// Close releases the database and flushes pending spans.
func (d *Dependencies) Close(ctx context.Context) {
	if err := d.ShutdownTracing(ctx); err != nil {
		d.Logger.Error("Tracing shutdown error", "error", err)
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func startHTTPServer() {
	deps, err := initializeDependencies(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	router, err := setupRoutes(deps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "driver", deps.Adapter.Driver())

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		deps.Close(ctx)
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) (*chi.Mux, error) {
	contract, err := payment.NewCreateIntentContract()
	if err != nil {
		return nil, fmt.Errorf("failed to compile intent contract: %w", err)
	}

	cfg := deps.Config
	issuer := cfg.Security.JWTIssuer
	tokens := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, issuer, 0)

	handlers := rest.Handlers{
		Health:  rest.NewHealthHandler(deps.Checks),
		Auth:    auth.NewHandler(tokens, deps.Logger),
		Payment: payment.NewHandler(deps.Adapter, deps.Carts, contract, deps.Logger),
	}
	if cfg.Observability.Metrics.Enabled {
		handlers.Metrics = deps.Metrics.Handler()
		handlers.MetricsPath = cfg.Observability.Metrics.Path
	}

	return rest.NewRouter(handlers, rest.Options{
		AllowedOrigins:   cfg.Server.Origins(),
		WebhookRateLimit: cfg.Server.WebhookRateLimit,
		WebhookBurst:     cfg.Server.WebhookBurst,
	}, deps.Logger), nil
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.LoggerWrapper()

	shutdownTracing, err := tracing.Setup(config.Observability.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	db, gormDB, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	checks := map[string]rest.CheckFunc{
		"database": db.PingContext,
	}

	transactions, err := initLedger(ctx, config.Ledger, gormDB, checks)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}

	m := metrics.New()

	gateway, err := paymentgateway.NewClient(paymentgateway.Config{
		APIKey:      config.Payment.SecretKey,
		TestMode:    config.Payment.TestMode,
		RedirectURL: config.Payment.RedirectURL,
		WebhookURL:  resolveWebhookURL(config),
		Timeout:     config.Payment.Timeout,
	}, log, m)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize payment gateway: %w", err)
	}

	bus := events.NewEventBus(log)
	payment.NewEventHandler(log, m).RegisterEventHandlers(bus)

	orders := orderpkg.NewService(orderpostgres.NewOrderRepository(gormDB), log)
	adapter := payment.NewAdapter(payment.AdapterConfig{
		Driver:   config.Payment.Driver,
		Currency: config.Payment.Currency,
	}, gateway, orders, transactions, bus, log, m)

	return &Dependencies{
		Config:          config,
		DB:              db,
		Gorm:            gormDB,
		Logger:          log,
		Metrics:         m,
		Carts:           cartpostgres.NewCartRepository(gormDB),
		Gateway:         gateway,
		Adapter:         adapter,
		Checks:          checks,
		ShutdownTracing: shutdownTracing,
	}, nil
}

// resolveWebhookURL falls back to the public base URL when no explicit webhook URL is configured.
func resolveWebhookURL(cfg *internal.Config) string {
	if cfg.Payment.WebhookURL != "" || cfg.Server.BaseURL == "" {
		return cfg.Payment.WebhookURL
	}
	return strings.TrimRight(cfg.Server.BaseURL, "/") + fmt.Sprintf(webhookPath, cfg.Payment.Driver)
}

func newGormConfig() *gorm.Config {
	return &gorm.Config{TranslateError: true}
}

// initDB opens the configured database once and shares the pool between sqlx and gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, *gorm.DB, error) {
	var (
		dbConn *sqlx.DB
		gormDB *gorm.DB
		err    error
	)

	switch cfg.Driver {
	case "sqlite":
		gormDB, err = gorm.Open(sqlite.Open(cfg.Source), newGormConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		sqlDB, err := gormDB.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to access sqlite pool: %w", err)
		}
		dbConn = sqlx.NewDb(sqlDB, "sqlite3")
	default:
		dbConn, err = sqlx.Connect("pgx", cfg.Source)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
		}
		gormDB, err = gorm.Open(postgres.New(postgres.Config{Conn: dbConn.DB}), newGormConfig())
		if err != nil {
			_ = dbConn.Close()
			return nil, nil, fmt.Errorf("failed to open gorm session: %w", err)
		}
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, gormDB, nil
}

// initLedger picks the transaction store and registers its health check.
func initLedger(ctx context.Context, cfg internal.LedgerConfig, gormDB *gorm.DB, checks map[string]rest.CheckFunc) (transactionpkg.RepositoryAPI, error) {
	if cfg.Driver != internal.LedgerDriverDynamoDB {
		return transactionpostgres.NewTransactionRepository(gormDB), nil
	}

	client, err := transactiondynamodb.NewClient(ctx, cfg.DynamoDB)
	if err != nil {
		return nil, err
	}
	table := cfg.DynamoDB.Table
	checks["ledger"] = func(ctx context.Context) error {
		_, err := client.DescribeTable(ctx, &awsdynamodb.DescribeTableInput{TableName: aws.String(table)})
		return err
	}
	return transactiondynamodb.NewTransactionRepository(client, table), nil
}
