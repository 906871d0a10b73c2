// webhookd serves the billing webhook endpoint. Configuration comes from the
// environment (optionally seeded by a .env file); the account store runs on
// sqlite or postgres depending on DB_DRIVER.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	billingwebhooks "github.com/goliatone/go-billing-webhooks"
	"github.com/goliatone/go-billing-webhooks/billingapi"
	"github.com/goliatone/go-billing-webhooks/core"
	"github.com/goliatone/go-billing-webhooks/dispatch"
	"github.com/goliatone/go-billing-webhooks/engine"
	sqlstore "github.com/goliatone/go-billing-webhooks/store/sql"
	"github.com/goliatone/go-billing-webhooks/transport"
)

const defaultListenAddr = ":8080"

type persistenceConfig struct {
	driver string
	server string
	debug  bool
}

func (c persistenceConfig) GetDebug() bool {
	return c.debug
}

func (c persistenceConfig) GetDriver() string {
	return c.driver
}

func (c persistenceConfig) GetServer() string {
	return c.server
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	return 5 * time.Second
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return "billing-webhooks"
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "webhookd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	_, logger := glog.Resolve(cfg.ServiceName, nil, nil)

	client, err := openPersistence()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	client.RegisterSQLMigrations(billingwebhooks.GetMigrationsFS())
	if err := client.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	factory, err := sqlstore.NewRepositoryFactoryFromDB(client.DB())
	if err != nil {
		return err
	}

	apiClient, err := billingapi.New(billingapi.Config{
		BaseURL: envOrDefault("BILLING_API_URL", "https://api.stripe.com"),
		Secret:  os.Getenv("BILLING_API_SECRET"),
	})
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg,
		engine.WithAccountStore(factory.AccountStore()),
		engine.WithChargeAPI(apiClient),
		engine.WithClaimStore(dispatch.NewInMemoryClaimStore()),
		engine.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	handler := transport.NewHandler(eng, logger)
	server := &http.Server{
		Addr:              envOrDefault("LISTEN_ADDR", defaultListenAddr),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("webhookd listening",
			"addr", server.Addr,
			"event_types", strings.Join(eng.EventTypes(), ","),
		)
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			return shutdownErr
		}
		return <-errCh
	case serveErr := <-errCh:
		return serveErr
	}
}

func loadConfig(ctx context.Context) (core.Config, error) {
	raw := map[string]any{}
	if value := os.Getenv("SERVICE_NAME"); value != "" {
		raw["service_name"] = value
	}
	if value := os.Getenv("NAMESPACE_PREFIX"); value != "" {
		raw["namespace_prefix"] = value
	}
	signatureRaw := map[string]any{}
	if value := os.Getenv("WEBHOOK_SIGNING_SECRET"); value != "" {
		signatureRaw["secret"] = value
	}
	if value := os.Getenv("WEBHOOK_TOLERANCE_SECONDS"); value != "" {
		tolerance, err := strconv.Atoi(value)
		if err != nil {
			return core.Config{}, fmt.Errorf("parse WEBHOOK_TOLERANCE_SECONDS: %w", err)
		}
		signatureRaw["tolerance_seconds"] = tolerance
	}
	if len(signatureRaw) > 0 {
		raw["signature"] = signatureRaw
	}
	handlersRaw := map[string]any{}
	if value := os.Getenv("HANDLER_TIMEOUT_SECONDS"); value != "" {
		timeout, err := strconv.Atoi(value)
		if err != nil {
			return core.Config{}, fmt.Errorf("parse HANDLER_TIMEOUT_SECONDS: %w", err)
		}
		handlersRaw["timeout_seconds"] = timeout
	}
	if value := os.Getenv("PRODUCT_LABEL"); value != "" {
		handlersRaw["product_label"] = value
	}
	if len(handlersRaw) > 0 {
		raw["handlers"] = handlersRaw
	}

	provider := core.NewCfgxConfigProvider(core.NewStaticRawConfigLoader(raw))
	loaded, err := provider.Load(ctx, core.DefaultConfig())
	if err != nil {
		return core.Config{}, err
	}
	return core.GoOptionsResolver{}.Resolve(core.DefaultConfig(), loaded, core.Config{})
}

func openPersistence() (*persistence.Client, error) {
	driver := envOrDefault("DB_DRIVER", "sqlite3")
	server := envOrDefault("DB_DSN", "file:billing-webhooks.db?_foreign_keys=on")

	sqlDB, err := sql.Open(driver, server)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	var dialect schema.Dialect
	switch driver {
	case "postgres":
		dialect = pgdialect.New()
	default:
		dialect = sqlitedialect.New()
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(persistenceConfig{
		driver: driver,
		server: server,
		debug:  os.Getenv("DB_DEBUG") == "true",
	}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return client, nil
}

func envOrDefault(key string, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
