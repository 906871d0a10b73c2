package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	billingwebhooks "github.com/goliatone/go-billing-webhooks"
	"github.com/goliatone/go-billing-webhooks/core"
	sqlstore "github.com/goliatone/go-billing-webhooks/store/sql"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "billing-webhooks-tests"
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"accounts",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "accounts" {
		t.Fatalf("expected accounts table, got %q", tableName)
	}
}

func TestAccountStore_UpsertAndFindByCustomerID(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromDB(client.DB())
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.AccountStore()
	if store == nil {
		t.Fatalf("expected account store from factory")
	}

	created, err := store.Upsert(ctx, core.UpsertAccountInput{
		Email:             "owner@example.com",
		BillingCustomerID: "cus_1",
		ProAccess:         true,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated account id")
	}

	found, ok, err := store.FindByCustomerID(ctx, "cus_1")
	if err != nil {
		t.Fatalf("find by customer: %v", err)
	}
	if !ok {
		t.Fatalf("expected to find account for cus_1")
	}
	if found.ID != created.ID || !found.ProAccess {
		t.Fatalf("unexpected account %+v", found)
	}

	_, ok, err = store.FindByCustomerID(ctx, "cus_missing")
	if err != nil {
		t.Fatalf("find missing customer: %v", err)
	}
	if ok {
		t.Fatalf("expected no account for unknown customer")
	}
}

func TestAccountStore_UpsertSameCustomerUpdatesExistingRow(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromDB(client.DB())
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.AccountStore()

	first, err := store.Upsert(ctx, core.UpsertAccountInput{
		Email:             "owner@example.com",
		BillingCustomerID: "cus_1",
		ProAccess:         false,
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := store.Upsert(ctx, core.UpsertAccountInput{
		Email:             "renamed@example.com",
		BillingCustomerID: "cus_1",
		ProAccess:         true,
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected upsert to update in place, got ids %q and %q", first.ID, second.ID)
	}
	if second.Email != "renamed@example.com" || !second.ProAccess {
		t.Fatalf("unexpected account after second upsert: %+v", second)
	}
}

func TestAccountStore_RevokeProAccessIsIdempotent(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromDB(client.DB())
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.AccountStore()

	account, err := store.Upsert(ctx, core.UpsertAccountInput{
		Email:             "owner@example.com",
		BillingCustomerID: "cus_1",
		ProAccess:         true,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	for attempt := 1; attempt <= 3; attempt++ {
		revoked, revokeErr := store.RevokeProAccess(ctx, account.ID)
		if revokeErr != nil {
			t.Fatalf("revoke attempt %d: %v", attempt, revokeErr)
		}
		if revoked.ProAccess {
			t.Fatalf("expected pro access revoked on attempt %d", attempt)
		}
	}

	if _, err := store.RevokeProAccess(ctx, "acc_missing"); err != core.ErrAccountNotFound {
		t.Fatalf("expected ErrAccountNotFound for unknown account, got %v", err)
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:billing-webhooks-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	client.RegisterSQLMigrations(billingwebhooks.GetMigrationsFS())
	if err := client.Migrate(context.Background()); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}
