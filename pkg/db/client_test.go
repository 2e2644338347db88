package db

import (
	"context"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"

	"github.com/branchpay/checkout-backend/pkg/config"
	"github.com/branchpay/checkout-backend/pkg/db/models"
)

func sqliteConfig() config.DBConfig {
	return config.DBConfig{
		Driver:       "sqlite",
		DSN:          "file::memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{Driver: "sqlite"}, nil); err == nil {
		t.Fatal("expected an error without a DSN")
	}
}

func TestDialectorFollowsDriver(t *testing.T) {
	if _, ok := dialectorFor(sqliteConfig()).(*sqlite.Dialector); !ok {
		t.Fatalf("expected sqlite dialector")
	}
	pg := dialectorFor(config.DBConfig{Driver: "postgres", DSN: "postgres://localhost/branchpay"})
	if _, ok := pg.(*postgres.Dialector); !ok {
		t.Fatalf("expected postgres dialector, got %T", pg)
	}
}

func TestNewPingAndClose(t *testing.T) {
	ctx := context.Background()
	client, err := New(ctx, sqliteConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := client.Ping(ctx); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}

	if err := client.DB().AutoMigrate(&models.Company{}); err != nil {
		t.Fatalf("migrate companies: %v", err)
	}
	if err := client.DB().WithContext(ctx).Create(&models.Company{Name: "Acme"}).Error; err != nil {
		t.Fatalf("insert company: %v", err)
	}
	var count int64
	if err := client.DB().Model(&models.Company{}).Count(&count).Error; err != nil || count != 1 {
		t.Fatalf("expected 1 company, got %d (%v)", count, err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := client.Ping(ctx); err == nil {
		t.Fatal("expected ping to fail after close")
	}
}
