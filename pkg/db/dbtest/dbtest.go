// Package dbtest opens throwaway SQLite databases carrying the checkout schema.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/branchpay/checkout-backend/pkg/db/models"
	"github.com/branchpay/checkout-backend/pkg/enums"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS companies (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  email TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS branches (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  company_id INTEGER NOT NULL,
  name TEXT NOT NULL,
  email TEXT,
  phone TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  commission_type TEXT NOT NULL DEFAULT 'percentage',
  commission_rate NUMERIC NOT NULL DEFAULT 5,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS stripe_account_mappings (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  branch_id INTEGER NOT NULL UNIQUE,
  stripe_account_id TEXT NOT NULL UNIQUE,
  charges_enabled INTEGER NOT NULL DEFAULT 0,
  details_submitted INTEGER NOT NULL DEFAULT 0,
  payouts_enabled INTEGER NOT NULL DEFAULT 0,
  synced_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  branch_id INTEGER NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  sku TEXT,
  price NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS services (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  branch_id INTEGER NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  sku TEXT,
  price NUMERIC NOT NULL,
  duration INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS payment_gateways (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  branch_id INTEGER NOT NULL UNIQUE,
  slug TEXT NOT NULL UNIQUE,
  is_enabled INTEGER NOT NULL DEFAULT 0,
  business_name TEXT,
  logo_url TEXT,
  primary_color TEXT,
  secondary_color TEXT,
  available_product_ids TEXT,
  available_service_ids TEXT,
  available_subscription_ids TEXT,
  terms_and_conditions TEXT,
  success_message TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS orders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_number TEXT NOT NULL,
  branch_id INTEGER NOT NULL,
  payment_gateway_id INTEGER NOT NULL,
  customer_email TEXT NOT NULL,
  customer_name TEXT NOT NULL,
  customer_phone TEXT,
  customer_notes TEXT,
  total_amount NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  status TEXT NOT NULL DEFAULT 'pending',
  items TEXT NOT NULL,
  stripe_payment_intent_id TEXT UNIQUE,
  stripe_charge_id TEXT,
  failure_reason TEXT,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS orders_order_number_key ON orders (order_number);`,
}

// Open returns an isolated in-memory database with every checkout table created.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// Fixture is a capability-enabled branch with a storefront.
type Fixture struct {
	Company *models.Company
	Branch  *models.Branch
	Mapping *models.StripeAccountMapping
	Gateway *models.PaymentGateway
}

// SeedBranch inserts a company and an active branch without a connected account.
func SeedBranch(t testing.TB, conn *gorm.DB, name string) (*models.Company, *models.Branch) {
	t.Helper()
	company := &models.Company{Name: name + " Inc"}
	mustCreate(t, conn, company)
	branch := &models.Branch{
		CompanyID:      company.ID,
		Name:           name,
		IsActive:       true,
		CommissionType: enums.CommissionTypePercentage,
		CommissionRate: models.DefaultCommissionRate,
	}
	mustCreate(t, conn, branch)
	return company, branch
}

// SeedMapping attaches a connected account to the branch.
func SeedMapping(t testing.TB, conn *gorm.DB, branchID int64, accountID string, enabled bool) *models.StripeAccountMapping {
	t.Helper()
	mapping := &models.StripeAccountMapping{
		BranchID:         branchID,
		StripeAccountID:  accountID,
		ChargesEnabled:   enabled,
		DetailsSubmitted: enabled,
		PayoutsEnabled:   enabled,
	}
	mustCreate(t, conn, mapping)
	return mapping
}

// SeedService inserts a service priced at price.
func SeedService(t testing.TB, conn *gorm.DB, branchID int64, name, price string, active bool) *models.Service {
	t.Helper()
	svc := &models.Service{
		BranchID: branchID,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Duration: 60,
		IsActive: active,
	}
	mustCreate(t, conn, svc)
	return svc
}

// SeedProduct inserts a product with the given status.
func SeedProduct(t testing.TB, conn *gorm.DB, branchID int64, name, price string, status enums.ProductStatus) *models.Product {
	t.Helper()
	product := &models.Product{
		BranchID: branchID,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Status:   status,
	}
	mustCreate(t, conn, product)
	return product
}

// SeedGateway inserts an enabled storefront for the branch.
func SeedGateway(t testing.TB, conn *gorm.DB, branchID int64, slug string, productIDs, serviceIDs []int64) *models.PaymentGateway {
	t.Helper()
	gateway := &models.PaymentGateway{
		BranchID:                 branchID,
		Slug:                     slug,
		IsEnabled:                true,
		AvailableProductIDs:      productIDs,
		AvailableServiceIDs:      serviceIDs,
		AvailableSubscriptionIDs: []int64{},
	}
	mustCreate(t, conn, gateway)
	return gateway
}

// SeedStorefront builds a capability-enabled branch with an enabled gateway.
func SeedStorefront(t testing.TB, conn *gorm.DB, slug string, enabled bool) Fixture {
	t.Helper()
	company, branch := SeedBranch(t, conn, slug)
	mapping := SeedMapping(t, conn, branch.ID, "acct_"+uuid.NewString()[:8], enabled)
	gateway := SeedGateway(t, conn, branch.ID, slug, []int64{}, []int64{})
	return Fixture{Company: company, Branch: branch, Mapping: mapping, Gateway: gateway}
}

func mustCreate(t testing.TB, conn *gorm.DB, value any) {
	t.Helper()
	if err := conn.Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}
