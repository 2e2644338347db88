package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/branchpay/checkout-backend/pkg/db/dbtest"
	"github.com/branchpay/checkout-backend/pkg/db/models"
	"github.com/branchpay/checkout-backend/pkg/enums"
)

func TestFindGatewayBySlugPreloadsBranchAndMapping(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	fx := dbtest.SeedStorefront(t, db, "acme-spa", true)

	gateway, err := repo.FindGatewayBySlug(context.Background(), "acme-spa")
	require.NoError(t, err)
	require.NotNil(t, gateway.Branch)
	assert.Equal(t, fx.Branch.ID, gateway.Branch.ID)
	assert.Equal(t, fx.Mapping.StripeAccountID, gateway.Branch.StripeAccountID())
}

func TestActiveCatalogFilters(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	_, branch := dbtest.SeedBranch(t, db, "Spa")

	active := dbtest.SeedProduct(t, db, branch.ID, "Oil", "12.00", enums.ProductStatusActive)
	draft := dbtest.SeedProduct(t, db, branch.ID, "Candle", "8.00", enums.ProductStatusDraft)
	massage := dbtest.SeedService(t, db, branch.ID, "Massage", "50.00", true)
	retired := dbtest.SeedService(t, db, branch.ID, "Sauna", "20.00", false)

	products, err := repo.ActiveProducts(ctx, []int64{active.ID, draft.ID})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, active.ID, products[0].ID)

	services, err := repo.ActiveServices(ctx, []int64{massage.ID, retired.ID})
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, massage.ID, services[0].ID)
	assert.Equal(t, "50", services[0].Price.String())

	empty, err := repo.ActiveProducts(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCreateGatewayGeneratesUniqueSlug(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	dbtest.SeedStorefront(t, db, "acme-spa", true)
	_, second := dbtest.SeedBranch(t, db, "Second")
	_, third := dbtest.SeedBranch(t, db, "Third")

	gw2 := &models.PaymentGateway{BranchID: second.ID}
	require.NoError(t, repo.CreateGateway(ctx, gw2, "Acme Spa", 3))
	assert.Equal(t, "acme-spa-1", gw2.Slug)

	gw3 := &models.PaymentGateway{BranchID: third.ID}
	require.NoError(t, repo.CreateGateway(ctx, gw3, "Acme Spa", 3))
	assert.Equal(t, "acme-spa-2", gw3.Slug)
}

func TestSlugExistsIncludesSoftDeleted(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	fx := dbtest.SeedStorefront(t, db, "gone", true)
	require.NoError(t, db.Delete(&models.PaymentGateway{}, fx.Gateway.ID).Error)

	exists, err := repo.SlugExists(ctx, "gone")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.FindGatewayBySlug(ctx, "gone")
	assert.Error(t, err)
}

func TestCreateGatewayExplicitSlugConflict(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	dbtest.SeedStorefront(t, db, "taken", true)
	_, other := dbtest.SeedBranch(t, db, "Other")

	err := repo.CreateGateway(context.Background(), &models.PaymentGateway{BranchID: other.ID, Slug: "taken"}, "", 3)
	require.Error(t, err)
}
