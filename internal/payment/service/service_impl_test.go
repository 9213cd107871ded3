package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/machikado/market/internal/actorcontext"
	"github.com/machikado/market/internal/clock"
	"github.com/machikado/market/internal/config"
	ownershipdomain "github.com/machikado/market/internal/ownership/domain"
	ownershiprepo "github.com/machikado/market/internal/ownership/repository"
	"github.com/machikado/market/internal/payment/domain"
	paymentrepo "github.com/machikado/market/internal/payment/repository"
	productdomain "github.com/machikado/market/internal/product/domain"
	productrepo "github.com/machikado/market/internal/product/repository"
	"github.com/machikado/market/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func setupPaymentService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&productdomain.Product{},
		&domain.PendingPayment{},
		&ownershipdomain.OwnershipRecord{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		Cfg:           config.Config{GatewayRedirectBase: "https://pay.example.com/checkout"},
		DB:            db,
		Log:           zaptest.NewLogger(t),
		GenID:         node,
		Clock:         clk,
		Repo:          paymentrepo.Provide(),
		ProductRepo:   productrepo.Provide(),
		OwnershipRepo: ownershiprepo.Provide(),
		Guard:         ratelimit.NewMutationGuard(config.Config{}),
	})
	return svc, db, node, clk
}

func seedProduct(t *testing.T, db *gorm.DB, node *snowflake.Node, stock int, active bool) productdomain.Product {
	t.Helper()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	product := productdomain.Product{
		ID:         node.Generate(),
		TownID:     node.Generate(),
		BusinessID: node.Generate(),
		Code:       "handmade-bowl",
		Name:       "Handmade Bowl",
		Stock:      stock,
		Active:     active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func buyerContext(node *snowflake.Node) (context.Context, snowflake.ID) {
	buyerID := node.Generate()
	ctx := actorcontext.WithActor(context.Background(), actorcontext.Actor{
		UserID: buyerID,
		Role:   actorcontext.RoleBuyer,
	})
	return ctx, buyerID
}

func TestOpenReturnsRedirect(t *testing.T) {
	svc, db, node, _ := setupPaymentService(t)
	product := seedProduct(t, db, node, 5, true)
	ctx, buyerID := buyerContext(node)

	resp, err := svc.Open(ctx, domain.OpenRequest{ProductID: product.ID.String(), Amount: 2})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, resp.Status)
	assert.Equal(t, buyerID.String(), resp.BuyerID)
	assert.NotEmpty(t, resp.Reference)
	assert.Equal(t, "https://pay.example.com/checkout/"+resp.Reference, resp.RedirectURL)
}

func TestOpenRejectsBadRequests(t *testing.T) {
	svc, db, node, _ := setupPaymentService(t)
	active := seedProduct(t, db, node, 3, true)
	inactive := seedProduct(t, db, node, 3, false)
	ctx, _ := buyerContext(node)

	_, err := svc.Open(context.Background(), domain.OpenRequest{ProductID: active.ID.String(), Amount: 1})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Open(ctx, domain.OpenRequest{ProductID: active.ID.String(), Amount: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = svc.Open(ctx, domain.OpenRequest{ProductID: active.ID.String(), Amount: 4})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = svc.Open(ctx, domain.OpenRequest{ProductID: inactive.ID.String(), Amount: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)

	_, err = svc.Open(ctx, domain.OpenRequest{ProductID: "not-a-product", Amount: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)
}

func TestResolveCompletedMintsSequentialTokens(t *testing.T) {
	svc, db, node, _ := setupPaymentService(t)
	product := seedProduct(t, db, node, 5, true)
	ctx, buyerID := buyerContext(node)

	opened, err := svc.Open(ctx, domain.OpenRequest{ProductID: product.ID.String(), Amount: 3})
	require.NoError(t, err)

	resolved, err := svc.Resolve(context.Background(), opened.Reference, domain.OutcomeCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, resolved.Status)
	assert.Equal(t, []int64{1, 2, 3}, resolved.TokenIDs)
	require.NotNil(t, resolved.ResolvedAt)

	var stored productdomain.Product
	require.NoError(t, db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 2, stored.Stock)

	var records []ownershipdomain.OwnershipRecord
	require.NoError(t, db.Order("token_id").Find(&records, "product_id = ?", product.ID).Error)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, int64(i+1), rec.TokenID)
		assert.Equal(t, buyerID, rec.UserID)
		assert.Equal(t, ownershipdomain.StatusPurchased, rec.Status)
		assert.Equal(t, ownershipdomain.AdminStatusConsultation, rec.AdminStatus)
	}

	// Token numbering continues across payments for the same product.
	second, err := svc.Open(ctx, domain.OpenRequest{ProductID: product.ID.String(), Amount: 1})
	require.NoError(t, err)
	resolvedSecond, err := svc.Resolve(context.Background(), second.Reference, domain.OutcomeCompleted)
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, resolvedSecond.TokenIDs)
}

func TestResolveRedeliveryConflicts(t *testing.T) {
	svc, db, node, _ := setupPaymentService(t)
	product := seedProduct(t, db, node, 5, true)
	ctx, _ := buyerContext(node)

	opened, err := svc.Open(ctx, domain.OpenRequest{ProductID: product.ID.String(), Amount: 1})
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), opened.Reference, domain.OutcomeCompleted)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), opened.Reference, domain.OutcomeCompleted)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)

	_, err = svc.Resolve(context.Background(), opened.Reference, domain.OutcomeCanceled)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)

	// No extra stock was taken or records created by the retries.
	var stored productdomain.Product
	require.NoError(t, db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 4, stored.Stock)

	var count int64
	require.NoError(t, db.Model(&ownershipdomain.OwnershipRecord{}).Where("product_id = ?", product.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// Oversell protection is the stock >= n guarded UPDATE inside one transaction,
// serialized by the database itself. sqlite admits a single writer, so there is
// no interleaving to drive concurrently here; resolving two payments from the
// same starting stock exercises the guard's reject path.
func TestResolveOutOfStock(t *testing.T) {
	svc, db, node, _ := setupPaymentService(t)
	product := seedProduct(t, db, node, 2, true)
	ctx, _ := buyerContext(node)

	first, err := svc.Open(ctx, domain.OpenRequest{ProductID: product.ID.String(), Amount: 2})
	require.NoError(t, err)
	second, err := svc.Open(ctx, domain.OpenRequest{ProductID: product.ID.String(), Amount: 2})
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), first.Reference, domain.OutcomeCompleted)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), second.Reference, domain.OutcomeCompleted)
	assert.ErrorIs(t, err, domain.ErrOutOfStock)

	// The failed resolution rolled back entirely: still open, no records.
	got, err := svc.Get(context.Background(), second.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, got.Status)
}

func TestResolveCanceledSkipsStock(t *testing.T) {
	svc, db, node, _ := setupPaymentService(t)
	product := seedProduct(t, db, node, 2, true)
	ctx, _ := buyerContext(node)

	opened, err := svc.Open(ctx, domain.OpenRequest{ProductID: product.ID.String(), Amount: 2})
	require.NoError(t, err)

	resolved, err := svc.Resolve(context.Background(), opened.Reference, domain.OutcomeCanceled)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, resolved.Status)

	var stored productdomain.Product
	require.NoError(t, db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 2, stored.Stock)
}

func TestCancelOnlyByBuyerOrStaff(t *testing.T) {
	svc, db, node, _ := setupPaymentService(t)
	product := seedProduct(t, db, node, 2, true)
	ctx, _ := buyerContext(node)

	opened, err := svc.Open(ctx, domain.OpenRequest{ProductID: product.ID.String(), Amount: 1})
	require.NoError(t, err)

	otherCtx, _ := buyerContext(node)
	_, err = svc.Cancel(otherCtx, opened.Reference)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	staffCtx := actorcontext.WithActor(context.Background(), actorcontext.Actor{
		UserID: node.Generate(),
		Role:   actorcontext.RoleAdmin,
	})
	canceled, err := svc.Cancel(staffCtx, opened.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, canceled.Status)

	_, err = svc.Cancel(ctx, opened.Reference)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
}
