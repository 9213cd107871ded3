package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/machikado/market/internal/clock"
	"github.com/machikado/market/internal/ownership/domain"
	"github.com/machikado/market/internal/ownership/repository"
	productdomain "github.com/machikado/market/internal/product/domain"
	productrepo "github.com/machikado/market/internal/product/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func setupOwnershipService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.OwnershipRecord{}, &productdomain.Product{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	svc := New(Params{
		DB:          db,
		Log:         zaptest.NewLogger(t),
		GenID:       node,
		Clock:       clock.NewFakeClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)),
		Repo:        repository.Provide(),
		ProductRepo: productrepo.Provide(),
	})
	return svc, db, node
}

func TestLifecycleTransitions(t *testing.T) {
	svc, _, node := setupOwnershipService(t)
	ctx := context.Background()
	productID := node.Generate()
	buyerID := node.Generate()

	created, err := svc.CreateOnPurchase(ctx, productID, 1, buyerID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPurchased, created.Status)
	assert.Equal(t, domain.AdminStatusConsultation, created.AdminStatus)

	minted, err := svc.MarkMinted(ctx, productID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTokenMinted, minted.Status)

	// Mint callbacks are delivered at least once; the second one is rejected.
	_, err = svc.MarkMinted(ctx, productID, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Cancel is only reachable before minting.
	_, err = svc.Cancel(ctx, productID, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCancelBeforeMint(t *testing.T) {
	svc, _, node := setupOwnershipService(t)
	ctx := context.Background()
	productID := node.Generate()

	_, err := svc.CreateOnPurchase(ctx, productID, 7, node.Generate())
	require.NoError(t, err)

	canceled, err := svc.Cancel(ctx, productID, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, canceled.Status)

	_, err = svc.MarkMinted(ctx, productID, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelRestoresStock(t *testing.T) {
	svc, db, node := setupOwnershipService(t)
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	product := productdomain.Product{
		ID:         node.Generate(),
		TownID:     node.Generate(),
		BusinessID: node.Generate(),
		Code:       "teacup",
		Name:       "Teacup",
		Stock:      4,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, db.Create(&product).Error)

	_, err := svc.CreateOnPurchase(ctx, product.ID, 1, node.Generate())
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, product.ID, 1)
	require.NoError(t, err)

	var stored productdomain.Product
	require.NoError(t, db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 5, stored.Stock)
}

func TestDuplicateTokenRejected(t *testing.T) {
	svc, _, node := setupOwnershipService(t)
	ctx := context.Background()
	productID := node.Generate()

	_, err := svc.CreateOnPurchase(ctx, productID, 1, node.Generate())
	require.NoError(t, err)

	_, err = svc.CreateOnPurchase(ctx, productID, 1, node.Generate())
	assert.ErrorIs(t, err, domain.ErrDuplicateToken)
}

func TestTokenReusableAfterCancel(t *testing.T) {
	svc, _, node := setupOwnershipService(t)
	ctx := context.Background()
	productID := node.Generate()

	_, err := svc.CreateOnPurchase(ctx, productID, 1, node.Generate())
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, productID, 1)
	require.NoError(t, err)

	replacement, err := svc.CreateOnPurchase(ctx, productID, 1, node.Generate())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPurchased, replacement.Status)

	require.NoError(t, svc.CheckInvariant(ctx, productID, 1))
}

// blindRepo never sees existing rows, the way a concurrent checkout that has
// not committed yet is invisible to the duplicate lookup.
type blindRepo struct {
	domain.Repository
}

func (blindRepo) FindCurrent(ctx context.Context, db *gorm.DB, productID snowflake.ID, tokenID int64) (*domain.OwnershipRecord, error) {
	return nil, nil
}

func TestStorageRejectsSecondActiveBuyer(t *testing.T) {
	svc, db, node := setupOwnershipService(t)
	ctx := context.Background()
	productID := node.Generate()

	_, err := svc.CreateOnPurchase(ctx, productID, 1, node.Generate())
	require.NoError(t, err)

	// Two checkouts raced past the duplicate lookup; the second insert has to
	// die on the unique index and surface as a duplicate token.
	_, err = CreateOnPurchaseTx(ctx, db, blindRepo{repository.Provide()}, node, time.Now().UTC(), productID, 1, node.Generate())
	assert.ErrorIs(t, err, domain.ErrDuplicateToken)

	count, err := repository.Provide().CountActive(ctx, db, productID, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	// Canceled rows stay out of the index: the token is resellable.
	_, err = svc.Cancel(ctx, productID, 1)
	require.NoError(t, err)
	_, err = svc.CreateOnPurchase(ctx, productID, 1, node.Generate())
	require.NoError(t, err)
}

func TestAdminStatusIndependentAxis(t *testing.T) {
	svc, db, node := setupOwnershipService(t)
	ctx := context.Background()
	productID := node.Generate()

	created, err := svc.CreateOnPurchase(ctx, productID, 1, node.Generate())
	require.NoError(t, err)
	recordID, err := snowflake.ParseString(created.ID)
	require.NoError(t, err)

	// Admin status moves in any order, regardless of the buyer-facing status.
	updated, err := svc.UpdateAdminStatus(ctx, recordID, domain.AdminStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.AdminStatusCompleted, updated.AdminStatus)
	assert.Equal(t, domain.StatusPurchased, updated.Status)

	back, err := svc.UpdateAdminStatus(ctx, recordID, domain.AdminStatusInUse)
	require.NoError(t, err)
	assert.Equal(t, domain.AdminStatusInUse, back.AdminStatus)

	_, err = svc.UpdateAdminStatus(ctx, recordID, domain.AdminStatus("shipped"))
	assert.ErrorIs(t, err, domain.ErrInvalidAdminState)

	var stored domain.OwnershipRecord
	require.NoError(t, db.First(&stored, "id = ?", recordID).Error)
	assert.Equal(t, domain.AdminStatusInUse, stored.AdminStatus)
}

func TestUpdateAttributes(t *testing.T) {
	svc, _, node := setupOwnershipService(t)
	ctx := context.Background()
	productID := node.Generate()

	created, err := svc.CreateOnPurchase(ctx, productID, 1, node.Generate())
	require.NoError(t, err)
	recordID, err := snowflake.ParseString(created.ID)
	require.NoError(t, err)

	attrs := []domain.Attribute{
		{Name: "engraving", Value: "To Hana"},
		{Name: "pickup_point", Value: "station kiosk"},
	}
	updated, err := svc.UpdateAttributes(ctx, recordID, attrs)
	require.NoError(t, err)
	assert.Equal(t, attrs, updated.Attributes)

	// Replacement semantics, not merge.
	updated, err = svc.UpdateAttributes(ctx, recordID, []domain.Attribute{{Name: "engraving", Value: "To Taro"}})
	require.NoError(t, err)
	require.Len(t, updated.Attributes, 1)
	assert.Equal(t, "To Taro", updated.Attributes[0].Value)
}

func TestCheckInvariantDetectsDoubleActive(t *testing.T) {
	svc, db, node := setupOwnershipService(t)
	ctx := context.Background()
	productID := node.Generate()

	_, err := svc.CreateOnPurchase(ctx, productID, 1, node.Generate())
	require.NoError(t, err)

	// Simulate a corrupted row written outside the service. The unique index
	// blocks such writes on current schemas; the sweep still has to catch rows
	// that predate it.
	require.NoError(t, db.Exec("DROP INDEX ux_ownership_active_token").Error)
	now := time.Now().UTC()
	require.NoError(t, db.Create(&domain.OwnershipRecord{
		ID:          node.Generate(),
		ProductID:   productID,
		TokenID:     1,
		UserID:      node.Generate(),
		Status:      domain.StatusTokenMinted,
		AdminStatus: domain.AdminStatusConsultation,
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error)

	assert.ErrorIs(t, svc.CheckInvariant(ctx, productID, 1), domain.ErrInvariantViolated)
}
