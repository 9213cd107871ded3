package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/machikado/market/internal/clock"
	ownershipdomain "github.com/machikado/market/internal/ownership/domain"
	ownershiprepo "github.com/machikado/market/internal/ownership/repository"
	ownershipservice "github.com/machikado/market/internal/ownership/service"
	"github.com/machikado/market/internal/transfer/domain"
	"github.com/machikado/market/internal/transfer/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type transferFixture struct {
	svc       domain.Service
	ownership ownershipdomain.Service
	db        *gorm.DB
	node      *snowflake.Node
}

func setupTransferService(t *testing.T) transferFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&ownershipdomain.OwnershipRecord{},
		&domain.AssetTransferRecord{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	log := zaptest.NewLogger(t)

	ownershipSvc := ownershipservice.New(ownershipservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  ownershiprepo.Provide(),
	})

	svc := New(Params{
		DB:            db,
		Log:           log,
		GenID:         node,
		Clock:         clk,
		Repo:          repository.Provide(),
		OwnershipRepo: ownershiprepo.Provide(),
	})
	return transferFixture{svc: svc, ownership: ownershipSvc, db: db, node: node}
}

func (f transferFixture) mintedToken(t *testing.T, tokenID int64) (snowflake.ID, snowflake.ID) {
	t.Helper()
	productID := f.node.Generate()
	buyerID := f.node.Generate()
	_, err := f.ownership.CreateOnPurchase(context.Background(), productID, tokenID, buyerID)
	require.NoError(t, err)
	_, err = f.ownership.MarkMinted(context.Background(), productID, tokenID)
	require.NoError(t, err)
	return productID, buyerID
}

func TestRecordTransferFlipsOwnership(t *testing.T) {
	f := setupTransferService(t)
	ctx := context.Background()
	productID, buyerID := f.mintedToken(t, 1)
	holderID := f.node.Generate()

	rec, err := f.svc.Record(ctx, productID, 1, holderID)
	require.NoError(t, err)
	assert.True(t, rec.IsOwner)
	assert.Equal(t, holderID.String(), rec.HolderID)

	current, err := f.svc.CurrentHolder(ctx, productID, 1)
	require.NoError(t, err)
	assert.Equal(t, holderID, current)

	owned, err := f.ownership.Get(ctx, productID, 1)
	require.NoError(t, err)
	assert.Equal(t, ownershipdomain.StatusTokenTransferred, owned.Status)
	assert.NotEqual(t, buyerID, current)
}

func TestRecordBeforeMintRejected(t *testing.T) {
	f := setupTransferService(t)
	ctx := context.Background()
	productID := f.node.Generate()

	_, err := f.ownership.CreateOnPurchase(ctx, productID, 1, f.node.Generate())
	require.NoError(t, err)

	_, err = f.svc.Record(ctx, productID, 1, f.node.Generate())
	assert.ErrorIs(t, err, domain.ErrNotMinted)

	_, err = f.svc.Record(ctx, f.node.Generate(), 9, f.node.Generate())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCurrentHolderFallsBackToBuyer(t *testing.T) {
	f := setupTransferService(t)
	ctx := context.Background()
	productID, buyerID := f.mintedToken(t, 1)

	current, err := f.svc.CurrentHolder(ctx, productID, 1)
	require.NoError(t, err)
	assert.Equal(t, buyerID, current)
}

func TestSecondTransferReplacesHolder(t *testing.T) {
	f := setupTransferService(t)
	ctx := context.Background()
	productID, _ := f.mintedToken(t, 1)
	first := f.node.Generate()
	second := f.node.Generate()

	_, err := f.svc.Record(ctx, productID, 1, first)
	require.NoError(t, err)
	_, err = f.svc.Record(ctx, productID, 1, second)
	require.NoError(t, err)

	current, err := f.svc.CurrentHolder(ctx, productID, 1)
	require.NoError(t, err)
	assert.Equal(t, second, current)

	require.NoError(t, f.svc.CheckInvariant(ctx, productID, 1))

	// The earlier holder row survives as history, just not as owner.
	var rows []domain.AssetTransferRecord
	require.NoError(t, f.db.Order("id").Find(&rows, "product_id = ? AND token_id = ?", productID, 1).Error)
	require.Len(t, rows, 2)
	assert.False(t, rows[0].IsOwner)
	assert.True(t, rows[1].IsOwner)
}

func TestTransferBackToOriginalBuyer(t *testing.T) {
	f := setupTransferService(t)
	ctx := context.Background()
	productID, buyerID := f.mintedToken(t, 1)
	outside := f.node.Generate()

	_, err := f.svc.Record(ctx, productID, 1, outside)
	require.NoError(t, err)
	back, err := f.svc.Record(ctx, productID, 1, buyerID)
	require.NoError(t, err)
	assert.True(t, back.IsOwner)

	current, err := f.svc.CurrentHolder(ctx, productID, 1)
	require.NoError(t, err)
	assert.Equal(t, buyerID, current)

	// The purchaser record keeps its transferred status; re-acquisition lives on
	// the holder side.
	owned, err := f.ownership.Get(ctx, productID, 1)
	require.NoError(t, err)
	assert.Equal(t, ownershipdomain.StatusTokenTransferred, owned.Status)
}

func TestRedeliveredNotificationIsIdempotent(t *testing.T) {
	f := setupTransferService(t)
	ctx := context.Background()
	productID, _ := f.mintedToken(t, 1)
	holderID := f.node.Generate()

	firstRec, err := f.svc.Record(ctx, productID, 1, holderID)
	require.NoError(t, err)
	secondRec, err := f.svc.Record(ctx, productID, 1, holderID)
	require.NoError(t, err)
	assert.Equal(t, firstRec.ID, secondRec.ID)

	var count int64
	require.NoError(t, f.db.Model(&domain.AssetTransferRecord{}).
		Where("product_id = ? AND token_id = ?", productID, 1).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestHolderAdminStatusSeededFromPurchaser(t *testing.T) {
	f := setupTransferService(t)
	ctx := context.Background()
	productID, _ := f.mintedToken(t, 1)

	owned, err := f.ownership.Get(ctx, productID, 1)
	require.NoError(t, err)
	recordID, err := snowflake.ParseString(owned.ID)
	require.NoError(t, err)
	_, err = f.ownership.UpdateAdminStatus(ctx, recordID, ownershipdomain.AdminStatusInUse)
	require.NoError(t, err)

	rec, err := f.svc.Record(ctx, productID, 1, f.node.Generate())
	require.NoError(t, err)
	assert.Equal(t, ownershipdomain.AdminStatusInUse, rec.AdminStatus)

	// After that the holder's admin status moves independently.
	transferID, err := snowflake.ParseString(rec.ID)
	require.NoError(t, err)
	updated, err := f.svc.UpdateAdminStatus(ctx, transferID, ownershipdomain.AdminStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, ownershipdomain.AdminStatusCompleted, updated.AdminStatus)

	refetched, err := f.ownership.Get(ctx, productID, 1)
	require.NoError(t, err)
	assert.Equal(t, ownershipdomain.AdminStatusInUse, refetched.AdminStatus)
}
