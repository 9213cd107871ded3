package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/machikado/market/internal/clock"
	"github.com/machikado/market/internal/product/domain"
	"github.com/machikado/market/internal/product/repository"
	"github.com/machikado/market/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func setupProductService(t *testing.T) (domain.Service, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Product{}))

	node, err := snowflake.NewNode(8)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
	return svc, node
}

func TestCreateProduct(t *testing.T) {
	svc, node := setupProductService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{
		TownID:     node.Generate().String(),
		BusinessID: node.Generate().String(),
		Name:       "Lacquered Chopsticks",
		Stock:      10,
	})
	require.NoError(t, err)
	assert.Equal(t, "lacquered-chopsticks", created.Code)
	assert.True(t, created.Active)
	assert.Equal(t, 10, created.Stock)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestCreateProductValidation(t *testing.T) {
	svc, node := setupProductService(t)
	ctx := context.Background()
	townID := node.Generate().String()
	businessID := node.Generate().String()

	_, err := svc.Create(ctx, domain.CreateRequest{TownID: "bogus", BusinessID: businessID, Name: "x", Stock: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidTown)

	_, err = svc.Create(ctx, domain.CreateRequest{TownID: townID, BusinessID: businessID, Name: "  ", Stock: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateRequest{TownID: townID, BusinessID: businessID, Name: "x", Stock: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidStock)

	_, err = svc.Get(ctx, "not-an-id")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.Get(ctx, node.Generate().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListProductsFiltered(t *testing.T) {
	svc, node := setupProductService(t)
	ctx := context.Background()
	townA := node.Generate().String()
	townB := node.Generate().String()
	businessID := node.Generate().String()
	inactive := false

	_, err := svc.Create(ctx, domain.CreateRequest{TownID: townA, BusinessID: businessID, Name: "A", Stock: 1})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{TownID: townA, BusinessID: businessID, Name: "B", Stock: 1, Active: &inactive})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{TownID: townB, BusinessID: businessID, Name: "C", Stock: 1})
	require.NoError(t, err)

	all, err := svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Products, 3)
	assert.False(t, all.PageInfo.HasMore)

	town, err := svc.List(ctx, domain.ListRequest{TownID: townA})
	require.NoError(t, err)
	assert.Len(t, town.Products, 2)

	active := true
	onSale, err := svc.List(ctx, domain.ListRequest{TownID: townA, Active: &active})
	require.NoError(t, err)
	require.Len(t, onSale.Products, 1)
	assert.Equal(t, "A", onSale.Products[0].Name)
}

func TestListPagination(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Product{}))

	node, err := snowflake.NewNode(8)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Clock: fakeClock,
		Repo:  repository.Provide(),
	})

	ctx := context.Background()
	townID := node.Generate().String()
	businessID := node.Generate().String()
	for _, name := range []string{"First", "Second", "Third"} {
		_, err := svc.Create(ctx, domain.CreateRequest{TownID: townID, BusinessID: businessID, Name: name, Stock: 1})
		require.NoError(t, err)
		fakeClock.Advance(time.Minute)
	}

	first, err := svc.List(ctx, domain.ListRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Products, 2)
	assert.Equal(t, "First", first.Products[0].Name)
	assert.True(t, first.PageInfo.HasMore)
	require.NotEmpty(t, first.PageInfo.NextPageToken)

	rest, err := svc.List(ctx, domain.ListRequest{PageSize: 2, PageToken: first.PageInfo.NextPageToken})
	require.NoError(t, err)
	require.Len(t, rest.Products, 1)
	assert.Equal(t, "Third", rest.Products[0].Name)
	assert.False(t, rest.PageInfo.HasMore)
	assert.Empty(t, rest.PageInfo.NextPageToken)

	_, err = svc.List(ctx, domain.ListRequest{PageToken: "not-base64!"})
	assert.ErrorIs(t, err, pagination.ErrInvalidToken)
}
