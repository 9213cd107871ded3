package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/machikado/market/internal/actorcontext"
	"github.com/machikado/market/internal/clock"
	"github.com/machikado/market/internal/memo/domain"
	"github.com/machikado/market/internal/memo/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type staffOnlyAuthz struct{}

func (staffOnlyAuthz) Authorize(ctx context.Context, actor actorcontext.Actor, object, action string) error {
	return nil
}

func setupMemoService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.SupportMemo{}))

	node, err := snowflake.NewNode(6)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
		Authz: staffOnlyAuthz{},
	})
	return svc, db, node
}

func supportCtx(node *snowflake.Node) context.Context {
	return actorcontext.WithActor(context.Background(), actorcontext.Actor{
		UserID: node.Generate(),
		Role:   actorcontext.RoleSupport,
	})
}

func TestMemoUpsertReplacesBody(t *testing.T) {
	svc, db, node := setupMemoService(t)
	ctx := supportCtx(node)
	key := domain.Key{UserID: node.Generate(), ProductID: node.Generate(), TokenID: 1}

	created, err := svc.Upsert(ctx, key, "prefers morning delivery")
	require.NoError(t, err)
	assert.Equal(t, "prefers morning delivery", created.Body)

	updated, err := svc.Upsert(ctx, key, "changed to evening")
	require.NoError(t, err)
	assert.Equal(t, "changed to evening", updated.Body)
	assert.Equal(t, created.ID, updated.ID)

	var count int64
	require.NoError(t, db.Model(&domain.SupportMemo{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	got, err := svc.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "changed to evening", got.Body)
}

func TestMemoKeysAreIndependent(t *testing.T) {
	svc, _, node := setupMemoService(t)
	ctx := supportCtx(node)
	userID := node.Generate()
	productID := node.Generate()

	_, err := svc.Upsert(ctx, domain.Key{UserID: userID, ProductID: productID, TokenID: 1}, "about token one")
	require.NoError(t, err)
	_, err = svc.Upsert(ctx, domain.Key{UserID: userID, ProductID: productID, TokenID: 2}, "about token two")
	require.NoError(t, err)

	one, err := svc.Get(ctx, domain.Key{UserID: userID, ProductID: productID, TokenID: 1})
	require.NoError(t, err)
	assert.Equal(t, "about token one", one.Body)
}

func TestMemoDelete(t *testing.T) {
	svc, _, node := setupMemoService(t)
	ctx := supportCtx(node)
	key := domain.Key{UserID: node.Generate(), ProductID: node.Generate(), TokenID: 1}

	_, err := svc.Upsert(ctx, key, "temporary note")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, key))
	assert.ErrorIs(t, svc.Delete(ctx, key), domain.ErrNotFound)

	_, err = svc.Get(ctx, key)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoStaffOnly(t *testing.T) {
	svc, _, node := setupMemoService(t)
	key := domain.Key{UserID: node.Generate(), ProductID: node.Generate(), TokenID: 1}

	buyerCtx := actorcontext.WithActor(context.Background(), actorcontext.Actor{
		UserID: node.Generate(),
		Role:   actorcontext.RoleBuyer,
	})
	_, err := svc.Upsert(buyerCtx, key, "should not land")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Get(buyerCtx, key)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	ctx := supportCtx(node)
	_, err = svc.Upsert(ctx, key, "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyBody)
}
