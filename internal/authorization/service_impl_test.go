package authorization

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/machikado/market/internal/actorcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func setupAuthorization(t *testing.T) (Service, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:       db,
		Log:      zaptest.NewLogger(t),
		Enforcer: enforcer,
	})
	return svc, node
}

func TestSupportPermissions(t *testing.T) {
	svc, node := setupAuthorization(t)
	ctx := context.Background()
	support := actorcontext.Actor{
		UserID: node.Generate(),
		Role:   actorcontext.RoleSupport,
		TownID: node.Generate(),
	}

	require.NoError(t, svc.Authorize(ctx, support, ObjectSupportConsole, ActionView))
	require.NoError(t, svc.Authorize(ctx, support, ObjectConversation, ActionWrite))
	require.NoError(t, svc.Authorize(ctx, support, ObjectMemo, ActionManage))

	// Catalog management is admin only.
	assert.ErrorIs(t, svc.Authorize(ctx, support, ObjectProduct, ActionManage), ErrForbidden)
}

func TestSupportRequiresTown(t *testing.T) {
	svc, node := setupAuthorization(t)
	unscoped := actorcontext.Actor{
		UserID: node.Generate(),
		Role:   actorcontext.RoleSupport,
	}

	assert.ErrorIs(t, svc.Authorize(context.Background(), unscoped, ObjectSupportConsole, ActionView), ErrInvalidTown)
}

func TestAdminUnscoped(t *testing.T) {
	svc, node := setupAuthorization(t)
	ctx := context.Background()
	admin := actorcontext.Actor{
		UserID: node.Generate(),
		Role:   actorcontext.RoleAdmin,
	}

	require.NoError(t, svc.Authorize(ctx, admin, ObjectSupportConsole, ActionView))
	require.NoError(t, svc.Authorize(ctx, admin, ObjectProduct, ActionManage))
}

func TestBuyerHasNoConsoleGrants(t *testing.T) {
	svc, node := setupAuthorization(t)
	buyer := actorcontext.Actor{
		UserID: node.Generate(),
		Role:   actorcontext.RoleBuyer,
	}

	assert.ErrorIs(t, svc.Authorize(context.Background(), buyer, ObjectSupportConsole, ActionView), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(context.Background(), buyer, ObjectMemo, ActionManage), ErrForbidden)
}

func TestRoleChangeDropsStaleGrouping(t *testing.T) {
	svc, node := setupAuthorization(t)
	ctx := context.Background()
	userID := node.Generate()

	admin := actorcontext.Actor{UserID: userID, Role: actorcontext.RoleAdmin}
	require.NoError(t, svc.Authorize(ctx, admin, ObjectProduct, ActionManage))

	// The same user demoted to buyer loses the admin grouping on next check.
	buyer := actorcontext.Actor{UserID: userID, Role: actorcontext.RoleBuyer}
	assert.ErrorIs(t, svc.Authorize(ctx, buyer, ObjectProduct, ActionManage), ErrForbidden)

	// Re-authenticating as admin restores the grouping.
	require.NoError(t, svc.Authorize(ctx, admin, ObjectProduct, ActionManage))
}

func TestZeroActorRejected(t *testing.T) {
	svc, _ := setupAuthorization(t)
	assert.ErrorIs(t, svc.Authorize(context.Background(), actorcontext.Actor{}, ObjectMemo, ActionManage), ErrInvalidActor)
}
