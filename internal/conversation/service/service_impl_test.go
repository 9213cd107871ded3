package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/machikado/market/internal/actorcontext"
	"github.com/machikado/market/internal/clock"
	"github.com/machikado/market/internal/config"
	"github.com/machikado/market/internal/conversation/domain"
	"github.com/machikado/market/internal/conversation/repository"
	"github.com/machikado/market/internal/ratelimit"
	pkgdb "github.com/machikado/market/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type allowAllAuthz struct{}

func (allowAllAuthz) Authorize(ctx context.Context, actor actorcontext.Actor, object, action string) error {
	return nil
}

func setupConversationService(t *testing.T) (domain.Service, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Conversation{}, &domain.Message{}))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	svc := New(Params{
		DB:     db,
		Log:    zaptest.NewLogger(t),
		GenID:  node,
		Clock:  clock.NewFakeClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)),
		Repo:   repository.Provide(),
		Guard:  ratelimit.NewMutationGuard(config.Config{}),
		Authz:  allowAllAuthz{},
		Holder: config.NewStaticSupportConfigHolder(config.DefaultSupportConfig()),
	})
	return svc, node
}

func asBuyer(userID snowflake.ID) context.Context {
	return actorcontext.WithActor(context.Background(), actorcontext.Actor{
		UserID: userID,
		Role:   actorcontext.RoleBuyer,
	})
}

func asSupport(userID snowflake.ID) context.Context {
	return actorcontext.WithActor(context.Background(), actorcontext.Actor{
		UserID: userID,
		Role:   actorcontext.RoleSupport,
	})
}

func TestUnreadCounters(t *testing.T) {
	svc, node := setupConversationService(t)
	buyerID := node.Generate()
	supportID := node.Generate()
	tokenID := int64(1)
	key := domain.Key{ProductID: node.Generate(), TokenID: &tokenID, UserID: buyerID}

	for i := 0; i < 3; i++ {
		_, err := svc.Post(asBuyer(buyerID), key, domain.PostRequest{Body: "is my order ready?"})
		require.NoError(t, err)
	}

	conv, err := svc.Get(asSupport(supportID), key)
	require.NoError(t, err)
	assert.Equal(t, 3, conv.SupportUnreadCount)
	assert.Equal(t, 0, conv.BuyerUnreadCount)
	assert.Len(t, conv.Messages, 3)

	// Replying implies having read: the support counter resets in the same write.
	_, err = svc.Post(asSupport(supportID), key, domain.PostRequest{Body: "ships tomorrow"})
	require.NoError(t, err)

	conv, err = svc.Get(asBuyer(buyerID), key)
	require.NoError(t, err)
	assert.Equal(t, 0, conv.SupportUnreadCount)
	assert.Equal(t, 1, conv.BuyerUnreadCount)

	require.NoError(t, svc.CheckInvariant(context.Background(), key))
}

func TestAcknowledgeClearsOwnSideOnly(t *testing.T) {
	svc, node := setupConversationService(t)
	buyerID := node.Generate()
	supportID := node.Generate()
	key := domain.Key{ProductID: node.Generate(), UserID: buyerID}

	_, err := svc.Post(asBuyer(buyerID), key, domain.PostRequest{Body: "question before buying"})
	require.NoError(t, err)
	_, err = svc.Post(asSupport(supportID), key, domain.PostRequest{Body: "answer"})
	require.NoError(t, err)
	_, err = svc.Post(asBuyer(buyerID), key, domain.PostRequest{Body: "one more thing"})
	require.NoError(t, err)

	acked, err := svc.Acknowledge(asSupport(supportID), key)
	require.NoError(t, err)
	assert.Equal(t, 0, acked.SupportUnreadCount)
	assert.Equal(t, 1, acked.BuyerUnreadCount)

	acked, err = svc.Acknowledge(asBuyer(buyerID), key)
	require.NoError(t, err)
	assert.Equal(t, 0, acked.BuyerUnreadCount)
}

func TestBuyerCannotTouchForeignThread(t *testing.T) {
	svc, node := setupConversationService(t)
	ownerID := node.Generate()
	intruderID := node.Generate()
	key := domain.Key{ProductID: node.Generate(), UserID: ownerID}

	_, err := svc.Post(asBuyer(ownerID), key, domain.PostRequest{Body: "hello"})
	require.NoError(t, err)

	_, err = svc.Get(asBuyer(intruderID), key)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Post(asBuyer(intruderID), key, domain.PostRequest{Body: "hijack"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Post(asBuyer(ownerID), key, domain.PostRequest{Body: "   "})
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
}

func TestPrePurchaseAndUnitThreadsAreSeparate(t *testing.T) {
	svc, node := setupConversationService(t)
	buyerID := node.Generate()
	productID := node.Generate()
	tokenID := int64(2)
	preKey := domain.Key{ProductID: productID, UserID: buyerID}
	unitKey := domain.Key{ProductID: productID, TokenID: &tokenID, UserID: buyerID}

	_, err := svc.Post(asBuyer(buyerID), preKey, domain.PostRequest{Body: "pre-purchase question"})
	require.NoError(t, err)
	_, err = svc.Post(asBuyer(buyerID), unitKey, domain.PostRequest{Body: "about my unit"})
	require.NoError(t, err)

	pre, err := svc.Get(asBuyer(buyerID), preKey)
	require.NoError(t, err)
	unit, err := svc.Get(asBuyer(buyerID), unitKey)
	require.NoError(t, err)
	assert.NotEqual(t, pre.ID, unit.ID)
	assert.Nil(t, pre.TokenID)
	require.NotNil(t, unit.TokenID)
	assert.Equal(t, tokenID, *unit.TokenID)
}

func TestStorageRejectsSecondPrePurchaseThread(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Conversation{}, &domain.Message{}))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	repo := repository.Provide()
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	productID := node.Generate()
	buyerID := node.Generate()
	require.NoError(t, repo.Create(ctx, db, &domain.Conversation{
		ID:        node.Generate(),
		ProductID: productID,
		UserID:    buyerID,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	// Two first posts raced past the lookup: the second insert of the same
	// (product, user) thread with no token has to die on the unique index.
	err = repo.Create(ctx, db, &domain.Conversation{
		ID:        node.Generate(),
		ProductID: productID,
		UserID:    buyerID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.Error(t, err)
	assert.True(t, pkgdb.IsDuplicateKeyErr(err))

	var count int64
	require.NoError(t, db.Model(&domain.Conversation{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

// racingRepo loses the first insert to a rival writer, the way two first posts
// interleave when no cross-process guard is configured.
type racingRepo struct {
	domain.Repository
	node *snowflake.Node
	once sync.Once
}

func (r *racingRepo) Create(ctx context.Context, db *gorm.DB, conversation *domain.Conversation) error {
	var raceErr error
	r.once.Do(func() {
		rival := *conversation
		rival.ID = r.node.Generate()
		raceErr = r.Repository.Create(ctx, db, &rival)
	})
	if raceErr != nil {
		return raceErr
	}
	return r.Repository.Create(ctx, db, conversation)
}

func TestFirstPostLosingInsertRaceReusesThread(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Conversation{}, &domain.Message{}))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	svc := New(Params{
		DB:     db,
		Log:    zaptest.NewLogger(t),
		GenID:  node,
		Clock:  clock.NewFakeClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)),
		Repo:   &racingRepo{Repository: repository.Provide(), node: node},
		Guard:  ratelimit.NewMutationGuard(config.Config{}),
		Authz:  allowAllAuthz{},
		Holder: config.NewStaticSupportConfigHolder(config.DefaultSupportConfig()),
	})

	buyerID := node.Generate()
	key := domain.Key{ProductID: node.Generate(), UserID: buyerID}

	// The losing writer recovers inside the transaction and posts into the
	// rival's thread instead of splitting it.
	_, err = svc.Post(asBuyer(buyerID), key, domain.PostRequest{Body: "is this handmade?"})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&domain.Conversation{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	conv, err := svc.Get(asBuyer(buyerID), key)
	require.NoError(t, err)
	assert.Equal(t, 1, conv.SupportUnreadCount)
	assert.Len(t, conv.Messages, 1)
}

func TestSearchMessages(t *testing.T) {
	svc, node := setupConversationService(t)
	buyerID := node.Generate()
	key := domain.Key{ProductID: node.Generate(), UserID: buyerID}
	ctx := asBuyer(buyerID)

	for _, body := range []string{"Where is my ORDER?", "thanks", "order update please", "100% sure"} {
		_, err := svc.Post(ctx, key, domain.PostRequest{Body: body})
		require.NoError(t, err)
	}

	found, err := svc.Search(ctx, key, "order")
	require.NoError(t, err)
	require.Len(t, found, 2)

	// LIKE metacharacters are literals in the query.
	found, err = svc.Search(ctx, key, "100%")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "100% sure", found[0].Body)

	_, err = svc.Search(ctx, key, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidSearchQuery)

	_, err = svc.Search(ctx, domain.Key{ProductID: node.Generate(), UserID: buyerID}, "order")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListByUser(t *testing.T) {
	svc, node := setupConversationService(t)
	buyerID := node.Generate()
	otherID := node.Generate()

	_, err := svc.Post(asBuyer(buyerID), domain.Key{ProductID: node.Generate(), UserID: buyerID}, domain.PostRequest{Body: "a"})
	require.NoError(t, err)
	_, err = svc.Post(asBuyer(buyerID), domain.Key{ProductID: node.Generate(), UserID: buyerID}, domain.PostRequest{Body: "b"})
	require.NoError(t, err)
	_, err = svc.Post(asBuyer(otherID), domain.Key{ProductID: node.Generate(), UserID: otherID}, domain.PostRequest{Body: "c"})
	require.NoError(t, err)

	mine, err := svc.ListByUser(asBuyer(buyerID), buyerID.String())
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = svc.ListByUser(asBuyer(buyerID), otherID.String())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	all, err := svc.ListByUser(asSupport(node.Generate()), otherID.String())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
