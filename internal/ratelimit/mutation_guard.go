package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/machikado/market/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyTransferLock     = "transfer:lock:%s:%d"
	keyConversationLock = "conversation:lock:%s"
	keyCheckoutBucket   = "checkout:bucket:%s"

	defaultGuardTTL = 5 * time.Second

	checkoutRate  = 1.0
	checkoutBurst = 5
)

// MutationGuard serializes cross-process writes to contended rows (holder swaps,
// unread counters) and throttles checkout attempts. Without redis it degrades to
// a no-op and the database row locks remain the only serialization.
type MutationGuard struct {
	locker *Locker
	bucket *TokenBucket
}

func NewMutationGuard(cfg config.Config) *MutationGuard {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return &MutationGuard{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	return &MutationGuard{
		locker: NewLocker(client),
		bucket: NewTokenBucket(client),
	}
}

func (g *MutationGuard) Enabled() bool {
	return g != nil && g.locker != nil
}

func (g *MutationGuard) LockTransfer(ctx context.Context, productID snowflake.ID, tokenID int64) (string, bool, error) {
	if !g.Enabled() {
		return "", true, nil
	}
	return g.locker.TryLock(ctx, fmt.Sprintf(keyTransferLock, productID, tokenID), defaultGuardTTL)
}

func (g *MutationGuard) ReleaseTransfer(ctx context.Context, productID snowflake.ID, tokenID int64, token string) error {
	if !g.Enabled() {
		return nil
	}
	return g.locker.Release(ctx, fmt.Sprintf(keyTransferLock, productID, tokenID), token)
}

func (g *MutationGuard) LockConversation(ctx context.Context, conversationID snowflake.ID) (string, bool, error) {
	if !g.Enabled() {
		return "", true, nil
	}
	return g.locker.TryLock(ctx, fmt.Sprintf(keyConversationLock, conversationID), defaultGuardTTL)
}

func (g *MutationGuard) ReleaseConversation(ctx context.Context, conversationID snowflake.ID, token string) error {
	if !g.Enabled() {
		return nil
	}
	return g.locker.Release(ctx, fmt.Sprintf(keyConversationLock, conversationID), token)
}

// AllowCheckout throttles payment opens per buyer.
func (g *MutationGuard) AllowCheckout(ctx context.Context, userID snowflake.ID) (bool, error) {
	if g == nil || g.bucket == nil {
		return true, nil
	}
	return g.bucket.Allow(ctx, fmt.Sprintf(keyCheckoutBucket, userID), checkoutRate, checkoutBurst)
}
