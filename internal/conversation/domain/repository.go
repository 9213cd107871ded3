package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Key identifies a conversation. TokenID nil addresses the pre-purchase thread.
type Key struct {
	ProductID snowflake.ID
	TokenID   *int64
	UserID    snowflake.ID
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, conversation *Conversation) error
	FindByKey(ctx context.Context, db *gorm.DB, key Key) (*Conversation, error)
	// FindByKeyForUpdate locks the conversation row so counter updates from
	// concurrent posts and acknowledgments never lose writes.
	FindByKeyForUpdate(ctx context.Context, db *gorm.DB, key Key) (*Conversation, error)
	UpdateCounters(ctx context.Context, db *gorm.DB, conversation *Conversation) error
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]Conversation, error)
	ListByProducts(ctx context.Context, db *gorm.DB, productIDs []snowflake.ID) ([]Conversation, error)

	CreateMessage(ctx context.Context, db *gorm.DB, message *Message) error
	ListMessages(ctx context.Context, db *gorm.DB, conversationID snowflake.ID) ([]Message, error)
	// SearchMessages filters case-insensitively on message body.
	SearchMessages(ctx context.Context, db *gorm.DB, conversationID snowflake.ID, substring string, limit int) ([]Message, error)
	CountBySender(ctx context.Context, db *gorm.DB, conversationID snowflake.ID, role SenderRole) (int64, error)
}
