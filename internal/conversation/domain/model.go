package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type SenderRole string

const (
	SenderBuyer   SenderRole = "buyer"
	SenderSupport SenderRole = "support"
)

// Conversation is one thread per (product, token, user). A nil TokenID marks a
// pre-purchase consultation thread; after purchase each unit gets its own.
type Conversation struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	// NULL token ids compare distinct under ix_conversation_key, so the
	// pre-purchase thread needs the partial ux_conversation_prepurchase
	// index to stay unique per (product, user).
	ProductID snowflake.ID `json:"product_id" gorm:"not null;uniqueIndex:ix_conversation_key;uniqueIndex:ux_conversation_prepurchase,priority:1,where:token_id IS NULL"`
	TokenID   *int64       `json:"token_id" gorm:"uniqueIndex:ix_conversation_key"`
	UserID    snowflake.ID `json:"user_id" gorm:"not null;uniqueIndex:ix_conversation_key;uniqueIndex:ux_conversation_prepurchase,priority:2"`
	// SupportUnreadCount trails the buyer messages support has not yet seen. It
	// never exceeds the number of buyer-authored messages in the thread.
	SupportUnreadCount int       `json:"support_unread_count" gorm:"not null;default:0"`
	BuyerUnreadCount   int       `json:"buyer_unread_count" gorm:"not null;default:0"`
	CreatedAt          time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"not null"`
}

func (Conversation) TableName() string { return "conversations" }

type Message struct {
	ID             snowflake.ID                `json:"id" gorm:"primaryKey"`
	ConversationID snowflake.ID                `json:"conversation_id" gorm:"not null;index"`
	SenderID       snowflake.ID                `json:"sender_id" gorm:"not null"`
	SenderRole     SenderRole                  `json:"sender_role" gorm:"type:text;not null"`
	Body           string                      `json:"body" gorm:"type:text;not null"`
	Images         datatypes.JSONSlice[string] `json:"images"`
	CreatedAt      time.Time                   `json:"created_at" gorm:"not null"`
}

func (Message) TableName() string { return "messages" }
