package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SupportMemo is a free-text annotation support staff attach to one unit and
// user. It never influences the lifecycle state machine.
type SupportMemo struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID    snowflake.ID `json:"user_id" gorm:"not null;uniqueIndex:ix_memo_key"`
	ProductID snowflake.ID `json:"product_id" gorm:"not null;uniqueIndex:ix_memo_key"`
	TokenID   int64        `json:"token_id" gorm:"not null;uniqueIndex:ix_memo_key"`
	Body      string       `json:"body" gorm:"type:text;not null"`
	AuthorID  snowflake.ID `json:"author_id" gorm:"not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (SupportMemo) TableName() string { return "support_memos" }
