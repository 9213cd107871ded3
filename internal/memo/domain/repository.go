package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Key struct {
	UserID    snowflake.ID
	ProductID snowflake.ID
	TokenID   int64
}

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, memo *SupportMemo) error
	FindByKey(ctx context.Context, db *gorm.DB, key Key) (*SupportMemo, error)
	DeleteByKey(ctx context.Context, db *gorm.DB, key Key) (bool, error)
	ListByProduct(ctx context.Context, db *gorm.DB, productID snowflake.ID) ([]SupportMemo, error)
	ListByProducts(ctx context.Context, db *gorm.DB, productIDs []snowflake.ID) ([]SupportMemo, error)
}
