package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/machikado/market/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Product, error)
	// List returns up to limit rows after the cursor. A nil cursor starts from
	// the beginning; limit <= 0 means no cap.
	List(ctx context.Context, db *gorm.DB, filter ListRequest, cursor *pagination.Cursor, limit int) ([]Product, error)
	// DecrementStock atomically subtracts amount while stock covers it, returning
	// false when the guard fails. Must run inside the caller's transaction.
	DecrementStock(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int) (bool, error)
	RestoreStock(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int) error
}
