package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, record *OwnershipRecord) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*OwnershipRecord, error)
	// FindCurrent returns the non-canceled record for (productID, tokenID), if any.
	FindCurrent(ctx context.Context, db *gorm.DB, productID snowflake.ID, tokenID int64) (*OwnershipRecord, error)
	// FindCurrentForUpdate behaves like FindCurrent but takes a row lock inside a transaction.
	FindCurrentForUpdate(ctx context.Context, db *gorm.DB, productID snowflake.ID, tokenID int64) (*OwnershipRecord, error)
	Update(ctx context.Context, db *gorm.DB, record *OwnershipRecord) error
	// NextTokenID returns the next sequential token id for a product.
	NextTokenID(ctx context.Context, db *gorm.DB, productID snowflake.ID) (int64, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]OwnershipRecord, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]OwnershipRecord, error)
	// CountActive counts non-canceled records with an active-buyer status for a token.
	CountActive(ctx context.Context, db *gorm.DB, productID snowflake.ID, tokenID int64) (int64, error)
}

type ListFilter struct {
	ProductID   *snowflake.ID
	AdminStatus *AdminStatus
	PaidFrom    *time.Time
	PaidTo      *time.Time
}
