package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, record *AssetTransferRecord) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*AssetTransferRecord, error)
	// FindOwner returns the record with is_owner = true for the token, if any.
	FindOwner(ctx context.Context, db *gorm.DB, productID snowflake.ID, tokenID int64) (*AssetTransferRecord, error)
	// FindByHolder returns the token's record for one specific holder, owner or not.
	FindByHolder(ctx context.Context, db *gorm.DB, productID snowflake.ID, tokenID int64, holderID snowflake.ID) (*AssetTransferRecord, error)
	Update(ctx context.Context, db *gorm.DB, record *AssetTransferRecord) error
	// ClearOwner drops is_owner from whichever record currently holds it.
	ClearOwner(ctx context.Context, db *gorm.DB, productID snowflake.ID, tokenID int64) error
	// ListOwners returns the is_owner rows, optionally narrowed to products.
	ListOwners(ctx context.Context, db *gorm.DB, productIDs []snowflake.ID) ([]AssetTransferRecord, error)
	CountOwners(ctx context.Context, db *gorm.DB, productID snowflake.ID, tokenID int64) (int64, error)
}
