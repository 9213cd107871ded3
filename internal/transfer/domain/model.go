package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	ownershipdomain "github.com/machikado/market/internal/ownership/domain"
	"gorm.io/datatypes"
)

// AssetTransferRecord names a past or present holder of a minted token. At most
// one record per (product_id, token_id) carries is_owner = true; that row is the
// present holder. The support workflow fields mirror OwnershipRecord because
// staff track the item itself, not the legal owner.
type AssetTransferRecord struct {
	ID          snowflake.ID                                   `json:"id" gorm:"primaryKey"`
	ProductID   snowflake.ID                                   `json:"product_id" gorm:"not null;index:ix_transfer_product_token,priority:1;uniqueIndex:ux_transfer_owner,priority:1,where:is_owner"`
	TokenID     int64                                          `json:"token_id" gorm:"not null;index:ix_transfer_product_token,priority:2;uniqueIndex:ux_transfer_owner,priority:2"`
	HolderID    snowflake.ID                                   `json:"holder_id" gorm:"not null;index"`
	IsOwner     bool                                           `json:"is_owner" gorm:"not null"`
	AdminStatus ownershipdomain.AdminStatus                    `json:"admin_status" gorm:"type:text;not null"`
	Attributes  datatypes.JSONSlice[ownershipdomain.Attribute] `json:"attributes" gorm:"type:jsonb"`
	CreatedAt   time.Time                                      `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time                                      `json:"updated_at" gorm:"not null"`
}

func (AssetTransferRecord) TableName() string { return "asset_transfer_records" }
