package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the buyer-facing lifecycle of a purchased unit. Transitions move
// strictly forward: pending_payment -> purchased -> token_minted ->
// token_transferred, with canceled reachable from the first two only.
type Status string

const (
	StatusPendingPayment   Status = "pending_payment"
	StatusPurchased        Status = "purchased"
	StatusTokenMinted      Status = "token_minted"
	StatusTokenTransferred Status = "token_transferred"
	StatusCanceled         Status = "canceled"
)

// AdminStatus is the support-facing workflow marker. It is an independent axis:
// staff may set it in any order regardless of the buyer-facing status.
type AdminStatus string

const (
	AdminStatusConsultation AdminStatus = "consultation"
	AdminStatusInUse        AdminStatus = "in_use"
	AdminStatusCompleted    AdminStatus = "completed"
)

// AdminStatusRank gives the fixed sort order consultation < in_use < completed.
func AdminStatusRank(s AdminStatus) int {
	switch s {
	case AdminStatusConsultation:
		return 0
	case AdminStatusInUse:
		return 1
	case AdminStatusCompleted:
		return 2
	default:
		return 3
	}
}

func ValidAdminStatus(s AdminStatus) bool {
	return AdminStatusRank(s) < 3
}

// Attribute is one admin-editable name/value pair attached to a unit.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type OwnershipRecord struct {
	ID          snowflake.ID                   `json:"id" gorm:"primaryKey"`
	ProductID   snowflake.ID                   `json:"product_id" gorm:"not null;index:ix_ownership_product_token,priority:1;uniqueIndex:ux_ownership_active_token,priority:1,where:status <> 'canceled'"`
	TokenID     int64                          `json:"token_id" gorm:"not null;index:ix_ownership_product_token,priority:2;uniqueIndex:ux_ownership_active_token,priority:2"`
	UserID      snowflake.ID                   `json:"user_id" gorm:"not null;index"`
	Status      Status                         `json:"status" gorm:"type:text;not null"`
	AdminStatus AdminStatus                    `json:"admin_status" gorm:"type:text;not null"`
	Attributes  datatypes.JSONSlice[Attribute] `json:"attributes" gorm:"type:jsonb"`
	CreatedAt   time.Time                      `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time                      `json:"updated_at" gorm:"not null"`
}

func (OwnershipRecord) TableName() string { return "ownership_records" }

// Active reports whether the record currently names the active buyer of its token.
func (r OwnershipRecord) Active() bool {
	return r.Status == StatusPurchased || r.Status == StatusTokenMinted
}

func (r OwnershipRecord) Terminal() bool {
	return r.Status == StatusCanceled
}
