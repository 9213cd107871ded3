package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusOpen      Status = "open"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// PendingPayment is one checkout attempt. The gateway resolves it exactly once;
// a resolved record is never mutated again.
type PendingPayment struct {
	ID snowflake.ID `json:"id" gorm:"primaryKey"`
	// Reference is the ULID handed to the payment gateway; callbacks quote it.
	Reference  string       `json:"reference" gorm:"type:text;not null;uniqueIndex"`
	ProductID  snowflake.ID `json:"product_id" gorm:"not null;index"`
	BuyerID    snowflake.ID `json:"buyer_id" gorm:"not null;index"`
	Amount     int          `json:"amount" gorm:"not null"`
	Status     Status       `json:"status" gorm:"type:text;not null"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time    `json:"updated_at" gorm:"not null"`
	ResolvedAt *time.Time   `json:"resolved_at"`
}

func (PendingPayment) TableName() string { return "pending_payments" }

func (p PendingPayment) Terminal() bool {
	return p.Status == StatusCompleted || p.Status == StatusCanceled
}
