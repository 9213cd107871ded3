package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Product struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	TownID      snowflake.ID `json:"town_id" gorm:"not null;index"`
	BusinessID  snowflake.ID `json:"business_id" gorm:"not null;index"`
	Code        string       `json:"code" gorm:"type:text;not null;index"`
	Name        string       `json:"name" gorm:"type:text;not null"`
	Description *string      `json:"description,omitempty" gorm:"type:text"`
	// Stock is the number of units still purchasable. Decremented only inside
	// payment resolution transactions.
	Stock     int       `json:"stock" gorm:"not null"`
	Active    bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }
