package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Town struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Code      string       `json:"code" gorm:"type:text;not null;uniqueIndex"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Region    *string      `json:"region,omitempty" gorm:"type:text"`
	CreatedAt time.Time    `json:"created_at,omitempty" gorm:"not null"`
}

func (Town) TableName() string { return "towns" }

type Business struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	TownID    snowflake.ID `json:"town_id" gorm:"not null;index"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	CreatedAt time.Time    `json:"created_at,omitempty" gorm:"not null"`
}

func (Business) TableName() string { return "businesses" }
