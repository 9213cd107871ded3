package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// FormAnswer is a submitted questionnaire for one unit and user. The payload is
// stored opaque; only its existence feeds the support console.
type FormAnswer struct {
	ID        snowflake.ID   `json:"id" gorm:"primaryKey"`
	UserID    snowflake.ID   `json:"user_id" gorm:"not null;index:ix_form_answer_key"`
	ProductID snowflake.ID   `json:"product_id" gorm:"not null;index:ix_form_answer_key"`
	TokenID   int64          `json:"token_id" gorm:"not null;index:ix_form_answer_key"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null"`
}

func (FormAnswer) TableName() string { return "form_answers" }

// SubmissionKey identifies the unit+user pair a submission belongs to.
type SubmissionKey struct {
	UserID    snowflake.ID
	ProductID snowflake.ID
	TokenID   int64
}
