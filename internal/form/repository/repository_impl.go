package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/machikado/market/internal/form/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, answer *domain.FormAnswer) error {
	if len(answer.Payload) == 0 {
		return domain.ErrEmptyPayload
	}
	return db.WithContext(ctx).Create(answer).Error
}

func (r *repo) HasSubmission(ctx context.Context, db *gorm.DB, key domain.SubmissionKey) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.FormAnswer{}).
		Where("user_id = ? AND product_id = ? AND token_id = ?", key.UserID, key.ProductID, key.TokenID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) SubmittedKeys(ctx context.Context, db *gorm.DB, productIDs []snowflake.ID) (map[domain.SubmissionKey]struct{}, error) {
	keys := make(map[domain.SubmissionKey]struct{})
	if len(productIDs) == 0 {
		return keys, nil
	}

	type row struct {
		UserID    snowflake.ID `gorm:"column:user_id"`
		ProductID snowflake.ID `gorm:"column:product_id"`
		TokenID   int64        `gorm:"column:token_id"`
	}
	var rows []row
	err := db.WithContext(ctx).
		Model(&domain.FormAnswer{}).
		Distinct("user_id", "product_id", "token_id").
		Where("product_id IN ?", productIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, item := range rows {
		keys[domain.SubmissionKey{
			UserID:    item.UserID,
			ProductID: item.ProductID,
			TokenID:   item.TokenID,
		}] = struct{}{}
	}
	return keys, nil
}
