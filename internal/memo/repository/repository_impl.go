package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/machikado/market/internal/memo/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, memo *domain.SupportMemo) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}, {Name: "token_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"body", "author_id", "updated_at",
			}),
		}).
		Create(memo).Error
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, key domain.Key) (*domain.SupportMemo, error) {
	var memo domain.SupportMemo
	err := db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND token_id = ?", key.UserID, key.ProductID, key.TokenID).
		First(&memo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &memo, nil
}

func (r *repo) DeleteByKey(ctx context.Context, db *gorm.DB, key domain.Key) (bool, error) {
	result := db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND token_id = ?", key.UserID, key.ProductID, key.TokenID).
		Delete(&domain.SupportMemo{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ListByProducts(ctx context.Context, db *gorm.DB, productIDs []snowflake.ID) ([]domain.SupportMemo, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var memos []domain.SupportMemo
	err := db.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Find(&memos).Error
	if err != nil {
		return nil, err
	}
	return memos, nil
}

func (r *repo) ListByProduct(ctx context.Context, db *gorm.DB, productID snowflake.ID) ([]domain.SupportMemo, error) {
	var memos []domain.SupportMemo
	err := db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("token_id ASC, user_id ASC").
		Find(&memos).Error
	if err != nil {
		return nil, err
	}
	return memos, nil
}
