package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/machikado/market/internal/transfer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, record *domain.AssetTransferRecord) error {
	return db.WithContext(ctx).Create(record).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.AssetTransferRecord, error) {
	var rec domain.AssetTransferRecord
	err := db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repo) FindOwner(ctx context.Context, db *gorm.DB, productID snowflake.ID, tokenID int64) (*domain.AssetTransferRecord, error) {
	var rec domain.AssetTransferRecord
	err := db.WithContext(ctx).
		Where("product_id = ? AND token_id = ? AND is_owner = ?", productID, tokenID, true).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repo) FindByHolder(ctx context.Context, db *gorm.DB, productID snowflake.ID, tokenID int64, holderID snowflake.ID) (*domain.AssetTransferRecord, error) {
	var rec domain.AssetTransferRecord
	err := db.WithContext(ctx).
		Where("product_id = ? AND token_id = ? AND holder_id = ?", productID, tokenID, holderID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, record *domain.AssetTransferRecord) error {
	if record == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE asset_transfer_records
		 SET is_owner = ?, admin_status = ?, attributes = ?, updated_at = ?
		 WHERE id = ?`,
		record.IsOwner,
		record.AdminStatus,
		record.Attributes,
		record.UpdatedAt,
		record.ID,
	).Error
}

func (r *repo) ClearOwner(ctx context.Context, db *gorm.DB, productID snowflake.ID, tokenID int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE asset_transfer_records
		 SET is_owner = ?
		 WHERE product_id = ? AND token_id = ? AND is_owner = ?`,
		false, productID, tokenID, true,
	).Error
}

func (r *repo) ListOwners(ctx context.Context, db *gorm.DB, productIDs []snowflake.ID) ([]domain.AssetTransferRecord, error) {
	stmt := db.WithContext(ctx).Where("is_owner = ?", true)
	if len(productIDs) > 0 {
		stmt = stmt.Where("product_id IN ?", productIDs)
	}

	var items []domain.AssetTransferRecord
	err := stmt.Order("id ASC").Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountOwners(ctx context.Context, db *gorm.DB, productID snowflake.ID, tokenID int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.AssetTransferRecord{}).
		Where("product_id = ? AND token_id = ? AND is_owner = ?", productID, tokenID, true).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
