package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/machikado/market/internal/ownership/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, record *domain.OwnershipRecord) error {
	return db.WithContext(ctx).Create(record).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.OwnershipRecord, error) {
	var rec domain.OwnershipRecord
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repo) FindCurrent(ctx context.Context, db *gorm.DB, productID snowflake.ID, tokenID int64) (*domain.OwnershipRecord, error) {
	return r.findCurrent(ctx, db, productID, tokenID, false)
}

func (r *repo) FindCurrentForUpdate(ctx context.Context, db *gorm.DB, productID snowflake.ID, tokenID int64) (*domain.OwnershipRecord, error) {
	return r.findCurrent(ctx, db, productID, tokenID, true)
}

func (r *repo) findCurrent(ctx context.Context, db *gorm.DB, productID snowflake.ID, tokenID int64, locked bool) (*domain.OwnershipRecord, error) {
	stmt := db.WithContext(ctx).
		Where("product_id = ? AND token_id = ? AND status <> ?", productID, tokenID, domain.StatusCanceled).
		Order("created_at ASC")
	if locked && stmt.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var rec domain.OwnershipRecord
	err := stmt.First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, record *domain.OwnershipRecord) error {
	if record == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE ownership_records
		 SET user_id = ?, status = ?, admin_status = ?, attributes = ?, updated_at = ?
		 WHERE id = ?`,
		record.UserID,
		record.Status,
		record.AdminStatus,
		record.Attributes,
		record.UpdatedAt,
		record.ID,
	).Error
}

func (r *repo) NextTokenID(ctx context.Context, db *gorm.DB, productID snowflake.ID) (int64, error) {
	var max int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(token_id), 0) FROM ownership_records WHERE product_id = ?`,
		productID,
	).Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.OwnershipRecord, error) {
	var items []domain.OwnershipRecord
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.OwnershipRecord, error) {
	stmt := db.WithContext(ctx).Model(&domain.OwnershipRecord{})

	if filter.ProductID != nil {
		stmt = stmt.Where("product_id = ?", *filter.ProductID)
	}
	if filter.AdminStatus != nil {
		stmt = stmt.Where("admin_status = ?", *filter.AdminStatus)
	}
	if filter.PaidFrom != nil {
		stmt = stmt.Where("created_at >= ?", *filter.PaidFrom)
	}
	if filter.PaidTo != nil {
		stmt = stmt.Where("created_at <= ?", *filter.PaidTo)
	}

	var items []domain.OwnershipRecord
	if err := stmt.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountActive(ctx context.Context, db *gorm.DB, productID snowflake.ID, tokenID int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.OwnershipRecord{}).
		Where("product_id = ? AND token_id = ? AND status IN ?",
			productID, tokenID, []domain.Status{domain.StatusPurchased, domain.StatusTokenMinted}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
