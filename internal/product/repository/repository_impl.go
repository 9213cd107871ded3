package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/machikado/market/internal/product/domain"
	"github.com/machikado/market/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.Product
	err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest, cursor *pagination.Cursor, limit int) ([]domain.Product, error) {
	stmt := db.WithContext(ctx).Model(&domain.Product{})

	if townID := strings.TrimSpace(filter.TownID); townID != "" {
		if parsed, err := snowflake.ParseString(townID); err == nil {
			stmt = stmt.Where("town_id = ?", parsed)
		}
	}
	if businessID := strings.TrimSpace(filter.BusinessID); businessID != "" {
		if parsed, err := snowflake.ParseString(businessID); err == nil {
			stmt = stmt.Where("business_id = ?", parsed)
		}
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}

	if cursor != nil {
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, pagination.ErrInvalidToken
		}
		stmt = stmt.
			Where("created_at > ? OR (created_at = ? AND id > ?)", cursor.CreatedAt, cursor.CreatedAt, id).
			Order("created_at ASC, id ASC")
	} else {
		sortBy := filter.SortBy
		switch sortBy {
		case "name", "created_at", "updated_at", "stock":
		default:
			sortBy = "created_at"
		}
		order := "ASC"
		if strings.EqualFold(filter.OrderBy, "desc") {
			order = "DESC"
		}
		stmt = stmt.Order(sortBy + " " + order + ", id " + order)
	}

	if limit > 0 {
		stmt = stmt.Limit(limit)
	}

	var items []domain.Product
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DecrementStock(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE products SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND stock >= ?`,
		amount, id, amount,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) RestoreStock(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int) error {
	return db.WithContext(ctx).Exec(
		`UPDATE products SET stock = stock + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		amount, id,
	).Error
}
