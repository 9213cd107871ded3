package reference

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/machikado/market/internal/reference/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) ListTowns(ctx context.Context) ([]domain.Town, error) {
	var towns []domain.Town
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&towns).Error
	if err != nil {
		return nil, err
	}
	return towns, nil
}

func (r *repository) FindTown(ctx context.Context, id snowflake.ID) (*domain.Town, error) {
	var town domain.Town
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&town).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &town, nil
}

func (r *repository) ListBusinessesByTown(ctx context.Context, townID snowflake.ID) ([]domain.Business, error) {
	var businesses []domain.Business
	err := r.db.WithContext(ctx).
		Where("town_id = ?", townID).
		Order("name ASC").
		Find(&businesses).Error
	if err != nil {
		return nil, err
	}
	return businesses, nil
}

func (r *repository) FindBusiness(ctx context.Context, id snowflake.ID) (*domain.Business, error) {
	var business domain.Business
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&business).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &business, nil
}
