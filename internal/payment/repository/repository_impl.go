package repository

import (
	"context"
	"errors"

	"github.com/machikado/market/internal/payment/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, payment *domain.PendingPayment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) FindByReference(ctx context.Context, db *gorm.DB, reference string) (*domain.PendingPayment, error) {
	return r.find(ctx, db, reference, false)
}

func (r *repo) FindByReferenceForUpdate(ctx context.Context, db *gorm.DB, reference string) (*domain.PendingPayment, error) {
	return r.find(ctx, db, reference, true)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, reference string, locked bool) (*domain.PendingPayment, error) {
	stmt := db.WithContext(ctx).Where("reference = ?", reference)
	if locked && stmt.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var payment domain.PendingPayment
	err := stmt.First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, payment *domain.PendingPayment) error {
	if payment == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE pending_payments
		 SET status = ?, resolved_at = ?, updated_at = ?
		 WHERE id = ?`,
		payment.Status,
		payment.ResolvedAt,
		payment.UpdatedAt,
		payment.ID,
	).Error
}
