package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, payment *PendingPayment) error
	// FindByReferenceForUpdate loads a payment by gateway reference with a row
	// lock when the dialect supports it; callbacks race against each other.
	FindByReferenceForUpdate(ctx context.Context, db *gorm.DB, reference string) (*PendingPayment, error)
	FindByReference(ctx context.Context, db *gorm.DB, reference string) (*PendingPayment, error)
	Update(ctx context.Context, db *gorm.DB, payment *PendingPayment) error
}
