package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/machikado/market/internal/clock"
	"github.com/machikado/market/internal/ownership/domain"
	productdomain "github.com/machikado/market/internal/product/domain"
	"github.com/machikado/market/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	ProductRepo productdomain.Repository `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	productRepo productdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("ownership.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		productRepo: p.ProductRepo,
	}
}

func (s *Service) CreateOnPurchase(ctx context.Context, productID snowflake.ID, tokenID int64, userID snowflake.ID) (*domain.Response, error) {
	var created *domain.OwnershipRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := CreateOnPurchaseTx(ctx, tx, s.repo, s.genID, s.clock.Now(), productID, tokenID, userID)
		if err != nil {
			return err
		}
		created = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := toResponse(created)
	return &resp, nil
}

// CreateOnPurchaseTx creates the active-buyer record inside an existing
// transaction. The payment ledger calls this so that stock decrement and record
// creation commit or roll back together.
func CreateOnPurchaseTx(
	ctx context.Context,
	tx *gorm.DB,
	repo domain.Repository,
	genID *snowflake.Node,
	now time.Time,
	productID snowflake.ID,
	tokenID int64,
	userID snowflake.ID,
) (*domain.OwnershipRecord, error) {
	existing, err := repo.FindCurrent(ctx, tx, productID, tokenID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateToken
	}

	rec := &domain.OwnershipRecord{
		ID:          genID.Generate(),
		ProductID:   productID,
		TokenID:     tokenID,
		UserID:      userID,
		Status:      domain.StatusPurchased,
		AdminStatus: domain.AdminStatusConsultation,
		Attributes:  datatypes.NewJSONSlice([]domain.Attribute{}),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(ctx, tx, rec); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateToken
		}
		return nil, err
	}
	return rec, nil
}

func (s *Service) MarkMinted(ctx context.Context, productID snowflake.ID, tokenID int64) (*domain.Response, error) {
	var updated *domain.OwnershipRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.repo.FindCurrentForUpdate(ctx, tx, productID, tokenID)
		if err != nil {
			return err
		}
		if rec == nil {
			return domain.ErrNotFound
		}
		if rec.Status != domain.StatusPurchased {
			s.log.Warn("rejected mint callback",
				zap.Int64("product_id", int64(productID)),
				zap.Int64("token_id", tokenID),
				zap.String("status", string(rec.Status)),
			)
			return domain.ErrInvalidTransition
		}

		rec.Status = domain.StatusTokenMinted
		rec.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, rec); err != nil {
			return err
		}
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("token minted",
		zap.Int64("product_id", int64(productID)),
		zap.Int64("token_id", tokenID),
	)
	resp := toResponse(updated)
	return &resp, nil
}

func (s *Service) Cancel(ctx context.Context, productID snowflake.ID, tokenID int64) (*domain.Response, error) {
	var updated *domain.OwnershipRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.repo.FindCurrentForUpdate(ctx, tx, productID, tokenID)
		if err != nil {
			return err
		}
		if rec == nil {
			return domain.ErrNotFound
		}
		if rec.Status != domain.StatusPendingPayment && rec.Status != domain.StatusPurchased {
			return domain.ErrInvalidTransition
		}

		// A purchased unit took a unit of stock at payment resolution; give it back.
		if rec.Status == domain.StatusPurchased && s.productRepo != nil {
			if err := s.productRepo.RestoreStock(ctx, tx, rec.ProductID, 1); err != nil {
				return err
			}
		}

		rec.Status = domain.StatusCanceled
		rec.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, rec); err != nil {
			return err
		}
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := toResponse(updated)
	return &resp, nil
}

func (s *Service) UpdateAttributes(ctx context.Context, recordID snowflake.ID, attributes []domain.Attribute) (*domain.Response, error) {
	rec, err := s.repo.FindByID(ctx, s.db, recordID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	if rec.Terminal() {
		return nil, domain.ErrInvalidTransition
	}

	rec.Attributes = datatypes.NewJSONSlice(attributes)
	rec.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, rec); err != nil {
		return nil, err
	}
	resp := toResponse(rec)
	return &resp, nil
}

func (s *Service) UpdateAdminStatus(ctx context.Context, recordID snowflake.ID, status domain.AdminStatus) (*domain.Response, error) {
	if !domain.ValidAdminStatus(status) {
		return nil, domain.ErrInvalidAdminState
	}

	rec, err := s.repo.FindByID(ctx, s.db, recordID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	if rec.Terminal() {
		return nil, domain.ErrInvalidTransition
	}

	// No sequencing on the admin axis: staff move freely between the three states.
	rec.AdminStatus = status
	rec.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, rec); err != nil {
		return nil, err
	}
	resp := toResponse(rec)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, productID snowflake.ID, tokenID int64) (*domain.Response, error) {
	rec, err := s.repo.FindCurrent(ctx, s.db, productID, tokenID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	resp := toResponse(rec)
	return &resp, nil
}

func (s *Service) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.Response, error) {
	items, err := s.repo.ListByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) CheckInvariant(ctx context.Context, productID snowflake.ID, tokenID int64) error {
	count, err := s.repo.CountActive(ctx, s.db, productID, tokenID)
	if err != nil {
		return err
	}
	if count > 1 {
		s.log.Error("multiple active buyers for token",
			zap.Int64("product_id", int64(productID)),
			zap.Int64("token_id", tokenID),
			zap.Int64("count", count),
		)
		return domain.ErrInvariantViolated
	}
	return nil
}

func toResponse(rec *domain.OwnershipRecord) domain.Response {
	return domain.Response{
		ID:          rec.ID.String(),
		ProductID:   rec.ProductID.String(),
		TokenID:     rec.TokenID,
		UserID:      rec.UserID.String(),
		Status:      rec.Status,
		AdminStatus: rec.AdminStatus,
		Attributes:  []domain.Attribute(rec.Attributes),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}
