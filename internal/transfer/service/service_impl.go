package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/machikado/market/internal/clock"
	"github.com/machikado/market/internal/observability/metrics"
	ownershipdomain "github.com/machikado/market/internal/ownership/domain"
	"github.com/machikado/market/internal/ratelimit"
	"github.com/machikado/market/internal/transfer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          domain.Repository
	OwnershipRepo ownershipdomain.Repository
	Guard         *ratelimit.MutationGuard `optional:"true"`
	Metrics       *metrics.Metrics         `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          domain.Repository
	ownershipRepo ownershipdomain.Repository
	guard         *ratelimit.MutationGuard
	metrics       *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("transfer.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		ownershipRepo: p.OwnershipRepo,
		guard:         p.Guard,
		metrics:       p.Metrics,
	}
}

func (s *Service) Record(ctx context.Context, productID snowflake.ID, tokenID int64, newHolderID snowflake.ID) (*domain.Response, error) {
	if s.guard != nil {
		token, ok, err := s.guard.LockTransfer(ctx, productID, tokenID)
		if err != nil {
			return nil, err
		}
		if !ok {
			// A concurrent notification for the same token is mid-swap.
			return nil, domain.ErrTransferContended
		}
		defer func() {
			_ = s.guard.ReleaseTransfer(ctx, productID, tokenID, token)
		}()
	}

	now := s.clock.Now()
	var result *domain.AssetTransferRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned, err := s.ownershipRepo.FindCurrentForUpdate(ctx, tx, productID, tokenID)
		if err != nil {
			return err
		}
		if owned == nil {
			return domain.ErrNotFound
		}
		if owned.Status != ownershipdomain.StatusTokenMinted && owned.Status != ownershipdomain.StatusTokenTransferred {
			s.log.Warn("rejected transfer for unminted token",
				zap.Int64("product_id", int64(productID)),
				zap.Int64("token_id", tokenID),
				zap.String("status", string(owned.Status)),
			)
			return domain.ErrNotMinted
		}

		if err := s.repo.ClearOwner(ctx, tx, productID, tokenID); err != nil {
			return err
		}

		rec, err := s.repo.FindByHolder(ctx, tx, productID, tokenID, newHolderID)
		if err != nil {
			return err
		}
		if rec == nil {
			rec = &domain.AssetTransferRecord{
				ID:          s.genID.Generate(),
				ProductID:   productID,
				TokenID:     tokenID,
				HolderID:    newHolderID,
				IsOwner:     true,
				AdminStatus: owned.AdminStatus,
				Attributes:  datatypes.NewJSONSlice([]ownershipdomain.Attribute{}),
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.repo.Create(ctx, tx, rec); err != nil {
				return err
			}
		} else {
			rec.IsOwner = true
			rec.UpdatedAt = now
			if err := s.repo.Update(ctx, tx, rec); err != nil {
				return err
			}
		}

		if owned.Status == ownershipdomain.StatusTokenMinted {
			owned.Status = ownershipdomain.StatusTokenTransferred
			owned.UpdatedAt = now
			if err := s.ownershipRepo.Update(ctx, tx, owned); err != nil {
				return err
			}
		}

		result = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("transfer recorded",
		zap.Int64("product_id", int64(productID)),
		zap.Int64("token_id", tokenID),
		zap.Int64("holder_id", int64(newHolderID)),
	)
	s.metrics.RecordTransferRecorded()
	resp := toResponse(result)
	return &resp, nil
}

func (s *Service) CurrentHolder(ctx context.Context, productID snowflake.ID, tokenID int64) (snowflake.ID, error) {
	owner, err := s.repo.FindOwner(ctx, s.db, productID, tokenID)
	if err != nil {
		return 0, err
	}
	if owner != nil {
		return owner.HolderID, nil
	}

	owned, err := s.ownershipRepo.FindCurrent(ctx, s.db, productID, tokenID)
	if err != nil {
		return 0, err
	}
	if owned == nil {
		return 0, domain.ErrNotFound
	}
	return owned.UserID, nil
}

func (s *Service) UpdateAdminStatus(ctx context.Context, recordID snowflake.ID, status ownershipdomain.AdminStatus) (*domain.Response, error) {
	if !ownershipdomain.ValidAdminStatus(status) {
		return nil, ownershipdomain.ErrInvalidAdminState
	}

	rec, err := s.repo.FindByID(ctx, s.db, recordID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}

	rec.AdminStatus = status
	rec.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, rec); err != nil {
		return nil, err
	}
	resp := toResponse(rec)
	return &resp, nil
}

func (s *Service) UpdateAttributes(ctx context.Context, recordID snowflake.ID, attributes []ownershipdomain.Attribute) (*domain.Response, error) {
	rec, err := s.repo.FindByID(ctx, s.db, recordID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}

	rec.Attributes = datatypes.NewJSONSlice(attributes)
	rec.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, rec); err != nil {
		return nil, err
	}
	resp := toResponse(rec)
	return &resp, nil
}

func (s *Service) CheckInvariant(ctx context.Context, productID snowflake.ID, tokenID int64) error {
	count, err := s.repo.CountOwners(ctx, s.db, productID, tokenID)
	if err != nil {
		return err
	}
	if count > 1 {
		s.log.Error("multiple owner rows for token",
			zap.Int64("product_id", int64(productID)),
			zap.Int64("token_id", tokenID),
			zap.Int64("count", count),
		)
		return domain.ErrInvariantViolated
	}
	return nil
}

func toResponse(rec *domain.AssetTransferRecord) domain.Response {
	return domain.Response{
		ID:          rec.ID.String(),
		ProductID:   rec.ProductID.String(),
		TokenID:     rec.TokenID,
		HolderID:    rec.HolderID.String(),
		IsOwner:     rec.IsOwner,
		AdminStatus: rec.AdminStatus,
		Attributes:  []ownershipdomain.Attribute(rec.Attributes),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}
