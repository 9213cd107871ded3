package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/machikado/market/internal/actorcontext"
	"github.com/machikado/market/internal/clock"
	"github.com/machikado/market/internal/config"
	"github.com/machikado/market/internal/observability/metrics"
	ownershipdomain "github.com/machikado/market/internal/ownership/domain"
	ownershipservice "github.com/machikado/market/internal/ownership/service"
	"github.com/machikado/market/internal/payment/domain"
	productdomain "github.com/machikado/market/internal/product/domain"
	"github.com/machikado/market/internal/ratelimit"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg           config.Config
	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          domain.Repository
	ProductRepo   productdomain.Repository
	OwnershipRepo ownershipdomain.Repository
	Guard         *ratelimit.MutationGuard
	Minter        domain.MintRequester `optional:"true"`
	Metrics       *metrics.Metrics     `optional:"true"`
}

type Service struct {
	cfg           config.Config
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          domain.Repository
	productRepo   productdomain.Repository
	ownershipRepo ownershipdomain.Repository
	guard         *ratelimit.MutationGuard
	minter        domain.MintRequester
	metrics       *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		cfg:           p.Cfg,
		db:            p.DB,
		log:           p.Log.Named("payment.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		productRepo:   p.ProductRepo,
		ownershipRepo: p.OwnershipRepo,
		guard:         p.Guard,
		minter:        p.Minter,
		metrics:       p.Metrics,
	}
}

func (s *Service) Open(ctx context.Context, req domain.OpenRequest) (*domain.Response, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	productID, err := snowflake.ParseString(strings.TrimSpace(req.ProductID))
	if err != nil || productID == 0 {
		return nil, domain.ErrInvalidProduct
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	allowed, err := s.guard.AllowCheckout(ctx, actor.UserID)
	if err != nil {
		s.log.Warn("checkout throttle unavailable", zap.Error(err))
	} else if !allowed {
		s.metrics.RecordCheckoutThrottled()
		return nil, domain.ErrThrottled
	}

	product, err := s.productRepo.FindByID(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.Active {
		return nil, domain.ErrInvalidProduct
	}
	// Stock is only reserved at resolution time; this check rejects checkouts
	// that could never complete.
	if req.Amount > product.Stock {
		return nil, domain.ErrInvalidQuantity
	}

	now := s.clock.Now()
	payment := &domain.PendingPayment{
		ID:        s.genID.Generate(),
		Reference: ulid.Make().String(),
		ProductID: productID,
		BuyerID:   actor.UserID,
		Amount:    req.Amount,
		Status:    domain.StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, s.db, payment); err != nil {
		return nil, err
	}

	s.log.Info("payment opened",
		zap.String("reference", payment.Reference),
		zap.String("product_id", productID.String()),
		zap.Int("amount", req.Amount),
	)

	resp := s.toResponse(payment, nil)
	resp.RedirectURL = fmt.Sprintf("%s/%s", strings.TrimRight(s.cfg.GatewayRedirectBase, "/"), payment.Reference)
	return &resp, nil
}

func (s *Service) Resolve(ctx context.Context, reference string, outcome domain.Outcome) (*domain.Response, error) {
	if outcome != domain.OutcomeCompleted && outcome != domain.OutcomeCanceled {
		return nil, domain.ErrInvalidOutcome
	}

	var (
		resolved *domain.PendingPayment
		tokenIDs []int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindByReferenceForUpdate(ctx, tx, reference)
		if err != nil {
			return err
		}
		if payment == nil {
			return domain.ErrNotFound
		}
		if payment.Terminal() {
			return domain.ErrAlreadyResolved
		}

		now := s.clock.Now()
		if outcome == domain.OutcomeCanceled {
			payment.Status = domain.StatusCanceled
			payment.ResolvedAt = &now
			payment.UpdatedAt = now
			if err := s.repo.Update(ctx, tx, payment); err != nil {
				return err
			}
			resolved = payment
			return nil
		}

		ok, err := s.productRepo.DecrementStock(ctx, tx, payment.ProductID, payment.Amount)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrOutOfStock
		}

		firstToken, err := s.ownershipRepo.NextTokenID(ctx, tx, payment.ProductID)
		if err != nil {
			return err
		}
		for i := 0; i < payment.Amount; i++ {
			tokenID := firstToken + int64(i)
			if _, err := ownershipservice.CreateOnPurchaseTx(
				ctx, tx, s.ownershipRepo, s.genID, now,
				payment.ProductID, tokenID, payment.BuyerID,
			); err != nil {
				return err
			}
			tokenIDs = append(tokenIDs, tokenID)
		}

		payment.Status = domain.StatusCompleted
		payment.ResolvedAt = &now
		payment.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, payment); err != nil {
			return err
		}
		resolved = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment resolved",
		zap.String("reference", resolved.Reference),
		zap.String("status", string(resolved.Status)),
		zap.Int64s("token_ids", tokenIDs),
	)
	s.metrics.RecordPaymentResolved(string(outcome))

	// Mint requests go out after commit. A failed request leaves the record in
	// purchased until the minting service is retried.
	if resolved.Status == domain.StatusCompleted && s.minter != nil {
		for _, tokenID := range tokenIDs {
			if err := s.minter.RequestMint(ctx, resolved.ProductID.Int64(), tokenID); err != nil {
				s.log.Error("mint request failed",
					zap.String("product_id", resolved.ProductID.String()),
					zap.Int64("token_id", tokenID),
					zap.Error(err),
				)
				continue
			}
			s.metrics.RecordMintRequested()
		}
	}

	resp := s.toResponse(resolved, tokenIDs)
	return &resp, nil
}

func (s *Service) Cancel(ctx context.Context, reference string) (*domain.Response, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	var canceled *domain.PendingPayment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindByReferenceForUpdate(ctx, tx, reference)
		if err != nil {
			return err
		}
		if payment == nil {
			return domain.ErrNotFound
		}
		if payment.BuyerID != actor.UserID && !actor.Role.IsStaff() {
			return domain.ErrUnauthorized
		}
		if payment.Terminal() {
			return domain.ErrAlreadyResolved
		}

		now := s.clock.Now()
		payment.Status = domain.StatusCanceled
		payment.ResolvedAt = &now
		payment.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, payment); err != nil {
			return err
		}
		canceled = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := s.toResponse(canceled, nil)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, reference string) (*domain.Response, error) {
	payment, err := s.repo.FindByReference(ctx, s.db, reference)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrNotFound
	}
	resp := s.toResponse(payment, nil)
	return &resp, nil
}

func (s *Service) toResponse(p *domain.PendingPayment, tokenIDs []int64) domain.Response {
	return domain.Response{
		ID:         p.ID.String(),
		Reference:  p.Reference,
		ProductID:  p.ProductID.String(),
		BuyerID:    p.BuyerID.String(),
		Amount:     p.Amount,
		Status:     p.Status,
		TokenIDs:   tokenIDs,
		CreatedAt:  p.CreatedAt,
		ResolvedAt: p.ResolvedAt,
	}
}
