package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/machikado/market/internal/clock"
	conversationdomain "github.com/machikado/market/internal/conversation/domain"
	"github.com/machikado/market/internal/observability/metrics"
	ownershipdomain "github.com/machikado/market/internal/ownership/domain"
	transferdomain "github.com/machikado/market/internal/transfer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Clock           clock.Clock
	OwnershipSvc    ownershipdomain.Service
	TransferSvc     transferdomain.Service
	ConversationSvc conversationdomain.Service
	Metrics         *metrics.Metrics `optional:"true"`
	Config          Config           `optional:"true"`
}

// Scheduler sweeps the ownership ledger, transfer history and conversation
// counters in the background, reporting rows that drifted out of their
// invariants. Drift can only come from writes outside the services, so the
// sweep alerts instead of repairing.
type Scheduler struct {
	db              *gorm.DB
	log             *zap.Logger
	cfg             Config
	clock           clock.Clock
	ownershipSvc    ownershipdomain.Service
	transferSvc     transferdomain.Service
	conversationSvc conversationdomain.Service
	metrics         *metrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.OwnershipSvc == nil || p.TransferSvc == nil || p.ConversationSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:              p.DB,
		log:             p.Log.Named("scheduler"),
		cfg:             p.Config.withDefaults(),
		clock:           p.Clock,
		ownershipSvc:    p.OwnershipSvc,
		transferSvc:     p.TransferSvc,
		conversationSvc: p.ConversationSvc,
		metrics:         p.Metrics,
	}, nil
}

// Report summarizes one sweep.
type Report struct {
	TokensChecked  int
	ThreadsChecked int
	Violations     int
}

// RunForever runs sweeps on the configured interval until ctx is canceled.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Error("integrity sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce performs a single sweep over the most recently touched rows.
func (s *Scheduler) RunOnce(parent context.Context) (Report, error) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.PerSweepMaxRuntime)
	defer cancel()

	start := s.clock.Now()
	s.metrics.RecordIntegritySweep()

	var report Report
	if err := s.sweepTokens(ctx, &report); err != nil {
		return report, err
	}
	if err := s.sweepThreads(ctx, &report); err != nil {
		return report, err
	}

	s.log.Info("integrity sweep finished",
		zap.Int("tokens_checked", report.TokensChecked),
		zap.Int("threads_checked", report.ThreadsChecked),
		zap.Int("violations", report.Violations),
		zap.Duration("elapsed", s.clock.Now().Sub(start)),
	)
	return report, nil
}

type tokenRef struct {
	ProductID snowflake.ID
	TokenID   int64
}

func (s *Scheduler) sweepTokens(ctx context.Context, report *Report) error {
	var refs []tokenRef
	err := s.db.WithContext(ctx).
		Model(&ownershipdomain.OwnershipRecord{}).
		Where("status <> ?", ownershipdomain.StatusCanceled).
		Distinct("product_id", "token_id").
		Order("product_id, token_id").
		Limit(s.cfg.TokenBatchSize).
		Find(&refs).Error
	if err != nil {
		return err
	}

	for _, ref := range refs {
		report.TokensChecked++
		s.checkToken(ctx, ref, report)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (s *Scheduler) checkToken(parent context.Context, ref tokenRef, report *Report) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.PerTokenTimeout)
	defer cancel()

	if err := s.ownershipSvc.CheckInvariant(ctx, ref.ProductID, ref.TokenID); err != nil {
		s.recordViolation("single_active_buyer", ref, err, report)
	}
	if err := s.transferSvc.CheckInvariant(ctx, ref.ProductID, ref.TokenID); err != nil {
		s.recordViolation("single_owner", ref, err, report)
	}
}

func (s *Scheduler) sweepThreads(ctx context.Context, report *Report) error {
	var threads []conversationdomain.Conversation
	err := s.db.WithContext(ctx).
		Select("product_id", "token_id", "user_id").
		Order("updated_at DESC").
		Limit(s.cfg.ThreadBatchSize).
		Find(&threads).Error
	if err != nil {
		return err
	}

	for i := range threads {
		report.ThreadsChecked++
		key := conversationdomain.Key{
			ProductID: threads[i].ProductID,
			TokenID:   threads[i].TokenID,
			UserID:    threads[i].UserID,
		}
		if err := s.conversationSvc.CheckInvariant(ctx, key); err != nil {
			report.Violations++
			s.metrics.RecordIntegrityViolation("unread_counter")
			s.log.Error("unread counter drifted",
				zap.Int64("product_id", int64(key.ProductID)),
				zap.Int64("user_id", int64(key.UserID)),
				zap.Error(err),
			)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (s *Scheduler) recordViolation(rule string, ref tokenRef, err error, report *Report) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("invariant check timed out",
			zap.String("rule", rule),
			zap.Int64("product_id", int64(ref.ProductID)),
			zap.Int64("token_id", ref.TokenID),
		)
		return
	}
	report.Violations++
	s.metrics.RecordIntegrityViolation(rule)
	s.log.Error("invariant violated",
		zap.String("rule", rule),
		zap.Int64("product_id", int64(ref.ProductID)),
		zap.Int64("token_id", ref.TokenID),
		zap.Error(err),
	)
}
