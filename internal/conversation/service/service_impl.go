package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/machikado/market/internal/actorcontext"
	"github.com/machikado/market/internal/authorization"
	"github.com/machikado/market/internal/clock"
	"github.com/machikado/market/internal/config"
	"github.com/machikado/market/internal/conversation/domain"
	"github.com/machikado/market/internal/observability/metrics"
	"github.com/machikado/market/internal/ratelimit"
	"github.com/machikado/market/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Guard   *ratelimit.MutationGuard
	Authz   authorization.Service
	Holder  *config.SupportConfigHolder
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	guard   *ratelimit.MutationGuard
	authz   authorization.Service
	holder  *config.SupportConfigHolder
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("conversation.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		guard:   p.Guard,
		authz:   p.Authz,
		holder:  p.Holder,
		metrics: p.Metrics,
	}
}

// checkAccess enforces who may touch a thread: buyers only their own, staff
// through the authorization service.
func (s *Service) checkAccess(ctx context.Context, key domain.Key, action string) (actorcontext.Actor, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return actorcontext.Actor{}, domain.ErrUnauthorized
	}
	if actor.Role.IsStaff() {
		if err := s.authz.Authorize(ctx, actor, authorization.ObjectConversation, action); err != nil {
			return actorcontext.Actor{}, domain.ErrUnauthorized
		}
		return actor, nil
	}
	if actor.UserID != key.UserID {
		return actorcontext.Actor{}, domain.ErrUnauthorized
	}
	return actor, nil
}

func (s *Service) Post(ctx context.Context, key domain.Key, req domain.PostRequest) (*domain.MessageResponse, error) {
	actor, err := s.checkAccess(ctx, key, authorization.ActionWrite)
	if err != nil {
		return nil, err
	}

	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, domain.ErrEmptyMessage
	}

	senderRole := domain.SenderBuyer
	if actor.Role.IsStaff() {
		senderRole = domain.SenderSupport
	}

	conversation, err := s.repo.FindByKey(ctx, s.db, key)
	if err != nil {
		return nil, err
	}

	guardID := s.guardID(key, conversation)
	lockToken, acquired, err := s.guard.LockConversation(ctx, guardID)
	if err != nil {
		s.log.Warn("conversation guard unavailable", zap.Error(err))
	} else if !acquired {
		return nil, domain.ErrContended
	} else {
		defer func() {
			if err := s.guard.ReleaseConversation(ctx, guardID, lockToken); err != nil {
				s.log.Warn("conversation guard release failed", zap.Error(err))
			}
		}()
	}

	var message *domain.Message
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()

		conversation, err := s.repo.FindByKeyForUpdate(ctx, tx, key)
		if err != nil {
			return err
		}
		if conversation == nil {
			conversation = &domain.Conversation{
				ID:        s.genID.Generate(),
				ProductID: key.ProductID,
				TokenID:   key.TokenID,
				UserID:    key.UserID,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if createErr := s.repo.Create(ctx, tx, conversation); createErr != nil {
				if !db.IsDuplicateKeyErr(createErr) {
					return createErr
				}
				// A concurrent first post won the insert; attach to its thread
				// instead of splitting the conversation.
				winner, err := s.repo.FindByKeyForUpdate(ctx, tx, key)
				if err != nil {
					return err
				}
				if winner == nil {
					return createErr
				}
				conversation = winner
			}
		}

		message = &domain.Message{
			ID:             s.genID.Generate(),
			ConversationID: conversation.ID,
			SenderID:       actor.UserID,
			SenderRole:     senderRole,
			Body:           body,
			Images:         datatypes.NewJSONSlice(req.Images),
			CreatedAt:      now,
		}
		if err := s.repo.CreateMessage(ctx, tx, message); err != nil {
			return err
		}

		switch senderRole {
		case domain.SenderBuyer:
			conversation.SupportUnreadCount++
		case domain.SenderSupport:
			conversation.SupportUnreadCount = 0
			conversation.BuyerUnreadCount++
		}
		conversation.UpdatedAt = now
		return s.repo.UpdateCounters(ctx, tx, conversation)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordMessagePosted(string(senderRole))
	resp := toMessageResponse(message)
	return &resp, nil
}

func (s *Service) Acknowledge(ctx context.Context, key domain.Key) (*domain.Response, error) {
	actor, err := s.checkAccess(ctx, key, authorization.ActionWrite)
	if err != nil {
		return nil, err
	}

	var acknowledged *domain.Conversation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conversation, err := s.repo.FindByKeyForUpdate(ctx, tx, key)
		if err != nil {
			return err
		}
		if conversation == nil {
			return domain.ErrNotFound
		}

		if actor.Role.IsStaff() {
			conversation.SupportUnreadCount = 0
		} else {
			conversation.BuyerUnreadCount = 0
		}
		conversation.UpdatedAt = s.clock.Now()
		if err := s.repo.UpdateCounters(ctx, tx, conversation); err != nil {
			return err
		}
		acknowledged = conversation
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := toResponse(acknowledged, nil)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, key domain.Key) (*domain.Response, error) {
	if _, err := s.checkAccess(ctx, key, authorization.ActionView); err != nil {
		return nil, err
	}

	conversation, err := s.repo.FindByKey(ctx, s.db, key)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, domain.ErrNotFound
	}

	messages, err := s.repo.ListMessages(ctx, s.db, conversation.ID)
	if err != nil {
		return nil, err
	}

	resp := toResponse(conversation, messages)
	return &resp, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Response, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	id, err := snowflake.ParseString(strings.TrimSpace(userID))
	if err != nil || id == 0 {
		return nil, domain.ErrNotFound
	}
	if !actor.Role.IsStaff() && actor.UserID != id {
		return nil, domain.ErrUnauthorized
	}
	if actor.Role.IsStaff() {
		if err := s.authz.Authorize(ctx, actor, authorization.ObjectConversation, authorization.ActionView); err != nil {
			return nil, domain.ErrUnauthorized
		}
	}

	items, err := s.repo.ListByUser(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i], nil))
	}
	return resp, nil
}

func (s *Service) Search(ctx context.Context, key domain.Key, substring string) ([]domain.MessageResponse, error) {
	if _, err := s.checkAccess(ctx, key, authorization.ActionView); err != nil {
		return nil, err
	}

	substring = strings.TrimSpace(substring)
	if substring == "" {
		return nil, domain.ErrInvalidSearchQuery
	}

	conversation, err := s.repo.FindByKey(ctx, s.db, key)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, domain.ErrNotFound
	}

	limit := s.holder.Get().SearchResultLimit
	messages, err := s.repo.SearchMessages(ctx, s.db, conversation.ID, substring, limit)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.MessageResponse, 0, len(messages))
	for i := range messages {
		resp = append(resp, toMessageResponse(&messages[i]))
	}
	return resp, nil
}

func (s *Service) CheckInvariant(ctx context.Context, key domain.Key) error {
	conversation, err := s.repo.FindByKey(ctx, s.db, key)
	if err != nil {
		return err
	}
	if conversation == nil {
		return domain.ErrNotFound
	}

	buyerMessages, err := s.repo.CountBySender(ctx, s.db, conversation.ID, domain.SenderBuyer)
	if err != nil {
		return err
	}
	if int64(conversation.SupportUnreadCount) > buyerMessages {
		s.log.Error("unread counter exceeds buyer messages",
			zap.String("conversation_id", conversation.ID.String()),
			zap.Int("support_unread_count", conversation.SupportUnreadCount),
			zap.Int64("buyer_messages", buyerMessages),
		)
		return domain.ErrInvariantViolated
	}
	return nil
}

// guardID keys the cross-process lock. Before the row exists the key fields
// stand in for the id so two first-posts still serialize.
func (s *Service) guardID(key domain.Key, conversation *domain.Conversation) snowflake.ID {
	if conversation != nil {
		return conversation.ID
	}
	token := int64(-1)
	if key.TokenID != nil {
		token = *key.TokenID
	}
	seed := fmt.Sprintf("%s:%d:%s", key.ProductID, token, key.UserID)
	var h int64
	for _, c := range seed {
		h = h*31 + int64(c)
	}
	if h < 0 {
		h = -h
	}
	return snowflake.ID(h)
}

func toResponse(c *domain.Conversation, messages []domain.Message) domain.Response {
	resp := domain.Response{
		ID:                 c.ID.String(),
		ProductID:          c.ProductID.String(),
		TokenID:            c.TokenID,
		UserID:             c.UserID.String(),
		SupportUnreadCount: c.SupportUnreadCount,
		BuyerUnreadCount:   c.BuyerUnreadCount,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
	for i := range messages {
		resp.Messages = append(resp.Messages, toMessageResponse(&messages[i]))
	}
	return resp
}

func toMessageResponse(m *domain.Message) domain.MessageResponse {
	return domain.MessageResponse{
		ID:         m.ID.String(),
		SenderID:   m.SenderID.String(),
		SenderRole: m.SenderRole,
		Body:       m.Body,
		Images:     m.Images,
		CreatedAt:  m.CreatedAt,
	}
}
