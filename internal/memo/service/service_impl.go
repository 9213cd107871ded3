package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/machikado/market/internal/actorcontext"
	"github.com/machikado/market/internal/authorization"
	"github.com/machikado/market/internal/clock"
	"github.com/machikado/market/internal/memo/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Authz authorization.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	authz authorization.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("memo.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		authz: p.Authz,
	}
}

func (s *Service) authorize(ctx context.Context) (actorcontext.Actor, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok || !actor.Role.IsStaff() {
		return actorcontext.Actor{}, domain.ErrUnauthorized
	}
	if err := s.authz.Authorize(ctx, actor, authorization.ObjectMemo, authorization.ActionManage); err != nil {
		return actorcontext.Actor{}, domain.ErrUnauthorized
	}
	return actor, nil
}

func (s *Service) Upsert(ctx context.Context, key domain.Key, body string) (*domain.Response, error) {
	actor, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domain.ErrEmptyBody
	}

	now := s.clock.Now()
	memo := &domain.SupportMemo{
		ID:        s.genID.Generate(),
		UserID:    key.UserID,
		ProductID: key.ProductID,
		TokenID:   key.TokenID,
		Body:      body,
		AuthorID:  actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Upsert(ctx, s.db, memo); err != nil {
		return nil, err
	}

	// Re-read so an update returns the surviving row, not the insert candidate.
	stored, err := s.repo.FindByKey(ctx, s.db, key)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(stored)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, key domain.Key) (*domain.Response, error) {
	if _, err := s.authorize(ctx); err != nil {
		return nil, err
	}

	memo, err := s.repo.FindByKey(ctx, s.db, key)
	if err != nil {
		return nil, err
	}
	if memo == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(memo)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, key domain.Key) error {
	if _, err := s.authorize(ctx); err != nil {
		return err
	}

	deleted, err := s.repo.DeleteByKey(ctx, s.db, key)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

func toResponse(m *domain.SupportMemo) domain.Response {
	return domain.Response{
		ID:        m.ID.String(),
		UserID:    m.UserID.String(),
		ProductID: m.ProductID.String(),
		TokenID:   m.TokenID,
		Body:      m.Body,
		AuthorID:  m.AuthorID.String(),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
