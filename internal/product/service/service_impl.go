package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/machikado/market/internal/clock"
	"github.com/machikado/market/internal/product/domain"
	"github.com/machikado/market/pkg/db/pagination"
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
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("product.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	townID, err := snowflake.ParseString(strings.TrimSpace(req.TownID))
	if err != nil || townID == 0 {
		return nil, domain.ErrInvalidTown
	}
	businessID, err := snowflake.ParseString(strings.TrimSpace(req.BusinessID))
	if err != nil || businessID == 0 {
		return nil, domain.ErrInvalidTown
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Stock < 0 {
		return nil, domain.ErrInvalidStock
	}

	description := strings.TrimSpace(ptrToString(req.Description))
	var descriptionPtr *string
	if description != "" {
		descriptionPtr = &description
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.clock.Now()
	p := &domain.Product{
		ID:          s.genID.Generate(),
		TownID:      townID,
		BusinessID:  businessID,
		Code:        slug.Make(name),
		Name:        name,
		Description: descriptionPtr,
		Stock:       req.Stock,
		Active:      active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, s.db, p); err != nil {
		return nil, err
	}

	resp := toResponse(p)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	productID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	var cursor *pagination.Cursor
	if token := strings.TrimSpace(req.PageToken); token != "" {
		decoded, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, err
		}
		cursor = decoded
	}

	size := pagination.Clamp(req.PageSize)
	// One extra row tells whether another page exists.
	items, err := s.repo.List(ctx, s.db, req, cursor, size+1)
	if err != nil {
		return nil, err
	}

	var info pagination.PageInfo
	if len(items) > size {
		items = items[:size]
		last := items[len(items)-1]
		info = pagination.PageInfo{
			HasMore:       true,
			NextPageToken: pagination.EncodeCursor(pagination.Cursor{ID: last.ID.String(), CreatedAt: last.CreatedAt}),
		}
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return &domain.ListResponse{Products: resp, PageInfo: info}, nil
}

func toResponse(p *domain.Product) domain.Response {
	return domain.Response{
		ID:          p.ID.String(),
		TownID:      p.TownID.String(),
		BusinessID:  p.BusinessID.String(),
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Stock:       p.Stock,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func ptrToString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
