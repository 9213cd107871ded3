package domain

import (
	"context"
	"errors"
	"time"

	"github.com/machikado/market/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
}

type CreateRequest struct {
	TownID      string  `json:"town_id"`
	BusinessID  string  `json:"business_id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Stock       int     `json:"stock"`
	Active      *bool   `json:"active"`
}

type ListRequest struct {
	TownID     string
	BusinessID string
	Active     *bool
	SortBy     string
	OrderBy    string
	// Cursor paging. A non-empty PageToken overrides SortBy/OrderBy: pages
	// always walk (created_at, id) ascending.
	PageToken string
	PageSize  int
}

type ListResponse struct {
	Products []Response          `json:"products"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Response struct {
	ID          string    `json:"id"`
	TownID      string    `json:"town_id"`
	BusinessID  string    `json:"business_id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Stock       int       `json:"stock"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidTown  = errors.New("invalid_town")
	ErrInvalidStock = errors.New("invalid_stock")
	ErrInvalidID    = errors.New("invalid_id")
	ErrNotFound     = errors.New("not_found")
)
