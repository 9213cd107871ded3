package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// CreateOnPurchase registers the active buyer for a freshly purchased unit.
	CreateOnPurchase(ctx context.Context, productID snowflake.ID, tokenID int64, userID snowflake.ID) (*Response, error)
	// MarkMinted moves purchased -> token_minted; any other source status is rejected.
	MarkMinted(ctx context.Context, productID snowflake.ID, tokenID int64) (*Response, error)
	// Cancel terminates a record before minting. Irreversible.
	Cancel(ctx context.Context, productID snowflake.ID, tokenID int64) (*Response, error)
	UpdateAttributes(ctx context.Context, recordID snowflake.ID, attributes []Attribute) (*Response, error)
	UpdateAdminStatus(ctx context.Context, recordID snowflake.ID, status AdminStatus) (*Response, error)
	Get(ctx context.Context, productID snowflake.ID, tokenID int64) (*Response, error)
	ListByUser(ctx context.Context, userID snowflake.ID) ([]Response, error)
	// CheckInvariant verifies the single-active-buyer rule for a token.
	CheckInvariant(ctx context.Context, productID snowflake.ID, tokenID int64) error
}

type Response struct {
	ID          string      `json:"id"`
	ProductID   string      `json:"product_id"`
	TokenID     int64       `json:"token_id"`
	UserID      string      `json:"user_id"`
	Status      Status      `json:"status"`
	AdminStatus AdminStatus `json:"admin_status"`
	Attributes  []Attribute `json:"attributes"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

var (
	ErrNotFound          = errors.New("not_found")
	ErrDuplicateToken    = errors.New("duplicate_token")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrNotMinted         = errors.New("not_minted")
	ErrInvalidAdminState = errors.New("invalid_admin_status")
	ErrInvariantViolated = errors.New("ownership_invariant_violated")
)
