package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	ownershipdomain "github.com/machikado/market/internal/ownership/domain"
)

type Service interface {
	// Record applies a transfer notification: the named user becomes the sole
	// holder and the original buyer's record is flipped to token_transferred.
	// Safe to call again for a later transfer of the same token, including one
	// that moves the token back to the original buyer.
	Record(ctx context.Context, productID snowflake.ID, tokenID int64, newHolderID snowflake.ID) (*Response, error)
	// CurrentHolder resolves who holds the token right now: the is_owner record
	// if a transfer happened, otherwise the original buyer.
	CurrentHolder(ctx context.Context, productID snowflake.ID, tokenID int64) (snowflake.ID, error)
	UpdateAdminStatus(ctx context.Context, recordID snowflake.ID, status ownershipdomain.AdminStatus) (*Response, error)
	UpdateAttributes(ctx context.Context, recordID snowflake.ID, attributes []ownershipdomain.Attribute) (*Response, error)
	// CheckInvariant verifies the at-most-one-owner rule for a token.
	CheckInvariant(ctx context.Context, productID snowflake.ID, tokenID int64) error
}

type Response struct {
	ID          string                        `json:"id"`
	ProductID   string                        `json:"product_id"`
	TokenID     int64                         `json:"token_id"`
	HolderID    string                        `json:"holder_id"`
	IsOwner     bool                          `json:"is_owner"`
	AdminStatus ownershipdomain.AdminStatus   `json:"admin_status"`
	Attributes  []ownershipdomain.Attribute   `json:"attributes"`
	CreatedAt   time.Time                     `json:"created_at"`
	UpdatedAt   time.Time                     `json:"updated_at"`
}

var (
	ErrNotFound          = errors.New("not_found")
	ErrNotMinted         = errors.New("not_minted")
	ErrTransferContended = errors.New("transfer_contended")
	ErrInvariantViolated = errors.New("holder_invariant_violated")
)
