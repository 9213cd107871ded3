package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	// Open records a checkout attempt and returns the gateway redirect target.
	Open(ctx context.Context, req OpenRequest) (*Response, error)
	// Resolve applies a gateway callback. Completed outcomes decrement stock and
	// create one ownership record per unit inside a single transaction.
	// Re-delivery of a callback against a terminal payment fails AlreadyResolved.
	Resolve(ctx context.Context, reference string, outcome Outcome) (*Response, error)
	// Cancel closes an open payment before the gateway resolves it.
	Cancel(ctx context.Context, reference string) (*Response, error)
	Get(ctx context.Context, reference string) (*Response, error)
}

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCanceled  Outcome = "canceled"
)

func ParseOutcome(raw string) (Outcome, bool) {
	switch Outcome(raw) {
	case OutcomeCompleted:
		return OutcomeCompleted, true
	case OutcomeCanceled:
		return OutcomeCanceled, true
	default:
		return "", false
	}
}

type OpenRequest struct {
	ProductID string `json:"product_id"`
	Amount    int    `json:"amount"`
}

type Response struct {
	ID          string     `json:"id"`
	Reference   string     `json:"reference"`
	ProductID   string     `json:"product_id"`
	BuyerID     string     `json:"buyer_id"`
	Amount      int        `json:"amount"`
	Status      Status     `json:"status"`
	RedirectURL string     `json:"redirect_url,omitempty"`
	TokenIDs    []int64    `json:"token_ids,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// MintRequester submits a mint request for a purchased unit to the external
// minting service. Failures are logged and retried out of band; the ownership
// record stays purchased until the mint callback lands.
type MintRequester interface {
	RequestMint(ctx context.Context, productID, tokenID int64) error
}

var (
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrThrottled       = errors.New("throttled")
	ErrOutOfStock      = errors.New("out_of_stock")
	ErrAlreadyResolved = errors.New("already_resolved")
	ErrInvalidOutcome  = errors.New("invalid_outcome")
	ErrInvalidProduct  = errors.New("invalid_product")
	ErrNotFound        = errors.New("not_found")
	ErrUnauthorized    = errors.New("unauthorized")
)
