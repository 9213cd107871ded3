package domain

import (
	"context"
	"errors"
	"time"

	ownershipdomain "github.com/machikado/market/internal/ownership/domain"
)

// Perspective says which party a console row describes. A token appears once
// per distinct party: always for its purchaser, and again for the current
// holder when ownership moved off-platform.
type Perspective string

const (
	PerspectivePurchaser Perspective = "purchaser"
	PerspectiveHolder    Perspective = "holder"
)

type SortField string

const (
	SortPaymentDate  SortField = "payment_date"
	SortTownName     SortField = "town_name"
	SortBusinessName SortField = "business_name"
	SortProductName  SortField = "product_name"
	SortAdminStatus  SortField = "admin_status"
	SortSubmitted    SortField = "submitted"
)

func ParseSortField(raw string) (SortField, bool) {
	switch SortField(raw) {
	case SortPaymentDate, SortTownName, SortBusinessName, SortProductName, SortAdminStatus, SortSubmitted:
		return SortField(raw), true
	case "":
		return SortPaymentDate, true
	default:
		return "", false
	}
}

type Filter struct {
	PaidFrom    *time.Time
	PaidTo      *time.Time
	TownID      *string
	BusinessID  *string
	ProductID   *string
	AdminStatus *ownershipdomain.AdminStatus
	Submitted   *bool
}

type Sort struct {
	Field      SortField
	Descending bool
}

type ListRequest struct {
	Filter Filter
	Sort   Sort
	Page   int
}

// Row is one console line. Town, business and product names degrade to nil
// when the referenced registry rows are missing.
type Row struct {
	ProductID    string                      `json:"product_id"`
	TokenID      int64                       `json:"token_id"`
	Perspective  Perspective                 `json:"perspective"`
	UserID       string                      `json:"user_id"`
	Status       ownershipdomain.Status      `json:"status"`
	AdminStatus  ownershipdomain.AdminStatus `json:"admin_status"`
	Attributes   []ownershipdomain.Attribute `json:"attributes"`
	PaymentDate  time.Time                   `json:"payment_date"`
	TownName     *string                     `json:"town_name"`
	BusinessName *string                     `json:"business_name"`
	ProductName  *string                     `json:"product_name"`
	UnreadCount  int                         `json:"unread_count"`
	Escalated    bool                        `json:"escalated"`
	Memo         *string                     `json:"memo"`
	Submitted    bool                        `json:"submitted"`
}

type ListResponse struct {
	Rows     []Row `json:"rows"`
	Total    int   `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

type Service interface {
	// ListPurchasers joins the ownership, transfer, catalog, registry,
	// conversation, memo and form stores into the filtered, sorted console view.
	ListPurchasers(ctx context.Context, req ListRequest) (*ListResponse, error)
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidSort  = errors.New("invalid_sort")
	ErrInvalidPage  = errors.New("invalid_page")
)
