package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	// Post appends a message to the thread, creating it on first contact. A buyer
	// message raises the support unread counter; a support message raises the
	// buyer counter and clears the support one, replying implies having read.
	Post(ctx context.Context, key Key, req PostRequest) (*MessageResponse, error)
	// Acknowledge clears the calling side's unread counter without posting.
	Acknowledge(ctx context.Context, key Key) (*Response, error)
	Get(ctx context.Context, key Key) (*Response, error)
	ListByUser(ctx context.Context, userID string) ([]Response, error)
	// Search filters messages case-insensitively. Unread state is not touched.
	Search(ctx context.Context, key Key, substring string) ([]MessageResponse, error)
	// CheckInvariant reports whether the support unread counter exceeds the
	// number of buyer-authored messages.
	CheckInvariant(ctx context.Context, key Key) error
}

type PostRequest struct {
	Body   string   `json:"body"`
	Images []string `json:"images,omitempty"`
}

type Response struct {
	ID                 string            `json:"id"`
	ProductID          string            `json:"product_id"`
	TokenID            *int64            `json:"token_id,omitempty"`
	UserID             string            `json:"user_id"`
	SupportUnreadCount int               `json:"support_unread_count"`
	BuyerUnreadCount   int               `json:"buyer_unread_count"`
	Messages           []MessageResponse `json:"messages,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

type MessageResponse struct {
	ID         string     `json:"id"`
	SenderID   string     `json:"sender_id"`
	SenderRole SenderRole `json:"sender_role"`
	Body       string     `json:"body"`
	Images     []string   `json:"images,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

var (
	ErrNotFound           = errors.New("not_found")
	ErrEmptyMessage       = errors.New("empty_message")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrContended          = errors.New("conversation_contended")
	ErrInvariantViolated  = errors.New("invariant_violated")
	ErrInvalidSearchQuery = errors.New("invalid_search_query")
)
