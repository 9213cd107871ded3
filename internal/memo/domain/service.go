package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	// Upsert writes the memo for the key, replacing any previous text.
	Upsert(ctx context.Context, key Key, body string) (*Response, error)
	Get(ctx context.Context, key Key) (*Response, error)
	Delete(ctx context.Context, key Key) error
}

type Response struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	TokenID   int64     `json:"token_id"`
	Body      string    `json:"body"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrNotFound     = errors.New("not_found")
	ErrEmptyBody    = errors.New("empty_body")
	ErrUnauthorized = errors.New("unauthorized")
)
