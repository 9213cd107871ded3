package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, answer *FormAnswer) error
	// HasSubmission reports whether at least one answer exists for the key.
	HasSubmission(ctx context.Context, db *gorm.DB, key SubmissionKey) (bool, error)
	// SubmittedKeys returns the distinct keys with answers among the given
	// products, letting the support console batch its submitted predicate.
	SubmittedKeys(ctx context.Context, db *gorm.DB, productIDs []snowflake.ID) (map[SubmissionKey]struct{}, error)
}

var ErrEmptyPayload = errors.New("empty_payload")
