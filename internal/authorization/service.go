package authorization

import (
	"context"
	"errors"

	"github.com/machikado/market/internal/actorcontext"
)

// Service answers "may this actor perform this action on this object within
// their town scope". Buyers never pass through here; their access is checked
// against record ownership by the owning service.
type Service interface {
	Authorize(ctx context.Context, actor actorcontext.Actor, object string, action string) error
}

var (
	ErrInvalidActor = errors.New("invalid_actor")
	ErrInvalidTown  = errors.New("invalid_town")
	ErrForbidden    = errors.New("forbidden")
)
