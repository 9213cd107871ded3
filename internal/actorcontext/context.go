package actorcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Role identifies which side of the marketplace an actor acts for.
type Role string

const (
	RoleBuyer   Role = "buyer"
	RoleSupport Role = "support"
	RoleAdmin   Role = "admin"
)

// Actor is the authenticated identity attached to every operation. It replaces
// any ambient session state: services read it from the request context only.
type Actor struct {
	UserID snowflake.ID
	Role   Role
	// TownID scopes support staff to a municipality. Zero means unscoped (admin).
	TownID snowflake.ID
}

type actorKey struct{}

// WithActor stores the acting identity in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// FromContext returns the acting identity, if set.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || actor.UserID == 0 {
		return Actor{}, false
	}
	return actor, true
}

// ParseRole normalizes a role string; unknown values map to buyer.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleSupport:
		return RoleSupport
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleBuyer
	}
}

// IsStaff reports whether the role may use the support console.
func (r Role) IsStaff() bool {
	return r == RoleSupport || r == RoleAdmin
}
