package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/machikado/market/internal/actorcontext"
)

const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
	HeaderTownID   = "X-Town-Id"
)

// ActorContext lifts the gateway-authenticated identity headers into the
// request context. Authentication itself happens upstream; an absent user id
// simply leaves the context without an actor.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawUserID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if rawUserID == "" {
			c.Next()
			return
		}

		userID, err := snowflake.ParseString(rawUserID)
		if err != nil || userID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor := actorcontext.Actor{
			UserID: userID,
			Role:   actorcontext.ParseRole(c.GetHeader(HeaderUserRole)),
		}
		if rawTownID := strings.TrimSpace(c.GetHeader(HeaderTownID)); rawTownID != "" {
			if townID, err := snowflake.ParseString(rawTownID); err == nil {
				actor.TownID = townID
			}
		}

		ctx := actorcontext.WithActor(c.Request.Context(), actor)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := actorcontext.FromContext(c.Request.Context()); !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func StaffRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorcontext.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !actor.Role.IsStaff() {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}
