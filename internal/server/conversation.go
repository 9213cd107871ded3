package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/machikado/market/internal/actorcontext"
	conversationdomain "github.com/machikado/market/internal/conversation/domain"
)

// conversationKey builds the thread key from query parameters. Buyers address
// their own thread implicitly; staff name the buyer with user_id.
func conversationKey(c *gin.Context) (conversationdomain.Key, error) {
	productID, err := parseSnowflakeID(c.Query("product_id"))
	if err != nil {
		return conversationdomain.Key{}, ErrInvalidRequest
	}

	tokenID, err := parseOptionalInt64(c.Query("token_id"))
	if err != nil {
		return conversationdomain.Key{}, ErrInvalidRequest
	}

	key := conversationdomain.Key{ProductID: productID, TokenID: tokenID}

	if raw := c.Query("user_id"); raw != "" {
		userID, err := parseSnowflakeID(raw)
		if err != nil {
			return conversationdomain.Key{}, ErrInvalidRequest
		}
		key.UserID = userID
	} else if actor, ok := actorcontext.FromContext(c.Request.Context()); ok {
		key.UserID = actor.UserID
	}

	return key, nil
}

func (s *Server) GetConversation(c *gin.Context) {
	key, err := conversationKey(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.conversationSvc.Get(c.Request.Context(), key)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) PostMessage(c *gin.Context) {
	key, err := conversationKey(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req conversationdomain.PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.conversationSvc.Post(c.Request.Context(), key, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) AcknowledgeConversation(c *gin.Context) {
	key, err := conversationKey(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.conversationSvc.Acknowledge(c.Request.Context(), key)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) SearchConversation(c *gin.Context) {
	key, err := conversationKey(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.conversationSvc.Search(c.Request.Context(), key, c.Query("q"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": resp})
}

func (s *Server) ListConversationsByUser(c *gin.Context) {
	resp, err := s.conversationSvc.ListByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": resp})
}
