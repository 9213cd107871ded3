package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	memodomain "github.com/machikado/market/internal/memo/domain"
)

func memoKey(c *gin.Context) (memodomain.Key, error) {
	userID, err := parseSnowflakeID(c.Query("user_id"))
	if err != nil {
		return memodomain.Key{}, ErrInvalidRequest
	}
	productID, err := parseSnowflakeID(c.Query("product_id"))
	if err != nil {
		return memodomain.Key{}, ErrInvalidRequest
	}
	tokenID, err := parseOptionalInt64(c.Query("token_id"))
	if err != nil || tokenID == nil || *tokenID <= 0 {
		return memodomain.Key{}, ErrInvalidRequest
	}
	return memodomain.Key{UserID: userID, ProductID: productID, TokenID: *tokenID}, nil
}

type memoRequest struct {
	Body string `json:"body"`
}

func (s *Server) UpsertMemo(c *gin.Context) {
	key, err := memoKey(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req memoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.memoSvc.Upsert(c.Request.Context(), key, req.Body)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetMemo(c *gin.Context) {
	key, err := memoKey(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.memoSvc.Get(c.Request.Context(), key)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeleteMemo(c *gin.Context) {
	key, err := memoKey(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.memoSvc.Delete(c.Request.Context(), key); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
