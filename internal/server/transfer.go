package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ownershipdomain "github.com/machikado/market/internal/ownership/domain"
)

type transferNotificationRequest struct {
	ProductID string `json:"product_id"`
	TokenID   int64  `json:"token_id"`
	HolderID  string `json:"holder_id"`
}

// HandleTransferNotification is posted by the chain watcher when a token moves
// wallets. Idempotent for the same holder; a later transfer for the same token
// replaces the previous owner row.
func (s *Server) HandleTransferNotification(c *gin.Context) {
	var req transferNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	productID, err := parseSnowflakeID(req.ProductID)
	if err != nil || req.TokenID <= 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	holderID, err := parseSnowflakeID(req.HolderID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.transferSvc.Record(c.Request.Context(), productID, req.TokenID, holderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetCurrentHolder(c *gin.Context) {
	productID, tokenID, err := unitParams(c)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	holderID, err := s.transferSvc.CurrentHolder(c.Request.Context(), productID, tokenID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product_id": productID.String(),
		"token_id":   tokenID,
		"holder_id":  holderID.String(),
	})
}

func (s *Server) UpdateTransferAdminStatus(c *gin.Context) {
	recordID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req adminStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.transferSvc.UpdateAdminStatus(c.Request.Context(), recordID, ownershipdomain.AdminStatus(req.AdminStatus))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) UpdateTransferAttributes(c *gin.Context) {
	recordID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req attributesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.transferSvc.UpdateAttributes(c.Request.Context(), recordID, req.Attributes)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
