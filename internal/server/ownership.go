package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/machikado/market/internal/actorcontext"
	ownershipdomain "github.com/machikado/market/internal/ownership/domain"
)

func (s *Server) ListOwnershipsByUser(c *gin.Context) {
	userID, err := parseSnowflakeID(c.Param("userId"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	actor, _ := actorcontext.FromContext(c.Request.Context())
	if !actor.Role.IsStaff() && actor.UserID != userID {
		AbortWithError(c, ErrForbidden)
		return
	}

	resp, err := s.ownershipSvc.ListByUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ownerships": resp})
}

func (s *Server) GetOwnership(c *gin.Context) {
	productID, tokenID, err := unitParams(c)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.ownershipSvc.Get(c.Request.Context(), productID, tokenID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) CancelOwnership(c *gin.Context) {
	productID, tokenID, err := unitParams(c)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.ownershipSvc.Cancel(c.Request.Context(), productID, tokenID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type adminStatusRequest struct {
	AdminStatus string `json:"admin_status"`
}

func (s *Server) UpdateOwnershipAdminStatus(c *gin.Context) {
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

	resp, err := s.ownershipSvc.UpdateAdminStatus(c.Request.Context(), recordID, ownershipdomain.AdminStatus(req.AdminStatus))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type attributesRequest struct {
	Attributes []ownershipdomain.Attribute `json:"attributes"`
}

func (s *Server) UpdateOwnershipAttributes(c *gin.Context) {
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

	resp, err := s.ownershipSvc.UpdateAttributes(c.Request.Context(), recordID, req.Attributes)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type mintCallbackRequest struct {
	ProductID string `json:"product_id"`
	TokenID   int64  `json:"token_id"`
}

// HandleMintCallback is posted by the minting service once a token lands on
// chain. Redelivery against a token that already minted fails the transition
// check and maps to a conflict.
func (s *Server) HandleMintCallback(c *gin.Context) {
	var req mintCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	productID, err := parseSnowflakeID(req.ProductID)
	if err != nil || req.TokenID <= 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.ownershipSvc.MarkMinted(c.Request.Context(), productID, req.TokenID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func unitParams(c *gin.Context) (snowflake.ID, int64, error) {
	productID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		return 0, 0, err
	}
	token, err := parseOptionalInt64(c.Param("tokenId"))
	if err != nil || token == nil || *token <= 0 {
		return 0, 0, ErrInvalidRequest
	}
	return productID, *token, nil
}
