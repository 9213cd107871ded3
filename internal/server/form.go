package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/machikado/market/internal/actorcontext"
	formdomain "github.com/machikado/market/internal/form/domain"
	"gorm.io/datatypes"
)

type formAnswerRequest struct {
	ProductID string          `json:"product_id"`
	TokenID   int64           `json:"token_id"`
	Payload   json.RawMessage `json:"payload"`
}

// IngestFormAnswer stores a questionnaire submission for a unit the caller
// bought. The payload stays opaque; the support console only checks existence.
func (s *Server) IngestFormAnswer(c *gin.Context) {
	actor, _ := actorcontext.FromContext(c.Request.Context())

	var req formAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	productID, err := parseSnowflakeID(req.ProductID)
	if err != nil || req.TokenID <= 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	answer := formdomain.FormAnswer{
		ID:        s.genID.Generate(),
		UserID:    actor.UserID,
		ProductID: productID,
		TokenID:   req.TokenID,
		Payload:   datatypes.JSON(req.Payload),
		CreatedAt: s.clock.Now(),
	}
	if err := s.formRepo.Create(c.Request.Context(), s.db, &answer); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, answer)
}
