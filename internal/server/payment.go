package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/machikado/market/internal/payment/domain"
)

func (s *Server) OpenPayment(c *gin.Context) {
	var req paymentdomain.OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.paymentSvc.Open(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) GetPayment(c *gin.Context) {
	resp, err := s.paymentSvc.Get(c.Request.Context(), c.Param("reference"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) CancelPayment(c *gin.Context) {
	resp, err := s.paymentSvc.Cancel(c.Request.Context(), c.Param("reference"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type paymentCallbackRequest struct {
	Outcome string `json:"outcome"`
}

// ResolvePayment is the gateway callback. Redelivery against an already
// resolved payment returns a conflict so the gateway stops retrying.
func (s *Server) ResolvePayment(c *gin.Context) {
	var req paymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	outcome, ok := paymentdomain.ParseOutcome(req.Outcome)
	if !ok {
		AbortWithError(c, paymentdomain.ErrInvalidOutcome)
		return
	}

	resp, err := s.paymentSvc.Resolve(c.Request.Context(), c.Param("reference"), outcome)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
