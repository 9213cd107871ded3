package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	productdomain "github.com/machikado/market/internal/product/domain"
)

func (s *Server) CreateProduct(c *gin.Context) {
	var req productdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.productSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) GetProductByID(c *gin.Context) {
	resp, err := s.productSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListProducts(c *gin.Context) {
	active, err := parseOptionalBool(c.Query("active"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	pageSize, err := parseOptionalInt(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	req := productdomain.ListRequest{
		TownID:     c.Query("town_id"),
		BusinessID: c.Query("business_id"),
		Active:     active,
		SortBy:     c.Query("sort_by"),
		OrderBy:    c.Query("order_by"),
		PageToken:  c.Query("page_token"),
		PageSize:   pageSize,
	}

	resp, err := s.productSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
