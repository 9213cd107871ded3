package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ownershipdomain "github.com/machikado/market/internal/ownership/domain"
	supportdomain "github.com/machikado/market/internal/support/domain"
)

func (s *Server) ListPurchasers(c *gin.Context) {
	req, err := purchaserListRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.supportSvc.ListPurchasers(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func purchaserListRequest(c *gin.Context) (supportdomain.ListRequest, error) {
	var req supportdomain.ListRequest

	paidFrom, err := parseOptionalTime(c.Query("paid_from"), false)
	if err != nil {
		return req, ErrInvalidRequest
	}
	paidTo, err := parseOptionalTime(c.Query("paid_to"), true)
	if err != nil {
		return req, ErrInvalidRequest
	}
	req.Filter.PaidFrom = paidFrom
	req.Filter.PaidTo = paidTo

	req.Filter.TownID = optionalString(c.Query("town_id"))
	req.Filter.BusinessID = optionalString(c.Query("business_id"))
	req.Filter.ProductID = optionalString(c.Query("product_id"))

	if raw := strings.TrimSpace(c.Query("admin_status")); raw != "" {
		status := ownershipdomain.AdminStatus(raw)
		if !ownershipdomain.ValidAdminStatus(status) {
			return req, ErrInvalidRequest
		}
		req.Filter.AdminStatus = &status
	}

	submitted, err := parseOptionalBool(c.Query("submitted"))
	if err != nil {
		return req, ErrInvalidRequest
	}
	req.Filter.Submitted = submitted

	field, ok := supportdomain.ParseSortField(c.Query("sort"))
	if !ok {
		return req, supportdomain.ErrInvalidSort
	}
	req.Sort = supportdomain.Sort{
		Field:      field,
		Descending: strings.EqualFold(c.Query("order"), "desc"),
	}

	page, err := parseOptionalInt64(c.Query("page"))
	if err != nil {
		return req, ErrInvalidRequest
	}
	req.Page = 1
	if page != nil {
		if *page < 1 {
			return req, supportdomain.ErrInvalidPage
		}
		req.Page = int(*page)
	}

	return req, nil
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
