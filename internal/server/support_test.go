package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	supportdomain "github.com/machikado/market/internal/support/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func purchaserRequestFor(t *testing.T, query string) (supportdomain.ListRequest, error) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/support/purchasers"+query, nil)
	return purchaserListRequest(c)
}

func TestPurchaserListRequestPage(t *testing.T) {
	req, err := purchaserRequestFor(t, "")
	require.NoError(t, err)
	assert.Equal(t, 1, req.Page)

	req, err = purchaserRequestFor(t, "?page=3")
	require.NoError(t, err)
	assert.Equal(t, 3, req.Page)

	// Zero and negative pages are rejected, not silently clamped.
	_, err = purchaserRequestFor(t, "?page=0")
	assert.ErrorIs(t, err, supportdomain.ErrInvalidPage)

	_, err = purchaserRequestFor(t, "?page=-2")
	assert.ErrorIs(t, err, supportdomain.ErrInvalidPage)

	_, err = purchaserRequestFor(t, "?page=two")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
