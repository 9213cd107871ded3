package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListTowns(c *gin.Context) {
	towns, err := s.refrepo.ListTowns(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"towns": towns})
}

func (s *Server) ListBusinesses(c *gin.Context) {
	townID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	town, err := s.refrepo.FindTown(c.Request.Context(), townID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if town == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	businesses, err := s.refrepo.ListBusinessesByTown(c.Request.Context(), townID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"town": town, "businesses": businesses})
}
