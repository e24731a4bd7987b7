package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resultsdomain "github.com/smallbiznis/stagevote/internal/results/domain"
)

func (s *Server) ContestResults(c *gin.Context) {
	contestID, err := parseSnowflake(c.Param("id"))
	if err != nil {
		AbortWithError(c, resultsdomain.ErrInvalidID)
		return
	}

	resp, err := s.resultsSvc.Aggregate(c.Request.Context(), contestID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PublicResults(c *gin.Context) {
	contestID, err := parseSnowflake(c.Param("id"))
	if err != nil {
		AbortWithError(c, resultsdomain.ErrInvalidID)
		return
	}

	resp, err := s.resultsSvc.PublicResults(c.Request.Context(), contestID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
