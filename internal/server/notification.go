package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	notificationdomain "github.com/smallbiznis/stagevote/internal/notification/domain"
)

func (s *Server) ListNotifications(c *gin.Context) {
	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.notificationSvc.ListMine(c.Request.Context(), query.Limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	id, err := parseSnowflake(c.Param("id"))
	if err != nil {
		AbortWithError(c, notificationdomain.ErrInvalidID)
		return
	}

	if err := s.notificationSvc.MarkRead(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"read": true}})
}
