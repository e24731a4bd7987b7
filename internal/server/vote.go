package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/stagevote/internal/netctx"
	votedomain "github.com/smallbiznis/stagevote/internal/vote/domain"
)

// VoteCastRateLimit throttles cast attempts per client IP. A broken limiter
// backend fails open; votes keep flowing and the error shows up in the
// access log.
func (s *Server) VoteCastRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.voteLimiter.Enabled() {
			c.Next()
			return
		}

		ip := ""
		if nc, ok := netctx.FromContext(c.Request.Context()); ok {
			ip = nc.IPAddress
		}

		allowed, retryAfter, err := s.voteLimiter.Allow(c.Request.Context(), ip)
		if err != nil {
			_ = c.Error(err)
			c.Next()
			return
		}
		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: errorPayload{
				Type:    "rate_limited",
				Message: "too many vote attempts, slow down",
			}})
			return
		}

		c.Next()
	}
}

type castFreeVoteRequest struct {
	ContestantID string `json:"contestant_id"`
}

func (s *Server) CastFreeVote(c *gin.Context) {
	var req castFreeVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	contestID, err := parseSnowflake(c.Param("id"))
	if err != nil {
		AbortWithError(c, votedomain.ErrInvalidID)
		return
	}
	contestantID, err := parseSnowflake(req.ContestantID)
	if err != nil {
		AbortWithError(c, votedomain.ErrInvalidID)
		return
	}

	vote, err := s.voteSvc.CastFree(c.Request.Context(), votedomain.CastFreeRequest{
		ContestID:    contestID,
		ContestantID: contestantID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": vote})
}

type castPaidVoteRequest struct {
	ContestantID string `json:"contestant_id"`
	OrderID      string `json:"order_id"`
}

func (s *Server) CastPaidVote(c *gin.Context) {
	var req castPaidVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	contestID, err := parseSnowflake(c.Param("id"))
	if err != nil {
		AbortWithError(c, votedomain.ErrInvalidID)
		return
	}
	contestantID, err := parseSnowflake(req.ContestantID)
	if err != nil {
		AbortWithError(c, votedomain.ErrInvalidID)
		return
	}
	orderID, err := parseSnowflake(req.OrderID)
	if err != nil {
		AbortWithError(c, votedomain.ErrInvalidID)
		return
	}

	vote, err := s.voteSvc.CastPaid(c.Request.Context(), votedomain.CastPaidRequest{
		ContestID:    contestID,
		ContestantID: contestantID,
		OrderID:      orderID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": vote})
}

func parseSnowflake(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
