package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/stagevote/internal/auth/domain"
	"github.com/smallbiznis/stagevote/internal/auth/session"
	"github.com/smallbiznis/stagevote/internal/netctx"
	"github.com/smallbiznis/stagevote/internal/userctx"
)

// Network attaches the caller's IP and user agent to the request context.
// It runs on every route; guest votes are keyed by this identity.
func Network() gin.HandlerFunc {
	return func(c *gin.Context) {
		nc := netctx.FromRequest(c.Request)
		c.Request = c.Request.WithContext(netctx.WithContext(c.Request.Context(), nc))
		c.Next()
	}
}

// Session resolves the session cookie to a member identity when present.
// Requests without a valid session continue as guests.
func Session(svc domain.Service, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := sessions.ReadToken(c)
		if !ok {
			c.Next()
			return
		}

		sess, err := svc.Authenticate(c.Request.Context(), token)
		if err != nil {
			sessions.Clear(c)
			c.Next()
			return
		}

		c.Request = c.Request.WithContext(userctx.WithUserID(c.Request.Context(), sess.UserID))
		c.Next()
	}
}

// RequireAuth aborts with 401 unless a member identity was resolved.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := userctx.UserIDFromContext(c.Request.Context()); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login_required"})
			return
		}
		c.Next()
	}
}
