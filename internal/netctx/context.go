package netctx

import (
	"context"
	"net/http"
	"strings"
)

// Context carries the network identity of the request used for guest
// identification and vote audit fields.
type Context struct {
	IPAddress string
	UserAgent string
}

type netContextKey struct{}

// WithContext stores the network context in the request context.
func WithContext(ctx context.Context, nc Context) context.Context {
	return context.WithValue(ctx, netContextKey{}, nc)
}

// FromContext returns the network context, if set.
func FromContext(ctx context.Context) (Context, bool) {
	if ctx == nil {
		return Context{}, false
	}
	nc, ok := ctx.Value(netContextKey{}).(Context)
	return nc, ok
}

// FromRequest derives the network context from request headers: the first
// X-Forwarded-For entry, else X-Real-IP, else "unknown".
func FromRequest(r *http.Request) Context {
	return Context{
		IPAddress: clientIP(r),
		UserAgent: strings.TrimSpace(r.UserAgent()),
	}
}

func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return "unknown"
}
