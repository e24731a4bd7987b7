package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/smallbiznis/stagevote/internal/config"
)

const keyVoteCastIP = "vote:cast:ip:%s"

// VoteCastLimiter throttles vote-cast requests per client IP so one address
// cannot hammer the cast endpoint. Disabled limiters allow everything.
type VoteCastLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewVoteCastLimiter(cfg config.Config) (*VoteCastLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.VoteCastRate <= 0 || limitCfg.VoteCastBurst <= 0 {
		return nil, errors.New("vote cast rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &VoteCastLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.VoteCastRate,
		burst:   limitCfg.VoteCastBurst,
	}, nil
}

func (l *VoteCastLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// Allow reports whether the IP may cast another vote right now.
func (l *VoteCastLimiter) Allow(ctx context.Context, ip string) (bool, time.Duration, error) {
	if !l.Enabled() {
		return true, 0, nil
	}

	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyVoteCastIP, strings.TrimSpace(ip)), l.rate, l.burst)
	if err != nil {
		return false, 0, err
	}
	return res.Allowed, res.RetryAfter, nil
}
