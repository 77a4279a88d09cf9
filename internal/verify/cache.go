package verify

import (
	"context"
	"time"

	"github.com/ppiankov/claimwatch/internal/cache"
	"github.com/ppiankov/claimwatch/internal/model"
	"go.uber.org/zap"
)

// CachingOracle memoizes successful answers of another oracle.
// Failures are never cached.
type CachingOracle struct {
	next      Oracle
	cache     cache.Cache
	namespace string
	ttl       time.Duration
}

// NewCachingOracle wraps next. A nil cache returns next unchanged.
func NewCachingOracle(next Oracle, c cache.Cache, namespace string, ttl time.Duration) Oracle {
	if c == nil {
		return next
	}
	return &CachingOracle{next: next, cache: c, namespace: namespace, ttl: ttl}
}

// Verify implements Oracle
func (o *CachingOracle) Verify(ctx context.Context, claimText string, method model.Method) (*model.VerificationResult, error) {
	key := cache.Key("verify", o.namespace, string(method), claimText)

	var cached model.VerificationResult
	if cache.GetJSON(o.cache, key, &cached) && cached.Validate() == nil {
		return &cached, nil
	}

	result, err := o.next.Verify(ctx, claimText, method)
	if err != nil || result == nil {
		return result, err
	}

	if err := cache.SetJSON(o.cache, key, result, o.ttl); err != nil {
		zap.L().Warn("verify: cache write failed", zap.String("method", string(method)), zap.Error(err))
	}
	return result, nil
}
