package client

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// RateLimited throttles uploads made through the wrapped client
type RateLimited struct {
	StorageClient
	limiter *rate.Limiter
}

// NewRateLimited wraps inner with a limiter of perSecond uploads. A
// non-positive rate returns inner unchanged.
func NewRateLimited(inner StorageClient, perSecond float64) StorageClient {
	if perSecond <= 0 {
		return inner
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		StorageClient: inner,
		limiter:       rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (r *RateLimited) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.StorageClient.Upload(ctx, key, body, contentType)
}
