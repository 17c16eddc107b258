package oracle

import (
	"context"

	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/model"
	"go.uber.org/ratelimit"
)

// RateLimited spaces out resolutions so a single traversal cannot flood the node.
type RateLimited struct {
	next    Oracle
	limiter ratelimit.Limiter
}

// NewRateLimited wraps next with a limiter allowing perSecond resolutions.
// A non-positive rate returns next unchanged.
func NewRateLimited(next Oracle, perSecond int) Oracle {
	if perSecond <= 0 {
		return next
	}
	return &RateLimited{
		next:    next,
		limiter: ratelimit.New(perSecond),
	}
}

// Resolve waits for a slot and delegates.
func (r *RateLimited) Resolve(ctx context.Context, txid string) (*model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.limiter.Take()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.next.Resolve(ctx, txid)
}
