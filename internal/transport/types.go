// Package transport exposes HTTP handlers and health reporting.
package transport

import (
	"context"
	"time"

	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// GraphBuilder builds ancestry graphs.
	GraphBuilder interface {
		Build(ctx context.Context, root string, maxDepth int) (*model.Graph, error)
	}
	// HTTPMetrics records served requests.
	HTTPMetrics interface {
		ObserveRequest(route string, code int, started time.Time)
	}
	// Pinger checks that the node behind the oracle is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
