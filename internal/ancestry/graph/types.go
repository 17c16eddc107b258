// Package graph builds depth-bounded ancestry graphs by following transaction
// inputs back to the transactions that funded them.
package graph

import (
	"context"
	"time"

	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Oracle resolves transaction ids.
	Oracle interface {
		Resolve(ctx context.Context, txid string) (*model.Transaction, error)
	}
	// Metrics records traversal outcomes.
	Metrics interface {
		ObserveBuild(err error, nodes, edges, notices int, started time.Time)
	}
)
