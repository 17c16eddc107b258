// Package oracle resolves transaction ids into decoded transactions by
// querying a Bitcoin node over JSON-RPC.
package oracle

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Oracle resolves a transaction id into a decoded transaction.
	Oracle interface {
		Resolve(ctx context.Context, txid string) (*model.Transaction, error)
	}
	// Pinger checks that the node is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}
	// RPCMetrics records metrics for RPC calls.
	RPCMetrics interface {
		Observe(operation string, err error, started time.Time)
	}
	// ScriptDecoder extracts the address paying to an output script.
	ScriptDecoder interface {
		decodeAddress(pk btcjson.ScriptPubKeyResult) (string, error)
	}
	// BTCDRPC is the subset of rpcclient.Client used by BTCDClient.
	BTCDRPC interface {
		GetRawTransaction(txHash *chainhash.Hash) (*btcutil.Tx, error)
		DecodeRawTransaction(serializedTx []byte) (*btcjson.TxRawResult, error)
		GetBlockCount() (int64, error)
	}
)
