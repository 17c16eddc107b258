package oracle

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
)

// Kind classifies oracle failures.
type Kind int

const (
	// KindNotFound means the node has no record of the transaction.
	KindNotFound Kind = iota + 1
	// KindMalformed means the node answered with data that does not decode into a transaction.
	KindMalformed
	// KindRPC is a JSON-RPC application error other than not-found or decode failures.
	KindRPC
	// KindHTTP is a non-2xx HTTP response that carried no JSON-RPC body.
	KindHTTP
	// KindConnectivity is a transport failure reaching the node.
	KindConnectivity
)

// rpcInWarmup is returned by bitcoind while it is still loading.
const rpcInWarmup btcjson.RPCErrorCode = -28

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindMalformed:
		return "malformed"
	case KindRPC:
		return "rpc"
	case KindHTTP:
		return "http"
	case KindConnectivity:
		return "connectivity"
	default:
		return "unknown"
	}
}

// Error is a classified oracle failure.
type Error struct {
	Kind       Kind
	Op         string
	TxID       string
	StatusCode int
	RPCCode    btcjson.RPCErrorCode
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Op, e.TxID, e.Kind)
	if e.TxID == "" {
		msg = fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var oerr *Error
	if errors.As(err, &oerr) {
		return oerr.Kind, true
	}
	return 0, false
}

// IsNotFound reports whether err means the transaction does not exist.
func IsNotFound(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindNotFound
}

// IsLocal reports whether err concerns only the requested transaction, so a
// traversal may skip the affected edge and keep going.
func IsLocal(err error) bool {
	var oerr *Error
	if !errors.As(err, &oerr) {
		return false
	}
	switch oerr.Kind {
	case KindNotFound, KindMalformed:
		return true
	case KindRPC:
		return !systemicRPCCode(oerr.RPCCode)
	default:
		return false
	}
}

// IsRetryable reports whether repeating the call may succeed.
func IsRetryable(err error) bool {
	var oerr *Error
	if !errors.As(err, &oerr) {
		return false
	}
	switch oerr.Kind {
	case KindConnectivity, KindHTTP:
		return true
	case KindRPC:
		return oerr.RPCCode == rpcInWarmup
	default:
		return false
	}
}

func systemicRPCCode(code btcjson.RPCErrorCode) bool {
	switch code {
	case rpcInWarmup,
		btcjson.ErrRPCMethodNotFound.Code,
		btcjson.ErrRPCInternal.Code,
		btcjson.ErrRPCClientInInitialDownload:
		return true
	default:
		return false
	}
}

// rpcError maps a JSON-RPC error object onto a Kind.
func rpcError(op, txid string, rpcErr *btcjson.RPCError) *Error {
	kind := KindRPC
	switch rpcErr.Code {
	case btcjson.ErrRPCNoTxInfo, btcjson.ErrRPCInvalidParameter:
		kind = KindNotFound
	case btcjson.ErrRPCDecodeHexString:
		kind = KindMalformed
	}
	return &Error{Kind: kind, Op: op, TxID: txid, RPCCode: rpcErr.Code, Err: rpcErr}
}

func malformed(op, txid string, err error) *Error {
	return &Error{Kind: KindMalformed, Op: op, TxID: txid, Err: err}
}

func notFound(op, txid string) *Error {
	return &Error{Kind: KindNotFound, Op: op, TxID: txid}
}
