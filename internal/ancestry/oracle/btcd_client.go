package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/model"
)

const opGetBlockCount = "getblockcount"

// BTCDClient resolves transactions through btcd's rpcclient in HTTP POST mode.
type BTCDClient struct {
	client     BTCDRPC
	converter  *Converter
	rpcMetrics RPCMetrics
	timeout    time.Duration
}

// NewBTCDClient wraps an rpcclient-compatible client. rpcclient has no
// request deadline of its own, so every call is bounded by timeout when it is
// positive and always by the caller's context.
func NewBTCDClient(client BTCDRPC, converter *Converter, rpcMetrics RPCMetrics, timeout time.Duration) *BTCDClient {
	return &BTCDClient{
		client:     client,
		converter:  converter,
		rpcMetrics: rpcMetrics,
		timeout:    timeout,
	}
}

// Resolve fetches the raw transaction and asks the node to decode it.
func (c *BTCDClient) Resolve(ctx context.Context, txid string) (*model.Transaction, error) {
	hash, err := chainhash.NewHashFromStr(txid)
	if err != nil {
		return nil, notFound(opGetRawTransaction, txid)
	}

	tx, err := c.getRawTransaction(ctx, hash)
	if err != nil {
		return nil, classifyBTCDError(opGetRawTransaction, txid, err)
	}
	if tx == nil {
		return nil, notFound(opGetRawTransaction, txid)
	}

	var buf bytes.Buffer
	if err := tx.MsgTx().Serialize(&buf); err != nil {
		return nil, malformed(opGetRawTransaction, txid, err)
	}

	decoded, err := c.decodeRawTransaction(ctx, buf.Bytes())
	if err != nil {
		return nil, classifyBTCDError(opDecodeRawTransaction, txid, err)
	}
	res, err := c.converter.Convert(decoded, txid)
	if err != nil {
		return nil, malformed(opDecodeRawTransaction, txid, err)
	}
	return res, nil
}

// Ping asks the node for its block count.
func (c *BTCDClient) Ping(ctx context.Context) (err error) {
	started := time.Now()
	defer func() {
		c.observe(opGetBlockCount, err, started)
	}()
	if _, err = awaitRPC(ctx, c.timeout, c.client.GetBlockCount); err != nil {
		return classifyBTCDError(opGetBlockCount, "", err)
	}
	return nil
}

func (c *BTCDClient) getRawTransaction(ctx context.Context, hash *chainhash.Hash) (tx *btcutil.Tx, err error) {
	started := time.Now()
	defer func() {
		c.observe(opGetRawTransaction, err, started)
	}()
	return awaitRPC(ctx, c.timeout, func() (*btcutil.Tx, error) {
		return c.client.GetRawTransaction(hash)
	})
}

func (c *BTCDClient) decodeRawTransaction(ctx context.Context, serialized []byte) (res *btcjson.TxRawResult, err error) {
	started := time.Now()
	defer func() {
		c.observe(opDecodeRawTransaction, err, started)
	}()
	return awaitRPC(ctx, c.timeout, func() (*btcjson.TxRawResult, error) {
		return c.client.DecodeRawTransaction(serialized)
	})
}

// awaitRPC runs call on its own goroutine and gives up when ctx is done or
// timeout elapses. An abandoned call finishes in the background once the
// node answers or the connection drops.
func awaitRPC[T any](ctx context.Context, timeout time.Duration, call func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		val, err := call()
		done <- result{val: val, err: err}
	}()

	select {
	case res := <-done:
		return res.val, res.err
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, fmt.Errorf("no response within %s", timeout)
	}
}

func (c *BTCDClient) observe(op string, err error, started time.Time) {
	if c.rpcMetrics == nil {
		return
	}
	if err != nil {
		err = classifyBTCDError(op, "", err)
	}
	c.rpcMetrics.Observe(op, err, started)
}

// classifyBTCDError maps rpcclient failures onto oracle kinds. rpcclient
// reports both non-2xx responses and undecodable bodies as
// "status code: N, response: ..."; a 200 there means the body was malformed.
func classifyBTCDError(op, txid string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var oerr *Error
	if errors.As(err, &oerr) {
		return err
	}
	var rpcErr *btcjson.RPCError
	if errors.As(err, &rpcErr) {
		return rpcError(op, txid, rpcErr)
	}
	if code, ok := parseStatusCode(err.Error()); ok {
		if code == http.StatusOK {
			return &Error{Kind: KindMalformed, Op: op, TxID: txid, StatusCode: code, Err: err}
		}
		return &Error{Kind: KindHTTP, Op: op, TxID: txid, StatusCode: code, Err: err}
	}
	return &Error{Kind: KindConnectivity, Op: op, TxID: txid, Err: err}
}

func parseStatusCode(msg string) (int, bool) {
	idx := strings.Index(msg, "status code: ")
	if idx < 0 {
		return 0, false
	}
	var code int
	if _, err := fmt.Sscanf(msg[idx:], "status code: %d", &code); err != nil {
		return 0, false
	}
	return code, true
}

// NewRPCClient dials bitcoind with rpcclient in HTTP POST mode.
func NewRPCClient(rawURL, user, password string) (*rpcclient.Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse rpc url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("rpc url scheme %q not supported, use http or https", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("rpc url missing host")
	}

	cfg := &rpcclient.ConnConfig{
		Host:         parsed.Host + parsed.Path,
		User:         user,
		Pass:         password,
		HTTPPostMode: true,
		DisableTLS:   parsed.Scheme == "http",
	}
	return rpcclient.New(cfg, nil)
}
