package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/model"
)

const (
	opGetRawTransaction    = "getrawtransaction"
	opDecodeRawTransaction = "decoderawtransaction"
	opGetBlockChainInfo    = "getblockchaininfo"

	maxResponseSize = 32 << 20
)

// JSONRPCConfig configures a JSONRPCClient.
type JSONRPCConfig struct {
	URL      string
	User     string
	Password string
	Timeout  time.Duration
	// Combined resolves with a single verbose getrawtransaction call instead
	// of getrawtransaction followed by decoderawtransaction.
	Combined bool
}

// JSONRPCClient talks to bitcoind's JSON-RPC endpoint and keeps HTTP, RPC
// and body decoding failures apart.
type JSONRPCClient struct {
	endpoint   string
	user       string
	password   string
	combined   bool
	httpClient *http.Client
	converter  *Converter
	rpcMetrics RPCMetrics
	nextID     atomic.Uint64
}

// NewJSONRPCClient constructs a client for the node at cfg.URL.
func NewJSONRPCClient(cfg JSONRPCConfig, converter *Converter, rpcMetrics RPCMetrics) (*JSONRPCClient, error) {
	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse rpc url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("rpc url scheme %q not supported, use http or https", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("rpc url missing host")
	}
	if converter == nil {
		return nil, errors.New("converter is required")
	}

	return &JSONRPCClient{
		endpoint:   parsed.String(),
		user:       cfg.User,
		password:   cfg.Password,
		combined:   cfg.Combined,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		converter:  converter,
		rpcMetrics: rpcMetrics,
	}, nil
}

// Resolve fetches and decodes txid.
func (c *JSONRPCClient) Resolve(ctx context.Context, txid string) (*model.Transaction, error) {
	if c.combined {
		return c.resolveVerbose(ctx, txid)
	}

	raw, err := c.call(ctx, opGetRawTransaction, txid, btcjson.NewGetRawTransactionCmd(txid, btcjson.Int(0)))
	if err != nil {
		return nil, err
	}
	var rawHex string
	if err := json.Unmarshal(raw, &rawHex); err != nil {
		return nil, malformed(opGetRawTransaction, txid, err)
	}
	if rawHex == "" {
		return nil, notFound(opGetRawTransaction, txid)
	}

	decoded, err := c.call(ctx, opDecodeRawTransaction, txid, btcjson.NewDecodeRawTransactionCmd(rawHex))
	if err != nil {
		return nil, err
	}
	return c.convert(opDecodeRawTransaction, txid, decoded)
}

func (c *JSONRPCClient) resolveVerbose(ctx context.Context, txid string) (*model.Transaction, error) {
	raw, err := c.call(ctx, opGetRawTransaction, txid, btcjson.NewGetRawTransactionCmd(txid, btcjson.Int(1)))
	if err != nil {
		return nil, err
	}
	return c.convert(opGetRawTransaction, txid, raw)
}

func (c *JSONRPCClient) convert(op, txid string, raw json.RawMessage) (*model.Transaction, error) {
	var res btcjson.TxRawResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, malformed(op, txid, err)
	}
	tx, err := c.converter.Convert(&res, txid)
	if err != nil {
		return nil, malformed(op, txid, err)
	}
	return tx, nil
}

// Ping calls getblockchaininfo.
func (c *JSONRPCClient) Ping(ctx context.Context) error {
	raw, err := c.call(ctx, opGetBlockChainInfo, "", btcjson.NewGetBlockChainInfoCmd())
	if err != nil {
		return err
	}
	var info struct {
		Chain  string `json:"chain"`
		Blocks int64  `json:"blocks"`
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		return malformed(opGetBlockChainInfo, "", err)
	}
	return nil
}

// call performs one JSON-RPC round trip and returns the non-null result.
func (c *JSONRPCClient) call(ctx context.Context, op, txid string, cmd interface{}) (result json.RawMessage, err error) {
	started := time.Now()
	defer func() {
		if c.rpcMetrics != nil {
			c.rpcMetrics.Observe(op, err, started)
		}
	}()

	body, err := btcjson.MarshalCmd(btcjson.RpcVersion1, c.nextID.Add(1), cmd)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.user != "" || c.password != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Kind: KindConnectivity, Op: op, TxID: txid, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Kind: KindConnectivity, Op: op, TxID: txid, StatusCode: resp.StatusCode, Err: err}
	}

	var rpcResp btcjson.Response
	if err := json.Unmarshal(payload, &rpcResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &Error{Kind: KindHTTP, Op: op, TxID: txid, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
		}
		return nil, &Error{Kind: KindMalformed, Op: op, TxID: txid, StatusCode: resp.StatusCode, Err: err}
	}
	if rpcResp.Error != nil {
		return nil, rpcError(op, txid, rpcResp.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: KindHTTP, Op: op, TxID: txid, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}
	if len(rpcResp.Result) == 0 {
		return nil, malformed(op, txid, errors.New("response has no result field"))
	}
	if bytes.Equal(rpcResp.Result, []byte("null")) {
		return nil, notFound(op, txid)
	}
	return rpcResp.Result, nil
}
