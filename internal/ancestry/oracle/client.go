package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/model"
	"go.uber.org/zap"
)

const (
	// BackendJSONRPC talks JSON-RPC over net/http directly.
	BackendJSONRPC = "jsonrpc"
	// BackendBTCD goes through btcd's rpcclient.
	BackendBTCD = "btcd"
)

// Config holds node connection options shared by the binaries.
type Config struct {
	Backend      string        `long:"rpc-backend" env:"BITCOIN_RPC_BACKEND" description:"oracle backend" choice:"jsonrpc" choice:"btcd" default:"jsonrpc"`
	URL          string        `long:"rpc-url" env:"BITCOIN_RPC_URL" description:"Bitcoin RPC URL" default:"http://127.0.0.1:8332"`
	User         string        `long:"rpc-user" env:"BITCOIN_RPC_USER" description:"Bitcoin RPC username"`
	Password     string        `long:"rpc-password" env:"BITCOIN_RPC_PASSWORD" description:"Bitcoin RPC password"`
	Timeout      time.Duration `long:"rpc-timeout" env:"BITCOIN_RPC_TIMEOUT" description:"timeout for a single RPC request" default:"30s"`
	Combined     bool          `long:"rpc-combined" env:"BITCOIN_RPC_COMBINED" description:"resolve with verbose getrawtransaction instead of getrawtransaction+decoderawtransaction"`
	Network      model.Network `long:"network" env:"BITCOIN_NETWORK" description:"network used to render addresses" default:"mainnet"`
	RateLimit    int           `long:"rpc-rate-limit" env:"BITCOIN_RPC_RATE_LIMIT" description:"max transaction resolutions per second, 0 disables" default:"0"`
	Retries      int           `long:"rpc-retries" env:"BITCOIN_RPC_RETRIES" description:"attempts per resolution for transient failures" default:"3"`
	RetryBackoff time.Duration `long:"rpc-retry-backoff" env:"BITCOIN_RPC_RETRY_BACKOFF" description:"initial backoff between attempts" default:"250ms"`
}

// Client is a configured oracle together with its health check.
type Client struct {
	Oracle
	pinger Pinger
	close  func()
}

// New builds the oracle described by cfg: the backend client wrapped with
// retries and rate limiting.
func New(cfg Config, rpcMetrics RPCMetrics, logger *zap.Logger) (*Client, error) {
	decoder, err := NewScriptDecoder(cfg.Network)
	if err != nil {
		return nil, err
	}
	converter := NewConverter(decoder)

	var (
		base   Oracle
		pinger Pinger
		closer = func() {}
	)
	switch cfg.Backend {
	case BackendBTCD:
		rpc, err := NewRPCClient(cfg.URL, cfg.User, cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("init btcd rpc client: %w", err)
		}
		btcd := NewBTCDClient(rpc, converter, rpcMetrics, cfg.Timeout)
		base, pinger = btcd, btcd
		closer = func() {
			rpc.Shutdown()
			rpc.WaitForShutdown()
		}
	case BackendJSONRPC, "":
		jsonrpc, err := NewJSONRPCClient(JSONRPCConfig{
			URL:      cfg.URL,
			User:     cfg.User,
			Password: cfg.Password,
			Timeout:  cfg.Timeout,
			Combined: cfg.Combined,
		}, converter, rpcMetrics)
		if err != nil {
			return nil, fmt.Errorf("init json-rpc client: %w", err)
		}
		base, pinger = jsonrpc, jsonrpc
	default:
		return nil, fmt.Errorf("unsupported rpc backend %q", cfg.Backend)
	}

	o := NewRateLimited(NewRetrying(base, cfg.Retries, cfg.RetryBackoff, logger.Named("retry")), cfg.RateLimit)
	return &Client{Oracle: o, pinger: pinger, close: closer}, nil
}

// Ping checks that the node answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.pinger.Ping(ctx)
}

// Close releases the backend connection.
func (c *Client) Close() {
	c.close()
}
