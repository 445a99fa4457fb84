package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"assetnode/internal/config"
	"assetnode/internal/logging"
)

const (
	rpcClientID       = "assetnode"
	defaultMaxElapsed = 30 * time.Second
)

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCClient talks to the node's JSON-RPC endpoint.
type RPCClient struct {
	url        string
	user       string
	password   string
	httpClient *http.Client
	logger     *slog.Logger
	newBackOff func() backoff.BackOff
}

// RPCOption customizes an RPCClient.
type RPCOption func(*RPCClient)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) RPCOption {
	return func(c *RPCClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBackOff overrides the retry policy. The factory is invoked once per call.
func WithBackOff(factory func() backoff.BackOff) RPCOption {
	return func(c *RPCClient) {
		if factory != nil {
			c.newBackOff = factory
		}
	}
}

// NewRPCClient constructs a client from the [chain] section.
func NewRPCClient(cfg *config.Config, logger *slog.Logger, opts ...RPCOption) *RPCClient {
	c := &RPCClient{
		url:        cfg.Chain.RPCURL,
		user:       cfg.Chain.RPCUser,
		password:   cfg.Chain.RPCPassword,
		httpClient: &http.Client{Timeout: cfg.ChainRequestTimeout()},
		logger:     logging.NewComponentLogger(logger, "chain"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxElapsedTime = defaultMaxElapsed
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Height returns the node's current block count.
func (c *RPCClient) Height(ctx context.Context) (int64, error) {
	var height int64
	if err := c.Call(ctx, "getblockcount", nil, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// Call invokes method and decodes the result into out. Transport failures and
// 5xx responses without an RPC error body are retried; RPC errors are not.
func (c *RPCClient) Call(ctx context.Context, method string, params []any, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if params == nil {
		params = []any{}
	}
	payload, err := json.Marshal(rpcRequest{JSONRPC: "1.0", ID: rpcClientID, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	attempt := 0
	op := func() error {
		attempt++
		result, err := c.do(ctx, payload)
		if err != nil {
			var rpcErr *RPCError
			if errors.As(err, &rpcErr) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			c.logger.Debug("chain rpc attempt failed",
				logging.String("method", method),
				logging.Int("attempt", attempt),
				logging.Error(err),
			)
			return err
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(result, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s result: %w", method, err))
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "chain rpc call failed", "chain_rpc_failed",
			logging.String("method", method),
			logging.Int("attempts", attempt),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check chain.rpc_url and RPC credentials"),
			logging.String(logging.FieldImpact, "block height unavailable"),
		)
		return fmt.Errorf("chain rpc %s: %w", method, err)
	}
	return nil
}

func (c *RPCClient) do(ctx context.Context, payload []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.user != "" || c.password != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, backoff.Permanent(fmt.Errorf("rpc authentication rejected: %s", resp.Status))
	}

	var decoded rpcResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("rpc status %s", resp.Status)
		}
		return nil, backoff.Permanent(fmt.Errorf("decode rpc response (%s): %w", resp.Status, err))
	}
	if decoded.Error != nil {
		return nil, decoded.Error
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("rpc status %s", resp.Status)
	}
	return decoded.Result, nil
}
