package chain_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"assetnode/internal/chain"
	"assetnode/internal/config"
	"assetnode/internal/logging"
	"assetnode/internal/testsupport"
)

func fastRetry() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 4)
}

func rpcConfig(t *testing.T, url string) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Chain.RPCURL = url
	cfg.Chain.RPCUser = "user"
	cfg.Chain.RPCPassword = "secret"
	return cfg
}

func TestRPCClientHeight(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "user" || pass != "secret" {
			t.Errorf("unexpected basic auth %q/%q (ok=%v)", user, pass, ok)
		}
		var req struct {
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Method != "getblockcount" {
			t.Errorf("unexpected method %q", req.Method)
		}
		_, _ = w.Write([]byte(`{"result":1234,"error":null,"id":"assetnode"}`))
	}))
	defer srv.Close()

	client := chain.NewRPCClient(rpcConfig(t, srv.URL), logging.NewNop(), chain.WithBackOff(fastRetry))
	height, err := client.Height(context.Background())
	if err != nil {
		t.Fatalf("Height returned error: %v", err)
	}
	if height != 1234 {
		t.Fatalf("expected height 1234, got %d", height)
	}
}

func TestRPCClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"result":77,"error":null,"id":"assetnode"}`))
	}))
	defer srv.Close()

	client := chain.NewRPCClient(rpcConfig(t, srv.URL), logging.NewNop(), chain.WithBackOff(fastRetry))
	height, err := client.Height(context.Background())
	if err != nil {
		t.Fatalf("Height returned error: %v", err)
	}
	if height != 77 {
		t.Fatalf("expected height 77, got %d", height)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestRPCClientDoesNotRetryRPCErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"result":null,"error":{"code":-28,"message":"Loading block index..."},"id":"assetnode"}`))
	}))
	defer srv.Close()

	client := chain.NewRPCClient(rpcConfig(t, srv.URL), logging.NewNop(), chain.WithBackOff(fastRetry))
	_, err := client.Height(context.Background())
	var rpcErr *chain.RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %v", err)
	}
	if rpcErr.Code != -28 {
		t.Fatalf("expected code -28, got %d", rpcErr.Code)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestRPCClientRejectsBadCredentials(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := chain.NewRPCClient(rpcConfig(t, srv.URL), logging.NewNop(), chain.WithBackOff(fastRetry))
	if _, err := client.Height(context.Background()); err == nil {
		t.Fatal("expected authentication error")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestNewHeightSourceFallsBackToStatic(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithChainHeight(420))
	source := chain.NewHeightSource(cfg, logging.NewNop())
	if _, ok := source.(chain.StaticHeight); !ok {
		t.Fatalf("expected StaticHeight, got %T", source)
	}
	height, err := source.Height(context.Background())
	if err != nil || height != 420 {
		t.Fatalf("expected 420, got %d (err=%v)", height, err)
	}

	cfg.Chain.RPCURL = "http://127.0.0.1:1"
	if _, ok := chain.NewHeightSource(cfg, logging.NewNop()).(*chain.RPCClient); !ok {
		t.Fatal("expected RPC client when rpc_url is set")
	}
}
