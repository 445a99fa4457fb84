package ipfs_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"assetnode/internal/config"
	"assetnode/internal/ipfs"
	"assetnode/internal/logging"
)

const sampleHash = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

type fakeAPI struct {
	mu       sync.Mutex
	requests []*http.Request
	uploads  [][]byte
	handlers map[string]http.HandlerFunc
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{handlers: map[string]http.HandlerFunc{}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.requests = append(api.requests, r.Clone(context.Background()))
		if r.URL.Path == "/api/v0/add" {
			if file, _, err := r.FormFile("file"); err == nil {
				data, _ := io.ReadAll(file)
				api.uploads = append(api.uploads, data)
			}
		}
		handler := api.handlers[r.URL.Path]
		api.mu.Unlock()
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if handler == nil {
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return api, server
}

func (a *fakeAPI) handle(path string, fn http.HandlerFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[path] = fn
}

func (a *fakeAPI) paths() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.requests))
	for _, r := range a.requests {
		out = append(out, r.URL.Path+"?"+r.URL.RawQuery)
	}
	return out
}

func (a *fakeAPI) uploaded() [][]byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([][]byte(nil), a.uploads...)
}

func newTestClient(t *testing.T, server *httptest.Server, mutate func(*config.Config)) *ipfs.Client {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	return ipfs.NewClient(&cfg, logging.NewNop(), ipfs.WithBaseURL(server.URL))
}

func TestFetchReturnsContent(t *testing.T) {
	api, server := newFakeAPI(t)
	api.handle("/api/v0/cat", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("arg") != sampleHash+"/readme" {
			http.Error(w, "bad arg", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("Hello and Welcome to IPFS!"))
	})
	client := newTestClient(t, server, nil)

	data, err := client.Fetch(context.Background(), sampleHash+"/readme")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if string(data) != "Hello and Welcome to IPFS!" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestAddDataPinsWhenRequested(t *testing.T) {
	api, server := newFakeAPI(t)
	api.handle("/api/v0/add", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pin") != "false" {
			http.Error(w, "expected pin=false", http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, `{"Name":"data","Hash":"`+sampleHash+`","Size":"19"}`+"\n")
	})
	api.handle("/api/v0/pin/add", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"Pins":["`+r.URL.Query().Get("arg")+`"]}`)
	})
	client := newTestClient(t, server, nil)

	result, err := client.AddData(context.Background(), []byte("snapshot manifest"), true)
	if err != nil {
		t.Fatalf("AddData returned error: %v", err)
	}
	if !result.Valid() || result.Hash != sampleHash || result.Size != 19 {
		t.Fatalf("unexpected result %+v", result)
	}
	if !result.Pinned {
		t.Fatal("expected result to be pinned")
	}
	paths := api.paths()
	if len(paths) != 2 || paths[1] != "/api/v0/pin/add?arg="+sampleHash {
		t.Fatalf("unexpected request sequence %v", paths)
	}
	if uploads := api.uploaded(); len(uploads) != 1 || string(uploads[0]) != "snapshot manifest" {
		t.Fatalf("unexpected upload payload %q", uploads)
	}
}

func TestAddDataAcceptsLowercaseKeysAndNumericSize(t *testing.T) {
	api, server := newFakeAPI(t)
	api.handle("/api/v0/add", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"name":"data","bytes":5}`+"\n"+`{"hash":"`+sampleHash+`","size":27}`+"\n")
	})
	client := newTestClient(t, server, nil)

	result, err := client.AddData(context.Background(), []byte("hello"), false)
	if err != nil {
		t.Fatalf("AddData returned error: %v", err)
	}
	if result.Hash != sampleHash || result.Size != 27 || result.Pinned {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(api.paths()) != 1 {
		t.Fatalf("expected no pin request, got %v", api.paths())
	}
}

func TestAddDataRejectsIncompleteResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing size", `{"Hash":"` + sampleHash + `"}`},
		{"zero size", `{"Hash":"` + sampleHash + `","Size":"0"}`},
		{"missing hash", `{"Size":"12"}`},
		{"garbage", `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, server := newFakeAPI(t)
			api.handle("/api/v0/add", func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})
			client := newTestClient(t, server, nil)

			result, err := client.AddData(context.Background(), []byte("payload"), true)
			if err == nil {
				t.Fatalf("expected error, got result %+v", result)
			}
			if ipfs.KindOf(err) != ipfs.KindProtocol {
				t.Fatalf("expected protocol error, got %v", err)
			}
			if len(api.paths()) != 1 {
				t.Fatalf("expected no pin attempt after failed add, got %v", api.paths())
			}
		})
	}
}

func TestAddDataPinFailureLeavesResultUnpinned(t *testing.T) {
	api, server := newFakeAPI(t)
	api.handle("/api/v0/add", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"Hash":"`+sampleHash+`","Size":"12"}`)
	})
	api.handle("/api/v0/pin/add", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"Message":"pin: context canceled","Code":0,"Type":"error"}`)
	})
	client := newTestClient(t, server, nil)

	result, err := client.AddData(context.Background(), []byte("payload"), true)
	if err != nil {
		t.Fatalf("AddData returned error: %v", err)
	}
	if result.Pinned {
		t.Fatal("expected Pinned=false after pin failure")
	}
	if !result.Valid() {
		t.Fatalf("expected add result to remain valid: %+v", result)
	}
}

func TestAddDataEnforcesSizeLimit(t *testing.T) {
	api, server := newFakeAPI(t)
	client := newTestClient(t, server, func(cfg *config.Config) { cfg.IPFS.MaxDataSize = 8 })

	_, err := client.AddData(context.Background(), []byte("more than eight bytes"), false)
	if ipfs.KindOf(err) != ipfs.KindInvalidInput {
		t.Fatalf("expected invalid_input, got %v", err)
	}
	_, err = client.AddData(context.Background(), nil, false)
	if ipfs.KindOf(err) != ipfs.KindInvalidInput {
		t.Fatalf("expected invalid_input for empty data, got %v", err)
	}
	if len(api.paths()) != 0 {
		t.Fatalf("expected no requests, got %v", api.paths())
	}
}

func TestAddFileUploadsContents(t *testing.T) {
	api, server := newFakeAPI(t)
	api.handle("/api/v0/add", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"Hash":"`+sampleHash+`","Size":"40000"}`)
	})
	client := newTestClient(t, server, func(cfg *config.Config) { cfg.IPFS.MaxDataSize = 8 })

	path := filepath.Join(t.TempDir(), "metadata.json")
	payload := strings.Repeat("x", 32)
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	result, err := client.AddFile(context.Background(), path, false)
	if err != nil {
		t.Fatalf("AddFile returned error: %v", err)
	}
	if result.Size != 40000 {
		t.Fatalf("unexpected size %d", result.Size)
	}
	if uploads := api.uploaded(); len(uploads) != 1 || string(uploads[0]) != payload {
		t.Fatalf("unexpected upload %q", uploads)
	}

	_, err = client.AddFile(context.Background(), filepath.Join(t.TempDir(), "missing"), false)
	if ipfs.KindOf(err) != ipfs.KindInvalidInput {
		t.Fatalf("expected invalid_input for missing file, got %v", err)
	}
}

func TestStatReadsCumulativeSize(t *testing.T) {
	api, server := newFakeAPI(t)
	api.handle("/api/v0/object/stat", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("arg") == sampleHash {
			_, _ = io.WriteString(w, `{"Hash":"`+sampleHash+`","NumLinks":0,"CumulativeSize":6163}`)
			return
		}
		_, _ = io.WriteString(w, `{"Hash":"x"}`)
	})
	client := newTestClient(t, server, nil)

	size, err := client.Stat(context.Background(), sampleHash)
	if err != nil {
		t.Fatalf("Stat returned error: %v", err)
	}
	if size != 6163 {
		t.Fatalf("unexpected size %d", size)
	}

	_, err = client.Stat(context.Background(), "other")
	if ipfs.KindOf(err) != ipfs.KindProtocol {
		t.Fatalf("expected protocol error for missing CumulativeSize, got %v", err)
	}
}

func TestDaemonErrorsAreDecoded(t *testing.T) {
	api, server := newFakeAPI(t)
	api.handle("/api/v0/pin/add", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"Message":"invalid path \"nope\"","Code":0,"Type":"error"}`)
	})
	client := newTestClient(t, server, nil)

	err := client.Pin(context.Background(), "nope")
	if ipfs.KindOf(err) != ipfs.KindDaemon {
		t.Fatalf("expected daemon error, got %v", err)
	}
	var derr *ipfs.DaemonError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DaemonError in chain, got %T", err)
	}
	if derr.Status != http.StatusInternalServerError || !strings.Contains(derr.Message, "invalid path") {
		t.Fatalf("unexpected daemon error %+v", derr)
	}
}

func TestTransportErrorsAreClassified(t *testing.T) {
	_, server := newFakeAPI(t)
	client := newTestClient(t, server, nil)
	server.Close()

	_, err := client.Fetch(context.Background(), sampleHash)
	if ipfs.KindOf(err) != ipfs.KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestDisabledClientOpensNoConnections(t *testing.T) {
	api, server := newFakeAPI(t)
	client := newTestClient(t, server, func(cfg *config.Config) { cfg.IPFS.Enabled = false })
	ctx := context.Background()

	if _, err := client.Fetch(ctx, sampleHash); !errors.Is(err, ipfs.ErrDisabled) {
		t.Fatalf("Fetch: expected ErrDisabled, got %v", err)
	}
	if _, err := client.AddData(ctx, []byte("x"), true); !errors.Is(err, ipfs.ErrDisabled) {
		t.Fatalf("AddData: expected ErrDisabled, got %v", err)
	}
	if _, err := client.AddFile(ctx, "/nonexistent", true); !errors.Is(err, ipfs.ErrDisabled) {
		t.Fatalf("AddFile: expected ErrDisabled, got %v", err)
	}
	if err := client.Pin(ctx, sampleHash); !errors.Is(err, ipfs.ErrDisabled) {
		t.Fatalf("Pin: expected ErrDisabled, got %v", err)
	}
	if _, err := client.Stat(ctx, sampleHash); ipfs.KindOf(err) != ipfs.KindDisabled {
		t.Fatalf("Stat: expected disabled kind, got %v", err)
	}
	if len(api.paths()) != 0 {
		t.Fatalf("expected zero requests, got %v", api.paths())
	}
}
