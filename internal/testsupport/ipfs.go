package testsupport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"assetnode/internal/config"
	"assetnode/internal/ipfs"
	"assetnode/internal/logging"
)

// SampleContentID is a well-formed CIDv0 used across tests.
const SampleContentID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

// FakeIPFS is an httptest server speaking the subset of the IPFS HTTP API
// assetnode uses. Content added through it is served back by cat.
type FakeIPFS struct {
	Server *httptest.Server

	mu      sync.Mutex
	content map[string][]byte
	pins    []string
}

// NewFakeIPFS starts a fake API and registers cleanup.
func NewFakeIPFS(t testing.TB) *FakeIPFS {
	t.Helper()
	f := &FakeIPFS{content: map[string][]byte{SampleContentID + "/readme": []byte("Hello and Welcome to IPFS!")}}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v0/version", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"Version":"0.29.0"}`)
	})
	mux.HandleFunc("POST /api/v0/cat", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		data, ok := f.content[r.URL.Query().Get("arg")]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"Message":"merkledag: not found","Code":0,"Type":"error"}`)
			return
		}
		_, _ = w.Write(data)
	})
	mux.HandleFunc("POST /api/v0/add", func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		f.mu.Lock()
		f.content[SampleContentID] = data
		f.mu.Unlock()
		_, _ = fmt.Fprintf(w, `{"Name":"file","Hash":%q,"Size":"%d"}`+"\n", SampleContentID, len(data))
	})
	mux.HandleFunc("POST /api/v0/pin/add", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("arg")
		f.mu.Lock()
		f.pins = append(f.pins, id)
		f.mu.Unlock()
		_, _ = fmt.Fprintf(w, `{"Pins":[%q]}`, id)
	})
	mux.HandleFunc("POST /api/v0/object/stat", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		data := f.content[r.URL.Query().Get("arg")]
		f.mu.Unlock()
		_, _ = fmt.Fprintf(w, `{"Hash":%q,"CumulativeSize":%d}`, r.URL.Query().Get("arg"), len(data)+11)
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the API root.
func (f *FakeIPFS) URL() string {
	return f.Server.URL
}

// Pins returns the content ids pinned so far.
func (f *FakeIPFS) Pins() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pins...)
}

type stubProcess struct {
	pid  int
	done chan struct{}
	once sync.Once
}

func (p *stubProcess) Pid() int { return p.pid }

func (p *stubProcess) Wait() error {
	<-p.done
	return nil
}

func (p *stubProcess) Terminate() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

// StubExecutor satisfies ipfs.Executor without spawning processes. Version
// reports 0.29.0, init succeeds, and shutdown exits every tracked process.
type StubExecutor struct {
	mu            sync.Mutex
	procs         []*stubProcess
	shutdownDelay time.Duration
}

// SetShutdownDelay makes the shutdown command block for d before it exits
// the tracked processes.
func (s *StubExecutor) SetShutdownDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownDelay = d
}

// Output implements ipfs.Executor.
func (s *StubExecutor) Output(_ context.Context, _ string, args ...string) ([]byte, error) {
	if len(args) == 0 {
		return nil, errors.New("missing command")
	}
	switch args[0] {
	case "version":
		return []byte("ipfs version 0.29.0\n"), nil
	case "shutdown":
		s.mu.Lock()
		delay := s.shutdownDelay
		s.mu.Unlock()
		time.Sleep(delay)
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, p := range s.procs {
			_ = p.Terminate()
		}
	}
	return nil, nil
}

// Start implements ipfs.Executor.
func (s *StubExecutor) Start(string, ...string) (ipfs.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &stubProcess{pid: 7000 + len(s.procs), done: make(chan struct{})}
	s.procs = append(s.procs, p)
	return p, nil
}

// Spawned reports how many daemon processes were started.
func (s *StubExecutor) Spawned() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}

// NewSupervisor builds a supervisor backed by StubExecutor with a fast tick
// and a private metrics registry. The supervisor is closed on cleanup.
func NewSupervisor(t testing.TB, cfg *config.Config, opts ...ipfs.Option) (*ipfs.Supervisor, *StubExecutor, *prometheus.Registry) {
	t.Helper()
	exec := &StubExecutor{}
	reg := prometheus.NewRegistry()
	base := []ipfs.Option{
		ipfs.WithExecutor(exec),
		ipfs.WithRegisterer(reg),
		ipfs.WithTickInterval(5 * time.Millisecond),
	}
	sup, err := ipfs.NewSupervisor(cfg, logging.NewNop(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("ipfs.NewSupervisor: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sup.Close(ctx)
	})
	return sup, exec, reg
}

// WaitForState polls until the supervisor reports want or the timeout elapses.
func WaitForState(t testing.TB, sup *ipfs.Supervisor, want ipfs.State, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if sup.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("supervisor state %s, want %s", sup.State(), want)
}
