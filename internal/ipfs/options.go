package ipfs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	executor   Executor
	httpClient *http.Client
	baseURL    string
	registerer prometheus.Registerer
	observer   func(from, to State)
	interval   time.Duration
}

// Option configures the supervisor and its client.
type Option func(*options)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(o *options) {
		if exec != nil {
			o.executor = exec
		}
	}
}

// WithHTTPClient replaces the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithBaseURL points the client at an explicit API root such as http://127.0.0.1:5001.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = baseURL
	}
}

// WithRegisterer registers supervisor metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithStateObserver is called under the lifecycle lock on every state change.
func WithStateObserver(fn func(from, to State)) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// WithTickInterval overrides tick_interval_seconds with a finer interval.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

func collectOptions(opts []Option) options {
	o := options{executor: commandExecutor{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
