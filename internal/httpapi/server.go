package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"assetnode/internal/api"
	"assetnode/internal/config"
	"assetnode/internal/daemon"
	"assetnode/internal/dividends"
	"assetnode/internal/ipfs"
	"assetnode/internal/logging"
)

const (
	maxBodyBytes       = 32 << 20
	maxGoroutines      = 2000
	shutdownTimeout    = 5 * time.Second
	rpcParseErrorCode  = -32700
	rpcInvalidReqCode  = -32600
	jsonContentType    = "application/json"
	octetStreamContent = "application/octet-stream"
)

// Server is the daemon's HTTP API.
type Server struct {
	bind     string
	token    string
	logger   *slog.Logger
	daemon   *daemon.Daemon
	gatherer prometheus.Gatherer
	router   chi.Router

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// New builds the HTTP API for d. It returns nil when no bind address is
// configured. gatherer backs /metrics and defaults to the global registry.
func New(cfg *config.Config, d *daemon.Daemon, gatherer prometheus.Gatherer, logger *slog.Logger) (*Server, error) {
	if cfg == nil || d == nil {
		return nil, errors.New("http api requires config and daemon")
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		bind:     bind,
		token:    cfg.Paths.APIToken,
		logger:   logging.NewComponentLogger(logger, "api-server"),
		daemon:   d,
		gatherer: gatherer,
	}
	s.router = s.routes()
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(maxGoroutines))
	health.AddReadinessCheck("daemon", s.daemonReady)
	health.AddReadinessCheck("ipfs", s.ipfsReady)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(accessLog(s.logger))

	r.Get("/live", health.LiveEndpoint)
	r.Get("/ready", health.ReadyEndpoint)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/ipfs/cat/*", s.handleFetch)
		r.Get("/ipfs/stat/*", s.handleStat)
		r.Get("/snapshots", s.handleSnapshotHeights)
		r.Get("/snapshots/{height}", s.handleSnapshotChecks)

		r.Group(func(r chi.Router) {
			r.Use(requireToken(s.token))
			r.Post("/ipfs/start", s.handleIPFSStart)
			r.Post("/ipfs/stop", s.handleIPFSStop)
			r.Post("/ipfs/add", s.handleAdd)
			r.Post("/ipfs/pin/*", s.handlePin)
			r.Post("/snapshots", s.handleSnapshotCreate)
		})
	})
	r.With(requireToken(s.token)).Post("/rpc", s.handleRPC)
	return r
}

// Start listens on the bind address and serves until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_server_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "HTTP API unavailable until the daemon restarts"),
				logging.String(logging.FieldErrorHint, "check api_bind for port conflicts"),
			)
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening",
		logging.String(logging.FieldEventType, "api_listen"),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down. It is safe to call more than once.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func (s *Server) daemonReady() error {
	if !s.daemon.Running() {
		return errors.New("daemon not running")
	}
	return nil
}

func (s *Server) ipfsReady() error {
	sup := s.daemon.Supervisor()
	if !sup.Enabled() {
		return nil
	}
	if state := sup.State(); state != ipfs.Connected {
		return fmt.Errorf("ipfs state %s", state)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, api.FromDaemonStatus(s.daemon.Status(r.Context())))
}

func (s *Server) handleIPFSStart(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.StartIPFS(); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusAccepted, api.FromDaemonStatus(s.daemon.Status(r.Context())).IPFS)
}

func (s *Server) handleIPFSStop(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.StopIPFS(); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusAccepted, api.FromDaemonStatus(s.daemon.Status(r.Context())).IPFS)
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	data, err := s.daemon.FetchContent(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", octetStreamContent)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleStat(w http.ResponseWriter, r *http.Request) {
	contentID := chi.URLParam(r, "*")
	size, err := s.daemon.StatContent(r.Context(), contentID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, api.StatResponse{ContentID: contentID, CumulativeSize: size})
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req api.AddRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.daemon.AddContent(r.Context(), []byte(req.Data), req.Pin)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusCreated, api.FromAddResult(result))
}

func (s *Server) handlePin(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.PinContent(r.Context(), chi.URLParam(r, "*")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSnapshotCreate(w http.ResponseWriter, r *http.Request) {
	var req api.SnapshotCheckRequest
	if !s.decode(w, r, &req) {
		return
	}
	msg, err := s.daemon.CreateSnapshotCheck(r.Context(), req.AssetName, req.BlockHeight)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusCreated, api.SnapshotCheckResponse{Message: msg})
}

func (s *Server) handleSnapshotChecks(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.ParseInt(chi.URLParam(r, "height"), 10, 64)
	if err != nil {
		writeJSON(s.logger, w, http.StatusBadRequest, api.ErrorResponse{
			Error: "block height must be an integer",
			Code:  dividends.CodeTypeError,
		})
		return
	}
	names, err := s.daemon.SnapshotChecks(r.Context(), height)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, api.SnapshotChecksResponse{BlockHeight: height, AssetNames: names})
}

func (s *Server) handleSnapshotHeights(w http.ResponseWriter, r *http.Request) {
	heights, err := s.daemon.SnapshotHeights(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, api.SnapshotHeightsResponse{Heights: heights})
}

// handleRPC answers node-style JSON-RPC calls for the dividends commands.
// Like the node, errors are reported with HTTP 500, or 404 for an unknown
// method, and the body always carries both result and error.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req api.RPCRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(s.logger, w, http.StatusBadRequest, api.RPCResponse{
			Error: &api.RPCError{Code: rpcParseErrorCode, Message: "Parse error"},
			ID:    json.RawMessage("null"),
		})
		return
	}
	id := req.ID
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	if strings.TrimSpace(req.Method) == "" {
		writeJSON(s.logger, w, http.StatusBadRequest, api.RPCResponse{
			Error: &api.RPCError{Code: rpcInvalidReqCode, Message: "Method must be a string"},
			ID:    id,
		})
		return
	}

	result, err := s.daemon.Dividends().Execute(r.Context(), req.Method, req.Params)
	if err != nil {
		var reqErr *dividends.RequestError
		if !errors.As(err, &reqErr) {
			reqErr = &dividends.RequestError{Code: dividends.CodeMiscError, Message: err.Error()}
		}
		status := http.StatusInternalServerError
		if reqErr.Code == dividends.CodeMethodNotFound {
			status = http.StatusNotFound
		}
		writeJSON(s.logger, w, status, api.RPCResponse{
			Error: &api.RPCError{Code: reqErr.Code, Message: reqErr.Message},
			ID:    id,
		})
		return
	}
	writeJSON(s.logger, w, http.StatusOK, api.RPCResponse{Result: result, ID: id})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(s.logger, w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	payload := api.ErrorFrom(err)
	writeJSON(s.logger, w, statusFor(err), payload)
}

// statusFor maps domain failures to HTTP status codes.
func statusFor(err error) int {
	var reqErr *dividends.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Code == dividends.CodeDatabaseError {
			return http.StatusInternalServerError
		}
		return http.StatusBadRequest
	}
	switch {
	case errors.Is(err, ipfs.ErrDisabled), errors.Is(err, daemon.ErrIPFSUnavailable):
		return http.StatusServiceUnavailable
	}
	switch ipfs.KindOf(err) {
	case ipfs.KindInvalidInput:
		return http.StatusBadRequest
	case ipfs.KindTransport, ipfs.KindDaemon, ipfs.KindProtocol:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Error("failed to encode response", logging.Error(err))
	}
}
