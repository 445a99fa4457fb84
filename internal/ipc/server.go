package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"assetnode/internal/api"
	"assetnode/internal/daemon"
	"assetnode/internal/dividends"
	"assetnode/internal/logging"
)

// ServiceName is the net/rpc receiver name.
const ServiceName = "AssetNode"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. onStop is
// invoked after a Stop request has stopped the daemon; the host uses it to end
// the process.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, onStop func()) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx, onStop: onStop}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket_path", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file. Open client
// connections are served until the client disconnects.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket_path", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun assetnode stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
	onStop func()
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.logger.Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.logger.Info("daemon started via IPC", logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.logger.Info("daemon stopped via IPC", logging.String(logging.FieldEventType, "daemon_stop"))
	if s.onStop != nil {
		s.onStop()
	}
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = api.FromDaemonStatus(s.daemon.Status(s.ctx))
	return nil
}

func (s *service) IPFSStart(_ IPFSControlRequest, resp *IPFSControlResponse) error {
	err := s.daemon.StartIPFS()
	resp.OK = err == nil
	resp.State = s.daemon.Supervisor().State().String()
	if err != nil {
		resp.Message = err.Error()
	}
	return nil
}

func (s *service) IPFSStop(_ IPFSControlRequest, resp *IPFSControlResponse) error {
	err := s.daemon.StopIPFS()
	resp.OK = err == nil
	resp.State = s.daemon.Supervisor().State().String()
	if err != nil {
		resp.Message = err.Error()
	}
	return nil
}

func (s *service) Fetch(req FetchRequest, resp *FetchResponse) error {
	data, err := s.daemon.FetchContent(s.ctx, req.ContentID)
	if err != nil {
		return err
	}
	resp.Data = data
	return nil
}

func (s *service) Add(req AddRequest, resp *AddResponse) error {
	result, err := s.daemon.AddContent(s.ctx, req.Data, req.Pin)
	if err != nil {
		return err
	}
	*resp = api.FromAddResult(result)
	return nil
}

func (s *service) AddFile(req AddFileRequest, resp *AddResponse) error {
	result, err := s.daemon.AddFile(s.ctx, req.Path, req.Pin)
	if err != nil {
		return err
	}
	*resp = api.FromAddResult(result)
	return nil
}

func (s *service) Pin(req PinRequest, resp *PinResponse) error {
	if err := s.daemon.PinContent(s.ctx, req.ContentID); err != nil {
		return err
	}
	resp.Pinned = true
	return nil
}

func (s *service) Stat(req StatRequest, resp *StatResponse) error {
	size, err := s.daemon.StatContent(s.ctx, req.ContentID)
	if err != nil {
		return err
	}
	resp.ContentID = req.ContentID
	resp.CumulativeSize = size
	return nil
}

func (s *service) SnapshotCreate(req SnapshotCreateRequest, resp *SnapshotCreateResponse) error {
	msg, err := s.daemon.CreateSnapshotCheck(s.ctx, req.AssetName, req.BlockHeight)
	if err != nil {
		resp.ErrorCode, resp.Error = requestErrorFields(err)
		return nil
	}
	resp.Message = msg
	return nil
}

func (s *service) SnapshotGet(req SnapshotGetRequest, resp *SnapshotGetResponse) error {
	names, err := s.daemon.SnapshotChecks(s.ctx, req.BlockHeight)
	if err != nil {
		resp.ErrorCode, resp.Error = requestErrorFields(err)
		return nil
	}
	resp.AssetNames = names
	return nil
}

func (s *service) SnapshotList(_ SnapshotListRequest, resp *SnapshotListResponse) error {
	heights, err := s.daemon.SnapshotHeights(s.ctx)
	if err != nil {
		resp.ErrorCode, resp.Error = requestErrorFields(err)
		return nil
	}
	resp.Heights = heights
	return nil
}

func requestErrorFields(err error) (int, string) {
	var reqErr *dividends.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Code, reqErr.Message
	}
	return dividends.CodeMiscError, err.Error()
}
