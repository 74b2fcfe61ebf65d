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

	"hdmictl/internal/daemon"
	"hdmictl/internal/encoder"
	"hdmictl/internal/logging"
	"hdmictl/internal/pipeline"
)

const serviceName = "Hdmictl"

// Controller is the daemon surface served over the socket.
type Controller interface {
	Status() daemon.Status
	Reevaluate(ctx context.Context, reason string) (pipeline.Snapshot, error)
	SetPower(mode encoder.PowerMode) error
}

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, ctrl Controller, logger *slog.Logger) (*Server, error) {
	if ctrl == nil {
		return nil, errors.New("ipc server requires a controller")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(serviceName, &service{ctrl: ctrl, logger: logger, ctx: serverCtx}); err != nil {
		cancel()
		_ = listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the server is closed.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
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
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
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

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	ctrl   Controller
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	st := s.ctrl.Status()
	*resp = StatusResponse{
		Running:     st.Running,
		PID:         os.Getpid(),
		Connector:   st.Connector,
		Started:     st.Started,
		LastStatus:  st.LastStatus.String(),
		Power:       st.Power.String(),
		HasChannel:  st.HasChannel,
		Envelope:    NewEnvelopeView(st.Envelope),
		Monitors:    st.Monitors,
		LockPath:    st.LockFilePath,
		JournalPath: st.JournalPath,
		Latest:      st.Latest,
	}
	return nil
}

func (s *service) Reevaluate(req ReevaluateRequest, resp *ReevaluateResponse) error {
	reason := req.Reason
	if reason == "" {
		reason = pipeline.ReasonManual
	}
	s.logger.Info("re-evaluation requested via IPC",
		logging.String("reason", reason),
		logging.String(logging.FieldEventType, "ipc_reevaluate"))
	snap, err := s.ctrl.Reevaluate(s.ctx, reason)
	resp.Snapshot = snap
	if err != nil {
		resp.PublishError = err.Error()
	}
	return nil
}

func (s *service) SetPower(req PowerRequest, resp *PowerResponse) error {
	mode, err := encoder.ParsePowerMode(req.Mode)
	if err != nil {
		return err
	}
	if err := s.ctrl.SetPower(mode); err != nil {
		return err
	}
	resp.Mode = mode.String()
	return nil
}
