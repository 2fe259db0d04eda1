package ipc

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/wlseat/internal/input"
	"github.com/bnema/wlseat/internal/logger"
	"github.com/bnema/wlseat/internal/wayland"
)

// SocketServer answers status queries on a unix socket
type SocketServer struct {
	mu         sync.Mutex
	listener   net.Listener
	socketPath string
	handler    Handler
	wg         sync.WaitGroup
	cancel     context.CancelFunc
	running    bool
}

// Handler serves control requests
type Handler interface {
	Status() (*Status, error)
	SetBlocked(blocked bool) (*Status, error)
	SetFocusPolicy(policy string) (*Status, error)
	Release() (*Status, error)
}

// ContextHandler serves requests from a live session context
type ContextHandler struct {
	Ctx *wayland.Context
}

func (h *ContextHandler) Status() (*Status, error) {
	return NewStatus(h.Ctx.Snapshot()), nil
}

func (h *ContextHandler) SetBlocked(blocked bool) (*Status, error) {
	h.Ctx.SetBlocked(blocked)
	return h.Status()
}

func (h *ContextHandler) SetFocusPolicy(policy string) (*Status, error) {
	if policy != "clear" && policy != "retain" {
		return nil, fmt.Errorf("unknown focus policy %q", policy)
	}
	h.Ctx.SetFocusPolicy(input.ParseFocusPolicy(policy))
	return h.Status()
}

func (h *ContextHandler) Release() (*Status, error) {
	h.Ctx.ReleaseInput()
	return h.Status()
}

// NewSocketServer creates a socket server listening on socketPath
func NewSocketServer(socketPath string, handler Handler) *SocketServer {
	return &SocketServer{
		socketPath: socketPath,
		handler:    handler,
	}
}

// SocketPath returns the listening path
func (s *SocketServer) SocketPath() string {
	return s.socketPath
}

// Start starts the socket server
func (s *SocketServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	// Remove a stale socket left by a crashed daemon
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0700); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create socket listener: %w", err)
	}

	// Set socket permissions (user only)
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.listener = listener
	s.running = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.acceptConnections(ctx)

	logger.Infof("IPC socket server started at %s", s.socketPath)
	return nil
}

// Stop stops the socket server
func (s *SocketServer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	if s.cancel != nil {
		s.cancel()
	}
	if s.listener != nil {
		s.listener.Close()
	}

	s.wg.Wait()

	os.RemoveAll(s.socketPath)
	logger.Info("IPC socket server stopped")
}

func (s *SocketServer) acceptConnections(ctx context.Context) {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				logger.Errorf("Failed to accept connection: %v", err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(ctx, conn)
	}
}

func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// Unblock the read below on shutdown
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		msg, err := readMessage(conn)
		if err != nil {
			logger.Debugf("Connection closed or read error: %v", err)
			return
		}

		if err := writeMessage(conn, s.handleMessage(msg)); err != nil {
			logger.Errorf("Failed to send response: %v", err)
			return
		}
	}
}

// handleMessage processes a single message and returns a response
func (s *SocketServer) handleMessage(msg *Message) *Message {
	var (
		st  *Status
		err error
	)
	switch msg.Type {
	case TypeStatus:
		st, err = s.handler.Status()
	case TypeBlock:
		if msg.Blocked == nil {
			return NewErrorMessage("block request without blocked field")
		}
		st, err = s.handler.SetBlocked(*msg.Blocked)
	case TypePolicy:
		st, err = s.handler.SetFocusPolicy(msg.FocusPolicy)
	case TypeRelease:
		logger.Info("Input release requested over the control socket")
		st, err = s.handler.Release()
	default:
		return NewErrorMessage(fmt.Sprintf("unknown message type: %s", msg.Type))
	}
	if err != nil {
		return NewErrorMessage(err.Error())
	}
	return NewReplyMessage(st)
}
