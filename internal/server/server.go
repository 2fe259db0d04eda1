// Package server runs the wlseat daemon: the Wayland session, the control
// socket, the SSH monitor and the event journal
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bnema/wlseat/internal/config"
	"github.com/bnema/wlseat/internal/input"
	"github.com/bnema/wlseat/internal/ipc"
	"github.com/bnema/wlseat/internal/journal"
	"github.com/bnema/wlseat/internal/logger"
	"github.com/bnema/wlseat/internal/network"
	"github.com/bnema/wlseat/internal/wayland"
)

// Server owns every component of a tracking session
type Server struct {
	config     *config.Config
	ctx        *wayland.Context
	handler    *ipc.ContextHandler
	translator input.Translator
	listeners  *wayland.Listeners

	client    *wayland.Client
	ipcServer *ipc.SocketServer
	monitor   *network.Monitor
	journal   *journal.Journal
	release   *Release

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	runErr  error
	started bool
	wg      sync.WaitGroup
}

// New creates a server from cfg. Nothing is opened until Start.
func New(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		config: cfg,
		ctx:    wayland.NewContext(input.ParseFocusPolicy(cfg.Input.FocusPolicy)),
		done:   make(chan struct{}),
	}
	s.handler = &ipc.ContextHandler{Ctx: s.ctx}
	s.translator = newTranslator(cfg.Input)
	s.listeners = wayland.NewListeners(s.ctx, s.translator, wayland.SinkFunc(s.record))
	return s, nil
}

// newTranslator picks the key translator configured for the session
func newTranslator(cfg config.InputConfig) input.Translator {
	if cfg.Translator == "none" {
		return &input.NopTranslator{}
	}
	return input.NewKeymapTranslator(cfg.TargetLayout)
}

// record forwards applied events to the journal and the debug log
func (s *Server) record(ev wayland.Event) {
	if s.journal != nil {
		s.journal.Record(ev)
	}
	logger.Debug(ev.String())
}

// Start opens the journal, connects to the compositor and starts the
// services. The event loop runs until ctx is cancelled or the session ends;
// Done is closed when it returns.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	if err := s.initJournal(); err != nil {
		return fmt.Errorf("failed to initialize journal: %w", err)
	}

	if err := s.initWayland(); err != nil {
		s.closeJournal()
		return fmt.Errorf("failed to initialize wayland: %w", err)
	}

	if err := s.startServices(ctx); err != nil {
		s.Stop()
		return err
	}

	s.wg.Add(1)
	go s.runEventLoop(ctx)
	return nil
}

// startServices starts the components that only read the session state
func (s *Server) startServices(ctx context.Context) error {
	if err := s.initIPC(); err != nil {
		return fmt.Errorf("failed to initialize control socket: %w", err)
	}
	if err := s.initMonitor(ctx); err != nil {
		return fmt.Errorf("failed to initialize SSH monitor: %w", err)
	}
	if err := s.initRelease(); err != nil {
		return fmt.Errorf("failed to arm input release: %w", err)
	}
	return nil
}

func (s *Server) initJournal() error {
	if !s.config.Journal.Enabled {
		return nil
	}

	j, err := journal.Open(expandPath(s.config.Journal.Path))
	if err != nil {
		return err
	}
	// The session starts before connecting so the initial burst of
	// capability, keymap and output events is recorded too.
	if _, err := j.Begin(os.Getenv("WAYLAND_DISPLAY")); err != nil {
		j.Close()
		return err
	}
	s.journal = j
	return nil
}

func (s *Server) initWayland() error {
	color, err := config.ParseColor(s.config.Window.Color)
	if err != nil {
		return err
	}

	s.client = wayland.NewClient(s.ctx, s.listeners, wayland.Options{
		Probe:      s.config.Window.Probe,
		Title:      s.config.Window.Title,
		Width:      int32(s.config.Window.Width),
		Height:     int32(s.config.Window.Height),
		Color:      color,
		HideCursor: s.config.Window.HideCursor,
	})
	if err := s.client.Connect(); err != nil {
		return err
	}
	if !s.client.HasSeat() {
		logger.Warn("Compositor has no seat, only outputs will be tracked")
	}

	if s.journal != nil {
		if name := s.ctx.Snapshot().Seat.Name; name != "" {
			if err := s.journal.SetSeat(name); err != nil {
				logger.Warnf("Failed to label journal session: %v", err)
			}
		}
	}
	return nil
}

func (s *Server) initIPC() error {
	path := expandPath(s.config.IPC.SocketPath)
	srv := ipc.NewSocketServer(path, s.handler)
	if err := srv.Start(); err != nil {
		return err
	}
	s.ipcServer = srv
	logger.Infof("Control socket listening on %s", path)
	return nil
}

func (s *Server) initMonitor(ctx context.Context) error {
	if !s.config.SSH.Enabled {
		return nil
	}

	hostKeyPath := expandPath(s.config.SSH.HostKeyPath)
	if err := os.MkdirAll(filepath.Dir(hostKeyPath), 0700); err != nil {
		return fmt.Errorf("failed to create host key directory: %w", err)
	}

	addr := net.JoinHostPort(s.config.SSH.BindAddress, strconv.Itoa(s.config.SSH.Port))
	m := network.NewMonitor(addr, hostKeyPath, s.handler.Status)
	m.SetMaxClients(s.config.SSH.MaxClients)
	if s.config.IPC.PollInterval > 0 {
		m.SetInterval(time.Duration(s.config.IPC.PollInterval) * time.Millisecond)
	}
	m.OnViewerConnected = func(addr, fingerprint string) {
		logger.Info("Viewer connected", "addr", addr, "key", fingerprint)
	}
	m.OnViewerDisconnected = func(addr string) {
		logger.Info("Viewer disconnected", "addr", addr)
	}
	if err := m.Start(ctx); err != nil {
		return err
	}
	s.monitor = m
	return nil
}

func (s *Server) initRelease() error {
	file := expandPath(s.config.Input.ReleaseFile)
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
			return fmt.Errorf("failed to create release file directory: %w", err)
		}
	}
	r := NewRelease(s.ctx.ReleaseInput, file)
	if err := r.Start(); err != nil {
		return err
	}
	s.release = r
	return nil
}

// runEventLoop dispatches Wayland events until the session ends
func (s *Server) runEventLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.done)

	if err := s.client.Run(ctx); err != nil {
		logger.Errorf("Wayland event loop error: %v", err)
		s.mu.Lock()
		s.runErr = err
		s.mu.Unlock()
	}
}

// Done is closed when the event loop returns
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the event loop, if any
func (s *Server) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

// ApplyConfig updates the settings that can change while running
func (s *Server) ApplyConfig(cfg *config.Config) {
	policy := input.ParseFocusPolicy(cfg.Input.FocusPolicy)
	s.ctx.SetFocusPolicy(policy)
	logger.Infof("Focus policy set to %s", policy)
}

// Stop stops every component. The event loop is stopped first so protocol
// objects are never released while events are being dispatched. It is safe
// to call more than once.
func (s *Server) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	if s.release != nil {
		s.release.Stop()
	}
	if s.monitor != nil {
		s.monitor.Stop()
	}
	if s.ipcServer != nil {
		s.ipcServer.Stop()
	}
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			logger.Debugf("closing wayland connection: %v", err)
		}
	}
	s.closeJournal()
}

func (s *Server) closeJournal() {
	if s.journal == nil {
		return
	}
	if n := s.journal.Dropped(); n > 0 {
		logger.Warnf("Journal dropped %d events", n)
	}
	if err := s.journal.Close(); err != nil {
		logger.Errorf("Failed to close journal: %v", err)
	}
}

// Context returns the session context
func (s *Server) Context() *wayland.Context {
	return s.ctx
}

// Handler returns the request handler backing the control socket
func (s *Server) Handler() ipc.Handler {
	return s.handler
}

// Listeners returns the listener tables fed by the compositor connection
func (s *Server) Listeners() *wayland.Listeners {
	return s.listeners
}

// Monitor returns the SSH monitor, nil when disabled or not started
func (s *Server) Monitor() *network.Monitor {
	return s.monitor
}

// SocketPath returns the expanded control socket path
func (s *Server) SocketPath() string {
	return expandPath(s.config.IPC.SocketPath)
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
