// Package network serves rendered session status to remote terminals over
// SSH.
package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/bnema/wlseat/internal/config"
	"github.com/bnema/wlseat/internal/ipc"
	"github.com/bnema/wlseat/internal/logger"
	"github.com/bnema/wlseat/internal/ui"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	gossh "golang.org/x/crypto/ssh"
)

// StatusFunc produces the status shown to viewers
type StatusFunc func() (*ipc.Status, error)

// RenderFunc renders a status for a terminal of the given width
type RenderFunc func(st *ipc.Status, width int) string

const (
	clearScreen = "\x1b[H\x1b[2J"
	hideCursor  = "\x1b[?25l"
	showCursor  = "\x1b[?25h"
)

// Monitor is an SSH server streaming live status to viewers
type Monitor struct {
	addr        string
	hostKeyPath string
	maxClients  int
	interval    time.Duration
	status      StatusFunc
	render      RenderFunc

	sshServer *ssh.Server
	listener  net.Listener

	mu      sync.Mutex
	viewers map[string]*viewer // sessionID -> viewer

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	OnViewerConnected    func(addr, fingerprint string)
	OnViewerDisconnected func(addr string)
}

type viewer struct {
	session     ssh.Session
	addr        string
	fingerprint string
}

// NewMonitor creates a monitor listening on addr
func NewMonitor(addr, hostKeyPath string, status StatusFunc) *Monitor {
	return &Monitor{
		addr:        addr,
		hostKeyPath: hostKeyPath,
		maxClients:  4,
		interval:    250 * time.Millisecond,
		status:      status,
		render:      ui.RenderStatus,
		viewers:     make(map[string]*viewer),
		stop:        make(chan struct{}),
	}
}

// SetMaxClients sets the maximum number of concurrent viewers; 0 is unlimited
func (m *Monitor) SetMaxClients(max int) {
	m.maxClients = max
}

// SetInterval sets the refresh interval
func (m *Monitor) SetInterval(d time.Duration) {
	if d > 0 {
		m.interval = d
	}
}

// SetRenderer replaces the status renderer
func (m *Monitor) SetRenderer(r RenderFunc) {
	m.render = r
}

// Addr returns the listening address once started
func (m *Monitor) Addr() net.Addr {
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

// Viewers returns the number of connected viewers
func (m *Monitor) Viewers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.viewers)
}

// Start begins accepting SSH connections. The monitor stops when ctx is
// cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	server, err := wish.NewServer(
		wish.WithAddress(m.addr),
		wish.WithHostKeyPath(m.hostKeyPath),
		wish.WithPublicKeyAuth(m.publicKeyAuth),
		wish.WithMiddleware(
			m.viewerHandler(),
			activeterm.Middleware(),
			m.loggingMiddleware(),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create SSH server: %w", err)
	}

	l, err := net.Listen("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.addr, err)
	}
	m.sshServer = server
	m.listener = l

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		logger.Infof("SSH monitor listening on %s", l.Addr())
		if err := server.Serve(l); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			logger.Errorf("SSH monitor error: %v", err)
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			m.Stop()
		case <-m.stop:
		}
	}()
	return nil
}

// Stop shuts down the server and disconnects every viewer
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)

		if m.sshServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := m.sshServer.Shutdown(ctx); err != nil {
				// Viewers keep idle connections open; drop them
				_ = m.sshServer.Close()
			}
		}

		m.mu.Lock()
		for _, v := range m.viewers {
			_ = v.session.Close()
		}
		m.viewers = make(map[string]*viewer)
		m.mu.Unlock()

		m.wg.Wait()
	})
}

// publicKeyAuth accepts whitelisted keys, or every key when whitelist-only
// mode is off
func (m *Monitor) publicKeyAuth(ctx ssh.Context, key ssh.PublicKey) bool {
	goKey, err := gossh.ParsePublicKey(key.Marshal())
	if err != nil {
		logger.Errorf("Failed to parse public key: %v", err)
		return false
	}

	fingerprint := gossh.FingerprintSHA256(goKey)
	addr := ctx.RemoteAddr().String()
	logger.Infof("SSH authentication attempt addr=%s user=%s key=%s", addr, ctx.User(), fingerprint)

	if config.IsSSHKeyWhitelisted(fingerprint) {
		logger.Debugf("SSH key is whitelisted key=%s", fingerprint)
		return true
	}

	if !config.Get().SSH.WhitelistOnly {
		logger.Info("Accepting SSH key (whitelist-only mode disabled)")
		return true
	}

	logger.Warnf("SSH key denied key=%s addr=%s, allow it with: wlseat config ssh add %s", fingerprint, addr, fingerprint)
	return false
}

func (m *Monitor) loggingMiddleware() wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			logger.Debugf("SSH session started: user=%s addr=%s", sess.User(), sess.RemoteAddr())
			h(sess)
			logger.Debugf("SSH session ended: addr=%s", sess.RemoteAddr())
		}
	}
}

func (m *Monitor) viewerHandler() wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			m.mu.Lock()
			if m.maxClients > 0 && len(m.viewers) >= m.maxClients {
				m.mu.Unlock()
				logger.Infof("Rejecting viewer - max clients reached addr=%s", sess.RemoteAddr())
				fmt.Fprintf(sess, "wlseat monitor already has %d viewers\n", m.maxClients)
				_ = sess.Exit(1)
				return
			}

			v := &viewer{session: sess, addr: sess.RemoteAddr().String()}
			if sess.PublicKey() != nil {
				v.fingerprint = gossh.FingerprintSHA256(sess.PublicKey())
			}
			id := sess.Context().SessionID()
			m.viewers[id] = v
			m.mu.Unlock()

			if m.OnViewerConnected != nil {
				m.OnViewerConnected(v.addr, v.fingerprint)
			}
			defer func() {
				m.mu.Lock()
				delete(m.viewers, id)
				m.mu.Unlock()
				if m.OnViewerDisconnected != nil {
					m.OnViewerDisconnected(v.addr)
				}
			}()

			m.stream(sess)
			h(sess)
		}
	}
}

// stream redraws the status until the viewer presses q or ctrl+c, the
// session ends or the monitor stops
func (m *Monitor) stream(sess ssh.Session) {
	pty, winCh, _ := sess.Pty()
	width := pty.Window.Width

	quit := make(chan struct{})
	go func() {
		defer close(quit)
		buf := make([]byte, 1)
		for {
			if _, err := sess.Read(buf); err != nil {
				return
			}
			if buf[0] == 'q' || buf[0] == 3 {
				return
			}
		}
	}()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	fmt.Fprint(sess, hideCursor)
	defer fmt.Fprint(sess, showCursor)

	m.draw(sess, width)
	for {
		select {
		case <-ticker.C:
			m.draw(sess, width)
		case w, ok := <-winCh:
			if !ok {
				winCh = nil
				continue
			}
			width = w.Width
			m.draw(sess, width)
		case <-quit:
			return
		case <-sess.Context().Done():
			return
		case <-m.stop:
			return
		}
	}
}

func (m *Monitor) draw(sess ssh.Session, width int) {
	st, err := m.status()
	var body string
	if err != nil {
		body = ui.ErrorStyle.Render(err.Error())
	} else {
		body = m.render(st, width)
	}
	// The client terminal is in raw mode
	body = strings.ReplaceAll(body, "\n", "\r\n")
	fmt.Fprint(sess, clearScreen+body+"\r\n\r\n"+ui.SubtleStyle.Render("q to disconnect")+"\r\n")
}
