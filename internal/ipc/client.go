package ipc

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/bnema/wlseat/internal/logger"
)

// ErrDaemonNotRunning is returned when nothing listens on the socket
var ErrDaemonNotRunning = errors.New("wlseat is not running")

// Client talks to a running wlseat daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the socket at socketPath
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// Status fetches the current session status
func (c *Client) Status() (*Status, error) {
	return c.request(NewStatusMessage())
}

// SetBlocked suppresses or restores key reporting in the daemon
func (c *Client) SetBlocked(blocked bool) (*Status, error) {
	return c.request(NewBlockMessage(blocked))
}

// SetFocusPolicy changes the daemon's focus-loss policy until the next
// config reload
func (c *Client) SetFocusPolicy(policy string) (*Status, error) {
	return c.request(NewPolicyMessage(policy))
}

// Release asks the daemon to drop all held input
func (c *Client) Release() (*Status, error) {
	return c.request(NewReleaseMessage())
}

// IsRunning reports whether a daemon answers on the socket
func (c *Client) IsRunning() bool {
	_, err := c.Status()
	return err == nil
}

func (c *Client) request(msg *Message) (*Status, error) {
	response, err := c.sendMessage(msg)
	if err != nil {
		return nil, err
	}

	switch response.Type {
	case TypeReply:
		if response.Status == nil {
			return nil, fmt.Errorf("reply without status")
		}
		return response.Status, nil
	case TypeError:
		return nil, fmt.Errorf("server error: %s", response.Error)
	default:
		return nil, fmt.Errorf("unexpected response type: %s", response.Type)
	}
}

// sendMessage sends a message and returns the response
func (c *Client) sendMessage(msg *Message) (*Message, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		if isNotListening(err) {
			return nil, ErrDaemonNotRunning
		}
		return nil, fmt.Errorf("failed to connect to wlseat: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Errorf("Failed to close IPC connection: %v", err)
		}
	}()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		logger.Warnf("Failed to set connection deadline: %v", err)
	}

	if err := writeMessage(conn, msg); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	response, err := readMessage(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return response, nil
}

// isNotListening reports a refused connection or a missing socket file
func isNotListening(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENOENT)
}
