package ui

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ProgramConfig holds configuration for running a UI program
type ProgramConfig struct {
	AltScreen bool
	// LogFile receives the program output instead of the terminal when set
	LogFile string
	// KillTimeout is how long to wait for a quit before killing the program
	KillTimeout time.Duration
}

// DefaultProgramConfig returns default configuration
func DefaultProgramConfig() ProgramConfig {
	return ProgramConfig{
		AltScreen:   true,
		KillTimeout: 2 * time.Second,
	}
}

// ProgramRunner runs a Bubble Tea program until it exits or its context is
// cancelled
type ProgramRunner struct {
	config  ProgramConfig
	program *tea.Program
	done    chan struct{}
}

// NewProgramRunner creates a new program runner
func NewProgramRunner(config ProgramConfig) *ProgramRunner {
	if config.KillTimeout <= 0 {
		config.KillTimeout = DefaultProgramConfig().KillTimeout
	}
	return &ProgramRunner{
		config: config,
		done:   make(chan struct{}),
	}
}

// Run starts the program with the given model
func (r *ProgramRunner) Run(ctx context.Context, model tea.Model) error {
	defer close(r.done)

	var opts []tea.ProgramOption
	if r.config.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if r.config.LogFile != "" {
		f, err := os.OpenFile(r.config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		opts = append(opts, tea.WithOutput(f))
	}

	r.program = tea.NewProgram(model, opts...)

	errCh := make(chan error, 1)
	go func() {
		_, err := r.program.Run()
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		r.program.Quit()
		select {
		case err := <-errCh:
			return err
		case <-time.After(r.config.KillTimeout):
			r.program.Kill()
			<-errCh
			return nil
		}
	}
}

// Send sends a message to the running program
func (r *ProgramRunner) Send(msg tea.Msg) {
	if r.program != nil {
		r.program.Send(msg)
	}
}

// Done returns a channel that's closed when the program exits
func (r *ProgramRunner) Done() <-chan struct{} {
	return r.done
}
