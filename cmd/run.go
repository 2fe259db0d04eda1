package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/wlseat/internal/config"
	"github.com/bnema/wlseat/internal/logger"
	"github.com/bnema/wlseat/internal/server"
	"github.com/bnema/wlseat/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var headless bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Track the seat of the current Wayland session",
	Long: `Connect to the compositor, map the probe window and track input until
interrupted. The live state is shown in a terminal UI unless --headless is
given, and is always served on the control socket.`,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().BoolVar(&headless, "headless", false, "Run without the terminal UI")
	runCmd.Flags().Bool("probe", true, "Map the probe window to receive input focus")
	runCmd.Flags().Bool("ssh", false, "Serve the live view over SSH")
	runCmd.Flags().Int("port", 0, "SSH monitor port")
	runCmd.Flags().Bool("journal", false, "Record events to the journal")
	runCmd.Flags().String("focus-policy", "", "Keys on focus loss: clear or retain")

	// Bind flags to viper
	viper.BindPFlag("window.probe", runCmd.Flags().Lookup("probe"))
	viper.BindPFlag("ssh.enabled", runCmd.Flags().Lookup("ssh"))
	viper.BindPFlag("ssh.port", runCmd.Flags().Lookup("port"))
	viper.BindPFlag("journal.enabled", runCmd.Flags().Lookup("journal"))
	viper.BindPFlag("input.focus_policy", runCmd.Flags().Lookup("focus-policy"))

	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	if cfg.Logging.FileLogging {
		f, err := logger.OpenFile(cfg.Logging.LogFile)
		if err != nil {
			return err
		}
		defer f.Close()
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer srv.Stop()

	config.Watch(srv.ApplyConfig, func(err error) {
		logger.Warnf("Ignoring invalid configuration change: %v", err)
	})

	if headless {
		logger.Infof("Tracking input, control socket at %s", srv.SocketPath())
		select {
		case <-ctx.Done():
		case <-srv.Done():
		}
		return srv.Err()
	}

	// The UI owns the terminal; log lines would tear it
	if !cfg.Logging.FileLogging {
		logger.SetOutput(io.Discard)
		defer logger.SetOutput(os.Stderr)
	}

	uiCtx, uiCancel := context.WithCancel(ctx)
	defer uiCancel()
	go func() {
		select {
		case <-srv.Done():
			uiCancel()
		case <-uiCtx.Done():
		}
	}()

	interval := time.Duration(cfg.IPC.PollInterval) * time.Millisecond
	runner := ui.NewProgramRunner(ui.DefaultProgramConfig())
	if err := runner.Run(uiCtx, ui.NewWatchModel(srv.Handler(), interval)); err != nil {
		return fmt.Errorf("terminal UI: %w", err)
	}
	return srv.Err()
}
