package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/wlseat/internal/config"
	"github.com/bnema/wlseat/internal/ipc"
	"github.com/bnema/wlseat/internal/ui"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the input state of the running wlseat",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := ipc.NewClient(controlSocket())
		if !client.IsRunning() {
			return ipc.ErrDaemonNotRunning
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		interval := time.Duration(config.Get().IPC.PollInterval) * time.Millisecond
		runner := ui.NewProgramRunner(ui.DefaultProgramConfig())
		return runner.Run(ctx, ui.NewWatchModel(client, interval))
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
