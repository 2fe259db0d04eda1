package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/wlseat/internal/inject"
	"github.com/bnema/wlseat/internal/logger"
	"github.com/spf13/cobra"
)

var (
	injectDevice string
	injectDelay  time.Duration
)

var injectCmd = &cobra.Command{
	Use:   "inject <script|->",
	Short: "Drive a virtual keyboard and mouse from a script",
	Long: `Create virtual input devices through uinput and play a script of key
presses, pointer motion and clicks. Run it while wlseat tracks the session
to check what the compositor delivers. Use - to read the script from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runInject,
}

func init() {
	injectCmd.Flags().StringVar(&injectDevice, "device", "/dev/uinput", "uinput device path")
	injectCmd.Flags().DurationVar(&injectDelay, "delay", 500*time.Millisecond, "Wait before playing, so the compositor picks up the devices")
	rootCmd.AddCommand(injectCmd)
}

func runInject(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		r = f
	}

	steps, err := inject.Parse(r)
	if err != nil {
		return err
	}

	dev, err := inject.Open(injectDevice)
	if err != nil {
		return err
	}
	defer dev.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	select {
	case <-time.After(injectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	logger.Infof("Playing %d steps", len(steps))
	return inject.NewRunner(dev).Run(ctx, steps)
}
