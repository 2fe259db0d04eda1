package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bnema/wlseat/internal/config"
	"github.com/bnema/wlseat/internal/ipc"
	"github.com/bnema/wlseat/internal/ui"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	socketPath string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the input state of the running wlseat",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := ipc.NewClient(controlSocket())

		status, err := client.Status()
		if errors.Is(err, ipc.ErrDaemonNotRunning) && !jsonOutput {
			fmt.Fprintln(cmd.OutOrStdout(), "wlseat is not running")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderStatus(status, 80))
		return nil
	},
}

var blockCmd = &cobra.Command{
	Use:       "block <on|off>",
	Short:     "Hide pressed keys from pollers, e.g. while a menu owns the keyboard",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var blocked bool
		switch args[0] {
		case "on":
			blocked = true
		case "off":
		default:
			return fmt.Errorf("expected on or off, got %q", args[0])
		}

		status, err := ipc.NewClient(controlSocket()).SetBlocked(blocked)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.FormatFlag(status.Blocked, "blocked"))
		return nil
	},
}

var policyCmd = &cobra.Command{
	Use:       "policy <clear|retain>",
	Short:     "Set what happens to pressed keys when keyboard focus is lost",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"clear", "retain"},
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := ipc.NewClient(controlSocket()).SetFocusPolicy(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "focus policy: %s\n", status.FocusPolicy)
		return nil
	},
}

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Release every key, button and touch contact held in the running wlseat",
	Long: `Release drops all pressed keys, modifiers, mouse buttons and touch contacts
tracked by the daemon, for input left latched after a lost key-up.
Sending SIGUSR1 to the daemon or creating the release trigger file does the same.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := ipc.NewClient(controlSocket()).Release()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "input released (%d keys held)\n", len(status.Keys))
		return nil
	},
}

// controlSocket returns the socket given on the command line or configured
func controlSocket() string {
	if socketPath != "" {
		return socketPath
	}
	return config.Get().IPC.SocketPath
}

func init() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "Control socket path")
	statusCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(releaseCmd)
}
