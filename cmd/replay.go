package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/bnema/wlseat/internal/input"
	"github.com/bnema/wlseat/internal/ipc"
	"github.com/bnema/wlseat/internal/journal"
	"github.com/bnema/wlseat/internal/logger"
	"github.com/bnema/wlseat/internal/ui"
	"github.com/bnema/wlseat/internal/wayland"
	"github.com/spf13/cobra"
)

var (
	replaySession int64
	replayList    bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <journal.db>",
	Short: "Replay a recorded session and show the resulting state",
	Long: `Apply every event of a journaled session to a fresh context and print the
state it ends in. Without --session the latest session is replayed.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().Int64Var(&replaySession, "session", 0, "Session id to replay (default latest)")
	replayCmd.Flags().BoolVar(&replayList, "list", false, "List recorded sessions")
	replayCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(args[0]); err != nil {
		return fmt.Errorf("journal not found: %w", err)
	}
	j, err := journal.Open(args[0])
	if err != nil {
		return err
	}
	defer j.Close()

	if replayList {
		return listSessions(cmd, j)
	}

	session := replaySession
	if session == 0 {
		if session, err = j.LatestSession(); err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	state := wayland.NewContext(input.ClearKeysOnFocusLoss)
	n, err := j.Replay(ctx, session, wayland.NewDispatcher(state, nil, nil))
	if err != nil {
		return fmt.Errorf("replay stopped after %d events: %w", n, err)
	}
	logger.Infof("Replayed %d events from session %d", n, session)

	status := ipc.NewStatus(state.Snapshot())
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderStatus(status, 80))
	return nil
}

func listSessions(cmd *cobra.Command, j *journal.Journal) error {
	sessions, err := j.Sessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		logger.Info("No sessions recorded")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tStarted\tSeat\tEvents")
	for _, s := range sessions {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", s.ID, s.Started.Format(time.DateTime), s.Seat, s.Events)
	}
	return w.Flush()
}
