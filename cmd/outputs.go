package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/bnema/wlseat/internal/display"
	"github.com/bnema/wlseat/internal/input"
	"github.com/bnema/wlseat/internal/logger"
	"github.com/bnema/wlseat/internal/ui"
	"github.com/bnema/wlseat/internal/wayland"
	"github.com/spf13/cobra"
)

var outputsCmd = &cobra.Command{
	Use:   "outputs",
	Short: "List the outputs advertised by the compositor",
	Long: `Connect to the compositor without mapping a window and list every wl_output
with its mode, position and scale. The primary output is the one at the
origin of the global space.`,
	RunE: runOutputs,
}

func init() {
	outputsCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.AddCommand(outputsCmd)
}

// outputsReport is the `outputs --json` document
type outputsReport struct {
	Primary string               `json:"primary,omitempty"`
	Outputs []display.OutputInfo `json:"outputs"`
}

func runOutputs(cmd *cobra.Command, args []string) error {
	state := wayland.NewContext(input.ClearKeysOnFocusLoss)
	client := wayland.NewClient(state, wayland.NewListeners(state, nil, nil), wayland.Options{})
	if err := client.Connect(); err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Debugf("closing wayland connection: %v", err)
		}
	}()

	return printOutputs(cmd.OutOrStdout(), state.Snapshot().Outputs, jsonOutput)
}

func printOutputs(w io.Writer, set *display.OutputSet, asJSON bool) error {
	report := outputsReport{Outputs: copyOutputs(set)}
	if p, ok := set.Primary(); ok {
		report.Primary = p.Name
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	if len(report.Outputs) == 0 {
		logger.Warn("Compositor advertised no outputs")
		return nil
	}
	fmt.Fprintln(w, ui.RenderOutputs(report.Outputs, "", 100))
	if report.Primary != "" {
		fmt.Fprintf(w, "primary: %s\n", report.Primary)
	}
	return nil
}

// copyOutputs flattens the set in global id order
func copyOutputs(set *display.OutputSet) []display.OutputInfo {
	all := set.All()
	out := make([]display.OutputInfo, 0, len(all))
	for _, o := range all {
		out = append(out, *o)
	}
	return out
}
