package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/penwyp/go-flight-stepper/internal/application/stepper"
	"github.com/penwyp/go-flight-stepper/internal/core/model"
	"github.com/penwyp/go-flight-stepper/internal/data/capture"
	"github.com/penwyp/go-flight-stepper/internal/util"
)

var (
	replayActions []string
	replaySteps   int
	replaySkip    bool
	replayOutDir  string
	replayFormat  string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Step through a capture without the interactive UI",
	Long: `Loads the render response of a capture, appends the given actions and
releases rows to the downstream consumers. Each released byte stream can be
written to a directory so it can be compared with the recorded responses.

Examples:
  go-flight-stepper replay --capture ./todo                        # Release everything
  go-flight-stepper replay --capture ./todo --steps 3              # Release three rows
  go-flight-stepper replay --capture ./todo --action 'like:0=[1]'  # Add an action first
  go-flight-stepper replay --capture ./todo --skip --steps 1       # Release the first entry`,
	Args: cobra.NoArgs,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringArrayVarP(&replayActions, "action", "a", nil,
		"Action to append, as name or name:args (repeatable)")
	replayCmd.Flags().IntVarP(&replaySteps, "steps", "n", -1,
		"Number of steps (negative = until the end)")
	replayCmd.Flags().BoolVar(&replaySkip, "skip", false,
		"Step one whole entry at a time")
	replayCmd.Flags().StringVar(&replayOutDir, "out", "",
		"Write the bytes received by each consumer into this directory")
	replayCmd.Flags().StringVarP(&replayFormat, "format", "o", "table",
		"Output format (table, json)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	if err := initLogging(); err != nil {
		return err
	}
	defer util.CloseLogger()

	if replayFormat != "table" && replayFormat != "json" {
		return fmt.Errorf("unsupported output format: %s", replayFormat)
	}

	opts := stepper.ReplayOptions{Steps: replaySteps, Skip: replaySkip}
	for _, raw := range replayActions {
		call, err := stepper.ParseActionCall(raw)
		if err != nil {
			return err
		}
		opts.Actions = append(opts.Actions, call)
	}

	config, err := buildConfig()
	if err != nil {
		return err
	}
	store, err := capture.Open(config.CaptureDir, config.Chunking)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	result, err := stepper.Replay(ctx, store, *config, opts)
	if err != nil {
		return err
	}

	if replayOutDir != "" {
		if err := writeReceived(expandPath(replayOutDir), result); err != nil {
			return err
		}
	}
	return printReplay(cmd.OutOrStdout(), replayFormat, result)
}

type entryReport struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Label    string `json:"label"`
	Args     string `json:"args,omitempty"`
	Rows     int    `json:"rows"`
	Released int    `json:"released"`
	Frames   int    `json:"frames"`
	Bytes    int    `json:"bytes"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

type replayReport struct {
	Cursor      int           `json:"cursor"`
	TotalChunks int           `json:"totalChunks"`
	Steps       int           `json:"steps"`
	Entries     []entryReport `json:"entries"`
}

func newReplayReport(result *stepper.ReplayResult) replayReport {
	report := replayReport{
		Cursor:      result.Cursor,
		TotalChunks: result.TotalChunks,
		Steps:       result.Steps,
		Entries:     make([]entryReport, len(result.Entries)),
	}
	for i, e := range result.Entries {
		released := result.Cursor - e.ChunkStart
		if released < 0 {
			released = 0
		}
		if released > len(e.Rows) {
			released = len(e.Rows)
		}
		r := entryReport{
			Index:    i,
			ID:       e.ID,
			Label:    e.Label,
			Args:     e.Args,
			Rows:     len(e.Rows),
			Released: released,
			Frames:   e.Consumer.Frames,
			Bytes:    e.Consumer.Bytes,
			Done:     e.Consumer.Done,
		}
		if e.Consumer.Err != nil {
			r.Error = e.Consumer.Err.Error()
		}
		report.Entries[i] = r
	}
	return report
}

func printReplay(w io.Writer, format string, result *stepper.ReplayResult) error {
	report := newReplayReport(result)
	if format == "json" {
		encoder := sonic.ConfigStd.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	fmt.Fprintf(w, "Released %s of %s rows in %d steps\n",
		util.FormatNumber(report.Cursor), util.FormatNumber(report.TotalChunks), report.Steps)
	for _, e := range report.Entries {
		status := "streaming"
		if e.Done {
			status = "complete"
		}
		if e.Error != "" {
			status = "error: " + e.Error
		}
		fmt.Fprintf(w, "  [%d] %-24s %3d/%-3d rows  %s received  %s\n",
			e.Index, e.Label, e.Released, e.Rows, util.FormatBytes(int64(e.Bytes)), status)
	}
	return nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// receivedFileName names the dump of entry i, e.g. 00-render.rsc.
func receivedFileName(i int, e model.EntryView) string {
	name := "render"
	if e.Kind == model.KindAction {
		name = unsafeName.ReplaceAllString(e.Name, "_")
	}
	return fmt.Sprintf("%02d-%s.rsc", i, name)
}

func writeReceived(dir string, result *stepper.ReplayResult) error {
	if err := ensureDir(dir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for i, e := range result.Entries {
		path := filepath.Join(dir, receivedFileName(i, e))
		if err := os.WriteFile(path, result.Received[i], 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		util.LogDebugf("wrote %d received bytes to %s", len(result.Received[i]), path)
	}
	return nil
}
