package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/penwyp/go-flight-stepper/internal/application/stepper"
	"github.com/penwyp/go-flight-stepper/internal/data/capture"
	"github.com/penwyp/go-flight-stepper/internal/util"
)

var (
	// Logging related
	debug     bool
	logLevel  string
	logFormat string

	// Capture source
	captureDir string

	// Chunking of recorded responses
	chunkSize    int
	maxChunkSize int
	chunkSeed    int64
	chunkDelay   time.Duration

	// Stepper behaviour
	readSize      int
	actionTimeout time.Duration
	watch         bool

	rootCmd = &cobra.Command{
		Use:   "go-flight-stepper [flags]",
		Short: "Step through row streams one row at a time",
		Long: `go-flight-stepper is an interactive debugger for row streams, the chunked
line protocol used by server component payloads.

It loads a recorded capture (a render response plus the responses of actions
invoked afterwards) and hands the rows to a downstream consumer one at a time,
so every intermediate state can be inspected.

Examples:
  go-flight-stepper --capture ./captures/todo           # Step through a capture
  go-flight-stepper --capture ./todo --chunk-size 7     # Re-chunk responses into 7-byte reads
  go-flight-stepper --capture ./todo --watch            # Restart when capture files change
  go-flight-stepper parse render.rsc --format json      # Print the rows of a response
  go-flight-stepper replay --capture ./todo --action like --steps 5`,
		RunE: runStepper,
	}
)

const (
	defaultLogFile    = "~/.go-flight-stepper/logs/app.log"
	defaultCaptureDir = "."
)

func init() {
	// Capture source and chunking
	rootCmd.PersistentFlags().StringVarP(&captureDir, "capture", "c", defaultCaptureDir,
		"Capture directory (capture.yaml or render.rsc plus actions/)")
	rootCmd.PersistentFlags().IntVar(&chunkSize, "chunk-size", 0,
		"Deliver recorded responses in reads of this many bytes (0 = unchunked)")
	rootCmd.PersistentFlags().IntVar(&maxChunkSize, "max-chunk-size", 0,
		"Upper bound for random read sizes between --chunk-size and this value")
	rootCmd.PersistentFlags().Int64Var(&chunkSeed, "seed", 1,
		"Seed for random read sizes")
	rootCmd.PersistentFlags().DurationVar(&chunkDelay, "delay", 0,
		"Pause before each read of a recorded response")
	rootCmd.PersistentFlags().IntVar(&readSize, "read-size", 0,
		"Buffer size of each stream read (0 = default)")
	rootCmd.PersistentFlags().DurationVar(&actionTimeout, "action-timeout", 0,
		"Time allowed for an action response to buffer (0 = default)")

	// Interactive mode
	rootCmd.Flags().BoolVarP(&watch, "watch", "w", false,
		"Restart the session when capture files change")

	// System and debugging
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"Log entry format (text, json)")
}

func runStepper(cmd *cobra.Command, args []string) error {
	if err := initLogging(); err != nil {
		return err
	}
	defer util.CloseLogger()

	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("interactive mode needs a terminal; use the replay command instead")
	}

	config, err := buildConfig()
	if err != nil {
		return err
	}
	config.Watch = watch

	store, err := capture.Open(config.CaptureDir, config.Chunking)
	if err != nil {
		return err
	}

	orchestrator, err := stepper.NewOrchestrator(config, store, store.Manifest().Name)
	if err != nil {
		store.Close()
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	return orchestrator.Run(ctx)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Helper functions

func initLogging() error {
	level := logLevel
	if debug {
		level = "debug"
	}
	format := util.LogFormat(strings.ToLower(logFormat))
	if format != util.FormatText && format != util.FormatJSON {
		return fmt.Errorf("invalid log format '%s': must be either 'text' or 'json'", logFormat)
	}

	logFile := expandPath(defaultLogFile)
	if err := ensureDir(filepath.Dir(logFile)); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return util.InitLogger(util.LoggerOptions{
		Level:   level,
		File:    logFile,
		Format:  format,
		Console: debug,
	})
}

// buildConfig turns the persistent flags into a validated stepper config.
func buildConfig() (*stepper.Config, error) {
	config := &stepper.Config{
		CaptureDir: expandPath(captureDir),
		Chunking: capture.ChunkPolicy{
			Size:    chunkSize,
			MaxSize: maxChunkSize,
			Seed:    chunkSeed,
			Delay:   chunkDelay,
		},
		ReadSize:      readSize,
		ActionTimeout: actionTimeout,
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
