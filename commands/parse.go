package commands

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-flight-stepper/internal/core/model"
	"github.com/penwyp/go-flight-stepper/internal/core/stream"
	"github.com/penwyp/go-flight-stepper/internal/data/capture"
	"github.com/penwyp/go-flight-stepper/internal/data/parser"
	"github.com/penwyp/go-flight-stepper/internal/presentation/formatter"
	"github.com/penwyp/go-flight-stepper/internal/util"
)

var (
	parseFormat      string
	parseConcurrency int
)

var parseCmd = &cobra.Command{
	Use:   "parse FILE...",
	Short: "Split row stream files and print their rows",
	Long: `Splits each file into rows and prints them. Files ending in .zst are
decompressed first. A framing error stops that file after the rows before it
have been printed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVarP(&parseFormat, "format", "o", "table",
		"Output format (table, json, csv, summary)")
	parseCmd.Flags().IntVar(&parseConcurrency, "concurrency", runtime.NumCPU(),
		"Number of files parsed at once")
}

func runParse(cmd *cobra.Command, args []string) error {
	if err := initLogging(); err != nil {
		return err
	}
	defer util.CloseLogger()

	out := cmd.OutOrStdout()
	if _, err := formatter.New(parseFormat, out); err != nil {
		return err
	}

	p := parser.NewParser(parseConcurrency, capture.OpenFile)
	results := make(map[string]parser.ParseResult, len(args))
	for result := range p.ParseFiles(args) {
		results[result.File] = result
	}

	var firstErr error
	for _, file := range args {
		result := results[file]
		if len(args) > 1 {
			fmt.Fprintf(out, "==> %s <==\n", file)
		}
		if err := printRows(out, parseFormat, result.Rows); err != nil {
			return err
		}
		if result.Error != nil {
			util.LogWarn("parse failed", util.F("file", file), util.F("error", result.Error))
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", file, result.Error)
			}
		}
	}
	return firstErr
}

// printRows formats rows the way the stepper displays them, dropping rows
// whose display string is blank.
func printRows(w io.Writer, format string, rows []model.Row) error {
	f, err := formatter.New(format, w)
	if err != nil {
		return err
	}

	display := make([]model.DisplayRow, 0, len(rows))
	for _, row := range rows {
		if dr := stream.FormatRow(row); dr.Display != "" {
			display = append(display, dr)
		}
	}
	return f.Format(formatter.NewRowRecords(display))
}
