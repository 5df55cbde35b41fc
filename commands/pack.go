package commands

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/penwyp/go-flight-stepper/internal/data/capture"
	"github.com/penwyp/go-flight-stepper/internal/util"
)

var (
	packLevel  string
	packRemove bool
)

var packCmd = &cobra.Command{
	Use:   "pack [DIR]",
	Short: "Compress the response files of a capture with zstd",
	Long: `Writes a .zst copy of every uncompressed response file of a capture and
points capture.yaml at the compressed files. DIR defaults to --capture.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPack,
}

func init() {
	rootCmd.AddCommand(packCmd)

	packCmd.Flags().StringVar(&packLevel, "level", "default",
		"Compression level (fastest, default, better, best)")
	packCmd.Flags().BoolVar(&packRemove, "remove", false,
		"Remove the uncompressed originals")
}

func runPack(cmd *cobra.Command, args []string) error {
	if err := initLogging(); err != nil {
		return err
	}
	defer util.CloseLogger()

	ok, level := zstd.EncoderLevelFromString(packLevel)
	if !ok {
		return fmt.Errorf("invalid compression level '%s'", packLevel)
	}

	dir := captureDir
	if len(args) == 1 {
		dir = args[0]
	}
	result, err := capture.Pack(expandPath(dir), level, packRemove)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.Files == 0 {
		fmt.Fprintln(out, "Nothing to pack")
		return nil
	}
	fmt.Fprintf(out, "Packed %d files: %s -> %s\n",
		result.Files, util.FormatBytes(result.BytesBefore), util.FormatBytes(result.BytesAfter))
	return nil
}
