package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-flight-stepper/internal/data/capture"
	"github.com/penwyp/go-flight-stepper/internal/util"
)

var listCmd = &cobra.Command{
	Use:   "list [ROOT]",
	Short: "List the captures below a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if err := initLogging(); err != nil {
		return err
	}
	defer util.CloseLogger()

	root := captureDir
	if len(args) == 1 {
		root = args[0]
	}
	root = expandPath(root)
	dirs, err := capture.Discover(root)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(dirs) == 0 {
		fmt.Fprintf(out, "No captures found in %s\n", root)
		return nil
	}
	for _, dir := range dirs {
		rel, err := filepath.Rel(root, dir)
		if err != nil {
			rel = dir
		}
		m, err := capture.LoadManifest(dir)
		if err != nil {
			fmt.Fprintf(out, "%-32s invalid: %v\n", rel, err)
			continue
		}
		fmt.Fprintf(out, "%-32s %-24s %d actions\n", rel, m.Name, len(m.Actions))
	}
	return nil
}
