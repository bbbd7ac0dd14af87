// Command fluxfox is a thin CLI over the core library: inspect, convert,
// and build disk images. It is grounded on the teacher's cmd/root.go and
// adapter/root.go cobra root-command shape, scoped down since real-time
// hardware I/O through a USB floppy adapter is a non-goal here — every
// subcommand operates on files only.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fluxfox",
	Short: "Inspect, convert, and synthesize floppy disk images",
	Long: `fluxfox is a command-line tool for working with floppy disk images:
inspecting their geometry and sector health, converting between on-disk
container formats, and synthesizing freshly formatted images.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		cobra.CheckErr(fmt.Errorf("%w", err))
	}
}
