package main

import (
	"fmt"
	"os"

	"github.com/fluxfox-go/fluxfox/config"
	"github.com/fluxfox-go/fluxfox/disk"
	"github.com/fluxfox-go/fluxfox/format"
	"github.com/fluxfox-go/fluxfox/imagebuilder"
	"github.com/spf13/cobra"
)

var (
	buildStandardFlag  string
	buildCreatorFlag   string
	buildFormattedFlag bool
	buildToFlag        string
)

var buildCmd = &cobra.Command{
	Use:   "build DEST",
	Short: "Synthesize a freshly formatted disk image",
	Long: `Build synthesizes a DiskImage from a named standard format (spec §6
presets, or a TOML-configured preset of the same name) and writes it to
DEST in the container format named by --to.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		destPath := args[0]

		cfg, err := config.Default()
		if err != nil {
			return fmt.Errorf("loading default config: %w", err)
		}

		b, err := imagebuilder.New().WithConfigDefaults(cfg)
		if err != nil {
			return fmt.Errorf("applying config defaults: %w", err)
		}
		b = b.WithFormatted(buildFormattedFlag)
		if buildCreatorFlag != "" {
			b = b.WithCreatorTag(buildCreatorFlag)
		}

		if std, ok := parseStandardFormat(buildStandardFlag); ok {
			b = b.WithStandardFormat(std)
		} else if preset, ok := cfg.Preset(buildStandardFlag); ok {
			b, err = b.WithConfigPreset(preset)
			if err != nil {
				return fmt.Errorf("resolving config preset %q: %w", buildStandardFlag, err)
			}
		} else {
			return fmt.Errorf("unknown --standard %q (not a built-in StandardFormat or a configured preset)", buildStandardFlag)
		}

		img, err := b.Build()
		if err != nil {
			return fmt.Errorf("building image: %w", err)
		}

		target, err := parseFileFormat(buildToFlag)
		if err != nil {
			return err
		}
		dest, err := os.Create(destPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", destPath, err)
		}
		defer dest.Close()

		if err := format.Save(img, dest, target); err != nil {
			return fmt.Errorf("saving %s: %w", destPath, err)
		}
		fmt.Printf("wrote %s (%s, %s)\n", destPath, buildStandardFlag, target)
		return nil
	},
}

func parseStandardFormat(name string) (disk.StandardFormat, bool) {
	byName := map[string]disk.StandardFormat{
		disk.PcFloppy160.String():  disk.PcFloppy160,
		disk.PcFloppy180.String():  disk.PcFloppy180,
		disk.PcFloppy320.String():  disk.PcFloppy320,
		disk.PcFloppy360.String():  disk.PcFloppy360,
		disk.PcFloppy720.String():  disk.PcFloppy720,
		disk.PcFloppy1200.String(): disk.PcFloppy1200,
		disk.PcFloppy1440.String(): disk.PcFloppy1440,
		disk.PcFloppy2880.String(): disk.PcFloppy2880,
	}
	f, ok := byName[name]
	return f, ok
}

func init() {
	buildCmd.Flags().StringVar(&buildStandardFlag, "standard", "PcFloppy360", "standard format name or configured preset name")
	buildCmd.Flags().StringVar(&buildCreatorFlag, "creator", "", "creator tag (up to 8 bytes)")
	buildCmd.Flags().BoolVar(&buildFormattedFlag, "formatted", true, "synthesize IBM System/34 track layout with empty sectors")
	buildCmd.Flags().StringVar(&buildToFlag, "to", "F86Image", "destination container format")
	rootCmd.AddCommand(buildCmd)
}
