package main

import (
	"fmt"
	"os"

	"github.com/fluxfox-go/fluxfox/format"
	"github.com/spf13/cobra"
)

var convertFormatFlag string

var convertCmd = &cobra.Command{
	Use:   "convert SRC DEST",
	Short: "Convert a disk image between on-disk container formats",
	Long: `Convert reads SRC (auto-detecting its container format, transparently
decompressing gzip-wrapped input) and writes DEST in the format named by
--to (RawSectorImage, F86Image, or HFEImage).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		srcPath, destPath := args[0], args[1]

		target, err := parseFileFormat(convertFormatFlag)
		if err != nil {
			return err
		}

		src, err := os.Open(srcPath)
		if err != nil {
			return fmt.Errorf("opening %s: %w", srcPath, err)
		}
		defer src.Close()

		img, err := format.Load(src)
		if err != nil {
			return fmt.Errorf("loading %s: %w", srcPath, err)
		}

		dest, err := os.Create(destPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", destPath, err)
		}
		defer dest.Close()

		if err := format.Save(img, dest, target); err != nil {
			return fmt.Errorf("saving %s: %w", destPath, err)
		}
		fmt.Printf("converted %s to %s (%s)\n", srcPath, destPath, target)
		return nil
	},
}

func parseFileFormat(name string) (format.FileFormat, error) {
	switch name {
	case "RawSectorImage", "raw", "img":
		return format.RawSectorImage, nil
	case "F86Image", "86f":
		return format.F86Image, nil
	case "HFEImage", "hfe":
		return format.HFEImage, nil
	default:
		return 0, fmt.Errorf("unknown --to format %q (want RawSectorImage, F86Image, or HFEImage)", name)
	}
}

func init() {
	convertCmd.Flags().StringVar(&convertFormatFlag, "to", "RawSectorImage", "destination container format")
	rootCmd.AddCommand(convertCmd)
}
