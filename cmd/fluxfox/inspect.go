package main

import (
	"fmt"
	"os"

	"github.com/fluxfox-go/fluxfox/disk"
	"github.com/fluxfox-go/fluxfox/format"
	"github.com/fluxfox-go/fluxfox/sector"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect IMAGE",
	Short: "Print geometry and sector-health summary for a disk image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()

		img, err := format.Load(f)
		if err != nil {
			return fmt.Errorf("loading %s: %w", args[0], err)
		}

		fi := img.ImageFormatInfo()
		fmt.Printf("source format : %s\n", img.SourceFormat)
		fmt.Printf("geometry      : %d cylinders x %d heads\n", fi.Geometry.Cylinders, fi.Geometry.Heads)
		fmt.Printf("encoding      : %s\n", fi.Encoding)
		fmt.Printf("data rate     : %d kbps\n", fi.DataRateKb)
		fmt.Printf("rpm           : %d\n", fi.RPM)
		fmt.Printf("creator       : %q\n", string(fi.Creator[:]))

		good, bad, unchecked := countSectorStatuses(img)
		fmt.Printf("sectors       : %d good, %d bad, %d unchecked\n", good, bad, unchecked)
		return nil
	},
}

func countSectorStatuses(img *disk.Image) (good, bad, unchecked int) {
	tally := func(s sector.Status) {
		switch s {
		case sector.StatusGood:
			good++
		case sector.StatusBad:
			bad++
		default:
			unchecked++
		}
	}
	for _, ch := range img.TrackCHIter() {
		t := img.Track(ch)
		if t == nil {
			continue
		}
		switch t.Resolution {
		case disk.ResolutionMetaSector:
			for _, e := range t.MetaSector {
				tally(e.Status)
			}
		case disk.ResolutionBitStream, disk.ResolutionFluxStream:
			idx, err := t.Index()
			if err != nil {
				continue
			}
			for _, e := range idx.Entries {
				tally(e.Status)
			}
		}
	}
	return
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
