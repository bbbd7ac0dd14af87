package imagebuilder

import (
	"testing"

	"github.com/fluxfox-go/fluxfox/config"
	"github.com/fluxfox-go/fluxfox/disk"
	"github.com/fluxfox-go/fluxfox/sector"
	"github.com/stretchr/testify/require"
)

func TestBuildRequiresGeometry(t *testing.T) {
	_, err := New().WithFormatted(true).Build()
	require.Error(t, err)
}

func TestFormattedPcFloppy360AllSectorsGoodAndZero(t *testing.T) {
	img, err := New().
		WithResolution(disk.ResolutionBitStream).
		WithStandardFormat(disk.PcFloppy360).
		WithCreatorTag("MartyPC ").
		WithFormatted(true).
		Build()
	require.NoError(t, err)
	require.Equal(t, [8]byte{'M', 'a', 'r', 't', 'y', 'P', 'C', ' '}, img.CreatorTag)

	spec := disk.PcFloppy360.Spec()
	total := 0
	for c := 0; c < spec.Cylinders; c++ {
		for h := 0; h < spec.Heads; h++ {
			for s := 1; s <= spec.SectorsPerTrk; s++ {
				cyl, head, sec := byte(c), byte(h), byte(s)
				q := sector.Query{Cylinder: &cyl, Head: &head, Sector: &sec}
				data, status, err := img.ReadSector(q)
				require.NoError(t, err)
				require.Equal(t, sector.StatusGood, status)
				for _, b := range data {
					require.Equal(t, byte(0), b)
				}
				total++
			}
		}
	}
	require.Equal(t, spec.Cylinders*spec.Heads*spec.SectorsPerTrk, total)
	require.Equal(t, 720, total)
}

func TestUnformattedBitStreamTrackHasNoSectors(t *testing.T) {
	img, err := New().
		WithResolution(disk.ResolutionBitStream).
		WithStandardFormat(disk.PcFloppy360).
		WithFormatted(false).
		Build()
	require.NoError(t, err)

	cyl, head, sec := byte(0), byte(0), byte(1)
	_, _, err = img.ReadSector(sector.Query{Cylinder: &cyl, Head: &head, Sector: &sec})
	require.Error(t, err)
}

func TestWithConfigPresetBuildsFromTOMLGeometry(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	p, ok := cfg.Preset("PcFloppy1440")
	require.True(t, ok)

	b, err := New().WithFormatted(true).WithConfigPreset(p)
	require.NoError(t, err)
	img, err := b.Build()
	require.NoError(t, err)

	cyl, head, sec := byte(0), byte(0), byte(1)
	data, status, err := img.ReadSector(sector.Query{Cylinder: &cyl, Head: &head, Sector: &sec})
	require.NoError(t, err)
	require.Equal(t, sector.StatusGood, status)
	require.Len(t, data, 512)
}

func TestWithConfigDefaultsAppliesCreatorTagAndResolution(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)

	b, err := New().WithConfigDefaults(cfg)
	require.NoError(t, err)
	img, err := b.WithStandardFormat(disk.PcFloppy360).WithFormatted(true).Build()
	require.NoError(t, err)

	var expected [8]byte
	copy(expected[:], "FluxFox")
	for i := len("FluxFox"); i < 8; i++ {
		expected[i] = ' '
	}
	require.Equal(t, expected, img.CreatorTag)
}

func TestMetaSectorResolutionFormatted(t *testing.T) {
	img, err := New().
		WithResolution(disk.ResolutionMetaSector).
		WithStandardFormat(disk.PcFloppy160).
		WithFormatted(true).
		Build()
	require.NoError(t, err)

	cyl, head, sec := byte(0), byte(0), byte(1)
	data, status, err := img.ReadSector(sector.Query{Cylinder: &cyl, Head: &head, Sector: &sec})
	require.NoError(t, err)
	require.Equal(t, sector.StatusGood, status)
	require.Len(t, data, 512)
}
