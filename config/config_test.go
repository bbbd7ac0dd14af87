package config

import (
	"strings"
	"testing"

	"github.com/fluxfox-go/fluxfox/bitstream"
	"github.com/fluxfox-go/fluxfox/disk"
	"github.com/stretchr/testify/require"
)

func TestDefaultEmbeddedConfigParsesAndValidates(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Format)

	p, ok := cfg.Preset("PcFloppy360")
	require.True(t, ok)
	require.Equal(t, 40, p.Cylinders)
	require.Equal(t, 2, p.Heads)
	require.Equal(t, 9, p.SectorsPerTrack)

	enc, err := p.BitstreamEncoding()
	require.NoError(t, err)
	require.Equal(t, bitstream.MFM, enc)

	res, err := cfg.Builder.Resolution()
	require.NoError(t, err)
	require.Equal(t, disk.ResolutionBitStream, res)
}

func TestLoadRejectsUnknownEncoding(t *testing.T) {
	bad := `
[builder]
default_creator_tag = "X"
default_resolution = "BitStream"

[[format]]
name = "Bogus"
cylinders = 40
heads = 1
sectors_per_track = 8
sector_size_code = 2
data_rate_kb = 250
rpm = 300
encoding = "GCR-Amiga-ish"
`
	_, err := Load(strings.NewReader(bad))
	require.Error(t, err)
}

func TestLoadRejectsDuplicatePresetNames(t *testing.T) {
	bad := `
[builder]
default_resolution = "BitStream"

[[format]]
name = "Dup"
cylinders = 40
heads = 1
sectors_per_track = 8
sector_size_code = 2
data_rate_kb = 250
rpm = 300
encoding = "MFM"

[[format]]
name = "Dup"
cylinders = 80
heads = 2
sectors_per_track = 9
sector_size_code = 2
data_rate_kb = 250
rpm = 300
encoding = "MFM"
`
	_, err := Load(strings.NewReader(bad))
	require.Error(t, err)
}

func TestLoadRejectsNonPositiveGeometry(t *testing.T) {
	bad := `
[builder]
default_resolution = "BitStream"

[[format]]
name = "Zero"
cylinders = 0
heads = 1
sectors_per_track = 8
sector_size_code = 2
data_rate_kb = 250
rpm = 300
encoding = "MFM"
`
	_, err := Load(strings.NewReader(bad))
	require.Error(t, err)
}

func TestPresetSpecRoundTripsIntoStandardFormatSpec(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	p, ok := cfg.Preset("PcFloppy1440")
	require.True(t, ok)

	spec, err := p.Spec()
	require.NoError(t, err)
	require.Equal(t, disk.PcFloppy1440.Spec(), spec)
}
