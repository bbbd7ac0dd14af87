package format

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fluxfox-go/fluxfox/disk"
	"github.com/fluxfox-go/fluxfox/imagebuilder"
	"github.com/fluxfox-go/fluxfox/sector"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

func buildTestImage(t *testing.T) *disk.Image {
	t.Helper()
	img, err := imagebuilder.New().
		WithResolution(disk.ResolutionBitStream).
		WithStandardFormat(disk.PcFloppy360).
		WithCreatorTag("MartyPC ").
		WithFormatted(true).
		Build()
	require.NoError(t, err)
	return img
}

func requireAllSectorsGoodAndZero(t *testing.T, img *disk.Image, expected int) {
	t.Helper()
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
	require.Equal(t, expected, total)
}

func TestLoadProbesF86Magic(t *testing.T) {
	img := buildTestImage(t)
	var buf bytes.Buffer
	require.NoError(t, Save(img, &buf, F86Image))

	loaded, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, F86Image.String(), loaded.SourceFormat)
	requireAllSectorsGoodAndZero(t, loaded, 720)
}

func TestLoadProbesHFESignature(t *testing.T) {
	img := buildTestImage(t)
	var buf bytes.Buffer
	require.NoError(t, Save(img, &buf, HFEImage))

	loaded, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, HFEImage.String(), loaded.SourceFormat)
	requireAllSectorsGoodAndZero(t, loaded, 720)
}

func TestF86RoundTripPreservesBitstreamFingerprint(t *testing.T) {
	img := buildTestImage(t)
	var buf bytes.Buffer
	require.NoError(t, Save(img, &buf, F86Image))

	loaded, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	ch := disk.CH{Cylinder: 0, Head: 0}
	origBits, err := img.Track(ch).ResolveBitStream()
	require.NoError(t, err)
	loadedBits, err := loaded.Track(ch).ResolveBitStream()
	require.NoError(t, err)

	require.Equal(t, origBits.Fingerprint(), loadedBits.Fingerprint(),
		"F86Image is a bit-exact container; its round trip must preserve every bit, not just decoded sector payloads")
}

func TestLoadFallsBackToRawSectorBySize(t *testing.T) {
	img := buildTestImage(t)
	var buf bytes.Buffer
	require.NoError(t, Save(img, &buf, RawSectorImage))

	loaded, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, RawSectorImage.String(), loaded.SourceFormat)
	requireAllSectorsGoodAndZero(t, loaded, 720)
}

func TestLoadTransparentlyDecompressesGzip(t *testing.T) {
	img := buildTestImage(t)
	var raw bytes.Buffer
	require.NoError(t, Save(img, &raw, RawSectorImage))

	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	_, err := w.Write(raw.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	loaded, err := Load(bytes.NewReader(gz.Bytes()))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(loaded.SourceFormat, "(gzip)"))
	requireAllSectorsGoodAndZero(t, loaded, 720)
}

func TestLoadRejectsUnrecognizedInput(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte("not a disk image at all, too short for any preset")))
	require.Error(t, err)
}

func TestSaveUnregisteredFormatErrors(t *testing.T) {
	img := buildTestImage(t)
	var buf bytes.Buffer
	err := Save(img, &buf, FileFormat(99))
	require.Error(t, err)
}

func TestProbeOrderPutsBitstreamFormatsBeforeSector(t *testing.T) {
	order := probeOrder()
	sawSector := false
	for _, p := range order {
		if p.Format() == RawSectorImage {
			sawSector = true
			continue
		}
		require.False(t, sawSector, "a bitstream-tier parser probed after the sector-tier RawSectorImage parser")
	}
}
