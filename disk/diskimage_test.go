package disk

import (
	"testing"

	"github.com/fluxfox-go/fluxfox/bitstream"
	"github.com/fluxfox-go/fluxfox/codec/mfm"
	"github.com/fluxfox-go/fluxfox/flux"
	"github.com/fluxfox-go/fluxfox/sector"
	"github.com/stretchr/testify/require"
)

// buildTrackBits synthesizes a one-sector MFM track for disk-level tests,
// mirroring sector.buildSingleSectorTrack without depending on that
// package's unexported test helper.
func buildTrackBits(t *testing.T, chsn sector.CHSN, data []byte) *bitstream.Buffer {
	t.Helper()
	totalBytes := 20 + 12 + 3 + 1 + 4 + 2 + 22 + 12 + 3 + 1 + len(data) + 2 + 20
	buf := bitstream.NewBuffer((totalBytes+8)*16, bitstream.MFM)
	enc := mfm.NewEncoder(buf, 0)

	enc.WriteGap(20, 0x4E)
	enc.WriteGap(12, 0x00)
	enc.WriteSyncMark()
	enc.WriteByte(0xFE)
	enc.WriteByte(chsn.Cylinder)
	enc.WriteByte(chsn.Head)
	enc.WriteByte(chsn.Sector)
	enc.WriteByte(chsn.SizeCode)
	idamCRC := sector.CRC16(sector.CRC16Byte(sector.IDAMHeaderCRCSeed, 0xFE), []byte{chsn.Cylinder, chsn.Head, chsn.Sector, chsn.SizeCode})
	enc.WriteByte(byte(idamCRC >> 8))
	enc.WriteByte(byte(idamCRC))

	enc.WriteGap(22, 0x4E)
	enc.WriteGap(12, 0x00)
	enc.WriteSyncMark()
	enc.WriteByte(0xFB)
	enc.WriteBytes(data)
	dataCRC := sector.CRC16(sector.CRC16Byte(sector.IDAMHeaderCRCSeed, 0xFB), data)
	enc.WriteByte(byte(dataCRC >> 8))
	enc.WriteByte(byte(dataCRC))
	enc.WriteGap(20, 0x4E)

	return buf
}

func TestImageReadSectorBitStream(t *testing.T) {
	img := New(Geometry{Cylinders: 1, Heads: 1}, bitstream.MFM, 250, 300)
	chsn := sector.CHSN{Cylinder: 0, Head: 0, Sector: 1, SizeCode: 2}
	data := make([]byte, chsn.DataLength())
	for i := range data {
		data[i] = byte(i)
	}
	buf := buildTrackBits(t, chsn, data)
	require.NoError(t, img.SetTrack(CH{0, 0}, NewBitStreamTrack(buf)))

	sec := chsn.Sector
	got, status, err := img.ReadSector(sector.Query{Sector: &sec})
	require.NoError(t, err)
	require.Equal(t, sector.StatusGood, status)
	require.Equal(t, data, got)
}

func TestImageWriteSectorThenReadBack(t *testing.T) {
	img := New(Geometry{Cylinders: 1, Heads: 1}, bitstream.MFM, 250, 300)
	chsn := sector.CHSN{Cylinder: 0, Head: 0, Sector: 1, SizeCode: 2}
	data := make([]byte, chsn.DataLength())
	buf := buildTrackBits(t, chsn, data)
	require.NoError(t, img.SetTrack(CH{0, 0}, NewBitStreamTrack(buf)))

	newData := make([]byte, chsn.DataLength())
	for i := range newData {
		newData[i] = 0x5A
	}
	require.NoError(t, img.WriteSector(sector.ByCHSN(chsn), newData, false, false))

	got, status, err := img.ReadSector(sector.ByCHSN(chsn))
	require.NoError(t, err)
	require.Equal(t, sector.StatusGood, status)
	require.Equal(t, newData, got)
}

func TestImageWriteSectorBadCRC(t *testing.T) {
	img := New(Geometry{Cylinders: 1, Heads: 1}, bitstream.MFM, 250, 300)
	chsn := sector.CHSN{Cylinder: 0, Head: 0, Sector: 1, SizeCode: 2}
	data := make([]byte, chsn.DataLength())
	buf := buildTrackBits(t, chsn, data)
	require.NoError(t, img.SetTrack(CH{0, 0}, NewBitStreamTrack(buf)))

	require.NoError(t, img.WriteSector(sector.ByCHSN(chsn), data, false, true))

	_, status, err := img.ReadSector(sector.ByCHSN(chsn))
	require.NoError(t, err)
	require.Equal(t, sector.StatusBad, status)
}

func TestTrackCHIterCylinderMajorHeadMinor(t *testing.T) {
	img := New(Geometry{Cylinders: 2, Heads: 2}, bitstream.MFM, 250, 300)
	got := img.TrackCHIter()
	require.Equal(t, []CH{{0, 0}, {0, 1}, {1, 0}, {1, 1}}, got)
}

func TestUnformattedSlotIsNilNotError(t *testing.T) {
	img := New(Geometry{Cylinders: 1, Heads: 1}, bitstream.MFM, 250, 300)
	require.Nil(t, img.Track(CH{0, 0}))
}

func TestRepairCRCsClearsBadStatus(t *testing.T) {
	img := New(Geometry{Cylinders: 1, Heads: 1}, bitstream.MFM, 250, 300)
	chsn := sector.CHSN{Cylinder: 0, Head: 0, Sector: 1, SizeCode: 2}
	data := make([]byte, chsn.DataLength())
	buf := buildTrackBits(t, chsn, data)
	require.NoError(t, img.SetTrack(CH{0, 0}, NewBitStreamTrack(buf)))
	require.NoError(t, img.WriteSector(sector.ByCHSN(chsn), data, false, true))

	_, status, err := img.ReadSector(sector.ByCHSN(chsn))
	require.NoError(t, err)
	require.Equal(t, sector.StatusBad, status)

	require.NoError(t, img.RepairCRCs())

	_, status, err = img.ReadSector(sector.ByCHSN(chsn))
	require.NoError(t, err)
	require.Equal(t, sector.StatusGood, status)
}

func TestImageReadSectorFluxStream(t *testing.T) {
	img := New(Geometry{Cylinders: 1, Heads: 1}, bitstream.MFM, 250, 300)
	chsn := sector.CHSN{Cylinder: 0, Head: 0, Sector: 1, SizeCode: 2}
	data := make([]byte, chsn.DataLength())
	for i := range data {
		data[i] = byte(i)
	}
	bits := buildTrackBits(t, chsn, data)

	bitcellWidthPs := flux.BitcellWidthPs(250)
	transitions := flux.GenerateTransitions(bits, bitcellWidthPs)
	track := NewFluxStreamTrack([]Revolution{{Transitions: transitions}}, bitstream.MFM, float64(bitcellWidthPs), flux.DefaultBandwidth)
	require.NoError(t, img.SetTrack(CH{0, 0}, track))

	sec := chsn.Sector
	got, status, err := img.ReadSector(sector.Query{Sector: &sec})
	require.NoError(t, err)
	require.Equal(t, sector.StatusGood, status)
	require.Equal(t, data, got)
}

func TestSetCreatorTagPadsWithSpaces(t *testing.T) {
	img := New(Geometry{Cylinders: 1, Heads: 1}, bitstream.MFM, 250, 300)
	img.SetCreatorTag("fdx")
	require.Equal(t, [8]byte{'f', 'd', 'x', ' ', ' ', ' ', ' ', ' '}, img.CreatorTag)
}
