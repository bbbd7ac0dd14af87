package sector

import (
	"testing"

	"github.com/fluxfox-go/fluxfox/bitstream"
	"github.com/fluxfox-go/fluxfox/codec/mfm"
	"github.com/stretchr/testify/require"
)

// buildSingleSectorTrack synthesizes a minimal IBM-layout MFM track with
// one IDAM/DAM pair, for exercising BuildIndex end to end.
func buildSingleSectorTrack(t *testing.T, chsn CHSN, data []byte, corruptCRC bool) *bitstream.Buffer {
	t.Helper()

	totalBytes := 40 + 6 + 2 + 20 + 6 + len(data) + 2 + 40
	buf := bitstream.NewBuffer(totalBytes*16, bitstream.MFM)
	enc := mfm.NewEncoder(buf, 0)

	enc.WriteGap(20, 0x4E)
	enc.WriteGap(12, 0x00)
	enc.WriteSyncMark() // 3x 0xA1
	enc.WriteByte(tagIDAM)
	enc.WriteByte(chsn.Cylinder)
	enc.WriteByte(chsn.Head)
	enc.WriteByte(chsn.Sector)
	enc.WriteByte(chsn.SizeCode)

	idamCRC := CRC16(CRC16Byte(IDAMHeaderCRCSeed, tagIDAM), []byte{chsn.Cylinder, chsn.Head, chsn.Sector, chsn.SizeCode})
	enc.WriteByte(byte(idamCRC >> 8))
	enc.WriteByte(byte(idamCRC))

	enc.WriteGap(22, 0x4E)
	enc.WriteGap(12, 0x00)
	enc.WriteSyncMark()
	enc.WriteByte(tagDAM)
	enc.WriteBytes(data)

	dataCRC := CRC16(CRC16Byte(IDAMHeaderCRCSeed, tagDAM), data)
	if corruptCRC {
		dataCRC ^= 0xFFFF
	}
	enc.WriteByte(byte(dataCRC >> 8))
	enc.WriteByte(byte(dataCRC))

	enc.WriteGap(20, 0x4E)

	return buf
}

func TestBuildIndexFindsSingleSector(t *testing.T) {
	chsn := CHSN{Cylinder: 2, Head: 0, Sector: 3, SizeCode: 2}
	data := make([]byte, chsn.DataLength())
	for i := range data {
		data[i] = byte(i)
	}
	buf := buildSingleSectorTrack(t, chsn, data, false)

	idx, err := BuildIndex(buf, mfm.NewDecoder(4))
	require.NoError(t, err)
	require.Len(t, idx.Entries, 1)
	require.Equal(t, chsn, idx.Entries[0].CHSN)
	require.Equal(t, StatusGood, idx.Entries[0].Status)
	require.False(t, idx.Entries[0].Deleted)
}

func TestBuildIndexDetectsBadDataCRC(t *testing.T) {
	chsn := CHSN{Cylinder: 0, Head: 0, Sector: 1, SizeCode: 2}
	data := make([]byte, chsn.DataLength())
	buf := buildSingleSectorTrack(t, chsn, data, true)

	idx, err := BuildIndex(buf, mfm.NewDecoder(4))
	require.NoError(t, err)
	require.Len(t, idx.Entries, 1)
	require.Equal(t, StatusBad, idx.Entries[0].Status)
}

func TestFindSectorWildcard(t *testing.T) {
	idx := &Index{Entries: []Entry{
		{CHSN: CHSN{0, 0, 1, 2}, IdamOffset: 100},
		{CHSN: CHSN{0, 0, 1, 2}, IdamOffset: 5000},
		{CHSN: CHSN{0, 0, 2, 2}, IdamOffset: 9000},
	}}

	sec := byte(1)
	q := Query{Sector: &sec}
	entry, err := FindSector(idx, q, 0)
	require.NoError(t, err)
	require.Equal(t, 100, entry.IdamOffset)
}

func TestFindSectorNotFound(t *testing.T) {
	idx := &Index{Entries: []Entry{{CHSN: CHSN{0, 0, 1, 2}}}}
	sec := byte(9)
	_, err := FindSector(idx, Query{Sector: &sec}, 0)
	require.Error(t, err)
}

func TestRecalculateCRCFixesBadSector(t *testing.T) {
	chsn := CHSN{Cylinder: 1, Head: 0, Sector: 1, SizeCode: 2}
	data := make([]byte, chsn.DataLength())
	for i := range data {
		data[i] = 0xAA
	}
	buf := buildSingleSectorTrack(t, chsn, data, true)

	idx, err := BuildIndex(buf, mfm.NewDecoder(4))
	require.NoError(t, err)
	require.Equal(t, StatusBad, idx.Entries[0].Status)

	err = RecalculateCRC(buf, idx, ByCHSN(chsn), bitstream.MFM, nil)
	require.NoError(t, err)
	require.Equal(t, StatusGood, idx.Entries[0].Status)

	reidx, err := BuildIndex(buf, mfm.NewDecoder(4))
	require.NoError(t, err)
	require.Equal(t, StatusGood, reidx.Entries[0].Status)
}
