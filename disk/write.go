package disk

import (
	"github.com/fluxfox-go/fluxfox/bitstream"
	"github.com/fluxfox-go/fluxfox/codec/fm"
	"github.com/fluxfox-go/fluxfox/codec/mfm"
	"github.com/fluxfox-go/fluxfox/fferr"
	"github.com/fluxfox-go/fluxfox/sector"
)

// WriteSector implements spec §4.5/§6's write_sector: locates the sector
// by query, writes data, and recomputes/stores its CRC unless a
// deliberate bad-CRC write is requested (complemented CRC bytes).
// Deleted flips the DAM tag between 0xFB and 0xF8.
func (img *Image) WriteSector(q sector.Query, data []byte, deleted bool, badCRC bool) error {
	for _, ch := range img.TrackCHIter() {
		t := img.Track(ch)
		if t == nil {
			continue
		}
		if t.Resolution == ResolutionMetaSector {
			if writeMetaSector(t, q, data, deleted, badCRC) {
				return nil
			}
			continue
		}
		if t.Resolution != ResolutionBitStream && t.Resolution != ResolutionFluxStream {
			continue
		}
		idx, err := t.Index()
		if err != nil {
			continue
		}
		entry, err := sector.FindSector(idx, q, 0)
		if err != nil {
			continue
		}
		bits, err := t.ResolveBitStream()
		if err != nil {
			return err
		}
		if entry.DamOffset < 0 {
			return fferr.New(fferr.MalformedImage, "sector has no data field to write")
		}
		if len(data) != entry.DataLength {
			return fferr.New(fferr.MalformedImage, "data length does not match declared sector size")
		}

		if err := writeSectorBits(bits, entry, data, deleted, badCRC, img.Encoding); err != nil {
			return err
		}
		t.MarkDirty()
		return nil
	}
	return fferr.New(fferr.SectorNotFound, "no track contained a matching sector")
}

func writeMetaSector(t *Track, q sector.Query, data []byte, deleted bool, badCRC bool) bool {
	for i := range t.MetaSector {
		if q.Matches(t.MetaSector[i].CHSN) {
			t.MetaSector[i].Data = append([]byte(nil), data...)
			t.MetaSector[i].Deleted = deleted
			if badCRC {
				t.MetaSector[i].Status = sector.StatusBad
			} else {
				t.MetaSector[i].Status = sector.StatusGood
			}
			return true
		}
	}
	return false
}

func writeSectorBits(buf *bitstream.Buffer, entry *sector.Entry, data []byte, deleted bool, badCRC bool, encoding bitstream.Encoding) error {
	tag := byte(0xFB)
	if deleted {
		tag = 0xF8
	}

	// Rewrite the DAM tag byte itself if the deleted flag changed it.
	markPrecedingBit := buf.ReadBit(entry.DamOffset - 1)
	writeByteWithEncoding(buf, encoding, entry.DamOffset, markPrecedingBit, tag)

	dataBitOffset := entry.DamOffset + 16
	precedingBit := int(tag & 1)
	for i, b := range data {
		writeByteWithEncoding(buf, encoding, dataBitOffset+i*16, precedingBit, b)
		precedingBit = int(b & 1)
	}

	seed := sector.CRC16CCITTInit
	if encoding == bitstream.MFM {
		seed = sector.IDAMHeaderCRCSeed
	}
	computed := sector.CRC16(sector.CRC16Byte(seed, tag), data)
	toWrite := computed
	if badCRC {
		toWrite = ^computed
	}

	crcBitOffset := dataBitOffset + len(data)*16
	writeByteWithEncoding(buf, encoding, crcBitOffset, precedingBit, byte(toWrite>>8))
	writeByteWithEncoding(buf, encoding, crcBitOffset+16, int(byte(toWrite>>8)&1), byte(toWrite))

	if badCRC {
		entry.Status = sector.StatusBad
	} else {
		entry.Status = sector.StatusGood
	}
	entry.Deleted = deleted
	return nil
}

func writeByteWithEncoding(buf *bitstream.Buffer, encoding bitstream.Encoding, bitOffset int, precedingDataBit int, value byte) {
	if encoding == bitstream.MFM {
		enc := mfm.NewEncoderContinuing(buf, bitOffset, precedingDataBit)
		enc.WriteByte(value)
		return
	}
	enc := fm.NewEncoder(buf, bitOffset)
	enc.WriteByte(value)
}
