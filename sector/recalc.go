package sector

import (
	"github.com/fluxfox-go/fluxfox/bitstream"
	"github.com/fluxfox-go/fluxfox/codec/fm"
	"github.com/fluxfox-go/fluxfox/codec/mfm"
	"github.com/fluxfox-go/fluxfox/fferr"
)

// RecalculateCRC locates the sector matching q, recomputes its CRC-16 over
// the stored data bytes, and patches the two CRC bytes in buf at the
// known bit offset (spec §4.4). If newCRC is non-nil, that value is
// written verbatim instead of the recomputed checksum, for deliberate
// bad-CRC preservation round-trips. The index entry's status is updated
// to Good unless a deliberate override was written that doesn't match the
// true checksum, in which case it is set to Bad.
func RecalculateCRC(buf *bitstream.Buffer, idx *Index, q Query, encoding bitstream.Encoding, newCRC *uint16) error {
	entry, err := FindSector(idx, q, 0)
	if err != nil {
		return err
	}
	return RecalculateEntryCRC(buf, entry, encoding, newCRC)
}

// RecalculateEntryCRC is RecalculateCRC for a caller that has already
// located the exact Entry (e.g. iterating a full Index), avoiding a
// second Query-based lookup that could resolve to a different duplicate
// CHSN entry than the one the caller means.
func RecalculateEntryCRC(buf *bitstream.Buffer, entry *Entry, encoding bitstream.Encoding, newCRC *uint16) error {
	if entry.DamOffset < 0 {
		return fferr.New(fferr.MalformedImage, "sector has no associated data field to recalculate")
	}

	dataBitOffset := entry.DamOffset + bitsPerByte // one byte past the DAM tag
	data := make([]byte, entry.DataLength)
	for i := range data {
		data[i] = readByteAt(buf, dataBitOffset+i*bitsPerByte)
	}

	seed := headerSeed(encoding)
	tag := byte(tagDAM)
	if entry.Deleted {
		tag = tagDeleted
	}
	computed := CRC16(CRC16Byte(seed, tag), data)

	toWrite := computed
	matchesComputed := true
	if newCRC != nil {
		toWrite = *newCRC
		matchesComputed = *newCRC == computed
	}

	crcBitOffset := dataBitOffset + entry.DataLength*bitsPerByte
	writeCRCBytes(buf, encoding, crcBitOffset, toWrite)

	if matchesComputed {
		entry.Status = StatusGood
	} else {
		entry.Status = StatusBad
	}
	return nil
}

// readByteAt decodes one MFM/FM-clocked byte (16 raw bits, data bit at
// each odd position) starting at bitOffset, for re-reading already
// positionally-known fields without rescanning the decoder.
func readByteAt(buf *bitstream.Buffer, bitOffset int) byte {
	var b byte
	for i := 0; i < 8; i++ {
		bit := buf.ReadBit(bitOffset + i*2 + 1)
		b = (b << 1) | byte(bit)
	}
	return b
}

// writeCRCBytes patches the two CRC bytes at bitOffset in place using the
// proper encoder for the track's encoding, so the clock-bit halves stay
// correctly derived from the preceding data bit rather than left stale.
func writeCRCBytes(buf *bitstream.Buffer, encoding bitstream.Encoding, bitOffset int, crc uint16) {
	precedingDataBit := buf.ReadBit(bitOffset - 1)
	switch encoding {
	case bitstream.MFM:
		enc := mfm.NewEncoderContinuing(buf, bitOffset, precedingDataBit)
		enc.WriteByte(byte(crc >> 8))
		enc.WriteByte(byte(crc))
	default:
		enc := fm.NewEncoder(buf, bitOffset)
		enc.WriteByte(byte(crc >> 8))
		enc.WriteByte(byte(crc))
	}
}
