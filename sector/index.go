// Package sector builds and queries the per-track sector/ID index: the
// list of IDAM/DAM pairs discovered by scanning a bitstream track with a
// codec.StreamDecoder, their CRC status, and the CHSN wildcard lookup
// rules that copy-protection detection depends on (spec §4.4). It is
// grounded on the teacher's mfm.Reader.scanIBMPC/ReadSectorIBMPC scan
// loop, generalized from a fixed single-sector read into a full-track
// index builder working over the polymorphic codec.StreamDecoder
// interface instead of a dedicated bit reader.
package sector

import (
	"github.com/fluxfox-go/fluxfox/bitstream"
	"github.com/fluxfox-go/fluxfox/codec"
	"github.com/fluxfox-go/fluxfox/fferr"
	"github.com/fluxfox-go/fluxfox/internal/logx"
)

const (
	tagIDAM    = 0xFE
	tagDAM     = 0xFB
	tagDeleted = 0xF8

	bitsPerByte = 16 // raw bits per decoded byte, uniform across MFM and FM (spec §4.3)

	// maxGapBits bounds how far past an IDAM we'll scan looking for its
	// DAM before giving up on that sector header (spec §4.4: "within a
	// bounded gap").
	maxGapBits = 700 * bitsPerByte
)

// Entry is one discovered sector header and its associated data field.
type Entry struct {
	CHSN       CHSN
	IdamOffset int
	DamOffset  int
	DataLength int
	Deleted    bool
	Status     Status
}

// Index is a track's ordered sector list, in physical (bit-offset) order.
type Index struct {
	Entries []Entry
}

// pushUntilByte feeds bits from buf starting at *pos into dec until a full
// decoded byte is available, or the scan limit is reached. Indices are
// read modulo buf's length so a mark spanning the track's wrap point is
// still recoverable.
func pushUntilByte(dec codec.StreamDecoder, buf *bitstream.Buffer, pos *int, bitsLeft *int) (byte, bool) {
	var nibbles []codec.Nibble
	for *bitsLeft > 0 {
		dec.PushBit(buf.ReadBit(*pos))
		*pos++
		*bitsLeft--
		for dec.HasNibble() {
			n, ok := dec.PopNibble()
			if !ok {
				continue
			}
			nibbles = append(nibbles, n)
			if len(nibbles) == 2 {
				return byte(nibbles[0])<<4 | byte(nibbles[1]), true
			}
		}
	}
	return 0, false
}

// headerSeed returns the CRC-16 register state to begin folding an
// address-mark tag byte from, per encoding (spec §4.4: MFM folds the
// three 0xA1 sync bytes into the checksum; FM's checksum starts at the
// IDAM/DAM byte itself since FM has no distinct sync-byte value).
func headerSeed(enc bitstream.Encoding) uint16 {
	if enc == bitstream.MFM {
		return IDAMHeaderCRCSeed
	}
	return CRC16CCITTInit
}

// BuildIndex scans an entire bitstream track once, left to right, for
// IDAM/DAM pairs. dec must be freshly constructed or Reset for this call;
// BuildIndex owns it for the duration of the scan.
func BuildIndex(buf *bitstream.Buffer, dec codec.StreamDecoder) (*Index, error) {
	length := buf.LengthBits()
	idx := &Index{}

	pos := 0
	remaining := length
	seed := headerSeed(dec.Encoding())

	for remaining > 0 {
		dec.Reset()
		markOffset := -1
		for remaining > 0 {
			dec.PushBit(buf.ReadBit(pos))
			pos++
			remaining--
			if dec.IsSynced() {
				markOffset = pos
				break
			}
		}
		if markOffset < 0 {
			break // no more marks on this track
		}

		tag, ok := pushUntilByte(dec, buf, &pos, &remaining)
		if !ok {
			break
		}

		switch tag {
		case tagIDAM:
			entry, consumed := readIDAM(dec, buf, &pos, &remaining, markOffset, seed)
			if !consumed {
				continue
			}
			// Look for this IDAM's DAM within the bounded gap that follows.
			gapLimit := remaining
			if gapLimit > maxGapBits {
				gapLimit = maxGapBits
			}
			found := scanForDAM(dec, buf, &pos, &remaining, gapLimit, entry, seed)
			if found != nil {
				idx.Entries = append(idx.Entries, *found)
			} else {
				idx.Entries = append(idx.Entries, *entry)
			}
		default:
			// Gap filler or unexpected tag; keep scanning for the next mark.
		}
	}

	return idx, nil
}

// readIDAM reads the four header bytes and two CRC bytes following an
// IDAM tag and verifies the checksum.
func readIDAM(dec codec.StreamDecoder, buf *bitstream.Buffer, pos *int, remaining *int, markOffset int, seed uint16) (*Entry, bool) {
	cyl, ok := pushUntilByte(dec, buf, pos, remaining)
	if !ok {
		return nil, false
	}
	head, ok := pushUntilByte(dec, buf, pos, remaining)
	if !ok {
		return nil, false
	}
	sec, ok := pushUntilByte(dec, buf, pos, remaining)
	if !ok {
		return nil, false
	}
	size, ok := pushUntilByte(dec, buf, pos, remaining)
	if !ok {
		return nil, false
	}
	crcHi, ok := pushUntilByte(dec, buf, pos, remaining)
	if !ok {
		return nil, false
	}
	crcLo, ok := pushUntilByte(dec, buf, pos, remaining)
	if !ok {
		return nil, false
	}

	computed := CRC16(CRC16Byte(seed, tagIDAM), []byte{cyl, head, sec, size})
	stored := uint16(crcHi)<<8 | uint16(crcLo)

	status := StatusBad
	if computed == stored {
		status = StatusGood
	} else {
		logx.CrcMismatch(-1, "IDAM")
	}

	chsn := CHSN{Cylinder: cyl, Head: head, Sector: sec, SizeCode: size}
	return &Entry{
		CHSN:       chsn,
		IdamOffset: markOffset,
		DamOffset:  -1,
		DataLength: chsn.DataLength(),
		Status:     status,
	}, true
}

// scanForDAM looks for a DAM within gapLimit bits after an IDAM, reads its
// data field, and verifies the CRC. Returns nil if no DAM was found in the
// gap (the IDAM entry is still recorded, with DamOffset left at -1).
func scanForDAM(dec codec.StreamDecoder, buf *bitstream.Buffer, pos *int, remaining *int, gapLimit int, idam *Entry, seed uint16) *Entry {
	scanned := 0
	dec.Reset()
	markOffset := -1
	for scanned < gapLimit && *remaining > 0 {
		dec.PushBit(buf.ReadBit(*pos))
		*pos++
		*remaining--
		scanned++
		if dec.IsSynced() {
			markOffset = *pos
			break
		}
	}
	if markOffset < 0 {
		return nil
	}

	tag, ok := pushUntilByte(dec, buf, pos, remaining)
	if !ok || (tag != tagDAM && tag != tagDeleted) {
		return nil
	}

	dataLen := idam.DataLength
	data := make([]byte, 0, dataLen)
	for i := 0; i < dataLen; i++ {
		b, ok := pushUntilByte(dec, buf, pos, remaining)
		if !ok {
			return nil
		}
		data = append(data, b)
	}
	crcHi, ok := pushUntilByte(dec, buf, pos, remaining)
	if !ok {
		return nil
	}
	crcLo, ok := pushUntilByte(dec, buf, pos, remaining)
	if !ok {
		return nil
	}

	computed := CRC16(CRC16Byte(seed, tag), data)
	stored := uint16(crcHi)<<8 | uint16(crcLo)

	status := StatusBad
	if computed == stored {
		status = StatusGood
	} else {
		logx.CrcMismatch(-1, "DAM")
	}

	return &Entry{
		CHSN:       idam.CHSN,
		IdamOffset: idam.IdamOffset,
		DamOffset:  markOffset,
		DataLength: dataLen,
		Deleted:    tag == tagDeleted,
		Status:     status,
	}
}

// FindSector implements the wildcard lookup policy of spec §4.4: scan the
// index in physical order starting at startHint (the current head
// position); the first match wins, so duplicate sector-IDs are
// disambiguated by physical position rather than declared order.
func FindSector(idx *Index, q Query, startHint int) (*Entry, error) {
	n := len(idx.Entries)
	if n == 0 {
		return nil, fferr.New(fferr.SectorNotFound, "track has no sector index entries")
	}
	for i := 0; i < n; i++ {
		e := &idx.Entries[(startHint+i)%n]
		if q.Matches(e.CHSN) {
			return e, nil
		}
	}
	return nil, fferr.New(fferr.SectorNotFound, "no sector matched query")
}
