package mfm

import "github.com/fluxfox-go/fluxfox/bitstream"

// Encoder writes MFM-encoded bits into a bitstream.Buffer starting at a
// given cursor, advancing the cursor as it goes. It mirrors the
// teacher's mfm.Writer half-bit/data-bit distinction, generalized to
// target an arbitrary circular buffer (rather than its own growing byte
// slice) so it can be used for in-place track synthesis by
// imagebuilder.
type Encoder struct {
	buf         *bitstream.Buffer
	cursor      int
	lastDataBit int
}

// NewEncoder creates an encoder writing into buf starting at startBit.
func NewEncoder(buf *bitstream.Buffer, startBit int) *Encoder {
	return &Encoder{buf: buf, cursor: startBit}
}

// NewEncoderContinuing creates an encoder writing into buf starting at
// startBit, seeded with the data bit already present immediately before
// startBit so the standard MFM clock rule stays correct when resuming an
// in-progress bitstream (e.g. patching a CRC field in place) rather than
// starting a track from scratch.
func NewEncoderContinuing(buf *bitstream.Buffer, startBit int, precedingDataBit int) *Encoder {
	return &Encoder{buf: buf, cursor: startBit, lastDataBit: precedingDataBit & 1}
}

// Cursor returns the current write position.
func (e *Encoder) Cursor() int { return e.cursor }

// writeHalfBit writes one raw MFM bit cell (clock or data half).
func (e *Encoder) writeHalfBit(v int) {
	e.buf.WriteBits(e.cursor, uint64(v&1), 1)
	e.cursor++
}

// WriteBit encodes one data bit as two raw bit cells following the
// standard MFM rule: a 1 bit is clock=0,data=1; a 0 bit's clock half is
// the complement of the previously written data bit, so a clock bit of 1
// is written only between two consecutive 0s.
func (e *Encoder) WriteBit(dataBit int) {
	if dataBit != 0 {
		e.writeHalfBit(0)
		e.writeHalfBit(1)
	} else {
		e.writeHalfBit(e.lastDataBit ^ 1)
		e.writeHalfBit(0)
	}
	e.lastDataBit = dataBit
}

// WriteByte encodes a data byte, MSB first, as 16 raw bits.
func (e *Encoder) WriteByte(b byte) {
	for i := 7; i >= 0; i-- {
		e.WriteBit(int((b >> uint(i)) & 1))
	}
}

// WriteBytes encodes a sequence of data bytes.
func (e *Encoder) WriteBytes(bs []byte) {
	for _, b := range bs {
		e.WriteByte(b)
	}
}

// WriteGap encodes n repetitions of fill (typically 0x4E, the standard
// IBM System/34 gap byte).
func (e *Encoder) WriteGap(n int, fill byte) {
	for i := 0; i < n; i++ {
		e.WriteByte(fill)
	}
}

// WriteSyncMark encodes the three-byte 0xA1 address-mark preamble with
// the clock bit of data bit 2 suppressed (the clock violation), which
// produces the raw 0x4489 pattern the decoder synchronizes on. Callers are
// responsible for the 12 leading 0x00 bytes the full IBM preamble
// requires (spec §4.6); this only encodes the distinguishing 0xA1
// triplet.
func (e *Encoder) WriteSyncMark() {
	for i := 0; i < 3; i++ {
		e.WriteBit(1) // data bit 7
		e.WriteBit(0) // data bit 6
		e.WriteBit(1) // data bit 5
		e.WriteBit(0) // data bit 4
		e.WriteBit(0) // data bit 3
		e.writeHalfBit(0) // data bit 2 clock half: 0 where the MFM rule gives 1 (clock violation)
		e.writeHalfBit(0) // data bit 2 data half
		e.WriteBit(0) // data bit 1
		e.WriteBit(1) // data bit 0, completing the raw 0x4489 pattern for this 0xA1 byte
		e.lastDataBit = 1
	}
}
