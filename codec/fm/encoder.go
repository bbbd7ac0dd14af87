package fm

import "github.com/fluxfox-go/fluxfox/bitstream"

// Encoder writes FM-encoded bits into a bitstream.Buffer. Unlike MFM,
// FM's data-bit clock half is constant (always 1) outside of address
// marks, so there's no run-length state to track between bits.
type Encoder struct {
	buf    *bitstream.Buffer
	cursor int
}

// NewEncoder creates an encoder writing into buf starting at startBit.
func NewEncoder(buf *bitstream.Buffer, startBit int) *Encoder {
	return &Encoder{buf: buf, cursor: startBit}
}

// Cursor returns the current write position.
func (e *Encoder) Cursor() int { return e.cursor }

func (e *Encoder) writeHalfBit(v int) {
	e.buf.WriteBits(e.cursor, uint64(v&1), 1)
	e.cursor++
}

// WriteBit encodes one data bit as clock=1,data=dataBit.
func (e *Encoder) WriteBit(dataBit int) {
	e.writeHalfBit(1)
	e.writeHalfBit(dataBit)
}

// WriteByte encodes a data byte, MSB first.
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

// WriteGap encodes n repetitions of fill.
func (e *Encoder) WriteGap(n int, fill byte) {
	for i := 0; i < n; i++ {
		e.WriteByte(fill)
	}
}

// WriteIndexMark encodes the raw 16-bit index-address-mark pattern
// (clock 0xC7 / data 0xFE) directly, bypassing the normal clock=1 rule.
func (e *Encoder) WriteIndexMark() {
	for i := 15; i >= 0; i-- {
		e.writeHalfBit(int((syncWord >> uint(i)) & 1))
	}
}
