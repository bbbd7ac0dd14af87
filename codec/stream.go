// Package codec defines the stream-decoder capability set consumed by
// the sector index scanner: a polymorphic interface over {reset, push a
// bit, query sync state, peek/pop a decoded nibble, query encoding}.
// Concrete variants live in codec/mfm and codec/fm.
//
// The decoder does not own its bit source. The caller (typically
// sector.BuildIndex) feeds bits one at a time from a bitstream.Buffer,
// which lets the same decoder scan a circular buffer without any
// allocation or seam logic at the wrap point — this inversion of
// control mirrors the trait shape of the upstream fluxfox project's
// codec::stream module.
package codec

import "github.com/fluxfox-go/fluxfox/bitstream"

// Nibble is a decoded 4-bit value.
type Nibble uint8

// StreamDecoder is the capability set implemented by each encoding's
// concrete decoder. Each concrete decoder is a closed state machine and
// is never shared between goroutines.
type StreamDecoder interface {
	// Reset clears synchronization state and any pending nibbles.
	Reset()
	// IsSynced reports whether the decoder has committed to a nibble
	// boundary after observing a valid preamble.
	IsSynced() bool
	// Encoding reports the bitstream encoding this decoder understands.
	Encoding() bitstream.Encoding
	// PushBit feeds the next raw bit from the bit source.
	PushBit(bit int)
	// BitsRemaining reports how many more raw bits must be pushed before
	// the next nibble boundary is reached: 8 right after a boundary, down
	// to 1 just before the next one. It returns 0 while the decoder is
	// not synced.
	BitsRemaining() int
	// HasNibble reports whether a decoded nibble is available to pop.
	HasNibble() bool
	// PeekNibble returns the next decoded nibble without consuming it.
	PeekNibble() (Nibble, bool)
	// PopNibble consumes and returns the next decoded nibble.
	PopNibble() (Nibble, bool)
}
