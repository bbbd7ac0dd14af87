// Package mfm implements the MFM (Modified Frequency Modulation)
// StreamDecoder/encoder pair described in spec §4.3, adapted from the
// teacher's mfm.Reader bit-level scanning (history-shift-register sync
// detection) generalized from a single fixed IBM-PC layout to a
// standalone, push-fed decoder.
package mfm

import (
	"github.com/fluxfox-go/fluxfox/bitstream"
	"github.com/fluxfox-go/fluxfox/codec"
)

// syncWord is the raw 16-bit pattern for an IBM MFM address-mark
// preamble byte (0xA1 with the clock violation at bit 4): 0x4489.
const syncWord = 0x4489

// syncMask48 isolates the low 48 bits of the shift register, i.e. the
// last three raw 16-bit windows pushed.
const syncMask48 = (uint64(1) << 48) - 1

// syncPattern48 is three consecutive syncWord windows: the canonical
// three-byte 0xA1 0xA1 0xA1 MFM preamble.
const syncPattern48 = (uint64(syncWord) << 32) | (uint64(syncWord) << 16) | uint64(syncWord)

// Decoder is a restartable MFM stream decoder. It is fed raw bits one
// at a time via PushBit and, once synchronized on the standard IBM MFM
// preamble, emits one decoded nibble per 8 raw bits.
type Decoder struct {
	shiftReg uint64 // last 64 raw bits pushed, most recent in the LSB
	synced   bool
	pos      int // position (0..15) within the current 16-bit window, valid once synced

	dataAcc   uint8 // accumulated data bits of the nibble in progress
	dataCount int   // number of data bits accumulated into dataAcc (0..4)
	rawSince  int   // raw bits pushed since the last nibble boundary

	queue *codec.NibbleQueue
}

// NewDecoder creates an MFM decoder with a nibble queue of the given
// depth (minimum 2, per spec §4.3).
func NewDecoder(queueDepth int) *Decoder {
	return &Decoder{queue: codec.NewNibbleQueue(queueDepth)}
}

func (d *Decoder) Reset() {
	d.shiftReg = 0
	d.synced = false
	d.pos = 0
	d.dataAcc = 0
	d.dataCount = 0
	d.rawSince = 0
	d.queue.Reset()
}

func (d *Decoder) IsSynced() bool { return d.synced }

func (d *Decoder) Encoding() bitstream.Encoding { return bitstream.MFM }

func (d *Decoder) PushBit(bit int) {
	d.shiftReg = (d.shiftReg << 1) | uint64(bit&1)

	if !d.synced {
		if d.shiftReg&syncMask48 == syncPattern48 {
			d.synced = true
			d.pos = 0
			d.dataAcc = 0
			d.dataCount = 0
			d.rawSince = 0
		}
		return
	}

	dataBitPosition := d.pos%2 == 1
	if dataBitPosition {
		d.dataAcc = (d.dataAcc << 1) | uint8(bit&1)
		d.dataCount++
		if d.dataCount == 4 {
			d.queue.Push(codec.Nibble(d.dataAcc & 0xF))
			d.dataAcc = 0
			d.dataCount = 0
		}
	}
	d.pos = (d.pos + 1) % 16
	d.rawSince++
	if d.rawSince == 8 {
		d.rawSince = 0
	}
}

func (d *Decoder) BitsRemaining() int {
	if !d.synced {
		return 0
	}
	return 8 - d.rawSince
}

func (d *Decoder) HasNibble() bool { return d.queue.Len() > 0 }

func (d *Decoder) PeekNibble() (codec.Nibble, bool) { return d.queue.Peek() }

func (d *Decoder) PopNibble() (codec.Nibble, bool) { return d.queue.Pop() }

var _ codec.StreamDecoder = (*Decoder)(nil)
