// Package fm implements the FM (Frequency Modulation) StreamDecoder and
// encoder pair described in spec §4.3, structured identically to
// codec/mfm but with FM's simpler "clock always 1" data encoding and
// single-word preamble sync instead of MFM's clock-violation preamble.
package fm

import (
	"github.com/fluxfox-go/fluxfox/bitstream"
	"github.com/fluxfox-go/fluxfox/codec"
)

// syncWord is the FM index-address-mark raw pattern (clock 0xC7
// interleaved with data 0xFE), per spec §4.3.
const syncWord = 0xF57E

const syncMask16 = 0xFFFF

// Decoder is a restartable FM stream decoder, fed one raw bit at a time.
type Decoder struct {
	shiftReg uint64
	synced   bool
	pos      int

	dataAcc   uint8
	dataCount int
	rawSince  int

	queue *codec.NibbleQueue
}

// NewDecoder creates an FM decoder with a nibble queue of the given
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

func (d *Decoder) Encoding() bitstream.Encoding { return bitstream.FM }

func (d *Decoder) PushBit(bit int) {
	d.shiftReg = (d.shiftReg << 1) | uint64(bit&1)

	if !d.synced {
		if d.shiftReg&syncMask16 == syncWord {
			d.synced = true
			d.pos = 0
			d.dataAcc = 0
			d.dataCount = 0
			d.rawSince = 0
		}
		return
	}

	if d.pos%2 == 1 {
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
