// Package flux implements flux-to-bit conversion: turning a revolution's
// worth of magnetic flux-transition intervals into the bitstream layer's
// circular bit buffer. It is adapted from the teacher's SCP-style PLL
// (pll.Decoder) and its MFM flux generator (mfm.GenerateFluxTransitions),
// generalized from a single fixed bit rate to the adaptive-bitcell-width
// algorithm described in spec §4.2 and made encoding-agnostic (MFM/FM
// share this layer; the codec package is what differs per encoding).
package flux

import (
	"github.com/fluxfox-go/fluxfox/bitstream"
)

// DefaultBandwidth is the default PLL bandwidth factor β used when tracking drive speed
// drift. 0.3 mirrors the teacher's PHASE_ADJ_PCT=60% tendency to snap hard
// toward observed timing while still damping transient noise.
const DefaultBandwidth = 0.3

// clampMin and clampMax bound the cell count c derived from an interval,
// per spec §4.2 step 2.
const (
	clampMin = 1
	clampMax = 8
)

// ambiguityTolerance is how close Δ/w must be to the midpoint between two
// adjacent integers before the emitted bit is marked weak (spec §4.2 step 5).
const ambiguityTolerance = 0.12

// spliceThreshold is the fraction of nominal revolution length below which
// a revolution is treated as a splice (spec §4.2 edge cases).
const spliceThreshold = 0.90

// Decoder converts a revolution's flux intervals into bits via an
// adaptive-bitcell-width PLL, the way the teacher's pll.Decoder tracks a
// fixed-rate MFM clock, generalized to the spec's explicit clamp/weak/
// dropout rules and made available to both codec/mfm and codec/fm.
type Decoder struct {
	width     float64 // current adaptive bitcell width w, in picoseconds
	nominal   float64 // nominal bitcell width W
	bandwidth float64 // β

	transitions []uint64
	index       int
	lastTime    uint64

	// Splice bookkeeping: when a revolution is short, its transitions are
	// logically concatenated with the next revolution's rather than
	// terminating the stream.
	spliced bool
}

// NewDecoder creates a flux decoder for one revolution's transitions
// (absolute times in picoseconds from revolution start), with nominal
// bitcell width w0 (picoseconds) and PLL bandwidth beta.
func NewDecoder(transitions []uint64, nominalBitcellWidthPs float64, beta float64) *Decoder {
	if beta <= 0 {
		beta = DefaultBandwidth
	}
	return &Decoder{
		width:       nominalBitcellWidthPs,
		nominal:     nominalBitcellWidthPs,
		bandwidth:   beta,
		transitions: transitions,
	}
}

// IsDone reports whether all flux intervals have been consumed.
func (d *Decoder) IsDone() bool { return d.index >= len(d.transitions) }

// nextInterval returns the next raw flux interval in picoseconds, or
// (0, false) if the revolution is exhausted.
func (d *Decoder) nextInterval() (uint64, bool) {
	if d.index >= len(d.transitions) {
		return 0, false
	}
	t := d.transitions[d.index]
	interval := t - d.lastTime
	d.lastTime = t
	d.index++
	return interval, true
}

// Cell is one decoded bit cell: the bit value and whether it was weak.
type Cell struct {
	Bit  int
	Weak bool
}

// NextCells decodes the next flux interval into its emitted bit cells
// (spec §4.2 steps 2-5), or reports dropout (step: edge cases) when the
// interval's cell count would exceed the clamp. Returns ok=false once the
// revolution's transitions are exhausted.
func (d *Decoder) NextCells() (cells []Cell, ok bool) {
	interval, present := d.nextInterval()
	if !present {
		return nil, false
	}

	raw := float64(interval) / d.width
	c := int(raw + 0.5)
	dropout := c > clampMax
	if c < clampMin {
		c = clampMin
	}
	if c > clampMax {
		c = clampMax
	}

	if dropout {
		cells = make([]Cell, 8)
		for i := range cells {
			cells[i] = Cell{Bit: 0, Weak: true}
		}
		return cells, true
	}

	cells = make([]Cell, c)
	for i := 0; i < c-1; i++ {
		cells[i] = Cell{Bit: 0, Weak: d.ambiguous(raw, c)}
	}
	cells[c-1] = Cell{Bit: 1, Weak: d.ambiguous(raw, c)}

	d.width += d.bandwidth * (float64(interval)/float64(c) - d.width)

	return cells, true
}

// ambiguous reports whether raw (Δ/w before rounding) sits within
// ambiguityTolerance of either midpoint around c (c-0.5 or c+0.5), i.e.
// the interval could plausibly have rounded to a neighbouring count.
func (d *Decoder) ambiguous(raw float64, c int) bool {
	lowerMid := float64(c) - 0.5
	upperMid := float64(c) + 0.5
	return absF(raw-lowerMid) < ambiguityTolerance || absF(raw-upperMid) < ambiguityTolerance
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// DecodeRevolution drains a full revolution's transitions into a
// bitstream.Buffer of the given encoding, sized to exactly the number of
// cells decoded, and returns that buffer. Callers detecting a short (spliced) revolution should not call
// this per-revolution; instead concatenate the short revolution's
// transitions onto the following revolution's before decoding (spec
// §4.2: "concatenated logically with the next revolution for index
// detection").
func DecodeRevolution(transitions []uint64, nominalBitcellWidthPs float64, beta float64, encoding bitstream.Encoding) *bitstream.Buffer {
	d := NewDecoder(transitions, nominalBitcellWidthPs, beta)

	var bits []Cell
	for {
		cells, ok := d.NextCells()
		if !ok {
			break
		}
		bits = append(bits, cells...)
	}

	buf := bitstream.NewBuffer(len(bits), encoding)
	for i, c := range bits {
		if c.Weak {
			buf.WriteBitsWeak(i, uint64(c.Bit), 1)
		} else {
			buf.WriteBits(i, uint64(c.Bit), 1)
		}
	}
	return buf
}

// IsSplice reports whether a revolution of the given duration (picoseconds)
// is short enough, relative to the nominal rotation period, to be treated
// as a splice rather than a complete revolution (spec §4.2 edge cases).
func IsSplice(revolutionDurationPs, nominalRotationPs uint64) bool {
	return float64(revolutionDurationPs) < spliceThreshold*float64(nominalRotationPs)
}

// ConcatTransitions appends a spliced revolution's transitions onto the
// next revolution's, shifting the next revolution's times forward by the
// spliced revolution's total duration so the combined stream stays
// monotonic.
func ConcatTransitions(spliced []uint64, next []uint64) []uint64 {
	if len(spliced) == 0 {
		return next
	}
	offset := spliced[len(spliced)-1]
	out := make([]uint64, 0, len(spliced)+len(next))
	out = append(out, spliced...)
	for _, t := range next {
		out = append(out, t+offset)
	}
	return out
}
