package flux

import (
	"math/rand"
	"testing"

	"github.com/fluxfox-go/fluxfox/bitstream"
	"github.com/stretchr/testify/require"
)

// jitter perturbs each transition by up to pct percent of the nominal
// bitcell width, preserving monotonicity, mirroring the teacher's
// randomizeFluxTransitions helper.
func jitter(transitions []uint64, width uint64, pct float64, seed int64) []uint64 {
	rng := rand.New(rand.NewSource(seed))
	maxVar := float64(width) * pct
	out := make([]uint64, len(transitions))
	var prev uint64
	for i, t := range transitions {
		v := (rng.Float64()*2 - 1) * maxVar
		nt := float64(t) + v
		if nt < float64(prev)+1 {
			nt = float64(prev) + 1
		}
		out[i] = uint64(nt)
		prev = out[i]
	}
	return out
}

func TestRoundTripThroughPLLRecoversBits(t *testing.T) {
	const width = 2000.0 // picoseconds
	buf := bitstream.NewBuffer(64, bitstream.MFM)
	pattern := []int{0, 1, 0, 1, 0, 0, 1, 0, 0, 0, 1, 1, 0, 1, 0, 1, 0, 0, 1, 0}
	for i, b := range pattern {
		buf.WriteBits(i, uint64(b), 1)
	}

	transitions := GenerateTransitions(buf, uint64(width))
	noisy := jitter(transitions, uint64(width), 0.05, 7)

	d := NewDecoder(noisy, width, DefaultBandwidth)
	var got []int
	for !d.IsDone() {
		cells, ok := d.NextCells()
		if !ok {
			break
		}
		for _, c := range cells {
			got = append(got, c.Bit)
		}
	}

	require.GreaterOrEqual(t, len(got), len(pattern))
	require.Equal(t, pattern, got[:len(pattern)])
}

func TestNextCellsDropoutMarksWeak(t *testing.T) {
	const width = 1000.0
	// A single absurdly long interval should exceed the clamp and produce
	// the 8-weak-zero dropout pattern.
	d := NewDecoder([]uint64{uint64(width) * 100}, width, DefaultBandwidth)
	cells, ok := d.NextCells()
	require.True(t, ok)
	require.Len(t, cells, 8)
	for _, c := range cells {
		require.True(t, c.Weak)
		require.Equal(t, 0, c.Bit)
	}
}

func TestIsSplice(t *testing.T) {
	nominal := uint64(200_000_000) // 200ms nominal rotation
	require.True(t, IsSplice(nominal*85/100, nominal))
	require.False(t, IsSplice(nominal*95/100, nominal))
}

func TestConcatTransitionsShiftsForward(t *testing.T) {
	spliced := []uint64{10, 20, 30}
	next := []uint64{5, 15}
	combined := ConcatTransitions(spliced, next)
	require.Equal(t, []uint64{10, 20, 30, 35, 45}, combined)
}

func TestDecodeRevolutionProducesWeakMaskOnDropout(t *testing.T) {
	const width = 1000.0
	transitions := []uint64{uint64(width) * 200}
	buf := DecodeRevolution(transitions, width, DefaultBandwidth, bitstream.MFM)
	require.Equal(t, 8, buf.LengthBits())
	for i := 0; i < 8; i++ {
		require.True(t, buf.Weak(i))
	}
}
