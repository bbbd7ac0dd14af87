package mfm

import (
	"testing"

	"github.com/fluxfox-go/fluxfox/bitstream"
	"github.com/fluxfox-go/fluxfox/codec"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// feedAndCollect pushes every bit of buf[0:nbits] through d and collects
// decoded nibbles into bytes once synced.
func feedAndCollect(t *testing.T, buf *bitstream.Buffer, nbits int) []byte {
	t.Helper()
	d := NewDecoder(4)
	var out []byte
	var nibbles []codec.Nibble
	for i := 0; i < nbits; i++ {
		d.PushBit(buf.ReadBit(i))
		for d.HasNibble() {
			n, ok := d.PopNibble()
			require.True(t, ok)
			nibbles = append(nibbles, n)
			if len(nibbles) == 2 {
				out = append(out, byte(nibbles[0])<<4|byte(nibbles[1]))
				nibbles = nibbles[:0]
			}
		}
	}
	return out
}

func TestMFMRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		payload := rapid.SliceOfN(rapid.Byte(), 1, 32).Draw(rt, "payload")

		buf := bitstream.NewBuffer((12+3+len(payload))*16+64, bitstream.MFM)
		enc := NewEncoder(buf, 0)
		for i := 0; i < 12; i++ {
			enc.WriteByte(0)
		}
		enc.WriteSyncMark()
		enc.WriteBytes(payload)

		got := feedAndCollect(t, buf, enc.Cursor())
		require.GreaterOrEqual(t, len(got), len(payload))
		require.Equal(t, payload, got[:len(payload)])
	})
}

func TestMFMDecoderSyncRequiresThreePreambleWords(t *testing.T) {
	buf := bitstream.NewBuffer(64, bitstream.MFM)
	enc := NewEncoder(buf, 0)
	enc.WriteByte(0x00)
	// Two raw 0x4489 preamble words: one short of the three sync needs.
	buf.WriteBits(16, 0x4489, 16)
	buf.WriteBits(32, 0x4489, 16)
	d := NewDecoder(4)
	for i := 0; i < 48; i++ {
		d.PushBit(buf.ReadBit(i))
	}
	require.False(t, d.IsSynced())
}

func TestMFMDecoderResetClearsState(t *testing.T) {
	buf := bitstream.NewBuffer(256, bitstream.MFM)
	enc := NewEncoder(buf, 0)
	for i := 0; i < 12; i++ {
		enc.WriteByte(0)
	}
	enc.WriteSyncMark()
	d := NewDecoder(4)
	for i := 0; i < enc.Cursor(); i++ {
		d.PushBit(buf.ReadBit(i))
	}
	require.True(t, d.IsSynced())
	d.Reset()
	require.False(t, d.IsSynced())
	require.False(t, d.HasNibble())
}
