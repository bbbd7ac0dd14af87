package disk

import "github.com/fluxfox-go/fluxfox/bitstream"

// ReadClockedByte decodes one MFM/FM-clocked byte (16 raw bits, data bit
// at each odd position starting from bitOffset) without needing a
// StreamDecoder, for re-reading a byte at an already-known bit offset.
func ReadClockedByte(buf *bitstream.Buffer, bitOffset int) byte {
	var b byte
	for i := 0; i < 8; i++ {
		bit := buf.ReadBit(bitOffset + i*2 + 1)
		b = (b << 1) | byte(bit)
	}
	return b
}
