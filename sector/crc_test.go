package sector

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRC16KnownVector(t *testing.T) {
	// CRC-16/CCITT-FALSE of "123456789" is the well-known test vector
	// 0x29B1 for this exact parameterization (poly 0x1021, init 0xFFFF,
	// no reflection, no final XOR).
	got := CRC16(CRC16CCITTInit, []byte("123456789"))
	require.Equal(t, uint16(0x29B1), got)
}

func TestCRC16ByteMatchesBulk(t *testing.T) {
	data := []byte{0xFE, 0x01, 0x00, 0x05, 0x02}
	bulk := CRC16(CRC16CCITTInit, data)

	running := CRC16CCITTInit
	for _, b := range data {
		running = CRC16Byte(running, b)
	}
	require.Equal(t, bulk, running)
}

func TestIDAMHeaderSeedFoldsSyncPrefix(t *testing.T) {
	direct := CRC16(CRC16CCITTInit, []byte{0xA1, 0xA1, 0xA1})
	require.Equal(t, direct, IDAMHeaderCRCSeed)
}
