package format

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fluxfox-go/fluxfox/bitstream"
	"github.com/fluxfox-go/fluxfox/disk"
	"github.com/fluxfox-go/fluxfox/fferr"
)

// HFE is the HxC Floppy Emulator bitstream container (spec §1's
// "format-specific file parsers... treated as external collaborators").
// This parser is grounded on the teacher's hfe package: Header is its
// hfe.Header struct verbatim (field order and sizes matter, it's read with
// binary.Read), byteBitsInverter/bitReverse are its bit-packing helpers,
// and the block/track-list/interleaved-track layout follows hfe/read.go
// and hfe/write.go's v1 path. HFEv3's opcode stream (hfe/read.go
// processOpcodes) is not implemented; v3 files are detected but rejected
// with UnsupportedFormat rather than silently mis-decoded.
const (
	hfev1Signature = "HXCPICFE"
	hfev3Signature = "HXCHFEV3"
	hfeBlockSize   = 512

	hfeEncISOIBMMFM = 0x00
	hfeEncISOIBMFM  = 0x02
)

// hfeHeader mirrors the teacher's hfe.Header layout exactly; field order
// and widths are load-bearing since it is read with binary.Read against
// the file's first 32 bytes (padded to a 512-byte block on disk).
type hfeHeader struct {
	Signature           [8]byte
	FormatRevision      uint8
	NumberOfTrack       uint8
	NumberOfSide        uint8
	TrackEncoding       uint8
	BitRate             uint16
	FloppyRPM           uint16
	FloppyInterfaceMode uint8
	WriteProtected      uint8
	TrackListOffset     uint16
	WriteAllowed        uint8
	SingleStep          uint8
	Track0S0AltEncoding uint8
	Track0S0Encoding    uint8
	Track0S1AltEncoding uint8
	Track0S1Encoding    uint8
}

type hfeTrackHeader struct {
	Offset   uint16
	TrackLen uint16
}

// hfeByteBitsInverter swaps bit 0<->7, 1<->6, ... within a byte, the same
// table the teacher computes in hfe.init() to translate between the wire
// format's LSB-first byte order and the MSB-first order FluxFox's
// bitstream.Buffer expects.
var hfeByteBitsInverter [256]byte

func init() {
	for i := 0; i < 256; i++ {
		var inverted byte
		for j := 0; j < 8; j++ {
			if i&(1<<uint(j)) != 0 {
				inverted |= 1 << uint(7-j)
			}
		}
		hfeByteBitsInverter[i] = inverted
	}
}

type hfeParser struct{}

func (hfeParser) Format() FileFormat { return HFEImage }

func (hfeParser) Detect(firstBytes []byte) bool {
	if len(firstBytes) < 8 {
		return false
	}
	sig := string(firstBytes[:8])
	return sig == hfev1Signature || sig == hfev3Signature
}

func (hfeParser) Load(r io.Reader) (*disk.Image, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fferr.Wrap(fferr.IoFailure, "reading HFE image", err)
	}
	if len(raw) < hfeBlockSize {
		return nil, fferr.New(fferr.MalformedImage, "HFE file shorter than one header block")
	}

	var hdr hfeHeader
	if err := binary.Read(bytes.NewReader(raw[:32]), binary.LittleEndian, &hdr); err != nil {
		return nil, fferr.Wrap(fferr.MalformedImage, "reading HFE header", err)
	}
	sig := string(hdr.Signature[:])
	if sig == hfev3Signature {
		return nil, fferr.New(fferr.UnsupportedFormat, "HFE v3 opcode-stream tracks are not supported, only v1")
	}
	if sig != hfev1Signature {
		return nil, fferr.New(fferr.MalformedImage, "unrecognized HFE signature")
	}
	if hdr.NumberOfTrack == 0 || hdr.NumberOfSide == 0 || hdr.BitRate == 0 {
		return nil, fferr.New(fferr.MalformedImage, "HFE header declares zero tracks, sides, or bitrate")
	}

	encoding := bitstream.MFM
	if hdr.TrackEncoding == hfeEncISOIBMFM {
		encoding = bitstream.FM
	}

	trackListOffset := int(hdr.TrackListOffset) * hfeBlockSize
	trackHeaders := make([]hfeTrackHeader, hdr.NumberOfTrack)
	for i := range trackHeaders {
		off := trackListOffset + i*4
		if off+4 > len(raw) {
			return nil, fferr.New(fferr.MalformedImage, "HFE track list truncated")
		}
		trackHeaders[i].Offset = binary.LittleEndian.Uint16(raw[off : off+2])
		trackHeaders[i].TrackLen = binary.LittleEndian.Uint16(raw[off+2 : off+4])
	}

	geometry := disk.Geometry{Cylinders: int(hdr.NumberOfTrack), Heads: int(hdr.NumberOfSide)}
	img := disk.New(geometry, encoding, int(hdr.BitRate), int(hdr.FloppyRPM))

	for cyl, th := range trackHeaders {
		trackLen := int(th.TrackLen)
		base := int(th.Offset) * hfeBlockSize
		if base+trackLen > len(raw) {
			return nil, fferr.New(fferr.MalformedImage, "HFE track data runs past end of file")
		}
		trackBuf := raw[base : base+trackLen]

		sides := make([][]byte, hdr.NumberOfSide)
		for s := range sides {
			sides[s] = make([]byte, trackLen/2)
		}
		for blockOff := 0; blockOff < trackLen; blockOff += hfeBlockSize {
			for k := 0; k < 256 && blockOff+k < trackLen; k++ {
				sides[0][blockOff/2+k] = hfeByteBitsInverter[trackBuf[blockOff+k]]
				if hdr.NumberOfSide > 1 && blockOff+256+k < trackLen {
					sides[1][blockOff/2+k] = hfeByteBitsInverter[trackBuf[blockOff+256+k]]
				}
			}
		}

		for head, data := range sides {
			bits, err := bitstream.NewBufferFromBits(data, len(data)*8, encoding)
			if err != nil {
				return nil, fferr.Wrap(fferr.MalformedImage, "building HFE track bitstream", err)
			}
			if err := img.SetTrack(disk.CH{Cylinder: cyl, Head: head}, disk.NewBitStreamTrack(bits)); err != nil {
				return nil, err
			}
		}
	}
	return img, nil
}

func (hfeParser) Save(img *disk.Image, w io.Writer) error {
	hdr := hfeHeader{
		FormatRevision:      0,
		NumberOfTrack:       uint8(img.Geometry.Cylinders),
		NumberOfSide:        uint8(img.Geometry.Heads),
		BitRate:             uint16(img.DataRateKb),
		FloppyRPM:           uint16(img.RPM),
		FloppyInterfaceMode: 0, // IBMPC_DD, the only interface mode FluxFox's geometry model targets
		WriteProtected:      boolToHFEFlag(img.WriteProtect),
		TrackListOffset:     1,
		WriteAllowed:        0xFF,
		SingleStep:          0x00,
		Track0S0AltEncoding: 0xFF,
		Track0S1AltEncoding: 0xFF,
	}
	copy(hdr.Signature[:], hfev1Signature)
	hdr.TrackEncoding = hfeEncISOIBMMFM
	hdr.Track0S0Encoding = hfeEncISOIBMMFM
	hdr.Track0S1Encoding = hfeEncISOIBMMFM
	if img.Encoding == bitstream.FM {
		hdr.TrackEncoding = hfeEncISOIBMFM
		hdr.Track0S0Encoding = hfeEncISOIBMFM
		hdr.Track0S1Encoding = hfeEncISOIBMFM
	}
	if img.Geometry.Cylinders == 0 || img.Geometry.Heads == 0 {
		return fferr.New(fferr.MalformedImage, "cannot save an image with zero cylinders or heads as HFE")
	}

	headerBlock := make([]byte, hfeBlockSize)
	for i := range headerBlock {
		headerBlock[i] = 0xFF
	}
	headerData := make([]byte, 32)
	copy(headerData[0:8], hdr.Signature[:])
	headerData[8] = hdr.FormatRevision
	headerData[9] = hdr.NumberOfTrack
	headerData[10] = hdr.NumberOfSide
	headerData[11] = hdr.TrackEncoding
	binary.LittleEndian.PutUint16(headerData[12:14], hdr.BitRate)
	binary.LittleEndian.PutUint16(headerData[14:16], hdr.FloppyRPM)
	headerData[16] = hdr.FloppyInterfaceMode
	headerData[17] = hdr.WriteProtected
	binary.LittleEndian.PutUint16(headerData[18:20], hdr.TrackListOffset)
	headerData[20] = hdr.WriteAllowed
	headerData[21] = hdr.SingleStep
	headerData[22] = hdr.Track0S0AltEncoding
	headerData[23] = hdr.Track0S0Encoding
	headerData[24] = hdr.Track0S1AltEncoding
	headerData[25] = hdr.Track0S1Encoding
	copy(headerBlock, headerData)

	type packedTrack struct {
		sides [][]byte
	}
	tracks := make([]packedTrack, img.Geometry.Cylinders)
	trackHeaders := make([]hfeTrackHeader, img.Geometry.Cylinders)
	trackPos := uint16(2)

	for cyl := 0; cyl < img.Geometry.Cylinders; cyl++ {
		sides := make([][]byte, img.Geometry.Heads)
		maxLen := 0
		for head := 0; head < img.Geometry.Heads; head++ {
			t := img.Track(disk.CH{Cylinder: cyl, Head: head})
			var bits *bitstream.Buffer
			if t != nil {
				var err error
				bits, err = t.ResolveBitStream()
				if err != nil {
					return err
				}
			} else {
				bits, _ = bitstream.NewBufferFromBits(make([]byte, 512), 512*8, img.Encoding)
			}
			sides[head] = bits.Bytes()
			if len(sides[head]) > maxLen {
				maxLen = len(sides[head])
			}
		}
		tracks[cyl].sides = sides

		byteLen := maxLen * 2
		trackLen := byteLen
		if trackLen%hfeBlockSize != 0 {
			trackLen = (trackLen/hfeBlockSize + 1) * hfeBlockSize
		}
		trackHeaders[cyl] = hfeTrackHeader{Offset: trackPos, TrackLen: uint16(trackLen)}
		trackPos += uint16(trackLen / hfeBlockSize)
	}

	trackListBlock := make([]byte, hfeBlockSize)
	for i := range trackListBlock {
		trackListBlock[i] = 0xFF
	}
	for i, th := range trackHeaders {
		off := i * 4
		if off+4 > len(trackListBlock) {
			return fferr.New(fferr.BuilderInvalid, "too many tracks for a single HFE track-list block")
		}
		binary.LittleEndian.PutUint16(trackListBlock[off:off+2], th.Offset)
		binary.LittleEndian.PutUint16(trackListBlock[off+2:off+4], th.TrackLen)
	}

	if _, err := w.Write(headerBlock); err != nil {
		return fferr.Wrap(fferr.IoFailure, "writing HFE header", err)
	}
	if _, err := w.Write(trackListBlock); err != nil {
		return fferr.Wrap(fferr.IoFailure, "writing HFE track list", err)
	}

	for cyl, th := range trackHeaders {
		trackLen := int(th.TrackLen)
		sides := tracks[cyl].sides
		sideBuf := make([][]byte, img.Geometry.Heads)
		for head := range sides {
			buf := make([]byte, trackLen/2)
			copy(buf, sides[head])
			for i := len(sides[head]); i < len(buf); i++ {
				buf[i] = 0xFF
			}
			sideBuf[head] = buf
		}
		trackBuf := make([]byte, trackLen)
		for blockOff := 0; blockOff < trackLen; blockOff += hfeBlockSize {
			for k := 0; k < 256; k++ {
				trackBuf[blockOff+k] = hfeByteBitsInverter[sideBuf[0][blockOff/2+k]]
				if img.Geometry.Heads > 1 {
					trackBuf[blockOff+256+k] = hfeByteBitsInverter[sideBuf[1][blockOff/2+k]]
				}
			}
		}
		if _, err := w.Write(trackBuf); err != nil {
			return fferr.Wrap(fferr.IoFailure, fmt.Sprintf("writing HFE track %d", cyl), err)
		}
	}
	return nil
}

func boolToHFEFlag(b bool) uint8 {
	if b {
		return 0x00
	}
	return 0xFF
}
