package format

import (
	"encoding/binary"
	"io"

	"github.com/fluxfox-go/fluxfox/bitstream"
	"github.com/fluxfox-go/fluxfox/disk"
	"github.com/fluxfox-go/fluxfox/fferr"
)

// F86Image is FluxFox's own flat bitstream container (spec §4.5's
// save_image list includes "F86Image" alongside RawSectorImage and
// MfmBitstreamImage; spec §8 scenario 4/5 round-trip a disk through it).
// It follows the same manual little-endian field-packing convention the
// teacher uses for its greaseweazle USB protocol framing
// (greaseweazle/greaseweazle.go, read.go) rather than a binary.Read
// struct overlay: a fixed-size disk header, then one fixed-size track
// header plus its raw MSB-first bitstream bytes per (cylinder, head).
// Header layout (little-endian): 8-byte magic, cylinders, heads, encoding,
// data rate (kb/s), RPM, write-protect flag, then 5 bytes reserved padding
// up to f86HeaderLen, followed by one f86TrackHdrLen track header per
// (cylinder, head) slot in TrackCHIter order, each directly followed by
// its track's packed bitstream bytes when the slot is formatted.
const (
	f86Magic       = "FX86FLUX"
	f86HeaderLen   = 24
	f86TrackHdrLen = 12
)

type f86Parser struct{}

func (f86Parser) Format() FileFormat { return F86Image }

func (f86Parser) Detect(firstBytes []byte) bool {
	return len(firstBytes) >= 8 && string(firstBytes[:8]) == f86Magic
}

func (f86Parser) Load(r io.Reader) (*disk.Image, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fferr.Wrap(fferr.IoFailure, "reading F86 image", err)
	}
	if len(raw) < f86HeaderLen || string(raw[:8]) != f86Magic {
		return nil, fferr.New(fferr.MalformedImage, "not an F86 image")
	}

	cylinders := int(binary.LittleEndian.Uint16(raw[8:10]))
	heads := int(binary.LittleEndian.Uint16(raw[10:12]))
	encoding := bitstream.Encoding(binary.LittleEndian.Uint16(raw[12:14]))
	dataRateKb := int(binary.LittleEndian.Uint16(raw[14:16]))
	rpm := int(binary.LittleEndian.Uint16(raw[16:18]))
	writeProtect := raw[18] != 0

	if cylinders <= 0 || heads <= 0 {
		return nil, fferr.New(fferr.MalformedImage, "F86 header declares zero cylinders or heads")
	}

	img := disk.New(disk.Geometry{Cylinders: cylinders, Heads: heads}, encoding, dataRateKb, rpm)
	img.WriteProtect = writeProtect

	offset := f86HeaderLen
	for c := 0; c < cylinders; c++ {
		for h := 0; h < heads; h++ {
			if offset+f86TrackHdrLen > len(raw) {
				return nil, fferr.New(fferr.MalformedImage, "F86 track table truncated")
			}
			lengthBits := int(binary.LittleEndian.Uint32(raw[offset : offset+4]))
			formatted := raw[offset+4] != 0
			offset += f86TrackHdrLen

			if !formatted {
				continue
			}
			nbytes := (lengthBits + 7) / 8
			if offset+nbytes > len(raw) {
				return nil, fferr.New(fferr.MalformedImage, "F86 track data truncated")
			}
			bits, err := bitstream.NewBufferFromBits(raw[offset:offset+nbytes], lengthBits, encoding)
			if err != nil {
				return nil, fferr.Wrap(fferr.MalformedImage, "building F86 track bitstream", err)
			}
			offset += nbytes
			if err := img.SetTrack(disk.CH{Cylinder: c, Head: h}, disk.NewBitStreamTrack(bits)); err != nil {
				return nil, err
			}
		}
	}
	return img, nil
}

func (f86Parser) Save(img *disk.Image, w io.Writer) error {
	if img.Geometry.Cylinders <= 0 || img.Geometry.Heads <= 0 {
		return fferr.New(fferr.MalformedImage, "cannot save an image with zero cylinders or heads as F86")
	}

	header := make([]byte, f86HeaderLen)
	copy(header[0:8], f86Magic)
	binary.LittleEndian.PutUint16(header[8:10], uint16(img.Geometry.Cylinders))
	binary.LittleEndian.PutUint16(header[10:12], uint16(img.Geometry.Heads))
	binary.LittleEndian.PutUint16(header[12:14], uint16(img.Encoding))
	binary.LittleEndian.PutUint16(header[14:16], uint16(img.DataRateKb))
	binary.LittleEndian.PutUint16(header[16:18], uint16(img.RPM))
	if img.WriteProtect {
		header[18] = 1
	}
	if _, err := w.Write(header); err != nil {
		return fferr.Wrap(fferr.IoFailure, "writing F86 header", err)
	}

	for _, ch := range img.TrackCHIter() {
		t := img.Track(ch)
		trackHdr := make([]byte, f86TrackHdrLen)
		if t == nil {
			if _, err := w.Write(trackHdr); err != nil {
				return fferr.Wrap(fferr.IoFailure, "writing F86 track header", err)
			}
			continue
		}
		bits, err := t.ResolveBitStream()
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(trackHdr[0:4], uint32(bits.LengthBits()))
		trackHdr[4] = 1
		if _, err := w.Write(trackHdr); err != nil {
			return fferr.Wrap(fferr.IoFailure, "writing F86 track header", err)
		}
		if _, err := w.Write(bits.Bytes()); err != nil {
			return fferr.Wrap(fferr.IoFailure, "writing F86 track data", err)
		}
	}
	return nil
}
