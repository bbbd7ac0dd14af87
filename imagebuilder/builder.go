// Package imagebuilder implements the fluent, configuration-driven
// DiskImage constructor described in spec §4.6: a builder collecting
// resolution, geometry, creator tag, and a formatted flag, synthesizing
// the canonical IBM System/34 track layout when requested. It is
// grounded on the upstream ImageBuilder fluent chain
// (with_resolution/with_standard_format/with_creator_tag/with_formatted/
// build) and on the teacher's hfe package's track-synthesis conventions
// for gap-byte and sync-mark layout.
package imagebuilder

import (
	"github.com/fluxfox-go/fluxfox/bitstream"
	"github.com/fluxfox-go/fluxfox/codec/mfm"
	"github.com/fluxfox-go/fluxfox/config"
	"github.com/fluxfox-go/fluxfox/disk"
	"github.com/fluxfox-go/fluxfox/fferr"
	"github.com/fluxfox-go/fluxfox/sector"
)

// Builder collects configuration for a freshly synthesized DiskImage
// (spec §4.6).
type Builder struct {
	resolution disk.Resolution
	hasStd     bool
	std        disk.StandardFormat

	explicitGeometry disk.Geometry
	sectorsPerTrack  int
	sizeCode         byte
	dataRateKb       int
	rpm              int
	encoding         bitstream.Encoding
	hasExplicit      bool

	creatorTag string
	formatted  bool
}

// New creates an empty Builder.
func New() *Builder {
	return &Builder{resolution: disk.ResolutionBitStream}
}

// WithResolution sets the track resolution the built image will use.
func (b *Builder) WithResolution(r disk.Resolution) *Builder {
	b.resolution = r
	return b
}

// WithStandardFormat configures geometry/encoding/rate/rpm from a named
// preset.
func (b *Builder) WithStandardFormat(f disk.StandardFormat) *Builder {
	b.hasStd = true
	b.std = f
	return b
}

// WithExplicitGeometry configures an arbitrary geometry instead of a
// standard preset (spec §4.6: "standard geometry preset or explicit
// (C,H,S,N,rate,rpm)").
func (b *Builder) WithExplicitGeometry(g disk.Geometry, sectorsPerTrack int, sizeCode byte, dataRateKb, rpm int, encoding bitstream.Encoding) *Builder {
	b.hasExplicit = true
	b.explicitGeometry = g
	b.sectorsPerTrack = sectorsPerTrack
	b.sizeCode = sizeCode
	b.dataRateKb = dataRateKb
	b.rpm = rpm
	b.encoding = encoding
	return b
}

// WithConfigPreset configures geometry/encoding/rate/rpm from a
// TOML-defined config.FormatPreset (spec §10.3) instead of a compiled-in
// disk.StandardFormat, letting site-local geometries reach the builder
// without a Go code change.
func (b *Builder) WithConfigPreset(p config.FormatPreset) (*Builder, error) {
	spec, err := p.Spec()
	if err != nil {
		return b, err
	}
	b.WithExplicitGeometry(
		disk.Geometry{Cylinders: spec.Cylinders, Heads: spec.Heads},
		spec.SectorsPerTrk, spec.SectorSizeCode, spec.DataRateKb, spec.RPM, spec.Encoding,
	)
	return b, nil
}

// WithConfigDefaults applies a config.Config's builder defaults (creator
// tag, resolution). Call it before any WithCreatorTag/WithResolution in
// the chain, since later calls in a fluent chain always win over
// earlier ones.
func (b *Builder) WithConfigDefaults(c *config.Config) (*Builder, error) {
	res, err := c.Builder.Resolution()
	if err != nil {
		return b, err
	}
	b.creatorTag = c.Builder.DefaultCreatorTag
	b.resolution = res
	return b, nil
}

// WithCreatorTag sets the creator tag (spec §6: exactly 8 bytes,
// right-padded with 0x20 if shorter).
func (b *Builder) WithCreatorTag(tag string) *Builder {
	b.creatorTag = tag
	return b
}

// WithFormatted sets whether the builder synthesizes the canonical IBM
// System/34 track layout (spec §4.6).
func (b *Builder) WithFormatted(formatted bool) *Builder {
	b.formatted = formatted
	return b
}

// resolvedSpec returns the geometry/encoding tuple to build from, whether
// from a standard preset or explicit configuration.
func (b *Builder) resolvedSpec() (disk.StandardFormatSpec, disk.Geometry, bool) {
	if b.hasStd {
		s := b.std.Spec()
		return s, disk.Geometry{Cylinders: s.Cylinders, Heads: s.Heads}, true
	}
	if b.hasExplicit {
		return disk.StandardFormatSpec{
			Cylinders:      b.explicitGeometry.Cylinders,
			Heads:          b.explicitGeometry.Heads,
			SectorsPerTrk:  b.sectorsPerTrack,
			SectorSizeCode: b.sizeCode,
			DataRateKb:     b.dataRateKb,
			RPM:            b.rpm,
			Encoding:       b.encoding,
		}, b.explicitGeometry, true
	}
	return disk.StandardFormatSpec{}, disk.Geometry{}, false
}

// Build finalizes the configuration into a DiskImage, returning
// fferr.BuilderInvalid if required fields are missing (spec §7).
func (b *Builder) Build() (*disk.Image, error) {
	spec, geometry, ok := b.resolvedSpec()
	if !ok {
		return nil, fferr.New(fferr.BuilderInvalid, "no standard format or explicit geometry configured")
	}
	if !geometry.Valid() {
		return nil, fferr.New(fferr.BuilderInvalid, "geometry outside supported domain (cylinders 1-86, heads 1-2)")
	}

	img := disk.New(geometry, spec.Encoding, spec.DataRateKb, spec.RPM)
	if b.creatorTag != "" {
		img.SetCreatorTag(b.creatorTag)
	}

	for c := 0; c < geometry.Cylinders; c++ {
		for h := 0; h < geometry.Heads; h++ {
			ch := disk.CH{Cylinder: c, Head: h}
			track, err := b.buildTrack(spec, c, h)
			if err != nil {
				return nil, err
			}
			if err := img.SetTrack(ch, track); err != nil {
				return nil, err
			}
		}
	}

	return img, nil
}

func (b *Builder) buildTrack(spec disk.StandardFormatSpec, cylinder, head int) (*disk.Track, error) {
	switch b.resolution {
	case disk.ResolutionMetaSector:
		entries := make([]disk.MetaSectorEntry, spec.SectorsPerTrk)
		for s := 0; s < spec.SectorsPerTrk; s++ {
			chsn := sector.CHSN{Cylinder: byte(cylinder), Head: byte(head), Sector: byte(s + 1), SizeCode: spec.SectorSizeCode}
			status := sector.StatusUnchecked
			if b.formatted {
				status = sector.StatusGood
			}
			entries[s] = disk.MetaSectorEntry{CHSN: chsn, Data: make([]byte, chsn.DataLength()), Status: status}
		}
		return disk.NewMetaSectorTrack(entries), nil
	case disk.ResolutionBitStream:
		if !b.formatted {
			lengthBits := nominalTrackBits(spec)
			return disk.NewBitStreamTrack(bitstream.NewBuffer(lengthBits, spec.Encoding)), nil
		}
		if spec.Encoding != bitstream.MFM {
			return nil, fferr.New(fferr.BuilderInvalid, "formatted track synthesis only implements the IBM System/34 MFM layout")
		}
		buf := synthesizeTrack(spec, cylinder, head)
		return disk.NewBitStreamTrack(buf), nil
	default:
		return nil, fferr.New(fferr.BuilderInvalid, "FluxStream resolution is not directly buildable; build BitStream and convert")
	}
}

// nominalTrackBits estimates an unformatted track's bit length from its
// sector count and size, the way a real drive's track capacity is
// dominated by its data content plus gaps.
func nominalTrackBits(spec disk.StandardFormatSpec) int {
	sectorBytes := 128 << spec.SectorSizeCode
	perSectorOverhead := 12 + 3 + 1 + 4 + 2 + 22 + 12 + 3 + 1 + 2 // IDAM+gap+DAM overhead, excl. data and inter-sector gap
	total := 80 + spec.SectorsPerTrk*(perSectorOverhead+sectorBytes+54)
	return total * 16
}

// synthesizeTrack emits the canonical IBM System/34 track layout named in
// spec §4.6: an 80-byte index gap of 0x4E, then per sector {12x0x00,
// 3x0xA1-with-clock-violation, 0xFE, CHSN, CRC-16, 22x0x4E, 12x0x00,
// 3x0xA1, 0xFB, N-byte zero data, CRC-16, 54x0x4E}, followed by track-tail
// 0x4E padding to the nominal bit count.
func synthesizeTrack(spec disk.StandardFormatSpec, cylinder, head int) *bitstream.Buffer {
	lengthBits := nominalTrackBits(spec)
	buf := bitstream.NewBuffer(lengthBits, spec.Encoding)
	enc := mfm.NewEncoder(buf, 0)

	enc.WriteGap(80, 0x4E)

	for s := 0; s < spec.SectorsPerTrk; s++ {
		chsn := []byte{byte(cylinder), byte(head), byte(s + 1), spec.SectorSizeCode}

		enc.WriteGap(12, 0x00)
		enc.WriteSyncMark()
		enc.WriteByte(0xFE)
		enc.WriteBytes(chsn)
		idamCRC := sector.CRC16(sector.CRC16Byte(sector.IDAMHeaderCRCSeed, 0xFE), chsn)
		enc.WriteByte(byte(idamCRC >> 8))
		enc.WriteByte(byte(idamCRC))

		enc.WriteGap(22, 0x4E)
		enc.WriteGap(12, 0x00)
		enc.WriteSyncMark()
		enc.WriteByte(0xFB)

		dataLen := 128 << chsn[3]
		zeros := make([]byte, dataLen)
		enc.WriteBytes(zeros)
		dataCRC := sector.CRC16(sector.CRC16Byte(sector.IDAMHeaderCRCSeed, 0xFB), zeros)
		enc.WriteByte(byte(dataCRC >> 8))
		enc.WriteByte(byte(dataCRC))

		enc.WriteGap(54, 0x4E)
	}

	for enc.Cursor()+16 <= lengthBits {
		enc.WriteByte(0x4E)
	}

	return buf
}
