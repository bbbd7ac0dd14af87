package disk

import (
	"github.com/fluxfox-go/fluxfox/bitstream"
	"github.com/fluxfox-go/fluxfox/fferr"
	"github.com/fluxfox-go/fluxfox/sector"
)

// Image is the owning aggregate described in spec §4.5: geometry,
// per-track entries, disk-wide metadata, and the sector-addressable API
// exposed to parsers and consumers. A missing track slot denotes an
// unformatted surface, not an error (spec §3 invariants).
type Image struct {
	Geometry     Geometry
	Encoding     bitstream.Encoding
	DataRateKb   int
	RPM          int
	CreatorTag   [8]byte
	WriteProtect bool
	SourceFormat string // e.g. "F86Image", "HFEImage"; empty for a freshly built image

	tracks []*Track // indexed by Geometry.slotIndex(CH)
}

// New creates an empty DiskImage with the given geometry; all track slots
// start unformatted (nil).
func New(geometry Geometry, encoding bitstream.Encoding, dataRateKb, rpm int) *Image {
	return &Image{
		Geometry:   geometry,
		Encoding:   encoding,
		DataRateKb: dataRateKb,
		RPM:        rpm,
		tracks:     make([]*Track, geometry.Tracks()),
	}
}

// SetCreatorTag sets the 8-byte creator tag, right-padding short tags
// with 0x20 (spec §6).
func (img *Image) SetCreatorTag(tag string) {
	var out [8]byte
	for i := range out {
		out[i] = ' '
	}
	copy(out[:], tag)
	img.CreatorTag = out
}

// Track returns the track at ch, or nil if that slot is unformatted.
func (img *Image) Track(ch CH) *Track {
	if !img.inBounds(ch) {
		return nil
	}
	return img.tracks[img.Geometry.slotIndex(ch)]
}

// SetTrack installs a track at ch, replacing whatever was there (spec §3:
// resolution upgrades produce a new track rather than mutating in place).
func (img *Image) SetTrack(ch CH, t *Track) error {
	if !img.inBounds(ch) {
		return fferr.New(fferr.MalformedImage, "track address out of geometry bounds")
	}
	img.tracks[img.Geometry.slotIndex(ch)] = t
	return nil
}

func (img *Image) inBounds(ch CH) bool {
	return ch.Cylinder >= 0 && ch.Cylinder < img.Geometry.Cylinders &&
		ch.Head >= 0 && ch.Head < img.Geometry.Heads
}

// TrackCHIter returns every (cylinder, head) pair in cylinder-major,
// head-minor order (spec §4.5), regardless of whether that slot is
// formatted.
func (img *Image) TrackCHIter() []CH {
	out := make([]CH, 0, img.Geometry.Tracks())
	for c := 0; c < img.Geometry.Cylinders; c++ {
		for h := 0; h < img.Geometry.Heads; h++ {
			out = append(out, CH{Cylinder: c, Head: h})
		}
	}
	return out
}

// ImageFormatInfo returns the disk-wide resolved parameters (spec §4.5
// image_format()).
func (img *Image) ImageFormatInfo() ImageFormat {
	return ImageFormat{
		Geometry:   img.Geometry,
		Encoding:   img.Encoding,
		DataRateKb: img.DataRateKb,
		RPM:        img.RPM,
		Creator:    img.CreatorTag,
	}
}

// ReadSector implements spec §4.5's read_sector: returns the decoded data
// bytes exactly as present in the bitstream (or MetaSector record), not
// recomputed, alongside CRC status.
func (img *Image) ReadSector(q sector.Query) ([]byte, sector.Status, error) {
	for _, ch := range img.TrackCHIter() {
		t := img.Track(ch)
		if t == nil {
			continue
		}
		data, status, err := readSectorFromTrack(t, q)
		if err == nil {
			return data, status, nil
		}
	}
	return nil, sector.StatusUnchecked, fferr.New(fferr.SectorNotFound, "no track contained a matching sector")
}

func readSectorFromTrack(t *Track, q sector.Query) ([]byte, sector.Status, error) {
	switch t.Resolution {
	case ResolutionMetaSector:
		for _, e := range t.MetaSector {
			if q.Matches(e.CHSN) {
				return e.Data, e.Status, nil
			}
		}
		return nil, sector.StatusUnchecked, fferr.New(fferr.SectorNotFound, "no matching MetaSector entry")
	case ResolutionBitStream, ResolutionFluxStream:
		idx, err := t.Index()
		if err != nil {
			return nil, sector.StatusUnchecked, err
		}
		entry, err := sector.FindSector(idx, q, 0)
		if err != nil {
			return nil, sector.StatusUnchecked, err
		}
		bits, err := t.ResolveBitStream()
		if err != nil {
			return nil, sector.StatusUnchecked, err
		}
		if entry.DamOffset < 0 {
			return nil, sector.StatusUnchecked, fferr.New(fferr.MalformedImage, "sector header has no data field")
		}
		data := make([]byte, entry.DataLength)
		dataBitOffset := entry.DamOffset + 16
		for i := range data {
			data[i] = ReadClockedByte(bits, dataBitOffset+i*16)
		}
		return data, entry.Status, nil
	default:
		return nil, sector.StatusUnchecked, fferr.New(fferr.ResolutionMismatch, "unknown track resolution")
	}
}
