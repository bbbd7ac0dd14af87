// Package disk implements the DiskImage aggregate: geometry, the track
// resolution tagged union (MetaSector/BitStream/FluxStream), standard
// format presets, and the sector-addressable API that format parsers and
// consumers use (spec §4.5). It is grounded on the teacher's hfe.ImageFormat
// enum and read/write pipeline, generalized from a single HFE-shaped disk
// model to the spec's resolution-polymorphic Track.
package disk

import "github.com/fluxfox-go/fluxfox/bitstream"

// Geometry is a disk's cylinder/head extent (spec §3: cylinders in
// [1, 86], heads in {1, 2} for this domain).
type Geometry struct {
	Cylinders int
	Heads     int
}

// Tracks returns the total number of track slots this geometry implies.
func (g Geometry) Tracks() int {
	return g.Cylinders * g.Heads
}

// Valid reports whether the geometry falls within the domain's supported
// range.
func (g Geometry) Valid() bool {
	return g.Cylinders >= 1 && g.Cylinders <= 86 && (g.Heads == 1 || g.Heads == 2)
}

// CH is a (cylinder, head) pair identifying one track slot.
type CH struct {
	Cylinder int
	Head     int
}

// slotIndex maps a CH to its linear slot index in cylinder-major,
// head-minor order (spec §4.5 track_ch_iter ordering).
func (g Geometry) slotIndex(ch CH) int {
	return ch.Cylinder*g.Heads + ch.Head
}

// ImageFormat describes the disk-wide resolved parameters a format parser
// or ImageBuilder fixes for an image (spec §4.5 image_format()).
type ImageFormat struct {
	Geometry   Geometry
	Encoding   bitstream.Encoding
	DataRateKb int
	RPM        int
	Creator    [8]byte
}
