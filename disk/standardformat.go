package disk

import "github.com/fluxfox-go/fluxfox/bitstream"

// StandardFormat names a geometry preset with fixed encoding, data rate
// and RPM (spec §6, GLOSSARY). Grounded on the teacher's hfe.ImageFormat
// enum's role as a closed set of named, recognizable disk shapes.
type StandardFormat int

const (
	PcFloppy160 StandardFormat = iota
	PcFloppy180
	PcFloppy320
	PcFloppy360
	PcFloppy720
	PcFloppy1200
	PcFloppy1440
	PcFloppy2880
)

func (f StandardFormat) String() string {
	switch f {
	case PcFloppy160:
		return "PcFloppy160"
	case PcFloppy180:
		return "PcFloppy180"
	case PcFloppy320:
		return "PcFloppy320"
	case PcFloppy360:
		return "PcFloppy360"
	case PcFloppy720:
		return "PcFloppy720"
	case PcFloppy1200:
		return "PcFloppy1200"
	case PcFloppy1440:
		return "PcFloppy1440"
	case PcFloppy2880:
		return "PcFloppy2880"
	default:
		return "Unknown"
	}
}

// StandardFormatSpec is the fixed (cylinders, heads, sectors/track,
// sector size, data rate, rpm, encoding) tuple a preset resolves to.
type StandardFormatSpec struct {
	Cylinders      int
	Heads          int
	SectorsPerTrk  int
	SectorSizeCode byte // N, where sector size = 128 * 2^N
	DataRateKb     int
	RPM            int
	Encoding       bitstream.Encoding
}

// standardFormatTable lists the presets named in spec §6. Capacities not
// literally spelled out there (160/180/320/720/2880) are derived the way
// period PC floppy geometries actually are: single vs double-sided and
// 8 vs 9 sectors/track at the 360K/720K data rate tiers, and the
// 1.44M/2.88M tiers at the higher data rates.
var standardFormatTable = map[StandardFormat]StandardFormatSpec{
	PcFloppy160:  {Cylinders: 40, Heads: 1, SectorsPerTrk: 8, SectorSizeCode: 2, DataRateKb: 250, RPM: 300, Encoding: bitstream.MFM},
	PcFloppy180:  {Cylinders: 40, Heads: 1, SectorsPerTrk: 9, SectorSizeCode: 2, DataRateKb: 250, RPM: 300, Encoding: bitstream.MFM},
	PcFloppy320:  {Cylinders: 40, Heads: 2, SectorsPerTrk: 8, SectorSizeCode: 2, DataRateKb: 250, RPM: 300, Encoding: bitstream.MFM},
	PcFloppy360:  {Cylinders: 40, Heads: 2, SectorsPerTrk: 9, SectorSizeCode: 2, DataRateKb: 250, RPM: 300, Encoding: bitstream.MFM},
	PcFloppy720:  {Cylinders: 80, Heads: 2, SectorsPerTrk: 9, SectorSizeCode: 2, DataRateKb: 250, RPM: 300, Encoding: bitstream.MFM},
	PcFloppy1200: {Cylinders: 80, Heads: 2, SectorsPerTrk: 15, SectorSizeCode: 2, DataRateKb: 500, RPM: 360, Encoding: bitstream.MFM},
	PcFloppy1440: {Cylinders: 80, Heads: 2, SectorsPerTrk: 18, SectorSizeCode: 2, DataRateKb: 500, RPM: 300, Encoding: bitstream.MFM},
	PcFloppy2880: {Cylinders: 80, Heads: 2, SectorsPerTrk: 36, SectorSizeCode: 2, DataRateKb: 1000, RPM: 300, Encoding: bitstream.MFM},
}

// Spec returns the geometry/encoding tuple a preset resolves to.
func (f StandardFormat) Spec() StandardFormatSpec {
	return standardFormatTable[f]
}

// Geometry returns the preset's (cylinders, heads) pair.
func (f StandardFormat) Geometry() Geometry {
	s := f.Spec()
	return Geometry{Cylinders: s.Cylinders, Heads: s.Heads}
}

// TotalSectors returns cylinders * heads * sectors/track.
func (f StandardFormat) TotalSectors() int {
	s := f.Spec()
	return s.Cylinders * s.Heads * s.SectorsPerTrk
}
