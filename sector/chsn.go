package sector

// CHSN addresses a sector by Cylinder, Head, Sector-ID, and size code N,
// where the sector's byte length is 128 * 2^N (spec §3).
type CHSN struct {
	Cylinder byte
	Head     byte
	Sector   byte
	SizeCode byte
}

// DataLength returns the declared sector data length in bytes.
func (c CHSN) DataLength() int {
	return 128 << c.SizeCode
}

// Query is a CHSN lookup with any subset of fields specified; nil fields
// are wildcards (spec §4.4).
type Query struct {
	Cylinder *byte
	Head     *byte
	Sector   *byte
	SizeCode *byte
}

// ByCHSN builds a fully-specified query matching exactly one CHSN.
func ByCHSN(c CHSN) Query {
	cyl, head, sec, size := c.Cylinder, c.Head, c.Sector, c.SizeCode
	return Query{Cylinder: &cyl, Head: &head, Sector: &sec, SizeCode: &size}
}

// Matches reports whether c satisfies every specified (non-wildcard)
// field of q.
func (q Query) Matches(c CHSN) bool {
	if q.Cylinder != nil && *q.Cylinder != c.Cylinder {
		return false
	}
	if q.Head != nil && *q.Head != c.Head {
		return false
	}
	if q.Sector != nil && *q.Sector != c.Sector {
		return false
	}
	if q.SizeCode != nil && *q.SizeCode != c.SizeCode {
		return false
	}
	return true
}

// Status is the verification state of a sector's stored CRC (spec §3).
type Status int

const (
	StatusUnchecked Status = iota
	StatusGood
	StatusBad
)

func (s Status) String() string {
	switch s {
	case StatusGood:
		return "Good"
	case StatusBad:
		return "Bad"
	default:
		return "Unchecked"
	}
}
