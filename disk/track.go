package disk

import (
	"github.com/fluxfox-go/fluxfox/bitstream"
	"github.com/fluxfox-go/fluxfox/codec"
	"github.com/fluxfox-go/fluxfox/codec/fm"
	"github.com/fluxfox-go/fluxfox/codec/mfm"
	"github.com/fluxfox-go/fluxfox/fferr"
	"github.com/fluxfox-go/fluxfox/flux"
	"github.com/fluxfox-go/fluxfox/sector"
)

// Resolution is the abstraction level at which a track's data is stored
// (spec §3, §9). A track's resolution is fixed for its lifetime.
type Resolution int

const (
	ResolutionMetaSector Resolution = iota
	ResolutionBitStream
	ResolutionFluxStream
)

func (r Resolution) String() string {
	switch r {
	case ResolutionMetaSector:
		return "MetaSector"
	case ResolutionBitStream:
		return "BitStream"
	case ResolutionFluxStream:
		return "FluxStream"
	default:
		return "Unknown"
	}
}

// MetaSectorEntry is one ordered sector record for a MetaSector-resolution
// track: just the decoded bytes, no bit-level representation.
type MetaSectorEntry struct {
	CHSN    sector.CHSN
	Data    []byte
	Deleted bool
	Status  sector.Status
}

// Revolution is one revolution's worth of flux-transition timings
// (picoseconds from revolution start), for FluxStream-resolution tracks.
type Revolution struct {
	Transitions []uint64
}

// Track is a tagged variant over the three resolutions named in spec §3
// and §9. Exactly one of MetaSector, BitStream, or FluxStream is
// populated, selected by Resolution.
type Track struct {
	Resolution Resolution

	// MetaSector resolution.
	MetaSector []MetaSectorEntry

	// BitStream resolution.
	Bits     *bitstream.Buffer
	dirty    bool
	index    *sector.Index

	// FluxStream resolution.
	Revolutions  []Revolution
	FluxEncoding bitstream.Encoding
	cachedBits   *bitstream.Buffer
	nominalWidth float64 // picoseconds, used to derive the cached bitstream
	beta         float64
}

// NewMetaSectorTrack creates a MetaSector-resolution track from a list of
// sector records.
func NewMetaSectorTrack(entries []MetaSectorEntry) *Track {
	return &Track{Resolution: ResolutionMetaSector, MetaSector: entries}
}

// NewBitStreamTrack creates a BitStream-resolution track over an existing
// circular bit buffer. The sector index is built lazily on first query.
func NewBitStreamTrack(bits *bitstream.Buffer) *Track {
	return &Track{Resolution: ResolutionBitStream, Bits: bits, dirty: true}
}

// NewFluxStreamTrack creates a FluxStream-resolution track from one or
// more revolutions of flux timings.
func NewFluxStreamTrack(revolutions []Revolution, enc bitstream.Encoding, nominalBitcellWidthPs float64, beta float64) *Track {
	return &Track{Resolution: ResolutionFluxStream, Revolutions: revolutions, FluxEncoding: enc, nominalWidth: nominalBitcellWidthPs, beta: beta}
}

// newDecoderFor returns a StreamDecoder matched to the track's encoding.
func newDecoderFor(enc bitstream.Encoding) codec.StreamDecoder {
	if enc == bitstream.FM {
		return fm.NewDecoder(4)
	}
	return mfm.NewDecoder(4)
}

// MarkDirty invalidates a BitStream track's sector index; the next query
// rebuilds it (spec §5, §9: lazy sector index via a dirty flag).
func (t *Track) MarkDirty() {
	t.dirty = true
}

// Index returns the track's sector index, rebuilding it first if dirty.
// Valid for BitStream and FluxStream resolutions; a FluxStream track's
// canonical bitstream is resolved (and cached) first, per spec §3.
func (t *Track) Index() (*sector.Index, error) {
	bits, err := t.ResolveBitStream()
	if err != nil {
		return nil, err
	}
	if t.dirty || t.index == nil {
		idx, err := sector.BuildIndex(bits, newDecoderFor(bits.Encoding()))
		if err != nil {
			return nil, fferr.Wrap(fferr.MalformedImage, "rebuilding sector index", err)
		}
		t.index = idx
		t.dirty = false
	}
	return t.index, nil
}

// WriteBits mutates the underlying bit buffer and marks the index dirty,
// per spec §4.1's write_bits contract.
func (t *Track) WriteBits(i int, bits uint64, n int) error {
	if t.Resolution != ResolutionBitStream {
		return fferr.New(fferr.ResolutionMismatch, "write_bits requires BitStream resolution")
	}
	t.Bits.WriteBits(i, bits, n)
	t.MarkDirty()
	return nil
}

// CacheBitStream computes and caches the canonical bitstream for a
// FluxStream track (spec §3), concatenating spliced revolutions per
// spec §4.2's edge case before decoding.
func (t *Track) CacheBitStream(nominalRotationPs uint64) (*bitstream.Buffer, error) {
	if t.Resolution != ResolutionFluxStream {
		return nil, fferr.New(fferr.ResolutionMismatch, "CacheBitStream requires FluxStream resolution")
	}
	if t.cachedBits != nil {
		return t.cachedBits, nil
	}
	if len(t.Revolutions) == 0 {
		return nil, fferr.New(fferr.MalformedImage, "FluxStream track has no revolutions")
	}

	transitions := t.Revolutions[0].Transitions
	for i := 0; i+1 < len(t.Revolutions); i++ {
		var last uint64
		if len(transitions) > 0 {
			last = transitions[len(transitions)-1]
		}
		if !flux.IsSplice(last, nominalRotationPs) {
			break
		}
		transitions = flux.ConcatTransitions(transitions, t.Revolutions[i+1].Transitions)
	}

	buf := flux.DecodeRevolution(transitions, t.nominalWidth, t.beta, t.FluxEncoding)
	t.cachedBits = buf
	t.dirty = true
	return buf, nil
}

// ResolveBitStream returns the track's bit buffer, computing and caching
// it on demand for FluxStream tracks (spec §3: "a canonical bitstream is
// computed on demand and cached").
func (t *Track) ResolveBitStream() (*bitstream.Buffer, error) {
	switch t.Resolution {
	case ResolutionBitStream:
		return t.Bits, nil
	case ResolutionFluxStream:
		return t.CacheBitStream(0)
	default:
		return nil, fferr.New(fferr.ResolutionMismatch, "operation requires BitStream or FluxStream resolution")
	}
}
