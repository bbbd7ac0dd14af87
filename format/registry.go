// Package format implements the format-detector registry and the
// concrete file-format parsers that sit outside the core as external
// collaborators (spec §1, §4.5, §6): they translate an on-disk byte
// layout into DiskImage track/sector builders and back. It is grounded
// on the teacher's adapter.registry.go registry-of-factories pattern and
// hfe.DetectImageFormat's probe-by-extension/signature approach.
package format

import (
	"bytes"
	"io"
	"os"

	"github.com/fluxfox-go/fluxfox/disk"
	"github.com/fluxfox-go/fluxfox/fferr"
	"github.com/fluxfox-go/fluxfox/internal/logx"
	"github.com/klauspost/compress/gzip"
)

// FileFormat names an on-disk container format a parser reads or writes
// (spec §12 supplement: distinct from disk.StandardFormat, which names a
// geometry preset rather than a container).
type FileFormat int

const (
	RawSectorImage FileFormat = iota
	F86Image
	HFEImage
)

func (f FileFormat) String() string {
	switch f {
	case RawSectorImage:
		return "RawSectorImage"
	case F86Image:
		return "F86Image"
	case HFEImage:
		return "HFEImage"
	default:
		return "Unknown"
	}
}

// tier orders FileFormat values for the fixed probe order spec §6
// requires: flux formats first, then bitstream, then sector.
func (f FileFormat) tier() int {
	switch f {
	case F86Image, HFEImage:
		return 0 // bitstream-resolution containers
	case RawSectorImage:
		return 1 // sector-resolution containers
	default:
		return 2
	}
}

// Parser is the format-detector probe + load/save contract (spec §6):
// "parsers expose a detect(first_N_bytes) -> bool predicate".
type Parser interface {
	Format() FileFormat
	Detect(firstBytes []byte) bool
	Load(r io.Reader) (*disk.Image, error)
	Save(img *disk.Image, w io.Writer) error
}

var registry []Parser

// Register adds a parser to the registry. Order of registration does not
// determine probe order; probe order is fixed by FileFormat.tier().
func Register(p Parser) {
	registry = append(registry, p)
}

func init() {
	Register(&rawSectorParser{})
	Register(&f86Parser{})
	Register(&hfeParser{})
}

// probeOrder returns the registered parsers sorted into the fixed,
// documented probe order (spec §6).
func probeOrder() []Parser {
	out := make([]Parser, len(registry))
	copy(out, registry)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Format().tier() < out[j-1].Format().tier(); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

const probeSize = 512

// Load probes the registered parsers in fixed order against the first
// bytes of r and dispatches to the first match (spec §4.5 load()).
// Parsers must not leak partially-written state: on error the loop moves
// to the next candidate rather than returning a half-built image.
func Load(r io.ReaderAt) (*disk.Image, error) {
	head := make([]byte, probeSize)
	n, err := r.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return nil, fferr.Wrap(fferr.IoFailure, "reading format-probe header", err)
	}
	head = head[:n]

	if len(head) >= 2 && head[0] == 0x1f && head[1] == 0x8b {
		return loadGzipped(r)
	}

	for _, p := range probeOrder() {
		matched := p.Detect(head)
		logx.ProbeAttempt(p.Format().String(), matched)
		if !matched {
			continue
		}
		img, err := p.Load(io.NewSectionReader(r, 0, 1<<62))
		if err != nil {
			continue
		}
		img.SourceFormat = p.Format().String()
		return img, nil
	}

	if size, ok := readerAtSize(r); ok {
		if f, ok := detectStandardFormatBySize(size); ok {
			img, err := LoadRawSector(io.NewSectionReader(r, 0, size), f)
			if err == nil {
				img.SourceFormat = RawSectorImage.String()
				return img, nil
			}
		}
	}

	return nil, fferr.New(fferr.UnsupportedFormat, "no registered parser matched the input")
}

// loadGzipped transparently decompresses a gzip-wrapped image (spec §8
// scenario 6: "flightyfox.adz (gzipped)") and reloads it through Load,
// so every registered parser gets gzip support for free rather than
// each parser handling it independently.
func loadGzipped(r io.ReaderAt) (*disk.Image, error) {
	gz, err := gzip.NewReader(io.NewSectionReader(r, 0, 1<<62))
	if err != nil {
		return nil, fferr.Wrap(fferr.MalformedImage, "opening gzip stream", err)
	}
	defer gz.Close()
	decompressed, err := io.ReadAll(gz)
	if err != nil {
		return nil, fferr.Wrap(fferr.MalformedImage, "decompressing gzip stream", err)
	}
	img, err := Load(bytes.NewReader(decompressed))
	if err != nil {
		return nil, err
	}
	img.SourceFormat = img.SourceFormat + " (gzip)"
	return img, nil
}

// readerAtSize extracts a total byte count from r when it exposes one,
// via the *bytes.Reader/*io.SectionReader Size() method or the *os.File
// Stat() method, to support RawSectorImage's size-based fallback
// detection (it has no magic number to probe).
func readerAtSize(r io.ReaderAt) (int64, bool) {
	if sized, ok := r.(interface{ Size() int64 }); ok {
		return sized.Size(), true
	}
	if st, ok := r.(interface{ Stat() (os.FileInfo, error) }); ok {
		if fi, err := st.Stat(); err == nil {
			return fi.Size(), true
		}
	}
	return 0, false
}

// Save dispatches to the parser registered for the requested format
// (spec §4.5 save()).
func Save(img *disk.Image, w io.Writer, f FileFormat) error {
	for _, p := range registry {
		if p.Format() == f {
			return p.Save(img, w)
		}
	}
	return fferr.New(fferr.UnsupportedFormat, "no parser registered for requested save format")
}
