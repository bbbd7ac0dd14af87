// Package fferr defines the error taxonomy shared by every layer of
// FluxFox, from bitstream decoding up through the DiskImage API.
package fferr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the error kinds a FluxFox operation can fail with.
type Kind int

const (
	// IoFailure indicates the underlying reader or writer failed.
	IoFailure Kind = iota
	// UnsupportedFormat indicates no registered parser matched the input.
	UnsupportedFormat
	// MalformedImage indicates a parser matched but structural invariants
	// of the image were violated (bad chunk, truncated track, impossible
	// geometry).
	MalformedImage
	// CrcMismatch is surfaced from a read when the caller requested strict
	// mode; otherwise CRC status is attached to the returned data instead.
	CrcMismatch
	// SectorNotFound indicates a lookup query matched no sector.
	SectorNotFound
	// AmbiguousQuery indicates a lookup query matched more than one sector
	// while the caller required a unique match.
	AmbiguousQuery
	// ResolutionMismatch indicates an operation required a track resolution
	// the track does not have (e.g. a flux query on a MetaSector track).
	ResolutionMismatch
	// BuilderInvalid indicates an ImageBuilder was finalized without its
	// required fields set.
	BuilderInvalid
)

func (k Kind) String() string {
	switch k {
	case IoFailure:
		return "io failure"
	case UnsupportedFormat:
		return "unsupported format"
	case MalformedImage:
		return "malformed image"
	case CrcMismatch:
		return "crc mismatch"
	case SectorNotFound:
		return "sector not found"
	case AmbiguousQuery:
		return "ambiguous query"
	case ResolutionMismatch:
		return "resolution mismatch"
	case BuilderInvalid:
		return "builder invalid"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned across the FluxFox API
// boundary. It carries a Kind for programmatic dispatch (errors.Is
// against the Sentinel values below) plus a wrapped cause and free-form
// context for the message.
type Error struct {
	Kind    Kind
	Context string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Context, e.cause)
	}
	if e.Context != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Context)
	}
	return e.Kind.String()
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As. errors.Cause
// strips the pkg/errors stack wrapper added by Wrap, so the chain reaches
// the original cause.
func (e *Error) Unwrap() error { return errors.Cause(e.cause) }

// Is reports whether target is a sentinel for the same Kind, so callers
// can write errors.Is(err, fferr.ErrSectorNotFound) instead of type-asserting.
func (e *Error) Is(target error) bool {
	if k, ok := target.(kindSentinel); ok {
		return e.Kind == Kind(k)
	}
	return false
}

// kindSentinel lets a bare Kind value act as an errors.Is target.
type kindSentinel Kind

func (k kindSentinel) Error() string { return Kind(k).String() }

// Sentinels usable with errors.Is(err, fferr.ErrSectorNotFound).
var (
	ErrIoFailure          error = kindSentinel(IoFailure)
	ErrUnsupportedFormat  error = kindSentinel(UnsupportedFormat)
	ErrMalformedImage     error = kindSentinel(MalformedImage)
	ErrCrcMismatch        error = kindSentinel(CrcMismatch)
	ErrSectorNotFound     error = kindSentinel(SectorNotFound)
	ErrAmbiguousQuery     error = kindSentinel(AmbiguousQuery)
	ErrResolutionMismatch error = kindSentinel(ResolutionMismatch)
	ErrBuilderInvalid     error = kindSentinel(BuilderInvalid)
)

// New builds an *Error with no wrapped cause.
func New(kind Kind, context string) *Error {
	return &Error{Kind: kind, Context: context}
}

// Wrap builds an *Error around an existing cause, using pkg/errors so the
// cause's stack trace (if any) survives across the parser/core boundary.
func Wrap(kind Kind, context string, cause error) *Error {
	if cause == nil {
		return New(kind, context)
	}
	return &Error{Kind: kind, Context: context, cause: errors.WithStack(cause)}
}
