// Package logx provides the structured diagnostic logger for non-fatal
// notices. The sector index rebuild logs CRC mismatches (CrcMismatch) and
// format.Load traces its probes (ProbeAttempt); WeakBit and Dropout are
// not called by the flux decoder, so weak bits and PLL dropouts are not
// logged. These notices are never the caller-visible error channel,
// which callers must still check explicitly.
package logx

import (
	"os"

	"github.com/charmbracelet/log"
)

// L is the package-level diagnostic logger. Tests may redirect its output
// by swapping L.SetOutput.
var L = log.NewWithOptions(os.Stderr, log.Options{
	Prefix:          "fluxfox",
	ReportTimestamp: false,
})

// WeakBit logs a weak-bit notice discovered during flux-to-bit conversion.
func WeakBit(trackIndex int, bitOffset int) {
	L.Debug("weak bit", "track", trackIndex, "offset", bitOffset)
}

// Dropout logs a flux dropout (an interval exceeding the PLL clamp).
func Dropout(trackIndex int, bitOffset int) {
	L.Warn("flux dropout", "track", trackIndex, "offset", bitOffset)
}

// CrcMismatch logs a CRC mismatch discovered while rebuilding a sector
// index, before the caller ever asks for that sector.
func CrcMismatch(trackIndex int, chsn string) {
	L.Warn("crc mismatch", "track", trackIndex, "sector", chsn)
}

// ProbeAttempt traces a format-detector probe during DiskImage.Load.
func ProbeAttempt(name string, matched bool) {
	L.Debug("format probe", "parser", name, "matched", matched)
}
