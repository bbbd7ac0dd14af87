package flux

import "github.com/fluxfox-go/fluxfox/bitstream"

// GenerateTransitions converts a bit buffer into flux-transition times,
// the inverse of DecodeRevolution. It is adapted from the teacher's
// mfm.GenerateFluxTransitions, generalized from a fixed bitRateKhz
// parameter to an explicit bitcell width so it composes with any
// StandardFormat's derived geometry.
func GenerateTransitions(buf *bitstream.Buffer, bitcellWidthPs uint64) []uint64 {
	n := buf.LengthBits()
	if n == 0 {
		return nil
	}

	var transitions []uint64
	currentTime := uint64(0)
	for i := 0; i < n; i++ {
		currentTime += bitcellWidthPs
		if buf.ReadBit(i) != 0 {
			transitions = append(transitions, currentTime)
		}
	}
	return transitions
}

// CoverFullRotation extends transitions to span a full nominal rotation
// period, padding with one transition every two bitcells the way a
// trailing run of MFM zeros would, so downstream flux-format writers
// (SCP, KryoFlux) see a complete revolution rather than a truncated one.
func CoverFullRotation(transitions []uint64, bitcellWidthPs uint64, rotationDurationPs uint64) []uint64 {
	twoBitcell := 2 * bitcellWidthPs

	lastTime := uint64(0)
	if len(transitions) > 0 {
		lastTime = transitions[len(transitions)-1]
	}

	currentTime := lastTime
	for currentTime+twoBitcell <= rotationDurationPs {
		currentTime += twoBitcell
		transitions = append(transitions, currentTime)
	}
	return transitions
}

// BitcellWidthPs derives the nominal bitcell width in picoseconds from a
// data rate in kbps (as the teacher's pll.NewDecoder derives PeriodIdeal
// from bitRateKhz, here kept at picosecond rather than nanosecond
// resolution to match the rest of this package).
func BitcellWidthPs(dataRateKbps uint32) uint64 {
	bitRateBps := float64(dataRateKbps) * 1000.0 * 2
	return uint64(1e12 / bitRateBps)
}

// RotationDurationPs derives a full revolution's nominal duration in
// picoseconds from drive RPM.
func RotationDurationPs(rpm uint16) uint64 {
	return uint64(60e12 / float64(rpm))
}
