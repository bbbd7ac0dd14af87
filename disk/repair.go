package disk

import "github.com/fluxfox-go/fluxfox/sector"

// RepairCRCs implements spec §8 scenario 7's repair_crcs: for every
// sector on every BitStream/FluxStream track, recalculate its CRC with
// no override. MetaSector tracks carry no CRC-bearing bit encoding, so
// their entries are simply marked Good; there is nothing to recompute a
// checksum over.
func (img *Image) RepairCRCs() error {
	for _, ch := range img.TrackCHIter() {
		t := img.Track(ch)
		if t == nil {
			continue
		}
		switch t.Resolution {
		case ResolutionMetaSector:
			for i := range t.MetaSector {
				t.MetaSector[i].Status = sector.StatusGood
			}
		case ResolutionBitStream, ResolutionFluxStream:
			bits, err := t.ResolveBitStream()
			if err != nil {
				return err
			}
			idx, err := t.Index()
			if err != nil {
				return err
			}
			for i := range idx.Entries {
				entry := &idx.Entries[i]
				if entry.DamOffset < 0 {
					continue
				}
				if err := sector.RecalculateEntryCRC(bits, entry, img.Encoding, nil); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
