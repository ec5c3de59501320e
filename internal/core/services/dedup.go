package services

import "github.com/Deynao1996/missing-persons-finder/internal/core/domain"

// ProcessNewItems filters a candidate batch down to records not yet cached.
//
// A candidate is dropped when its SourceID was already in seen at the start of
// the call, or when its (SourceID, FaceIndex) was already emitted by this call.
// Several faces of one new item are all kept. Emitted ids are added to seen,
// so a second call with the same batch returns nothing.
func ProcessNewItems(batch []domain.CacheRecord, seen domain.IDSet) []domain.CacheRecord {
	if len(batch) == 0 {
		return nil
	}

	emitted := make(map[domain.RecordKey]struct{}, len(batch))
	var out []domain.CacheRecord
	for _, rec := range batch {
		if rec.SourceID.IsZero() || seen.Has(rec.SourceID) {
			continue
		}
		key := rec.Key()
		if _, dup := emitted[key]; dup {
			continue
		}
		emitted[key] = struct{}{}
		out = append(out, rec)
	}

	for key := range emitted {
		seen.Add(key.SourceID)
	}
	return out
}
