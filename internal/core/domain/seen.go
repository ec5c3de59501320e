package domain

import "slices"

// IDSet is an unordered set of item ids.
type IDSet map[ItemID]struct{}

// NewIDSet creates a set holding the given ids.
func NewIDSet(ids ...ItemID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts an id. Empty ids are ignored.
func (s IDSet) Add(id ItemID) {
	if id.IsZero() {
		return
	}
	s[id] = struct{}{}
}

// Has reports whether id is in the set. A nil set holds nothing.
func (s IDSet) Has(id ItemID) bool {
	_, ok := s[id]
	return ok
}

// Remove deletes an id.
func (s IDSet) Remove(id ItemID) {
	delete(s, id)
}

// Len returns the number of ids.
func (s IDSet) Len() int {
	return len(s)
}

// AddAll inserts every id of other.
func (s IDSet) AddAll(other IDSet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Union returns a new set with the ids of both sets.
func (s IDSet) Union(other IDSet) IDSet {
	out := make(IDSet, len(s)+len(other))
	out.AddAll(s)
	out.AddAll(other)
	return out
}

// Sorted returns the ids in ItemID order.
func (s IDSet) Sorted() []ItemID {
	out := make([]ItemID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.SortFunc(out, ItemID.Compare)
	return out
}

// Max returns the greatest id, or false for an empty set.
func (s IDSet) Max() (ItemID, bool) {
	var best ItemID
	found := false
	for id := range s {
		if !found || id.Compare(best) > 0 {
			best = id
			found = true
		}
	}
	return best, found
}

// Min returns the smallest id, or false for an empty set.
func (s IDSet) Min() (ItemID, bool) {
	var best ItemID
	found := false
	for id := range s {
		if !found || id.Compare(best) < 0 {
			best = id
			found = true
		}
	}
	return best, found
}

// SeenState is the persisted crawl progress of one channel.
type SeenState struct {
	// Channel is the channel the state belongs to.
	Channel string

	// SeenIDs holds every id ever written to the cache.
	SeenIDs IDSet

	// SkippedIDs holds ids fetched but rejected (no face, fetch failed).
	SkippedIDs IDSet

	// Progress records whether the initial backfill has finished.
	Progress CrawlProgress
}

// AllSeen returns SeenIDs ∪ SkippedIDs.
func (s SeenState) AllSeen() IDSet {
	return s.SeenIDs.Union(s.SkippedIDs)
}

// IsEmpty reports whether the channel has never been crawled.
func (s SeenState) IsEmpty() bool {
	return s.SeenIDs.Len() == 0 && s.SkippedIDs.Len() == 0
}

// HighWaterMark is max(SeenIDs ∪ SkippedIDs), or "0" for an empty state.
// It is the resume point for the next incremental crawl.
func (s SeenState) HighWaterMark() ItemID {
	if id, ok := s.AllSeen().Max(); ok {
		return id
	}
	return NewNumericID(0)
}

// LowWaterMark is min(SeenIDs ∪ SkippedIDs), or "0" for an empty state.
// An unfinished initial crawl resumes below it.
func (s SeenState) LowWaterMark() ItemID {
	if id, ok := s.AllSeen().Min(); ok {
		return id
	}
	return NewNumericID(0)
}
