package domain

import "slices"

// ChannelIDs maps channel name to message ids.
type ChannelIDs map[string][]ItemID

// QueryChannelIDs maps query id to per-channel message ids.
type QueryChannelIDs map[string]ChannelIDs

// ReviewLedger records, per query and channel, which message ids were ever
// matched (Searched), explicitly consumed (Reviewed), and still pending
// (Unreviewed).
//
// After every mutation: Unreviewed ∪ Reviewed ⊇ Searched, Reviewed and
// Unreviewed are disjoint, and every leaf slice is deduplicated and sorted.
type ReviewLedger struct {
	Searched   QueryChannelIDs `json:"searchedMessages"`
	Reviewed   QueryChannelIDs `json:"reviewedMessages"`
	Unreviewed QueryChannelIDs `json:"unreviewedMessages"`
}

// NewReviewLedger returns an empty ledger.
func NewReviewLedger() *ReviewLedger {
	return &ReviewLedger{
		Searched:   make(QueryChannelIDs),
		Reviewed:   make(QueryChannelIDs),
		Unreviewed: make(QueryChannelIDs),
	}
}

// RecordSearch merges matched ids into Searched and queues every id not yet
// reviewed into Unreviewed.
func (l *ReviewLedger) RecordSearch(queryID string, ids ChannelIDs) {
	l.ensure()
	for channel, newIDs := range ids {
		searched := NewIDSet(l.Searched.get(queryID, channel)...)
		reviewed := NewIDSet(l.Reviewed.get(queryID, channel)...)
		unreviewed := NewIDSet(l.Unreviewed.get(queryID, channel)...)

		for _, id := range newIDs {
			searched.Add(id)
			if !reviewed.Has(id) {
				unreviewed.Add(id)
			}
		}

		l.Searched.set(queryID, channel, searched.Sorted())
		l.Unreviewed.set(queryID, channel, unreviewed.Sorted())
	}
}

// MarkReviewed moves ids from Unreviewed to Reviewed. Marking an already
// reviewed id is a no-op.
func (l *ReviewLedger) MarkReviewed(queryID, channel string, ids []ItemID) {
	l.ensure()
	reviewed := NewIDSet(l.Reviewed.get(queryID, channel)...)
	unreviewed := NewIDSet(l.Unreviewed.get(queryID, channel)...)

	for _, id := range ids {
		reviewed.Add(id)
		unreviewed.Remove(id)
	}

	l.Reviewed.set(queryID, channel, reviewed.Sorted())
	l.Unreviewed.set(queryID, channel, unreviewed.Sorted())
}

// ReviewedIDs returns the reviewed set of one query and channel.
func (l *ReviewLedger) ReviewedIDs(queryID, channel string) IDSet {
	if l == nil {
		return IDSet{}
	}
	return NewIDSet(l.Reviewed.get(queryID, channel)...)
}

// Normalize restores the ledger invariants after loading foreign data:
// leaves are deduplicated and sorted, reviewed ids leave Unreviewed, and
// searched ids that are neither reviewed nor pending become pending.
func (l *ReviewLedger) Normalize() {
	l.ensure()
	for _, k := range l.keys() {
		searched := NewIDSet(l.Searched.get(k.queryID, k.channel)...)
		reviewed := NewIDSet(l.Reviewed.get(k.queryID, k.channel)...)
		unreviewed := NewIDSet(l.Unreviewed.get(k.queryID, k.channel)...)

		for id := range searched {
			if !reviewed.Has(id) {
				unreviewed.Add(id)
			}
		}
		for id := range reviewed {
			unreviewed.Remove(id)
		}

		l.Searched.setIfPresent(k.queryID, k.channel, searched)
		l.Reviewed.setIfPresent(k.queryID, k.channel, reviewed)
		l.Unreviewed.setIfPresent(k.queryID, k.channel, unreviewed)
	}
}

// Clone returns a deep copy of the ledger.
func (l *ReviewLedger) Clone() *ReviewLedger {
	out := NewReviewLedger()
	if l == nil {
		return out
	}
	out.Searched = l.Searched.clone()
	out.Reviewed = l.Reviewed.clone()
	out.Unreviewed = l.Unreviewed.clone()
	return out
}

func (l *ReviewLedger) ensure() {
	if l.Searched == nil {
		l.Searched = make(QueryChannelIDs)
	}
	if l.Reviewed == nil {
		l.Reviewed = make(QueryChannelIDs)
	}
	if l.Unreviewed == nil {
		l.Unreviewed = make(QueryChannelIDs)
	}
}

type ledgerKey struct {
	queryID string
	channel string
}

func (l *ReviewLedger) keys() []ledgerKey {
	seen := make(map[ledgerKey]struct{})
	var out []ledgerKey
	for _, m := range []QueryChannelIDs{l.Searched, l.Reviewed, l.Unreviewed} {
		for queryID, channels := range m {
			for channel := range channels {
				k := ledgerKey{queryID: queryID, channel: channel}
				if _, ok := seen[k]; !ok {
					seen[k] = struct{}{}
					out = append(out, k)
				}
			}
		}
	}
	return out
}

func (m QueryChannelIDs) get(queryID, channel string) []ItemID {
	ids, _ := m.get2(queryID, channel)
	return ids
}

func (m QueryChannelIDs) get2(queryID, channel string) ([]ItemID, bool) {
	channels, ok := m[queryID]
	if !ok {
		return nil, false
	}
	ids, ok := channels[channel]
	return ids, ok
}

func (m QueryChannelIDs) set(queryID, channel string, ids []ItemID) {
	channels, ok := m[queryID]
	if !ok {
		channels = make(ChannelIDs)
		m[queryID] = channels
	}
	channels[channel] = ids
}

// setIfPresent writes ids when the key already exists or ids is non-empty.
func (m QueryChannelIDs) setIfPresent(queryID, channel string, ids IDSet) {
	if _, ok := m.get2(queryID, channel); ok || ids.Len() > 0 {
		m.set(queryID, channel, ids.Sorted())
	}
}

func (m QueryChannelIDs) clone() QueryChannelIDs {
	out := make(QueryChannelIDs, len(m))
	for queryID, channels := range m {
		cc := make(ChannelIDs, len(channels))
		for channel, ids := range channels {
			cc[channel] = slices.Clone(ids)
		}
		out[queryID] = cc
	}
	return out
}
