package domain

import (
	"fmt"
	"time"
)

// CrawlMode selects between a full backfill and an incremental update.
type CrawlMode string

const (
	// CrawlAuto runs Initial until a channel's backfill has completed once and
	// Update afterwards.
	CrawlAuto CrawlMode = "auto"

	// CrawlInitial fetches every item with timestamp >= the minimum date.
	CrawlInitial CrawlMode = "initial"

	// CrawlUpdate fetches only items newer than the high-water mark.
	CrawlUpdate CrawlMode = "update"
)

// ParseCrawlMode validates a mode name. Empty means auto.
func ParseCrawlMode(s string) (CrawlMode, error) {
	switch m := CrawlMode(s); m {
	case "":
		return CrawlAuto, nil
	case CrawlAuto, CrawlInitial, CrawlUpdate:
		return m, nil
	default:
		return "", fmt.Errorf("%w: crawl mode %q", ErrInvalidInput, s)
	}
}

// CrawlCursor tells a fetch collaborator where to resume.
type CrawlCursor struct {
	// Mode is the resolved mode, never CrawlAuto.
	Mode CrawlMode

	// StartFrom is the high-water mark. Update mode yields only ids above it.
	StartFrom ItemID

	// ResumeBelow is the low-water mark of an Initial crawl: the walk
	// continues with ids below it. "0" starts at the newest item.
	ResumeBelow ItemID

	// MinDate bounds Initial mode scans.
	MinDate time.Time

	// Seen is a read-only view of seen ∪ skipped ids; fetchers may use it to
	// avoid downloading media for known items.
	Seen IDSet
}

// CrawlProgress is the persisted completion state of a channel's crawls.
type CrawlProgress struct {
	// InitialComplete is set once an Initial crawl has reached the minimum
	// date or the end of the channel.
	InitialComplete bool `json:"initialComplete"`

	// InitialCompletedAt is when the backfill finished.
	InitialCompletedAt time.Time `json:"initialCompletedAt,omitzero"`
}

// CrawlReport summarises one channel crawl.
type CrawlReport struct {
	Channel   string
	Mode      CrawlMode
	Batches   int
	Appended  int
	Skipped   int
	StartHWM  ItemID
	EndHWM    ItemID
	StartedAt time.Time
	Duration  time.Duration
	Err       error
}
