package ndjson

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
)

// legacyDateLayout is the uk-UA locale date written by the old web crawler.
const legacyDateLayout = "02.01.2006, 15:04:05"

// wireRecord is the on-disk form of a cache record.
type wireRecord struct {
	SourceID   domain.ItemID     `json:"sourceId"`
	FaceIndex  int               `json:"faceIndex"`
	Timestamp  time.Time         `json:"timestamp"`
	SourceURL  string            `json:"sourceUrl"`
	Descriptor domain.Descriptor `json:"descriptor,omitempty"`
	Text       string            `json:"text,omitempty"`
}

// readRecord accepts both the current and the legacy key sets.
type readRecord struct {
	SourceID   domain.ItemID     `json:"sourceId"`
	MsgID      domain.ItemID     `json:"msgId"`
	FaceIndex  int               `json:"faceIndex"`
	Timestamp  json.RawMessage   `json:"timestamp"`
	Date       json.RawMessage   `json:"date"`
	SourceURL  string            `json:"sourceUrl"`
	ImageURL   string            `json:"sourceImageUrl"`
	Link       string            `json:"link"`
	Descriptor domain.Descriptor `json:"descriptor"`
	Text       string            `json:"text"`
	Title      string            `json:"title"`
}

func encodeRecord(r domain.CacheRecord) wireRecord {
	return wireRecord{
		SourceID:   r.SourceID,
		FaceIndex:  r.FaceIndex,
		Timestamp:  r.Timestamp.UTC(),
		SourceURL:  r.SourceURL,
		Descriptor: r.Descriptor,
		Text:       r.Text,
	}
}

// decodeRecord parses one line. Errors wrap domain.ErrCacheCorruption.
func decodeRecord(line []byte) (domain.CacheRecord, error) {
	var raw readRecord
	if err := json.Unmarshal(line, &raw); err != nil {
		return domain.CacheRecord{}, fmt.Errorf("%w: %w", domain.ErrCacheCorruption, err)
	}

	rec := domain.CacheRecord{
		SourceID:   firstID(raw.SourceID, raw.MsgID),
		SourceURL:  firstString(raw.SourceURL, raw.Link, raw.ImageURL),
		FaceIndex:  raw.FaceIndex,
		Descriptor: raw.Descriptor,
		Text:       firstString(raw.Text, raw.Title),
	}
	if rec.SourceID.IsZero() {
		if id, ok := domain.ExtractItemID(rec.SourceURL); ok {
			rec.SourceID = id
		}
	}
	if rec.SourceID.IsZero() {
		return domain.CacheRecord{}, fmt.Errorf("%w: record without id", domain.ErrCacheCorruption)
	}

	ts := raw.Timestamp
	if len(ts) == 0 || string(ts) == "null" {
		ts = raw.Date
	}
	t, err := parseTimestamp(ts)
	if err != nil {
		return domain.CacheRecord{}, fmt.Errorf("%w: record %s: %w", domain.ErrCacheCorruption, rec.SourceID, err)
	}
	rec.Timestamp = t
	return rec, nil
}

// parseTimestamp accepts RFC 3339 strings, legacy locale strings and unix
// seconds. A missing timestamp is the zero time.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}
	if raw[0] != '"' {
		secs, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("timestamp %s: %w", raw, err)
		}
		return time.Unix(secs, 0).UTC(), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(legacyDateLayout, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func firstID(ids ...domain.ItemID) domain.ItemID {
	for _, id := range ids {
		if !id.IsZero() {
			return id
		}
	}
	return ""
}

func firstString(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
