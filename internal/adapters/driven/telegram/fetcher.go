package telegram

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driven"
	"github.com/Deynao1996/missing-persons-finder/internal/logger"
)

// Verify interface compliance.
var (
	_ driven.ItemFetcher   = (*Fetcher)(nil)
	_ driven.BatchIterator = (*iterator)(nil)
)

// Fetcher pages through channel history via the bridge.
type Fetcher struct {
	client *Client
}

// NewFetcher creates a fetcher on top of a bridge client.
func NewFetcher(client *Client) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch opens a walk of the channel.
//
// Initial mode walks newest-first below the cursor's low-water mark (or from
// the newest message) and stops at the first message older than the minimum
// date. Seen messages are passed over.
//
// Update mode first pages down to the first message at or below the
// high-water mark, or the first seen one, and then yields what it found
// oldest-first. Every flushed batch is therefore newer than the previous
// one, and an interrupted update resumes without a gap.
func (f *Fetcher) Fetch(_ context.Context, channel string, cursor domain.CrawlCursor) (driven.BatchIterator, error) {
	if channel == "" {
		return nil, fmt.Errorf("%w: empty channel", domain.ErrInvalidInput)
	}

	hwm, _ := cursor.StartFrom.Numeric()
	it := &iterator{
		client:  f.client,
		channel: channel,
		cursor:  cursor,
		hwm:     hwm,
	}
	if cursor.Mode == domain.CrawlInitial {
		it.offsetID, _ = cursor.ResumeBelow.Numeric()
	}
	return it, nil
}

type iterator struct {
	client   *Client
	channel  string
	cursor   domain.CrawlCursor
	hwm      int64
	offsetID int64
	done     bool
	closed   bool

	// Update mode only: messages found above the high-water mark, oldest first.
	walked  bool
	pending []message
}

// Next returns the next non-empty batch of items.
func (it *iterator) Next(ctx context.Context) ([]domain.FetchedItem, error) {
	if it.closed {
		return nil, driven.ErrIteratorDone
	}
	if it.cursor.Mode == domain.CrawlUpdate {
		return it.nextAscending(ctx)
	}

	for !it.done {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		messages, err := it.client.history(ctx, it.channel, it.offsetID)
		if err != nil {
			return nil, err
		}
		if len(messages) == 0 {
			it.done = true
			break
		}

		batch, err := it.items(ctx, it.filter(messages))
		if err != nil {
			return nil, err
		}
		if len(batch) > 0 {
			return batch, nil
		}
	}
	return nil, driven.ErrIteratorDone
}

// nextAscending yields the update walk one page at a time, oldest first.
func (it *iterator) nextAscending(ctx context.Context) ([]domain.FetchedItem, error) {
	if !it.walked {
		messages, err := it.walk(ctx)
		if err != nil {
			return nil, err
		}
		slices.Reverse(messages)
		it.pending = messages
		it.walked = true
	}

	for len(it.pending) > 0 {
		n := min(it.client.pageSize, len(it.pending))
		batch, err := it.items(ctx, it.pending[:n])
		if err != nil {
			return nil, err
		}
		it.pending = it.pending[n:]
		if len(batch) > 0 {
			return batch, nil
		}
	}
	return nil, driven.ErrIteratorDone
}

// walk pages newest-first down to the update boundary.
func (it *iterator) walk(ctx context.Context) ([]message, error) {
	var out []message
	for !it.done {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		messages, err := it.client.history(ctx, it.channel, it.offsetID)
		if err != nil {
			return nil, err
		}
		if len(messages) == 0 {
			it.done = true
			break
		}
		out = append(out, it.filter(messages)...)
	}
	logger.Debug("%s: %d messages above %d", it.channel, len(out), it.hwm)
	return out, nil
}

// filter advances the offset over one page and drops seen messages. It ends
// the walk at the mode's boundary.
func (it *iterator) filter(messages []message) []message {
	startOffset := it.offsetID
	var out []message

	for _, m := range messages {
		if it.stopAt(m) {
			it.done = true
			break
		}
		it.offsetID = m.ID
		if it.cursor.Seen.Has(domain.NewNumericID(m.ID)) {
			continue
		}
		out = append(out, m)
	}

	// A page that did not move the offset would repeat forever.
	if it.offsetID == startOffset {
		it.done = true
	}
	return out
}

// items converts messages into fetched items, downloading their media.
// A rejected download marks the item; an outage fails the batch.
func (it *iterator) items(ctx context.Context, messages []message) ([]domain.FetchedItem, error) {
	batch := make([]domain.FetchedItem, 0, len(messages))
	for _, m := range messages {
		id := domain.NewNumericID(m.ID)
		item := domain.FetchedItem{
			ID:        id,
			Timestamp: m.timestamp(),
			URL:       domain.TelegramLink(it.channel, id),
			Text:      m.Text,
		}
		if m.HasMedia {
			image, err := it.client.media(ctx, it.channel, m.ID)
			switch {
			case err == nil:
				item.Image = image
			case ctx.Err() != nil:
				return nil, ctx.Err()
			case errors.Is(err, domain.ErrInvalidInput):
				logger.Debug("Media of %s/%d rejected: %v", it.channel, m.ID, err)
				item.Err = err
			default:
				return nil, fmt.Errorf("media of %s/%d: %w", it.channel, m.ID, err)
			}
		}
		batch = append(batch, item)
	}
	return batch, nil
}

func (it *iterator) stopAt(m message) bool {
	switch it.cursor.Mode {
	case domain.CrawlUpdate:
		return m.ID <= it.hwm || it.cursor.Seen.Has(domain.NewNumericID(m.ID))
	default:
		ts := m.timestamp()
		return !ts.IsZero() && ts.Before(it.cursor.MinDate)
	}
}

// Close marks the iterator exhausted.
func (it *iterator) Close() error {
	it.done = true
	it.closed = true
	return nil
}
