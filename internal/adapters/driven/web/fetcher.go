package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/Deynao1996/missing-persons-finder/internal/adapters/driven/ratelimit"
	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driven"
	"github.com/Deynao1996/missing-persons-finder/internal/logger"
)

const (
	// DefaultUserAgent is sent when none is configured.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	// MaxPageBytes caps a single listing page.
	MaxPageBytes = 8 << 20
)

// Verify interface compliance.
var (
	_ driven.ItemFetcher   = (*Fetcher)(nil)
	_ driven.BatchIterator = (*iterator)(nil)
)

// Fetcher crawls listing sites, one base URL per channel.
type Fetcher struct {
	http      *ratelimit.Client
	baseURLs  map[string]string
	userAgent string
	now       func() time.Time
}

// NewFetcher creates a fetcher for the web sources in settings.
// A nil httpClient uses a default client with the configured page timeout.
func NewFetcher(settings domain.Settings, httpClient *http.Client) *Fetcher {
	baseURLs := make(map[string]string)
	for _, src := range settings.Sources {
		if src.Type == domain.SourceWeb {
			baseURLs[src.Name] = domain.TrimTrailingSlash(src.BaseURL)
		}
	}

	userAgent := settings.Web.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: settings.Web.RequestsPerSecond,
		Burst:             settings.Web.Burst,
	})

	return &Fetcher{
		http:      ratelimit.NewClient(httpClient, limiter, settings.Web.Timeout),
		baseURLs:  baseURLs,
		userAgent: userAgent,
		now:       time.Now,
	}
}

// Fetch opens a walk over the listing pages of a channel.
//
// Listing cards carry no date, so items are stamped with the fetch time.
// Initial mode passes over seen cards and reads every page. Update mode reads
// pages up to the first seen card and then yields them oldest-first, so an
// interrupted update never leaves unread cards below a flushed one.
func (f *Fetcher) Fetch(_ context.Context, channel string, cursor domain.CrawlCursor) (driven.BatchIterator, error) {
	base, ok := f.baseURLs[channel]
	if !ok {
		return nil, fmt.Errorf("%w: web source %q", domain.ErrNotFound, channel)
	}
	return &iterator{
		fetcher: f,
		base:    base,
		cursor:  cursor,
		page:    1,
	}, nil
}

// PageURL returns the listing URL of a 1-based page number.
func PageURL(base string, page int) string {
	if page <= 1 {
		return base + "/"
	}
	return fmt.Sprintf("%s/page/%d", base, page)
}

type iterator struct {
	fetcher   *Fetcher
	base      string
	cursor    domain.CrawlCursor
	page      int
	firstLink string
	done      bool
	closed    bool

	// Update mode only: new cards per page, oldest page first.
	walked  bool
	pending [][]domain.FetchedItem
}

// Next returns the next batch of new cards.
func (it *iterator) Next(ctx context.Context) ([]domain.FetchedItem, error) {
	if it.closed {
		return nil, driven.ErrIteratorDone
	}
	if it.cursor.Mode != domain.CrawlUpdate {
		return it.nextPage(ctx)
	}

	if !it.walked {
		for {
			batch, err := it.nextPage(ctx)
			if errors.Is(err, driven.ErrIteratorDone) {
				break
			}
			if err != nil {
				return nil, err
			}
			slices.Reverse(batch)
			it.pending = append(it.pending, batch)
		}
		slices.Reverse(it.pending)
		it.walked = true
	}
	if len(it.pending) == 0 {
		return nil, driven.ErrIteratorDone
	}
	batch := it.pending[0]
	it.pending = it.pending[1:]
	return batch, nil
}

// nextPage returns the items of the next listing page that has new cards.
func (it *iterator) nextPage(ctx context.Context) ([]domain.FetchedItem, error) {
	for !it.done {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageURL := PageURL(it.base, it.page)
		cards, err := it.fetcher.listing(ctx, pageURL)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) && it.page > 1 {
				it.done = true
				break
			}
			return nil, err
		}
		it.page++

		// Sites that redirect past-the-end pages to the front page repeat it.
		if len(cards) == 0 || cards[0].Link == it.firstLink {
			it.done = true
			break
		}
		if it.firstLink == "" {
			it.firstLink = cards[0].Link
		}

		batch := it.collect(cards)
		if len(batch) > 0 {
			return batch, nil
		}
	}
	return nil, driven.ErrIteratorDone
}

func (it *iterator) collect(cards []card) []domain.FetchedItem {
	fetchedAt := it.fetcher.now().UTC()

	var batch []domain.FetchedItem
	for _, c := range cards {
		id, ok := domain.ExtractItemID(c.Link)
		if !ok {
			logger.Debug("Card without id: %s", c.Link)
			continue
		}
		if it.cursor.Seen.Has(id) {
			if it.cursor.Mode == domain.CrawlUpdate {
				it.done = true
				break
			}
			continue
		}
		batch = append(batch, domain.FetchedItem{
			ID:        id,
			Timestamp: fetchedAt,
			URL:       c.Link,
			Text:      c.Title,
		})
	}
	return batch
}

// Close marks the iterator exhausted.
func (it *iterator) Close() error {
	it.done = true
	it.closed = true
	return nil
}

func (f *Fetcher) listing(ctx context.Context, pageURL string) ([]card, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := ratelimit.StatusError(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrSourceUnavailable, pageURL, err)
	}

	// Links resolve against the final URL after redirects.
	return parseCards(string(body), resp.Request.URL.String()), nil
}
