package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Deynao1996/missing-persons-finder/internal/adapters/driven/ratelimit"
	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driven"
)

const (
	// MaxMediaBytes caps a single media download.
	MaxMediaBytes = 20 << 20

	// LookupChunk is the maximum number of ids per lookup request.
	LookupChunk = 100
)

// Verify interface compliance.
var _ driven.MessageLookup = (*Client)(nil)

// message is a bridge message.
type message struct {
	ID       int64  `json:"id"`
	Date     int64  `json:"date"`
	Text     string `json:"text"`
	HasMedia bool   `json:"hasMedia"`
}

type messagePage struct {
	Messages []message `json:"messages"`
}

// Client is a rate-limited Telegram bridge client.
type Client struct {
	baseURL  string
	pageSize int
	http     *ratelimit.Client
}

// NewClient creates a bridge client. A nil httpClient uses a default client
// with the configured timeout.
func NewClient(cfg domain.TelegramSettings, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(cfg.BridgeURL) == "" {
		return nil, fmt.Errorf("%w: telegram bridge_url is not configured", domain.ErrInvalidInput)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = domain.DefaultTelegramPageSize
	}

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	})

	return &Client{
		baseURL:  domain.TrimTrailingSlash(cfg.BridgeURL),
		pageSize: pageSize,
		http:     ratelimit.NewClient(httpClient, limiter, cfg.Timeout),
	}, nil
}

// Lookup fetches messages by id. Ids that are not numeric or no longer exist
// are omitted from the result.
func (c *Client) Lookup(ctx context.Context, channel string, ids []domain.ItemID) ([]domain.Message, error) {
	numeric := make([]string, 0, len(ids))
	for _, id := range ids {
		if n, ok := id.Numeric(); ok {
			numeric = append(numeric, strconv.FormatInt(n, 10))
		}
	}

	var out []domain.Message
	for start := 0; start < len(numeric); start += LookupChunk {
		end := min(start+LookupChunk, len(numeric))

		q := url.Values{}
		q.Set("ids", strings.Join(numeric[start:end], ","))

		var page messagePage
		if err := c.getJSON(ctx, c.messagesURL(channel, q), &page); err != nil {
			return nil, fmt.Errorf("lookup %s: %w", channel, err)
		}
		for _, m := range page.Messages {
			out = append(out, m.toDomain())
		}
	}
	return out, nil
}

// history returns one newest-first page of messages older than offsetID.
func (c *Client) history(ctx context.Context, channel string, offsetID int64) ([]message, error) {
	q := url.Values{}
	q.Set("offset_id", strconv.FormatInt(offsetID, 10))
	q.Set("limit", strconv.Itoa(c.pageSize))

	var page messagePage
	if err := c.getJSON(ctx, c.messagesURL(channel, q), &page); err != nil {
		return nil, fmt.Errorf("history %s: %w", channel, err)
	}
	return page.Messages, nil
}

// media downloads the image of a message. Returns nil without error when the
// message has no media. Media the bridge refuses with a 4xx status or that
// exceeds MaxMediaBytes wraps domain.ErrInvalidInput; outages wrap
// domain.ErrSourceUnavailable.
func (c *Client) media(ctx context.Context, channel string, id int64) ([]byte, error) {
	u := fmt.Sprintf("%s/channels/%s/messages/%d/media", c.baseURL, url.PathEscape(channel), id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := ratelimit.StatusError(resp); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return nil, nil
		case resp.StatusCode < http.StatusInternalServerError:
			return nil, fmt.Errorf("%w: media of message %d refused (status %d)", domain.ErrInvalidInput, id, resp.StatusCode)
		}
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxMediaBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read media: %w", domain.ErrSourceUnavailable, err)
	}
	if len(data) > MaxMediaBytes {
		return nil, fmt.Errorf("%w: media of message %d exceeds %d bytes", domain.ErrInvalidInput, id, MaxMediaBytes)
	}
	return data, nil
}

func (c *Client) messagesURL(channel string, q url.Values) string {
	return fmt.Sprintf("%s/channels/%s/messages?%s", c.baseURL, url.PathEscape(channel), q.Encode())
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := ratelimit.StatusError(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode response: %w", domain.ErrSourceUnavailable, err)
	}
	return nil
}

func (m message) toDomain() domain.Message {
	return domain.Message{
		ID:   domain.NewNumericID(m.ID),
		Text: m.Text,
		Date: m.timestamp(),
	}
}

func (m message) timestamp() time.Time {
	if m.Date == 0 {
		return time.Time{}
	}
	return time.Unix(m.Date, 0).UTC()
}
