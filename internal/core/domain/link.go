package domain

import (
	"fmt"
	"net/url"
	"strings"
)

const telegramHost = "t.me"

// TelegramLink builds the public deep link for a channel message.
func TelegramLink(channel string, id ItemID) string {
	return fmt.Sprintf("https://%s/%s/%s", telegramHost, channel, id)
}

// ParseTelegramLink splits a t.me message link into channel and message id.
func ParseTelegramLink(link string) (string, ItemID, bool) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Hostname() != telegramHost {
		return "", "", false
	}
	parts := pathSegments(u.Path)
	if len(parts) < 2 {
		return "", "", false
	}
	id := ItemID(parts[len(parts)-1])
	if _, ok := id.Numeric(); !ok {
		return "", "", false
	}
	return parts[0], id, true
}

// ExtractItemID derives the item id from a source URL.
// Telegram links yield the message number; other http(s) URLs yield the
// last non-empty path segment.
func ExtractItemID(link string) (ItemID, bool) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Hostname() == telegramHost {
		_, id, ok := ParseTelegramLink(link)
		return id, ok
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	parts := pathSegments(u.Path)
	if len(parts) == 0 {
		return "", false
	}
	return ItemID(parts[len(parts)-1]), true
}

// TrimTrailingSlash removes a single trailing slash from a URL.
func TrimTrailingSlash(link string) string {
	return strings.TrimSuffix(link, "/")
}

func pathSegments(p string) []string {
	var out []string
	for _, part := range strings.Split(p, "/") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
