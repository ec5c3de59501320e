package domain

import (
	"fmt"
	"strings"
)

// SourceType selects how a channel is fetched and what its records carry.
type SourceType string

const (
	// SourceTelegram is a Telegram channel cached as face descriptors.
	SourceTelegram SourceType = "telegram"

	// SourceWeb is a public website cached as text cards.
	SourceWeb SourceType = "web"
)

// ParseSourceType validates a configured source type.
func ParseSourceType(s string) (SourceType, error) {
	switch t := SourceType(strings.ToLower(strings.TrimSpace(s))); t {
	case SourceTelegram, SourceWeb:
		return t, nil
	case "":
		return SourceTelegram, nil
	default:
		return "", fmt.Errorf("%w: source type %q", ErrUnsupportedType, s)
	}
}

// IsFace reports whether the source produces face descriptor records.
func (t SourceType) IsFace() bool {
	return t == SourceTelegram
}

// SourceConfig describes one configured channel.
type SourceConfig struct {
	// Name is the channel name; also the cache directory name.
	Name string

	// Type selects the fetch collaborator.
	Type SourceType

	// BaseURL is the listing root for web sources.
	BaseURL string
}
