package domain

import (
	"slices"
	"time"
)

// Default settings values.
const (
	DefaultMinSimilarity    = 0.5
	DefaultCrawlConcurrency = 2
	DefaultCacheRoot        = "data/telegram_cache"
	DefaultLedgerPath       = "data/search_results.json"
	DefaultHistoryPath      = "data/search_history.json"
	DefaultTelegramPageSize = 50
	DefaultRequestsPerSec   = 2.0
	DefaultBurst            = 5
	DefaultHTTPTimeout      = 30 * time.Second
)

// DefaultSearchFrom is the earliest capture date an initial crawl reaches.
var DefaultSearchFrom = time.Date(2022, time.April, 21, 0, 0, 0, 0, time.UTC)

// LedgerBackend selects where the review ledger and history are stored.
type LedgerBackend string

const (
	// LedgerJSON keeps the ledger and history in JSON files.
	LedgerJSON LedgerBackend = "json"

	// LedgerSQLite keeps the ledger and history in a SQLite database.
	LedgerSQLite LedgerBackend = "sqlite"
)

// Settings is the process configuration. It is created once at startup and
// passed to components by value; nothing mutates it afterwards.
type Settings struct {
	CacheRoot   string
	LedgerPath  string
	HistoryPath string

	LedgerBackend LedgerBackend
	SQLiteDir     string

	MinSimilarity    float64
	SearchFrom       time.Time
	CrawlConcurrency int

	// ExcludedChannels are never scanned by the match engine.
	ExcludedChannels []string

	Names VariantOptions

	Sources []SourceConfig

	Telegram   TelegramSettings
	Descriptor DescriptorSettings
	Web        WebSettings
}

// TelegramSettings configures the Telegram bridge client.
type TelegramSettings struct {
	BridgeURL         string
	PageSize          int
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// DescriptorSettings configures the face-descriptor service client.
type DescriptorSettings struct {
	URL     string
	Timeout time.Duration
}

// WebSettings configures the web listing fetcher.
type WebSettings struct {
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	UserAgent         string
}

// DefaultSettings returns settings with every default applied.
func DefaultSettings() Settings {
	return Settings{
		CacheRoot:        DefaultCacheRoot,
		LedgerPath:       DefaultLedgerPath,
		HistoryPath:      DefaultHistoryPath,
		LedgerBackend:    LedgerJSON,
		SQLiteDir:        "data",
		MinSimilarity:    DefaultMinSimilarity,
		SearchFrom:       DefaultSearchFrom,
		CrawlConcurrency: DefaultCrawlConcurrency,
		Telegram: TelegramSettings{
			PageSize:          DefaultTelegramPageSize,
			RequestsPerSecond: DefaultRequestsPerSec,
			Burst:             DefaultBurst,
			Timeout:           DefaultHTTPTimeout,
		},
		Descriptor: DescriptorSettings{
			Timeout: DefaultHTTPTimeout,
		},
		Web: WebSettings{
			RequestsPerSecond: DefaultRequestsPerSec,
			Burst:             DefaultBurst,
			Timeout:           20 * time.Second,
		},
	}
}

// Source returns the configured source with the given name.
func (s Settings) Source(name string) (SourceConfig, bool) {
	for _, src := range s.Sources {
		if src.Name == name {
			return src, true
		}
	}
	return SourceConfig{}, false
}

// IsExcluded reports whether a channel is on the global exclusion list.
func (s Settings) IsExcluded(channel string) bool {
	return slices.Contains(s.ExcludedChannels, channel)
}
