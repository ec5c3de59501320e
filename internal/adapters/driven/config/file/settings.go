package file

import (
	"fmt"
	"time"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
)

// Settings projects the file onto domain.Settings. Keys that are absent keep
// their defaults; invalid values are rejected.
//
//nolint:gocyclo // Flat list of optional keys
func (s *ConfigStore) Settings() (domain.Settings, error) {
	st := domain.DefaultSettings()

	if v := s.GetString("cache_root"); v != "" {
		st.CacheRoot = v
	}
	if v := s.GetString("ledger_path"); v != "" {
		st.LedgerPath = v
	}
	if v := s.GetString("history_path"); v != "" {
		st.HistoryPath = v
	}
	if v := s.GetString("sqlite_dir"); v != "" {
		st.SQLiteDir = v
	}
	switch backend := domain.LedgerBackend(s.GetString("ledger_backend")); backend {
	case "":
	case domain.LedgerJSON, domain.LedgerSQLite:
		st.LedgerBackend = backend
	default:
		return st, fmt.Errorf("%w: ledger_backend %q", domain.ErrInvalidInput, backend)
	}

	if v, ok := s.GetFloat("min_similarity"); ok {
		st.MinSimilarity = v
	}
	from, ok, err := s.GetDate("search_from")
	if err != nil {
		return st, err
	}
	if ok {
		st.SearchFrom = from
	}
	if v := s.GetInt("crawl_concurrency"); v > 0 {
		st.CrawlConcurrency = v
	}
	st.ExcludedChannels = s.GetStringSlice("excluded_channels")

	st.Names = domain.VariantOptions{
		IncludeInitials:    s.GetBool("names.include_initials"),
		IncludeFemaleForms: s.GetBool("names.include_female_forms"),
		IncludeReversed:    s.GetBool("names.include_reversed"),
	}

	st.Telegram.BridgeURL = s.GetString("telegram.bridge_url")
	if v := s.GetInt("telegram.page_size"); v > 0 {
		st.Telegram.PageSize = v
	}
	if v, ok := s.GetFloat("telegram.requests_per_second"); ok && v > 0 {
		st.Telegram.RequestsPerSecond = v
	}
	if v := s.GetInt("telegram.burst"); v > 0 {
		st.Telegram.Burst = v
	}
	if v := s.GetInt("telegram.timeout_seconds"); v > 0 {
		st.Telegram.Timeout = time.Duration(v) * time.Second
	}

	st.Descriptor.URL = s.GetString("descriptor.url")
	if v := s.GetInt("descriptor.timeout_seconds"); v > 0 {
		st.Descriptor.Timeout = time.Duration(v) * time.Second
	}

	if v := s.GetInt("web.page_timeout_seconds"); v > 0 {
		st.Web.Timeout = time.Duration(v) * time.Second
	}
	if v, ok := s.GetFloat("web.requests_per_second"); ok && v > 0 {
		st.Web.RequestsPerSecond = v
	}
	if v := s.GetInt("web.burst"); v > 0 {
		st.Web.Burst = v
	}
	if v := s.GetString("web.user_agent"); v != "" {
		st.Web.UserAgent = v
	}

	sources, err := s.sources()
	if err != nil {
		return st, err
	}
	st.Sources = sources
	return st, nil
}

// sources reads the [[sources]] array of tables.
func (s *ConfigStore) sources() ([]domain.SourceConfig, error) {
	val, ok := s.Get("sources")
	if !ok {
		return nil, nil
	}
	tables, ok := val.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: sources must be an array of tables", domain.ErrInvalidInput)
	}

	seen := make(map[string]bool, len(tables))
	out := make([]domain.SourceConfig, 0, len(tables))
	for i, item := range tables {
		table, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: sources[%d] is not a table", domain.ErrInvalidInput, i)
		}
		name, _ := table["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("%w: sources[%d] has no name", domain.ErrInvalidInput, i)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate source %q", domain.ErrInvalidInput, name)
		}
		seen[name] = true

		typeName, _ := table["type"].(string)
		sourceType, err := domain.ParseSourceType(typeName)
		if err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		baseURL, _ := table["base_url"].(string)
		if sourceType == domain.SourceWeb && baseURL == "" {
			return nil, fmt.Errorf("%w: web source %q needs base_url", domain.ErrInvalidInput, name)
		}

		out = append(out, domain.SourceConfig{
			Name:    name,
			Type:    sourceType,
			BaseURL: domain.TrimTrailingSlash(baseURL),
		})
	}
	return out, nil
}
