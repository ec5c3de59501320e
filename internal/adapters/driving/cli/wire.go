package cli

import (
	"fmt"
	"path/filepath"

	"github.com/Deynao1996/missing-persons-finder/internal/adapters/driven/config/file"
	"github.com/Deynao1996/missing-persons-finder/internal/adapters/driven/descriptor"
	"github.com/Deynao1996/missing-persons-finder/internal/adapters/driven/storage/jsonfile"
	"github.com/Deynao1996/missing-persons-finder/internal/adapters/driven/storage/ndjson"
	"github.com/Deynao1996/missing-persons-finder/internal/adapters/driven/storage/sqlite"
	"github.com/Deynao1996/missing-persons-finder/internal/adapters/driven/telegram"
	"github.com/Deynao1996/missing-persons-finder/internal/adapters/driven/web"
	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driven"
	"github.com/Deynao1996/missing-persons-finder/internal/core/services"
	"github.com/Deynao1996/missing-persons-finder/internal/logger"
)

// wireServices loads the configuration and builds every service.
// Collaborators that are not configured are left out; the commands that need
// them report it.
func wireServices(dir string) error {
	cfg, err := file.NewConfigStore(dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	settings, err := cfg.Settings()
	if err != nil {
		return fmt.Errorf("config %s: %w", cfg.Path(), err)
	}
	logger.Debug("Loaded config from %s", cfg.Path())

	ledger, history, err := openLedger(settings)
	if err != nil {
		return err
	}
	reviews := services.NewReviewService(ledger, history)

	cache := ndjson.NewCacheStore(settings.CacheRoot)

	var extractor driven.DescriptorExtractor
	if settings.Descriptor.URL != "" {
		e, err := descriptor.NewExtractor(settings.Descriptor, nil)
		if err != nil {
			return err
		}
		extractor = e
	}

	fetchers := map[domain.SourceType]driven.ItemFetcher{
		domain.SourceWeb: web.NewFetcher(settings, nil),
	}
	var lookup driven.MessageLookup
	if settings.Telegram.BridgeURL != "" {
		client, err := telegram.NewClient(settings.Telegram, nil)
		if err != nil {
			return err
		}
		fetchers[domain.SourceTelegram] = telegram.NewFetcher(client)
		lookup = client
	}

	faces := services.NewFaceSearchService(cache, reviews, extractor, settings)
	if lookup != nil {
		faces.SetMessageLookup(lookup)
	}

	appSettings = settings
	cacheStore = cache
	reviewService = reviews
	faceSearcher = faces
	textSearcher = services.NewTextSearchService(cache, reviews, settings)
	crawlOrchestrator = services.NewCrawlOrchestrator(cache, fetchers, extractor, settings)
	return nil
}

// openLedger opens the review ledger and history for the configured backend.
func openLedger(settings domain.Settings) (driven.LedgerStore, driven.HistoryStore, error) {
	switch settings.LedgerBackend {
	case domain.LedgerSQLite:
		store, err := sqlite.NewStore(settings.SQLiteDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite ledger: %w", err)
		}
		closers = append(closers, store)
		logger.Debug("Ledger database: %s", store.Path())
		return store.LedgerStore(), store.HistoryStore(), nil
	default:
		logger.Debug("Ledger file: %s", filepath.Clean(settings.LedgerPath))
		return jsonfile.NewLedgerStore(settings.LedgerPath), jsonfile.NewHistoryStore(settings.HistoryPath), nil
	}
}
