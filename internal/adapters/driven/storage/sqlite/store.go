package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Deynao1996/missing-persons-finder/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driven"
)

// dbFile is the database file name inside the data directory.
const dbFile = "mpfinder.db"

// Ledger row states.
const (
	stateSearched   = "searched"
	stateReviewed   = "reviewed"
	stateUnreviewed = "unreviewed"
)

// Store is a SQLite-based storage that provides the ledger and history
// stores through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store in the specified data directory.
// If dataDir is empty, defaults to ./data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		dataDir = "data"
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// LedgerStore returns a LedgerStore interface backed by this store.
func (s *Store) LedgerStore() driven.LedgerStore {
	return &ledgerStore{store: s}
}

// HistoryStore returns a HistoryStore interface backed by this store.
func (s *Store) HistoryStore() driven.HistoryStore {
	return &historyStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Ledger Store ====================

// ledgerStore implements driven.LedgerStore.
type ledgerStore struct {
	store *Store
}

var _ driven.LedgerStore = (*ledgerStore)(nil)

// Load reads every ledger row. Read failures are returned as-is: an
// unreachable database must not be mistaken for an empty ledger.
func (s *ledgerStore) Load(ctx context.Context) (*domain.ReviewLedger, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT query_id, channel, item_id, state FROM review_ids
	`)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	l := domain.NewReviewLedger()
	for rows.Next() {
		var queryID, channel, itemID, state string
		if err := rows.Scan(&queryID, &channel, &itemID, &state); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		target := l.Searched
		switch state {
		case stateReviewed:
			target = l.Reviewed
		case stateUnreviewed:
			target = l.Unreviewed
		}
		appendID(target, queryID, channel, domain.ItemID(itemID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger rows: %w", err)
	}

	l.Normalize()
	return l, nil
}

// Save replaces every ledger row in one transaction.
func (s *ledgerStore) Save(ctx context.Context, l *domain.ReviewLedger) error {
	if err := s.save(ctx, l); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLedgerWrite, err)
	}
	return nil
}

func (s *ledgerStore) save(ctx context.Context, l *domain.ReviewLedger) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM review_ids`); err != nil {
		return fmt.Errorf("clearing ledger: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO review_ids (query_id, channel, item_id, state) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for state, m := range map[string]domain.QueryChannelIDs{
		stateSearched:   l.Searched,
		stateReviewed:   l.Reviewed,
		stateUnreviewed: l.Unreviewed,
	} {
		for queryID, channels := range m {
			for channel, ids := range channels {
				for _, id := range ids {
					if _, err := stmt.ExecContext(ctx, queryID, channel, id.String(), state); err != nil {
						return fmt.Errorf("inserting ledger row: %w", err)
					}
				}
			}
		}
	}

	return tx.Commit()
}

func appendID(m domain.QueryChannelIDs, queryID, channel string, id domain.ItemID) {
	channels, ok := m[queryID]
	if !ok {
		channels = make(domain.ChannelIDs)
		m[queryID] = channels
	}
	channels[channel] = append(channels[channel], id)
}

// ==================== History Store ====================

// historyStore implements driven.HistoryStore.
type historyStore struct {
	store *Store
}

var _ driven.HistoryStore = (*historyStore)(nil)

// Append adds a session.
func (s *historyStore) Append(ctx context.Context, session domain.SearchSession) error {
	channelsJSON, err := json.Marshal(session.Channels)
	if err != nil {
		return fmt.Errorf("marshalling channels: %w", err)
	}
	if session.Channels == nil {
		channelsJSON = []byte("{}")
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO search_sessions (id, kind, timestamp, query, query_id, channels)
		VALUES (?, ?, ?, ?, ?, ?)
	`, session.ID, string(session.Type), session.Timestamp.UTC().Format(time.RFC3339Nano),
		session.Query, nullString(session.QueryID), string(channelsJSON))
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// List returns every session in append order.
func (s *historyStore) List(ctx context.Context) ([]domain.SearchSession, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, kind, timestamp, query, query_id, channels
		FROM search_sessions ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.SearchSession, 0)
	for rows.Next() {
		var session domain.SearchSession
		var kind, timestamp, channelsJSON string
		var queryID sql.NullString
		if err := rows.Scan(&session.ID, &kind, &timestamp, &session.Query, &queryID, &channelsJSON); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		session.Type = domain.SearchKind(kind)
		session.QueryID = queryID.String
		if t, err := time.Parse(time.RFC3339Nano, timestamp); err == nil {
			session.Timestamp = t
		}
		if err := json.Unmarshal([]byte(channelsJSON), &session.Channels); err != nil {
			return nil, fmt.Errorf("unmarshaling channels: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// nullString converts an empty string to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
