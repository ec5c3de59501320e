package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driven"
	"github.com/Deynao1996/missing-persons-finder/internal/logger"
)

// Ensure HistoryStore implements the interface.
var _ driven.HistoryStore = (*HistoryStore)(nil)

// HistoryStore keeps the search history as a JSON array of sessions.
// The older {"searches": [...]} document is accepted on read and rewritten
// as an array on the next append.
type HistoryStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewHistoryStore creates a history store backed by path.
func NewHistoryStore(path string) *HistoryStore {
	return &HistoryStore{path: path, now: time.Now}
}

// Append adds a session to the end of the history.
func (s *HistoryStore) Append(_ context.Context, session domain.SearchSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load()
	sessions = append(sessions, session)
	if err := writeJSON(s.path, sessions); err != nil {
		return fmt.Errorf("write history %s: %w", s.path, err)
	}
	return nil
}

// List returns every session in append order.
func (s *HistoryStore) List(_ context.Context) ([]domain.SearchSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(), nil
}

// load reads the history. Unreadable files are moved aside and start empty.
func (s *HistoryStore) load() []domain.SearchSession {
	sessions, err := readHistory(s.path)
	if err == nil {
		return sessions
	}
	logger.Warn("Search history %s unreadable: %v", s.path, err)
	if dest, mvErr := moveAside(s.path, s.now()); mvErr == nil {
		logger.Warn("Moved unreadable history to %s", dest)
	}
	return []domain.SearchSession{}
}

func readHistory(path string) ([]domain.SearchSession, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.SearchSession{}, nil
	}
	if err != nil {
		return nil, err
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []domain.SearchSession{}, nil
	}

	if data[0] == '{' {
		var legacy struct {
			Searches []domain.SearchSession `json:"searches"`
		}
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, err
		}
		if legacy.Searches == nil {
			return []domain.SearchSession{}, nil
		}
		return legacy.Searches, nil
	}

	var sessions []domain.SearchSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []domain.SearchSession{}
	}
	return sessions, nil
}
