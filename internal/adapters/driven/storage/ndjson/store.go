package ndjson

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"sync"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driven"
	"github.com/Deynao1996/missing-persons-finder/internal/logger"
)

// Ensure CacheStore implements the interface.
var _ driven.CacheStore = (*CacheStore)(nil)

const (
	skippedFile  = "skipped.json"
	progressFile = "progress.json"

	// DefaultMaxLineSize bounds a single record line.
	DefaultMaxLineSize = 16 << 20
)

var yearFile = regexp.MustCompile(`^(\d{4})\.ndjson$`)

// CacheStore is the NDJSON implementation of driven.CacheStore.
type CacheStore struct {
	root    string
	maxLine int

	// mu serializes writes within the process.
	mu sync.Mutex
}

// NewCacheStore creates a cache store rooted at root.
// The directory is created on first write.
func NewCacheStore(root string) *CacheStore {
	return &CacheStore{root: root, maxLine: DefaultMaxLineSize}
}

// Root returns the cache root directory.
func (s *CacheStore) Root() string {
	return s.root
}

// ListChannels returns every channel directory, sorted.
func (s *CacheStore) ListChannels(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache root: %w", err)
	}

	channels := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && e.Name()[0] != '.' {
			channels = append(channels, e.Name())
		}
	}
	slices.Sort(channels)
	return channels, nil
}

// ListYears returns the year partitions of a channel in ascending order.
func (s *CacheStore) ListYears(_ context.Context, channel string) ([]int, error) {
	entries, err := os.ReadDir(s.channelDir(channel))
	if errors.Is(err, fs.ErrNotExist) {
		return []int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read channel %s: %w", channel, err)
	}

	years := make([]int, 0, len(entries))
	for _, e := range entries {
		m := yearFile.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		years = append(years, year)
	}
	slices.Sort(years)
	return years, nil
}

// LoadSeenIDs returns the source ids of every readable record of a channel.
func (s *CacheStore) LoadSeenIDs(ctx context.Context, channel string) (domain.IDSet, error) {
	years, err := s.ListYears(ctx, channel)
	if err != nil {
		return nil, err
	}
	ids := domain.NewIDSet()
	for _, year := range years {
		err := s.ScanRecords(ctx, channel, year, func(r domain.CacheRecord) error {
			ids.Add(r.SourceID)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// LoadSkippedIDs reads the channel's skip set. A missing file is an empty set;
// an unreadable one is logged and treated as empty.
func (s *CacheStore) LoadSkippedIDs(_ context.Context, channel string) (domain.IDSet, error) {
	data, err := os.ReadFile(filepath.Join(s.channelDir(channel), skippedFile))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewIDSet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read skipped ids: %w", err)
	}

	var ids []domain.ItemID
	if err := json.Unmarshal(data, &ids); err != nil {
		logger.Warn("%s/%s: %v", channel, skippedFile, fmt.Errorf("%w: %w", domain.ErrCacheCorruption, err))
		return domain.NewIDSet(), nil
	}
	return domain.NewIDSet(ids...), nil
}

// AppendRecords appends one line per record to its year file.
func (s *CacheStore) AppendRecords(_ context.Context, channel string, records []domain.CacheRecord) error {
	if len(records) == 0 {
		return nil
	}

	byYear := make(map[int][]domain.CacheRecord)
	for _, r := range records {
		byYear[r.Year()] = append(byYear[r.Year()], r)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.channelDir(channel)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create channel dir: %w", err)
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	slices.Sort(years)

	for _, year := range years {
		if err := appendLines(s.yearPath(channel, year), byYear[year]); err != nil {
			return fmt.Errorf("append %s/%d: %w", channel, year, err)
		}
	}
	return nil
}

func appendLines(path string, records []domain.CacheRecord) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(encodeRecord(r)); err != nil {
			return fmt.Errorf("encode record %s: %w", r.SourceID, err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SaveSkippedIDs overwrites the skip set through a temp file and rename.
func (s *CacheStore) SaveSkippedIDs(_ context.Context, channel string, ids domain.IDSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.channelDir(channel)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create channel dir: %w", err)
	}

	data, err := json.Marshal(ids.Sorted())
	if err != nil {
		return fmt.Errorf("encode skipped ids: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, skippedFile), data); err != nil {
		return fmt.Errorf("write skipped ids: %w", err)
	}
	return nil
}

// LoadProgress reads the channel's crawl progress. A missing file is the zero
// value; an unreadable one is logged and treated as missing.
func (s *CacheStore) LoadProgress(_ context.Context, channel string) (domain.CrawlProgress, error) {
	var progress domain.CrawlProgress
	data, err := os.ReadFile(filepath.Join(s.channelDir(channel), progressFile))
	if errors.Is(err, fs.ErrNotExist) {
		return progress, nil
	}
	if err != nil {
		return progress, fmt.Errorf("read progress: %w", err)
	}
	if err := json.Unmarshal(data, &progress); err != nil {
		logger.Warn("%s/%s: %v", channel, progressFile, fmt.Errorf("%w: %w", domain.ErrCacheCorruption, err))
		return domain.CrawlProgress{}, nil
	}
	return progress, nil
}

// SaveProgress overwrites the progress file through a temp file and rename.
func (s *CacheStore) SaveProgress(_ context.Context, channel string, progress domain.CrawlProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.channelDir(channel)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create channel dir: %w", err)
	}
	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, progressFile), data); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	return nil
}

// ScanRecords streams one year file in file order. A missing file has no records.
// Lines longer than the line limit are skipped like any other malformed line.
func (s *CacheStore) ScanRecords(
	ctx context.Context, channel string, year int, fn func(domain.CacheRecord) error,
) error {
	path := s.yearPath(channel, year)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 64*1024)
	for lineNo := 1; ; lineNo++ {
		if lineNo%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		line, size, err := readLine(r, s.maxLine)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read %s: %w", path, err)
		}
		eof := errors.Is(err, io.EOF)

		switch {
		case size > s.maxLine:
			logger.Warn("%s/%d.ndjson line %d: %v", channel, year, lineNo,
				fmt.Errorf("%w: line of %d bytes exceeds %d", domain.ErrCacheCorruption, size, s.maxLine))
		case len(bytes.TrimSpace(line)) > 0:
			rec, decodeErr := decodeRecord(bytes.TrimSpace(line))
			if decodeErr != nil {
				logger.Warn("%s/%d.ndjson line %d: %v", channel, year, lineNo, decodeErr)
				break
			}
			if err := fn(rec); err != nil {
				return err
			}
		}

		if eof {
			return nil
		}
	}
}

// readLine reads one newline-terminated line. Bytes past limit are read and
// dropped, so an oversized line returns its full size but a truncated body.
// io.EOF is returned with the final unterminated line.
func readLine(r *bufio.Reader, limit int) ([]byte, int, error) {
	var line []byte
	size := 0
	for {
		chunk, err := r.ReadSlice('\n')
		chunk = bytes.TrimSuffix(chunk, []byte{'\n'})
		size += len(chunk)
		if size <= limit {
			line = append(line, chunk...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, size, err
	}
}

func (s *CacheStore) channelDir(channel string) string {
	return filepath.Join(s.root, filepath.Base(channel))
}

func (s *CacheStore) yearPath(channel string, year int) string {
	return filepath.Join(s.channelDir(channel), fmt.Sprintf("%04d.ndjson", year))
}

// writeFileAtomic writes data to a temp file next to path and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
