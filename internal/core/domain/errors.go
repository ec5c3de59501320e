package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown source type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Matching Errors.

	// ErrInvalidDescriptor indicates a missing, empty or mismatched face vector.
	// The request must be rejected, not retried.
	ErrInvalidDescriptor = errors.New("invalid descriptor")

	// ErrNoFaceDetected indicates the query image contains no usable face.
	ErrNoFaceDetected = fmt.Errorf("no face detected: %w", ErrInvalidDescriptor)

	// ErrInvalidQuery indicates a name query with no parseable name.
	ErrInvalidQuery = errors.New("invalid query")

	// Cache Errors.

	// ErrCacheCorruption indicates a single malformed cache line.
	// The line is logged and skipped; processing continues.
	ErrCacheCorruption = errors.New("cache corruption")

	// ErrChannelCrawlFailure indicates one channel's crawl failed.
	// Other channels still complete.
	ErrChannelCrawlFailure = errors.New("channel crawl failure")

	// ErrCrawlInProgress indicates a crawl is already running for the channel.
	ErrCrawlInProgress = errors.New("crawl in progress")

	// Collaborator Errors.

	// ErrSourceUnavailable indicates an external fetch collaborator failed.
	// It is propagated to the caller and never retried by the core.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrRateLimited indicates the remote rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Ledger Errors.

	// ErrLedgerLoad indicates the ledger file could not be parsed.
	// Callers treat it as "no prior state".
	ErrLedgerLoad = errors.New("ledger load failure")

	// ErrLedgerWrite indicates the ledger could not be persisted.
	// It is always surfaced: a lost write resurfaces reviewed results.
	ErrLedgerWrite = errors.New("ledger write failure")
)
