package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// allErrors lists every independent domain sentinel.
var allErrors = []error{
	ErrNotFound,
	ErrInvalidInput,
	ErrUnsupportedType,
	ErrInvalidDescriptor,
	ErrInvalidQuery,
	ErrCacheCorruption,
	ErrChannelCrawlFailure,
	ErrCrawlInProgress,
	ErrSourceUnavailable,
	ErrRateLimited,
	ErrLedgerLoad,
	ErrLedgerWrite,
}

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	for _, err := range allErrors {
		t.Run(err.Error(), func(t *testing.T) {
			assert.NotNil(t, err)
			assert.NotEmpty(t, err.Error())
		})
	}
}

// TestErrors_Uniqueness tests that all errors are distinct
func TestErrors_Uniqueness(t *testing.T) {
	for i, err1 := range allErrors {
		for j, err2 := range allErrors {
			if i != j {
				assert.False(t, errors.Is(err1, err2),
					"Error %v should not match error %v", err1, err2)
			}
		}
	}
}

// TestErrNoFaceDetected tests that a missing face is an invalid descriptor
func TestErrNoFaceDetected(t *testing.T) {
	assert.True(t, errors.Is(ErrNoFaceDetected, ErrInvalidDescriptor))
	assert.False(t, errors.Is(ErrInvalidDescriptor, ErrNoFaceDetected))
	assert.Contains(t, ErrNoFaceDetected.Error(), "no face detected")
}

// TestErrors_WithWrapping tests error wrapping behavior
func TestErrors_WithWrapping(t *testing.T) {
	wrapped := fmt.Errorf("crawl alpha: %w", fmt.Errorf("%w: %w", ErrChannelCrawlFailure, ErrSourceUnavailable))

	assert.True(t, errors.Is(wrapped, ErrChannelCrawlFailure))
	assert.True(t, errors.Is(wrapped, ErrSourceUnavailable))
	assert.False(t, errors.Is(wrapped, ErrLedgerWrite))

	joined := errors.Join(ErrLedgerWrite, errors.New("disk full"))
	assert.True(t, errors.Is(joined, ErrLedgerWrite))
	assert.Contains(t, joined.Error(), "disk full")
}
