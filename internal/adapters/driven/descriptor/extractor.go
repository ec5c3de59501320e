// Package descriptor provides a face-descriptor extractor backed by an HTTP
// detection service.
package descriptor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Deynao1996/missing-persons-finder/internal/adapters/driven/ratelimit"
	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.DescriptorExtractor = (*Extractor)(nil)

// Default configuration values.
const (
	DefaultTimeout           = 30 * time.Second
	DefaultRequestsPerSecond = 20.0
	DefaultBurst             = 20

	// maxErrorBody caps how much of an error response is quoted.
	maxErrorBody = 512
)

// extractResponse is the detection service response format.
type extractResponse struct {
	Descriptors [][]float64 `json:"descriptors"`
}

// Extractor posts images to the detection service.
type Extractor struct {
	client *ratelimit.Client
	url    string
}

// NewExtractor creates an extractor for the configured service URL.
// A nil httpClient uses a default client with the configured timeout.
func NewExtractor(cfg domain.DescriptorSettings, httpClient *http.Client) (*Extractor, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("%w: descriptor url is not configured", domain.ErrInvalidInput)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: DefaultRequestsPerSecond,
		Burst:             DefaultBurst,
	})

	return &Extractor{
		client: ratelimit.NewClient(httpClient, limiter, cfg.Timeout),
		url:    cfg.URL,
	}, nil
}

// Extract returns one descriptor per detected face, best face first.
// A 4xx response wraps domain.ErrInvalidInput; transport failures, 5xx and
// undecodable responses wrap domain.ErrSourceUnavailable.
func (e *Extractor) Extract(ctx context.Context, image []byte) ([]domain.Descriptor, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrInvalidInput)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", http.DetectContentType(image))
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		// 4xx rejects this image; anything else is the service failing.
		sentinel := domain.ErrSourceUnavailable
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			sentinel = domain.ErrInvalidInput
		}
		return nil, fmt.Errorf("%w: descriptor service (status %d): %s",
			sentinel, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", domain.ErrSourceUnavailable, err)
	}

	// Convert float64 to float32
	descriptors := make([]domain.Descriptor, 0, len(out.Descriptors))
	for _, values := range out.Descriptors {
		d := make(domain.Descriptor, len(values))
		for i, v := range values {
			d[i] = float32(v)
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}
