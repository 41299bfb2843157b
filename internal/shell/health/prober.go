// Package health probes the deployed service's HTTP health endpoints.
package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 10 * time.Second

// DefaultPaths are the endpoints verified after launch, in order.
var DefaultPaths = []string{"/health", "/api/v1/health"}

var (
	ErrUnhealthy   = errors.New("endpoint is unhealthy")
	ErrUnreachable = errors.New("endpoint is unreachable")
)

// ProbeError describes a failed probe.
type ProbeError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *ProbeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// Prober issues single-shot GET requests against a base URL.
type Prober struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Config holds configuration for the prober.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewProber creates a Prober.
func NewProber(cfg Config, logger *slog.Logger) *Prober {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With("component", "health"),
	}
}

// URL returns the absolute URL for path.
func (p *Prober) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return p.baseURL + path
}

// Probe performs one GET against path. Any 2xx response passes.
func (p *Prober) Probe(ctx context.Context, path string) error {
	url := p.URL(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &ProbeError{URL: url, Err: fmt.Errorf("%w: %v", ErrUnreachable, err)}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Debug("probe failed", "url", url, "error", err)
		return &ProbeError{URL: url, Err: fmt.Errorf("%w: %v", ErrUnreachable, err)}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logger.Debug("probe unhealthy", "url", url, "status", resp.StatusCode)
		return &ProbeError{URL: url, StatusCode: resp.StatusCode, Err: ErrUnhealthy}
	}

	p.logger.Debug("probe passed", "url", url, "status", resp.StatusCode)
	return nil
}
