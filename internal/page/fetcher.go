package page

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dgallion1/policychat/internal/metrics"
)

const userAgent = "policychat/1.0 (+https://github.com/dgallion1/policychat)"

// ErrTooLarge is returned when a document exceeds the fetcher's size limit.
var ErrTooLarge = errors.New("document exceeds size limit")

// Fetcher downloads a document and extracts its text.
type Fetcher struct {
	httpClient *http.Client
	timeout    time.Duration
	maxBytes   int64
	log        *slog.Logger
}

func NewFetcher(timeout time.Duration, maxBytes int64, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		httpClient: &http.Client{},
		timeout:    timeout,
		maxBytes:   maxBytes,
		log:        log,
	}
}

// Fetch retrieves rawURL and parses the body according to its media type.
// The whole exchange, body included, is bounded by the fetcher's timeout.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Content, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		metrics.PageFetches.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		metrics.PageFetches.WithLabelValues(metrics.OutcomeTransport).Inc()
		return nil, f.transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.PageFetches.WithLabelValues(metrics.OutcomeUpstream).Inc()
		return nil, fmt.Errorf("failed to fetch content: %s", http.StatusText(resp.StatusCode))
	}

	body, err := f.readBody(resp.Body)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			metrics.PageFetches.WithLabelValues(metrics.OutcomeInvalid).Inc()
			return nil, err
		}
		metrics.PageFetches.WithLabelValues(metrics.OutcomeTransport).Inc()
		return nil, f.transportError(ctx, err)
	}

	parser := ForDocument(resp.Header.Get("Content-Type"), u.Path)
	title, text, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		metrics.PageFetches.WithLabelValues(metrics.OutcomeMalformed).Inc()
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	content := NewContent(title, text)
	metrics.PageFetches.WithLabelValues(metrics.OutcomeSuccess).Inc()
	f.log.Info("page fetched",
		"url", rawURL,
		"content_type", resp.Header.Get("Content-Type"),
		"bytes", len(body),
		"chars", content.CharacterCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

func (f *Fetcher) readBody(r io.Reader) ([]byte, error) {
	if f.maxBytes <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, f.maxBytes)
	}
	return body, nil
}

func (f *Fetcher) transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", context.DeadlineExceeded)
	}
	return fmt.Errorf("failed to fetch content: %w", err)
}
