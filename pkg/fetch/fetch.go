// Package fetch retrieves remote documents with a single bounded attempt.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/japaniel/diningmenu/pkg/config"
	"github.com/japaniel/diningmenu/pkg/logger"
)

// DefaultMaxBodyBytes caps a response body at 10 MB.
const DefaultMaxBodyBytes = 10 * 1024 * 1024

// ErrBodyTooLarge is wrapped in a NetworkError when a response exceeds the size limit.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// NetworkError reports a failed retrieval: a transport error, a timeout, an
// oversized body or a non-2xx status (StatusCode is 0 when no response arrived).
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent overrides the browser User-Agent.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodyBytes overrides the body size limit.
func WithMaxBodyBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(f *Fetcher) { f.log = log }
}

// Fetcher performs GET requests that look like a desktop browser.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	log       *zap.SugaredLogger
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{},
		userAgent: config.DefaultUserAgent,
		maxBody:   DefaultMaxBodyBytes,
		log:       logger.GetLogger("fetch"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads url in one attempt bounded by timeout. No retry is made.
func (f *Fetcher) Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	f.setHeaders(req)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &NetworkError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	if resp.ContentLength > f.maxBody {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("%w: Content-Length %d", ErrBodyTooLarge, resp.ContentLength)}
	}

	// Read one byte past the limit to tell an exact-size body from a truncated one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	if int64(len(body)) > f.maxBody {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, f.maxBody)}
	}

	f.log.Debugw("fetched", "url", url, "bytes", len(body), "elapsed", time.Since(start))
	return body, nil
}

func (f *Fetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}
