package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"pulseboard/dashboard/internal/logging"
)

const (
	defaultTimeout  = 20 * time.Second
	defaultRetries  = 1
	dedupWindow     = time.Second
	backoffBase     = 500 * time.Millisecond
	backoffCap      = 5 * time.Second
)

// StatusError is a non-2xx response surfaced after retries are exhausted.
type StatusError struct {
	Code     int
	Endpoint string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.Endpoint, e.Code)
}

// Options shape one request; the zero value gets the defaults.
type Options struct {
	Timeout time.Duration
	Retries int
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Retries < 0 {
		o.Retries = defaultRetries
	}
	return o
}

type call struct {
	done        chan struct{}
	body        []byte
	err         error
	completedAt time.Time
}

// Fetcher issues deduplicated, retried GETs against the companion. Two
// identical requests within the dedup window share one network round-trip.
type Fetcher struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	inflight map[string]*call
}

type FetcherOption func(*Fetcher)

func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

func WithFetchLogger(lg *slog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = lg }
}

func withNowFunc(now func() time.Time) FetcherOption {
	return func(f *Fetcher) { f.now = now }
}

func NewFetcher(baseURL string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		baseURL:  baseURL,
		client:   &http.Client{},
		now:      time.Now,
		inflight: map[string]*call{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logging.NewNopLogger()
	}
	return f
}

// Get fetches baseURL+endpoint. Identical (endpoint, options) requests share
// a result for up to one second after completion. Retries use exponential
// backoff capped at five seconds; the final failure is returned to every
// waiter.
func (f *Fetcher) Get(ctx context.Context, endpoint string, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	key := fmt.Sprintf("%s|%s|%d", endpoint, opts.Timeout, opts.Retries)

	f.mu.Lock()
	if c, ok := f.inflight[key]; ok {
		reusable := true
		select {
		case <-c.done:
			reusable = f.now().Sub(c.completedAt) < dedupWindow
		default:
		}
		if reusable {
			f.mu.Unlock()
			select {
			case <-c.done:
				return c.body, c.err
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		delete(f.inflight, key)
	}
	c := &call{done: make(chan struct{})}
	f.inflight[key] = c
	f.mu.Unlock()

	c.body, c.err = f.doWithRetries(ctx, endpoint, opts)
	f.mu.Lock()
	c.completedAt = f.now()
	f.mu.Unlock()
	close(c.done)
	return c.body, c.err
}

func (f *Fetcher) doWithRetries(ctx context.Context, endpoint string, opts Options) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if attempt > 0 {
			wait := backoffBase << (attempt - 1)
			if wait > backoffCap {
				wait = backoffCap
			}
			f.logger.Debug("retrying fetch", "endpoint", endpoint, "attempt", attempt, "wait_ms", wait.Milliseconds())
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		body, err := f.doOnce(ctx, endpoint, opts.Timeout)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
	}
	f.logger.Warn("fetch failed after retries", "endpoint", endpoint, "retries", opts.Retries, "err", lastErr)
	return nil, lastErr
}

func (f *Fetcher) doOnce(ctx context.Context, endpoint string, timeout time.Duration) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, f.baseURL+endpoint, nil)
	if err != nil {
		return nil, err
	}
	res, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil, &StatusError{Code: res.StatusCode, Endpoint: endpoint}
	}
	return io.ReadAll(res.Body)
}
