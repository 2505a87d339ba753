package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/venture-galaxy/matchmaker/internal/config"
	"github.com/venture-galaxy/matchmaker/internal/resilience"
)

// ErrTooLarge is returned when a body exceeds the configured size limit.
var ErrTooLarge = eris.New("fetcher: file too large")

// AdaptiveLimiter wraps a rate.Limiter that halves its rate on 429 replies
// (down to a quarter of the initial rate) and recovers by 20% per success
// (up to twice the initial rate).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess raises the rate.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.set(min(a.currentRate*1.2, a.maxRate))
}

// OnRateLimit halves the rate.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.set(max(a.currentRate*0.5, a.minRate))
	zap.L().Warn("fetcher: reducing rate after 429", zap.Float64("new_rate", float64(a.currentRate)))
}

// Limit returns the current rate.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

func (a *AdaptiveLimiter) set(r rate.Limit) {
	a.currentRate = r
	a.limiter.SetLimit(r)
}

// HTTPFetcher implements Fetcher over net/http with per-host rate limiting
// and retries of transient failures.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	rps       rate.Limit
	retry     resilience.RetryConfig

	mu       sync.Mutex
	limiters map[string]*AdaptiveLimiter
}

// NewHTTP creates an HTTPFetcher. Zero settings take their defaults.
func NewHTTP(cfg config.FetchConfig) *HTTPFetcher {
	if cfg.TimeoutSecs <= 0 {
		cfg.TimeoutSecs = 30
	}
	if cfg.MaxMB <= 0 {
		cfg.MaxMB = 20
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "matchmaker/1.0"
	}
	rps := rate.Limit(cfg.RequestsPerSecond)
	if rps <= 0 {
		rps = rate.Inf
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  int64(cfg.MaxMB) << 20,
		rps:       rps,
		retry: resilience.RetryConfig{
			MaxAttempts:    cfg.MaxAttempts,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
			JitterFraction: 0.5,
			OnRetry:        resilience.RetryLogger("spreadsheet download"),
		},
		limiters: make(map[string]*AdaptiveLimiter),
	}
}

func (f *HTTPFetcher) limiterFor(host string) *AdaptiveLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = NewAdaptiveLimiter(f.rps, 1)
		f.limiters[host] = lim
	}
	return lim
}

// Download fetches rawURL. Connection errors, 429 and 5xx replies are
// retried; other non-200 replies fail immediately.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (*File, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, eris.Errorf("fetcher: invalid url %q", rawURL)
	}
	lim := f.limiterFor(u.Host)

	file, err := resilience.DoVal(ctx, f.retry, func(ctx context.Context) (*File, error) {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}
		return f.get(ctx, u, lim)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: download %s", u.Redacted())
	}
	return file, nil
}

func (f *HTTPFetcher) get(ctx context.Context, u *url.URL, lim *AdaptiveLimiter) (*File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, resilience.Transient("http get", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		lim.OnRateLimit()
		return nil, resilience.Transient("http get", eris.Errorf("http 429 from %s", u.Host))
	case resp.StatusCode >= 500:
		return nil, resilience.Transient("http get", eris.Errorf("http %d from %s", resp.StatusCode, u.Host))
	case resp.StatusCode != http.StatusOK:
		return nil, eris.Errorf("unexpected status %d", resp.StatusCode)
	}
	lim.OnSuccess()

	if resp.ContentLength > f.maxBytes {
		return nil, ErrTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) {
			return nil, resilience.Transient("http read", err)
		}
		return nil, eris.Wrap(err, "read body")
	}
	if int64(len(data)) > f.maxBytes {
		return nil, ErrTooLarge
	}

	return &File{
		Name:        path.Base(u.Path),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
