// Package culler finds bookmarks whose links no longer resolve.
package culler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nikbrunner/bookmarks/internal/fetch"
	"github.com/nikbrunner/bookmarks/internal/logging"
	"github.com/nikbrunner/bookmarks/internal/model"
)

var errMethodNotAllowed = errors.New("method not allowed")

// Status represents the health status of a URL.
type Status int

const (
	Healthy     Status = iota // 2xx or 3xx response
	Dead                      // 404 or 410 Gone
	Unreachable               // timeout, DNS failure, connection refused, etc.
)

func (s Status) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Dead:
		return "dead"
	default:
		return "unreachable"
	}
}

// Result holds the check result for a single bookmark.
type Result struct {
	Bookmark   model.Bookmark
	Status     Status
	StatusCode int    // 0 if the connection failed
	Reason     string // why an unreachable URL failed
}

// ProgressFunc is called after each URL is checked.
type ProgressFunc func(completed, total int)

// Options configures a Checker.
type Options struct {
	Concurrency int
	Timeout     time.Duration // per request
	// ExcludeDomains treats 404s on these domains (and subdomains) as
	// possibly private instead of dead.
	ExcludeDomains []string
	UserAgent      string
	OnProgress     ProgressFunc
	Logger         *log.Logger
	Client         *http.Client // optional
}

// Checker checks bookmark URLs with a bounded worker pool.
type Checker struct {
	client      *http.Client
	concurrency int
	exclude     map[string]bool
	userAgent   string
	onProgress  ProgressFunc
	logger      *log.Logger
}

// New creates a Checker. Zero options get 10 workers and a 10s timeout.
func New(opts Options) *Checker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}

	exclude := make(map[string]bool, len(opts.ExcludeDomains))
	for _, domain := range opts.ExcludeDomains {
		exclude[strings.ToLower(strings.TrimSpace(domain))] = true
	}

	return &Checker{
		client:      client,
		concurrency: opts.Concurrency,
		exclude:     exclude,
		userAgent:   opts.UserAgent,
		onProgress:  opts.OnProgress,
		logger:      logging.OrDiscard(opts.Logger),
	}
}

// Check checks every bookmark and returns results in input order. Bookmarks
// not reached before ctx is done are reported unreachable.
func (c *Checker) Check(ctx context.Context, bookmarks []model.Bookmark) []Result {
	if len(bookmarks) == 0 {
		return nil
	}

	results := make([]Result, len(bookmarks))
	jobs := make(chan int)
	var wg sync.WaitGroup

	var progressMu sync.Mutex
	completed := 0

	for range min(c.concurrency, len(bookmarks)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = c.checkURL(ctx, bookmarks[idx])

				if c.onProgress != nil {
					progressMu.Lock()
					completed++
					c.onProgress(completed, len(bookmarks))
					progressMu.Unlock()
				}
			}
		}()
	}

	sent := 0
send:
	for ; sent < len(bookmarks); sent++ {
		select {
		case jobs <- sent:
		case <-ctx.Done():
			break send
		}
	}
	close(jobs)
	wg.Wait()

	for i := sent; i < len(bookmarks); i++ {
		results[i] = Result{Bookmark: bookmarks[i], Status: Unreachable, Reason: "Cancelled"}
	}
	return results
}

func (c *Checker) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.client.Do(req)
}

// checkURL checks a single URL and returns the result.
func (c *Checker) checkURL(ctx context.Context, bookmark model.Bookmark) Result {
	result := Result{Bookmark: bookmark}

	// HEAD first; some servers reject it, so fall back to GET.
	resp, err := c.do(ctx, http.MethodHead, bookmark.URL)
	if err == nil && resp.StatusCode == http.StatusMethodNotAllowed {
		resp.Body.Close()
		err = errMethodNotAllowed
	}
	if err != nil {
		resp, err = c.do(ctx, http.MethodGet, bookmark.URL)
		if err != nil {
			result.Status = Unreachable
			result.Reason = fetch.NormalizeError(err.Error())
			c.logger.Debug("link unreachable", "id", bookmark.ID, "url", bookmark.URL, "err", err)
			return result
		}
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	result.StatusCode = resp.StatusCode

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.Status = Healthy
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		if c.isExcluded(bookmark.URL) {
			result.Status = Unreachable
			result.Reason = "Possibly private (auth required)"
		} else {
			result.Status = Dead
		}
	default:
		// Could be temporary server issues or auth-required pages.
		result.Status = Unreachable
		result.Reason = http.StatusText(resp.StatusCode)
	}

	return result
}

// isExcluded reports whether the URL's host is an excluded domain or one of
// its subdomains.
func (c *Checker) isExcluded(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for domain := range c.exclude {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// DeadIDs returns the ids of the results with status Dead.
func DeadIDs(results []Result) []int64 {
	var ids []int64
	for _, r := range results {
		if r.Status == Dead {
			ids = append(ids, r.Bookmark.ID)
		}
	}
	return ids
}
