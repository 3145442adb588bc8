// Package fetch retrieves page titles for newly added bookmarks.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

var (
	// ErrNoTitle is returned when a page has no usable <title>.
	ErrNoTitle = errors.New("page has no title")

	// ErrTimeout is returned when a fetch exceeds its deadline.
	ErrTimeout = errors.New("fetch timed out")
)

// maxBodyBytes bounds how much of a page is read looking for <title>.
const maxBodyBytes = 1 << 20

// TitleFetcher returns a best-effort title for a URL.
type TitleFetcher interface {
	FetchTitle(ctx context.Context, url string) (string, error)
}

// HTTPFetcher fetches pages over HTTP and extracts their <title>.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates an HTTPFetcher. The per-request deadline comes
// from the context passed to FetchTitle.
func NewHTTPFetcher(userAgent string) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Follow redirects but limit to 10
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent: userAgent,
	}
}

// FetchTitle GETs url and returns the text of its first <title> element.
func (f *HTTPFetcher) FetchTitle(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch %s: %s", url, http.StatusText(resp.StatusCode))
	}

	return ExtractTitle(io.LimitReader(resp.Body, maxBodyBytes))
}

// ExtractTitle parses HTML from r and returns the whitespace-collapsed text
// of the first <title> outside of <svg>.
func ExtractTitle(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var title string
	var find func(*html.Node) bool
	find = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "svg":
				return false
			case "title":
				title = getTextContent(n)
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if find(c) {
				return true
			}
		}
		return false
	}
	find(doc)

	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return "", ErrNoTitle
	}
	return title, nil
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return text.String()
}

// classifyError wraps a transport error with its readable category. Deadline
// errors also match ErrTimeout.
func classifyError(err error) error {
	var netErr interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w", NormalizeError(err.Error()), err)
}

// NormalizeError simplifies verbose error messages into readable categories.
func NormalizeError(errStr string) string {
	lower := strings.ToLower(errStr)

	switch {
	case strings.Contains(lower, "no such host"):
		return "DNS failure"
	case strings.Contains(lower, "context deadline exceeded"),
		strings.Contains(lower, "timeout"):
		return "Timeout"
	case strings.Contains(lower, "context canceled"):
		return "Cancelled"
	case strings.Contains(lower, "connection refused"):
		return "Connection refused"
	case strings.Contains(lower, "certificate"):
		return "TLS/certificate error"
	case strings.Contains(lower, "network is unreachable"):
		return "Network unreachable"
	case strings.Contains(lower, "tls:"):
		return "TLS error"
	default:
		return errStr
	}
}
