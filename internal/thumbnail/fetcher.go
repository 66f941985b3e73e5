package thumbnail

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultTimeout   = 4 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (toonshare/1.0)"

	// maxBodyBytes bounds how much of a page is read looking for meta tags.
	maxBodyBytes = 2 << 20
)

// imageSelector matches the preview image declarations, first one wins.
const imageSelector = `meta[property="og:image"], meta[name="twitter:image"]`

// Fetcher resolves a page URL into the preview image URL it declares.
type Fetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// NewFetcher builds a Fetcher. A nil client gets one with timeout applied.
func NewFetcher(client *http.Client, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Fetcher{client: client, userAgent: DefaultUserAgent, timeout: timeout}
}

// Timeout is the budget of a single fetch.
func (f *Fetcher) Timeout() time.Duration { return f.timeout }

// Fetch returns the og:image (or twitter:image) of pageURL.
// It returns "" on any failure: bad URL, network error, non-200 status,
// unparsable body or no matching tag.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) string {
	image, err := f.fetch(ctx, pageURL)
	if err != nil {
		return ""
	}
	return image
}

func (f *Fetcher) fetch(ctx context.Context, pageURL string) (string, error) {
	if pageURL == "" {
		return "", fmt.Errorf("empty url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	content, ok := doc.Find(imageSelector).First().Attr("content")
	if !ok {
		return "", fmt.Errorf("no preview image declared")
	}
	return normalizeImageURL(content), nil
}

// normalizeImageURL turns protocol-relative URLs into https ones.
func normalizeImageURL(raw string) string {
	image := strings.TrimSpace(raw)
	if strings.HasPrefix(image, "//") {
		return "https:" + image
	}
	return image
}
