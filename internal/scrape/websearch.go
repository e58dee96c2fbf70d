package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoResults is returned when the results page had no recognizable hits.
var ErrNoResults = errors.New("no search results")

type Hit struct {
	Title   string
	Snippet string
	URL     string
}

// WebSearcher scrapes an HTML search results page. The markup it relies on
// (result__a / result__snippet) is not a stable API and can break at any time.
type WebSearcher struct {
	client    *http.Client
	baseURL   string
	userAgent string
	maxHits   int
}

func NewWebSearcher(baseURL, userAgent string, timeout time.Duration) *WebSearcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebSearcher{
		client:    &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		userAgent: userAgent,
		maxHits:   5,
	}
}

func (w *WebSearcher) Search(ctx context.Context, query string) ([]Hit, error) {
	u, err := url.Parse(w.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse search url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("User-Agent", w.userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search: HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}

	var hits []Hit
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find("a.result__a").First()
		title := normalize(link.Text())
		if title == "" {
			return true
		}
		href, _ := link.Attr("href")
		hits = append(hits, Hit{
			Title:   title,
			Snippet: normalize(s.Find(".result__snippet").First().Text()),
			URL:     resolveRedirect(href),
		})
		return len(hits) < w.maxHits
	})
	if len(hits) == 0 {
		return nil, ErrNoResults
	}
	return hits, nil
}

// resolveRedirect unwraps the search engine's click-tracking link.
func resolveRedirect(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
