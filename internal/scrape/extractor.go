package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
	"github.com/nikhilbhutani/knowledgebase/internal/cache"
)

// Page is the readable projection of a fetched web page.
type Page struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	Warning     string `json:"warning,omitempty"`
}

// Degraded reports whether extraction produced only a placeholder.
func (p *Page) Degraded() bool { return p.Warning != "" }

// ErrNoContent marks a page that loaded but had nothing readable in it.
var ErrNoContent = errors.New("no readable content")

const (
	minContentLen    = 20
	sentenceCutFloor = 6000
)

var stripSelectors = strings.Join([]string{
	"script", "style", "nav", "header", "footer", "aside",
	".advertisement", ".ads", ".cookie", ".popup", ".modal",
	"noscript", "iframe",
	"[class*='ad-']", "[id*='ad-']", "[class*='cookie']", "[id*='cookie']",
}, ", ")

var contentSelectors = []string{
	"[role='main']", "main", "article",
	".content", ".post-content", ".article-content", ".entry-content", ".page-content",
	"#content", "#main-content", ".main-content",
}

var whitespace = regexp.MustCompile(`\s+`)

type Options struct {
	Timeout      time.Duration
	MaxRedirects int
	Budget       int
	UserAgent    string
	Cache        *cache.Cache
	CacheTTL     time.Duration
}

type Extractor struct {
	client    *http.Client
	userAgent string
	budget    int
	cache     *cache.Cache
	cacheTTL  time.Duration
}

func NewExtractor(opts Options) *Extractor {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = 5
	}
	if opts.Budget <= 0 {
		opts.Budget = 8000
	}
	maxRedirects := opts.MaxRedirects
	return &Extractor{
		client: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: opts.UserAgent,
		budget:    opts.Budget,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
	}
}

// ValidateURL accepts absolute http(s) URLs.
func ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, apperr.Invalid("Invalid URL format")
	}
	return u, nil
}

// Extract never returns a nil page for a valid URL. When the fetch or parse
// fails the page carries a placeholder body describing the failure and the
// error is returned alongside it.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*Page, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	target := u.String()

	var cached Page
	key := e.cache.Key(target)
	if err := e.cache.Get(ctx, key, &cached); err == nil {
		slog.Debug("fetch cache hit", "url", target)
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		slog.Warn("fetch cache read failed", "url", target, "error", err)
	}

	page, err := e.fetch(ctx, u)
	if err != nil {
		slog.Warn("content extraction failed", "url", target, "error", err)
		return failedPage(target, err), err
	}

	if !page.Degraded() {
		if err := e.cache.Set(ctx, key, page, e.cacheTTL); err != nil {
			slog.Warn("fetch cache write failed", "url", target, "error", err)
		}
	}
	return page, nil
}

// FetchContent returns only the extracted body. Placeholder pages count as
// failures so callers never persist them.
func (e *Extractor) FetchContent(ctx context.Context, rawURL string) (string, error) {
	page, err := e.Extract(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if page.Degraded() {
		return "", fmt.Errorf("extract %s: %w", rawURL, ErrNoContent)
	}
	return page.Content, nil
}

func (e *Extractor) fetch(ctx context.Context, u *url.URL) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := resolveTitle(doc, u.Hostname())
	description := metaContent(doc, "meta[name='description']")
	if description == "" {
		description = metaContent(doc, "meta[property='og:description']")
	}

	doc.Find(stripSelectors).Remove()
	content := truncate(normalize(mainContent(doc)), e.budget)

	page := &Page{
		Title:       title,
		Content:     content,
		Description: description,
		URL:         u.String(),
	}
	if len(content) < minContentLen {
		page.Content = fmt.Sprintf("Content from %s\n\n[Content extraction failed - please check the URL manually]", u.String())
		page.Warning = "Limited content extracted"
	}
	return page, nil
}

func resolveTitle(doc *goquery.Document, host string) string {
	if t := metaContent(doc, "meta[property='og:title']"); t != "" {
		return t
	}
	if t := metaContent(doc, "meta[name='twitter:title']"); t != "" {
		return t
	}
	for _, sel := range []string{"title", "h1", "h2"} {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			return normalize(t)
		}
	}
	return host
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}

func mainContent(doc *goquery.Document) string {
	var content string
	for _, sel := range contentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			if text := strings.TrimSpace(s.Text()); text != "" {
				content = text
				break
			}
		}
	}

	if len(content) < 100 {
		var paras []string
		doc.Find("p").Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				paras = append(paras, text)
			}
		})
		if joined := strings.Join(paras, " "); len(joined) > len(content) {
			content = joined
		}
	}

	if len(content) < 50 {
		if body := strings.TrimSpace(doc.Find("body").Text()); len(body) > len(content) {
			content = body
		}
	}
	return content
}

func normalize(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// truncate cuts to budget bytes, backing up to the last sentence end when
// one exists past the floor.
func truncate(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	cut := s[:budget]
	floor := sentenceCutFloor
	if floor > budget {
		floor = budget * 3 / 4
	}
	if i := strings.LastIndex(cut, "."); i > floor {
		return cut[:i+1]
	}
	return strings.ToValidUTF8(cut, "") + "..."
}

func failedPage(target string, err error) *Page {
	host := target
	if u, perr := url.Parse(target); perr == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	return &Page{
		Title:   host,
		Content: fmt.Sprintf("URL: %s\n\nFailed to extract content from this webpage.\nError: %s\n\nPlease verify the URL is accessible and try again.", target, err.Error()),
		URL:     target,
		Warning: "Content extraction failed",
	}
}
