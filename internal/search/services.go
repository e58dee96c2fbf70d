package search

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nikhilbhutani/knowledgebase/internal/models"
	"github.com/nikhilbhutani/knowledgebase/internal/scrape"
)

const (
	digestSites        = 3
	digestExcerpt      = 500
	digestSourceLength = 2000
)

var serviceKeywords = []string{"service", "product", "solution", "offering"}

var sectionBreak = regexp.MustCompile(`\n\s*\n`)

// PageFetcher extracts a page; on failure it still returns a placeholder page.
type PageFetcher interface {
	Extract(ctx context.Context, rawURL string) (*scrape.Page, error)
}

type DigestSource struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
}

type Digest struct {
	Answer  string         `json:"answer"`
	Sources []DigestSource `json:"sources"`
}

// ServiceDigester summarizes what the caller's saved websites offer.
type ServiceDigester struct {
	docs    DocumentLister
	fetcher PageFetcher
}

func NewServiceDigester(docs DocumentLister, fetcher PageFetcher) *ServiceDigester {
	return &ServiceDigester{docs: docs, fetcher: fetcher}
}

// Digest fetches the caller's first three web documents concurrently and
// builds a templated summary of the sections that mention services. A failed
// fetch contributes a placeholder source instead of failing the digest.
func (d *ServiceDigester) Digest(ctx context.Context, ownerID string) (*Digest, error) {
	docs, err := d.docs.List(ctx, ownerID, models.DocTypeWeb)
	if err != nil {
		return nil, fmt.Errorf("list web documents: %w", err)
	}
	if len(docs) == 0 {
		return &Digest{
			Answer:  "I couldn't find any web links in your knowledge base to check for services. Please add some web links first.",
			Sources: []DigestSource{},
		}, nil
	}
	if len(docs) > digestSites {
		docs = docs[:digestSites]
	}

	sources := make([]DigestSource, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(digestSites)
	for i, doc := range docs {
		g.Go(func() error {
			sources[i] = d.fetch(gctx, doc.Source)
			return nil
		})
	}
	_ = g.Wait()

	return &Digest{Answer: serviceAnswer(sources), Sources: sources}, nil
}

func (d *ServiceDigester) fetch(ctx context.Context, rawURL string) DigestSource {
	src := DigestSource{URL: rawURL, Title: hostname(rawURL)}
	page, err := d.fetcher.Extract(ctx, rawURL)
	if err != nil || page == nil || page.Degraded() {
		src.Content = "Could not fetch content from this URL."
		return src
	}
	if page.Title != "" {
		src.Title = page.Title
	}
	src.Content = page.Content
	if len(src.Content) > digestSourceLength {
		src.Content = strings.ToValidUTF8(src.Content[:digestSourceLength], "") + "..."
	}
	return src
}

type serviceInfo struct {
	title, url, info string
}

func serviceAnswer(sources []DigestSource) string {
	var infos []serviceInfo
	var urls []string
	for _, s := range sources {
		urls = append(urls, s.URL)
		if s.Content == "" {
			continue
		}
		if info := serviceExcerpt(s.Content); info != "" {
			infos = append(infos, serviceInfo{title: s.Title, url: s.URL, info: info})
		}
	}

	if len(infos) == 0 {
		return "I couldn't find specific information about services on the provided websites. " +
			"Here are the links you might want to check directly: " + strings.Join(urls, ", ")
	}

	var sb strings.Builder
	sb.WriteString("Here's what I found about their services:\n\n")
	for _, it := range infos {
		fmt.Fprintf(&sb, "**%s** (%s):\n%s...\n\n", it.title, it.url, it.info)
	}
	sb.WriteString("\n*Note: This is an automated summary. For complete information, please visit the websites directly.*")
	return sb.String()
}

// serviceExcerpt returns the first section mentioning a service keyword, or
// the start of the content when none does.
func serviceExcerpt(content string) string {
	for _, section := range sectionBreak.Split(content, -1) {
		lower := strings.ToLower(section)
		for _, kw := range serviceKeywords {
			if strings.Contains(lower, kw) {
				return clip(strings.TrimSpace(section), digestExcerpt)
			}
		}
	}
	return clip(strings.TrimSpace(content), digestExcerpt)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}

func hostname(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return raw
}
