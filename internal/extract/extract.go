// Package extract pulls lightweight entities out of fetched pages for
// downstream enrichment: titles, contact addresses, and social handles.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch"
)

// Entity map keys produced by the extractor.
const (
	KeyTitle       = "title"
	KeyDescription = "description"
	KeyEmails      = "emails"
	KeyPhones      = "phones"
	KeySocial      = "social"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?[0-9][0-9 ().\-]{7,}[0-9]`)
)

var socialHosts = []string{
	"linkedin.com", "twitter.com", "x.com", "facebook.com", "instagram.com", "github.com",
}

// HTMLExtractor derives entities from raw HTML.
type HTMLExtractor struct {
	// MaxPerKey caps how many values one page may contribute per key.
	MaxPerKey int
}

// New builds an extractor with sane caps.
func New() *HTMLExtractor {
	return &HTMLExtractor{MaxPerKey: 50}
}

// Extract parses the document and returns the entities found on it. An
// empty map, not an error, is returned for pages with nothing of
// interest.
func (e *HTMLExtractor) Extract(_ context.Context, _ string, html string) (map[string][]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	out := make(map[string][]string)
	add := func(key, value string) {
		value = strings.TrimSpace(value)
		if value == "" || len(out[key]) >= e.maxPerKey() {
			return
		}
		for _, existing := range out[key] {
			if existing == value {
				return
			}
		}
		out[key] = append(out[key], value)
	}

	if title := doc.Find("title").First().Text(); title != "" {
		add(KeyTitle, title)
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		add(KeyDescription, desc)
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		lower := strings.ToLower(href)
		if strings.HasPrefix(lower, "mailto:") {
			addr := strings.SplitN(href[len("mailto:"):], "?", 2)[0]
			add(KeyEmails, addr)
			return
		}
		if strings.HasPrefix(lower, "tel:") {
			add(KeyPhones, href[len("tel:"):])
			return
		}
		host := fetch.HostOf(href)
		for _, social := range socialHosts {
			if host == social || strings.HasSuffix(host, "."+social) {
				add(KeySocial, href)
				return
			}
		}
	})

	text := doc.Text()
	for _, m := range emailRe.FindAllString(text, e.maxPerKey()) {
		add(KeyEmails, m)
	}
	for _, m := range phoneRe.FindAllString(text, e.maxPerKey()) {
		add(KeyPhones, m)
	}
	return out, nil
}

func (e *HTMLExtractor) maxPerKey() int {
	if e.MaxPerKey <= 0 {
		return 50
	}
	return e.MaxPerKey
}

// ExtractResults runs the extractor over a result set with bounded
// parallelism, keyed by URL. Failed fetches and parse errors are skipped.
func ExtractResults(ctx context.Context, extractor fetch.Extractor, results []fetch.Result, minValidLength, parallel int) map[string]map[string][]string {
	if parallel <= 0 {
		parallel = 8
	}
	var mu sync.Mutex
	out := make(map[string]map[string][]string)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for _, r := range results {
		if !r.Success(minValidLength) {
			continue
		}
		g.Go(func() error {
			entities, err := extractor.Extract(gctx, r.URL, r.HTML)
			if err != nil || len(entities) == 0 {
				return nil
			}
			mu.Lock()
			out[r.URL] = entities
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
