package crawl

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch"
)

var skipSchemes = []string{"javascript:", "mailto:", "tel:", "data:", "ftp:"}

// ExtractLinks pulls every anchor out of a document and splits the
// targets into same-host and external sets, resolved against the page
// URL and deduplicated in document order.
func ExtractLinks(pageURL, html string) (internal, external []string, err error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("parse html: %w", err)
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		lower := strings.ToLower(href)
		for _, scheme := range skipSchemes {
			if strings.HasPrefix(lower, scheme) {
				return
			}
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		abs.Fragment = ""
		target := abs.String()
		if _, dup := seen[target]; dup {
			return
		}
		seen[target] = struct{}{}
		if fetch.SameHost(abs.Hostname(), base.Hostname()) {
			internal = append(internal, target)
		} else {
			external = append(external, target)
		}
	})
	return internal, external, nil
}
