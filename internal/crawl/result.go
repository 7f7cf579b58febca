// Package crawl walks a domain breadth first through the fetch cascade,
// collecting per-page content and the outlink graph to other domains.
package crawl

import (
	"time"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch"
)

// Page is one crawled URL with its fetch outcome and extracted links.
type Page struct {
	URL      string       `json:"url"`
	Depth    int          `json:"depth"`
	Result   fetch.Result `json:"result"`
	Internal []string     `json:"internal_links,omitempty"`
	External []string     `json:"external_links,omitempty"`

	// ContentHash fingerprints the page body for duplicate detection.
	ContentHash string `json:"content_hash,omitempty"`
}

// Result is the product of one domain crawl.
type Result struct {
	Seed  string `json:"seed"`
	Host  string `json:"host"`
	Pages []Page `json:"pages"`

	// OutlinkGraph maps each crawled host to the sorted distinct external
	// hosts it links out to. Crawl fills the seed host's row;
	// CrawlWithOutlinks adds a row per followed neighbor.
	OutlinkGraph map[string][]string `json:"outlink_graph,omitempty"`

	Elapsed time.Duration `json:"-"`
	// ElapsedMs mirrors Elapsed for serialization.
	ElapsedMs int64 `json:"elapsed_ms"`
}

// AllInternalURLs returns every distinct same-host URL discovered,
// crawled or not, in first-seen order.
func (r *Result) AllInternalURLs() []string {
	return collectDistinct(r.Pages, func(p Page) []string { return p.Internal })
}

// AllExternalURLs returns every distinct external URL discovered, in
// first-seen order.
func (r *Result) AllExternalURLs() []string {
	return collectDistinct(r.Pages, func(p Page) []string { return p.External })
}

// ExternalHosts returns the distinct hosts the crawled domain links out
// to.
func (r *Result) ExternalHosts() []string {
	seen := make(map[string]struct{})
	var hosts []string
	for _, u := range r.AllExternalURLs() {
		h := fetch.HostOf(u)
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		hosts = append(hosts, h)
	}
	return hosts
}

func collectDistinct(pages []Page, pick func(Page) []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range pages {
		for _, u := range pick(p) {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}
