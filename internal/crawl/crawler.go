package crawl

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/hash"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/metrics"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/progress"
)

// Scraper fetches one URL through the tier cascade.
type Scraper interface {
	Scrape(ctx context.Context, url string) fetch.Result
}

// Options bounds one crawl.
type Options struct {
	// MaxDepth bounds how many link hops from the seed are followed.
	// Zero fetches the seed page only; the service default lives in the
	// config layer.
	MaxDepth    int
	MaxPages    int
	Concurrency int
	// Delay forces sequential fetching with a politeness pause between
	// pages on the crawled host.
	Delay time.Duration
	// Filter, when set, must return true for a URL to be enqueued.
	Filter func(url string) bool
	// MinValidLength gates which pages are worth link extraction.
	MinValidLength int
	// FollowExternal enqueues external links under the same depth and
	// page budgets instead of only recording them. Off by default, so a
	// crawl stays on the seed's host.
	FollowExternal bool
}

func (o Options) withDefaults() Options {
	if o.MaxDepth < 0 {
		o.MaxDepth = 0
	}
	if o.MaxPages <= 0 {
		o.MaxPages = 100
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.MinValidLength <= 0 {
		o.MinValidLength = fetch.DefaultMinValidLength
	}
	return o
}

// Crawler walks one host breadth first. Every page fetch goes through
// the scraper, so hard pages get the same tier escalation as single
// fetches.
type Crawler struct {
	scraper Scraper
	opts    Options
	emitter progress.Emitter
	logger  *zap.Logger
}

// New builds a Crawler.
func New(scraper Scraper, opts Options, logger *zap.Logger) (*Crawler, error) {
	if scraper == nil {
		return nil, fmt.Errorf("scraper must be set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{scraper: scraper, opts: opts.withDefaults(), logger: logger}, nil
}

// SetEmitter attaches a progress emitter for per-page events.
func (c *Crawler) SetEmitter(e progress.Emitter) { c.emitter = e }

// WithOptions returns a copy of the crawler using different bounds,
// sharing the scraper, emitter, and logger.
func (c *Crawler) WithOptions(opts Options) *Crawler {
	clone := *c
	clone.opts = opts.withDefaults()
	return &clone
}

type frontierEntry struct {
	url   string
	depth int
}

// CrawlStream walks the seed's host level by level until the depth or
// page budget runs out, yielding each page as it is fetched. The channel
// closes when the walk finishes; repeating a crawl needs a fresh call.
// Only same-host links are followed unless FollowExternal is set.
func (c *Crawler) CrawlStream(ctx context.Context, seed string) (<-chan Page, error) {
	normalized, err := fetch.Normalize(seed)
	if err != nil {
		return nil, fmt.Errorf("crawl seed: %w", err)
	}
	out := make(chan Page)
	go func() {
		defer close(out)
		c.walk(ctx, normalized, out)
	}()
	return out, nil
}

func (c *Crawler) walk(ctx context.Context, seed string, out chan<- Page) {
	runID := progress.UUIDToBytes(uuid.New())
	visited := map[string]struct{}{seed: {}}
	frontier := []frontierEntry{{url: seed, depth: 0}}
	yielded := 0

	for len(frontier) > 0 && yielded < c.opts.MaxPages {
		budget := c.opts.MaxPages - yielded
		level := frontier
		if len(level) > budget {
			level = level[:budget]
		}
		frontier = frontier[len(level):]

		pages, err := c.fetchLevel(ctx, runID, level)
		if err != nil {
			return
		}

		for _, p := range pages {
			select {
			case out <- p:
			case <-ctx.Done():
				return
			}
			yielded++
			if p.Depth >= c.opts.MaxDepth {
				continue
			}
			links := p.Internal
			if c.opts.FollowExternal {
				links = append(append([]string(nil), links...), p.External...)
			}
			for _, link := range links {
				if _, ok := visited[link]; ok {
					continue
				}
				if c.opts.Filter != nil && !c.opts.Filter(link) {
					continue
				}
				visited[link] = struct{}{}
				frontier = append(frontier, frontierEntry{url: link, depth: p.Depth + 1})
			}
		}
	}
}

// Crawl drains the page stream into an aggregate result and stamps the
// seed host's outlink graph row. External links are recorded in the
// graph; they are only fetched when FollowExternal is set.
func (c *Crawler) Crawl(ctx context.Context, seed string) (*Result, error) {
	start := time.Now()
	pages, err := c.CrawlStream(ctx, seed)
	if err != nil {
		return nil, err
	}
	normalized, _ := fetch.Normalize(seed)
	host := fetch.HostOf(normalized)

	res := &Result{
		Seed:         normalized,
		Host:         host,
		OutlinkGraph: make(map[string][]string),
	}
	for p := range pages {
		res.Pages = append(res.Pages, p)
	}
	if hosts := res.ExternalHosts(); len(hosts) > 0 {
		sort.Strings(hosts)
		res.OutlinkGraph[host] = hosts
	}

	res.Elapsed = time.Since(start)
	res.ElapsedMs = res.Elapsed.Milliseconds()
	c.logger.Info("crawl finished",
		zap.String("host", host),
		zap.Int("pages", len(res.Pages)),
		zap.Duration("elapsed", res.Elapsed))
	return res, ctx.Err()
}

// fetchLevel fetches one BFS level. With a politeness delay the level
// runs sequentially; otherwise pages fan out over a bounded group.
func (c *Crawler) fetchLevel(ctx context.Context, runID [16]byte, level []frontierEntry) ([]Page, error) {
	pages := make([]Page, len(level))

	if c.opts.Delay > 0 {
		for i, entry := range level {
			if i > 0 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(c.opts.Delay):
				}
			}
			pages[i] = c.fetchPage(ctx, runID, entry)
		}
		return pages, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, entry := range level {
		g.Go(func() error {
			pages[i] = c.fetchPage(gctx, runID, entry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pages, nil
}

func (c *Crawler) fetchPage(ctx context.Context, runID [16]byte, entry frontierEntry) Page {
	result := c.scraper.Scrape(ctx, entry.url)
	page := Page{URL: entry.url, Depth: entry.depth, Result: result}

	if result.Success(c.opts.MinValidLength) {
		page.ContentHash = hash.Content(result.HTML)
		internal, external, err := ExtractLinks(entry.url, result.HTML)
		if err != nil {
			c.logger.Warn("link extraction failed", zap.String("url", entry.url), zap.Error(err))
		} else {
			page.Internal = internal
			page.External = external
		}
	}

	host := fetch.HostOf(entry.url)
	metrics.ObserveCrawlPage(host, result.StatusCode)
	if c.emitter != nil {
		c.emitter.Emit(progress.Event{
			RunID: runID,
			TS:    time.Now().UTC(),
			Stage: progress.StageCrawlPage,
			Tier:  result.TierName,
			Host:  host,
			URL:   entry.url,
			Bytes: int64(len(result.HTML)),
			Dur:   result.Latency,
		})
	}
	return page
}
