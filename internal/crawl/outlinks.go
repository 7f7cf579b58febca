package crawl

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentCrawls bounds how many domains CrawlMany walks at once.
const maxConcurrentCrawls = 4

// CrawlMany crawls several seed domains with a shared concurrency bound.
// Failed seeds are logged and skipped; results come back in seed order
// with nil holes for the failures.
func (c *Crawler) CrawlMany(ctx context.Context, seeds []string) []*Result {
	out := make([]*Result, len(seeds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentCrawls)
	for i, seed := range seeds {
		g.Go(func() error {
			res, err := c.Crawl(gctx, seed)
			if err != nil {
				c.logger.Warn("seed crawl failed", zap.String("seed", seed), zap.Error(err))
				return nil
			}
			out[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// CrawlWithOutlinks crawls the seed domain, then fetches one page from
// up to maxSeeds of the external hosts it links to, seeding each
// neighbor's row of the outlink graph.
func (c *Crawler) CrawlWithOutlinks(ctx context.Context, seed string, maxSeeds int) (*Result, []*Result, error) {
	primary, err := c.Crawl(ctx, seed)
	if err != nil {
		return nil, nil, err
	}
	if maxSeeds <= 0 {
		return primary, nil, nil
	}

	hosts := primary.ExternalHosts()
	if len(hosts) > maxSeeds {
		hosts = hosts[:maxSeeds]
	}
	if len(hosts) == 0 {
		return primary, nil, nil
	}

	shallow := *c
	shallow.opts.MaxDepth = 0
	shallow.opts.MaxPages = 1
	neighbors := shallow.CrawlMany(ctx, hosts)
	for _, n := range neighbors {
		if n == nil {
			continue
		}
		for h, row := range n.OutlinkGraph {
			primary.OutlinkGraph[h] = row
		}
	}
	return primary, neighbors, nil
}
