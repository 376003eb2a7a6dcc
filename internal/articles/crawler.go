package articles

import (
	"context"
	"fmt"

	"harvest/internal/articles/db"
	"harvest/internal/ingest"
	"harvest/lib/chrono"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("harvest/articles")

// Summary is what a crawl reports once it is done.
type Summary struct {
	Stats ingest.RunStats
	Pages int
	// ListingErr is the listing failure that ended the crawl, if any.
	ListingErr error
	StoreCount int
	Latest     []db.Article
}

type Crawler struct {
	config Config
	lister *Lister
	store  *Store
	clock  chrono.TimeAPI
}

func NewCrawler(config Config, lister *Lister, store *Store, clock chrono.TimeAPI) *Crawler {
	if clock == nil {
		clock = chrono.NewStandardTime(nil)
	}
	return &Crawler{
		config: config.WithDefaults(),
		lister: lister,
		store:  store,
		clock:  clock,
	}
}

func (c *Crawler) Exists(ctx context.Context, item ingest.WorkItem) (bool, error) {
	return c.store.Exists(ctx, item.Key)
}

func (c *Crawler) Process(ctx context.Context, item ingest.WorkItem) error {
	article, ok := item.Payload.(Article)
	if !ok {
		return fmt.Errorf("unexpected payload %T", item.Payload)
	}
	return c.store.Commit(ctx, article)
}

// Run crawls listing pages until the target number of new articles has
// been stored, a page comes back empty or fails, or the page limit is hit.
func (c *Crawler) Run(ctx context.Context) (Summary, error) {
	loc := c.clock.Now().Location()
	source := NewPageSource(
		c.lister,
		ingest.NewPacer(c.config.PageDelay()),
		c.config.MaxPages,
		loc,
	)
	coordinator := &ingest.Coordinator{
		Name:      "articles",
		Source:    source,
		Dedupe:    c,
		Processor: c,
		Failures:  ingest.NewFailureLog(c.config.FailureLog, loc),
		Clock:     c.clock,
		Target:    c.config.Target,
	}

	stats, runErr := coordinator.Run(ctx)
	summary := Summary{
		Stats:      stats,
		Pages:      source.Pages(),
		ListingErr: source.Err(),
	}

	// a cancelled ctx would fail the queries below
	if ctx.Err() != nil {
		return summary, runErr
	}
	var err error
	summary.StoreCount, err = c.store.Count(ctx)
	if err != nil {
		return summary, err
	}
	summary.Latest, err = c.store.Latest(ctx, 5)
	if err != nil {
		return summary, err
	}
	return summary, runErr
}
