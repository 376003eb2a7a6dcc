package articles

import (
	"context"
	"io"
	"log/slog"
	"time"

	"harvest/internal/ingest"
)

// PageSource yields the entries of consecutive listing pages as work items.
// It ends at the first empty or failed page, or after MaxPages pages.
type PageSource struct {
	lister   *Lister
	pacer    *ingest.Pacer
	loc      *time.Location
	maxPages int

	next    int
	pending []ingest.WorkItem
	done    bool
	pages   int
	lastErr error
}

func NewPageSource(lister *Lister, pacer *ingest.Pacer, maxPages int, loc *time.Location) *PageSource {
	if loc == nil {
		loc = time.Local
	}
	return &PageSource{
		lister:   lister,
		pacer:    pacer,
		loc:      loc,
		maxPages: maxPages,
		next:     1,
	}
}

// Pages is the number of pages that yielded items.
func (s *PageSource) Pages() int {
	return s.pages
}

// Err is the listing failure that ended the source, if any.
func (s *PageSource) Err() error {
	return s.lastErr
}

func (s *PageSource) Next(ctx context.Context) (ingest.WorkItem, error) {
	for len(s.pending) == 0 {
		if s.done {
			return ingest.WorkItem{}, io.EOF
		}
		err := s.fill(ctx)
		if err != nil {
			return ingest.WorkItem{}, err
		}
	}
	item := s.pending[0]
	s.pending = s.pending[1:]
	return item, nil
}

func (s *PageSource) fill(ctx context.Context) error {
	if s.maxPages > 0 && s.next > s.maxPages {
		slog.InfoContext(ctx, "page limit reached", "max_pages", s.maxPages)
		s.done = true
		return nil
	}
	err := s.pacer.Wait(ctx)
	if err != nil {
		return err
	}

	index := s.next
	s.next++
	page, err := s.lister.Page(ctx, index)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// listing failures end the crawl, they are never retried
		slog.WarnContext(ctx, "listing failed, stopping", "page", index, "err", err)
		s.lastErr = err
		s.done = true
		return nil
	}
	if len(page.Items) == 0 {
		slog.InfoContext(ctx, "empty page, stopping", "page", index)
		s.done = true
		return nil
	}

	s.pages++
	slog.InfoContext(ctx, "fetched listing page", "page", index, "items", len(page.Items))
	for _, raw := range page.Items {
		s.pending = append(s.pending, s.workItem(raw))
	}
	return nil
}

func (s *PageSource) workItem(raw Item) ingest.WorkItem {
	article, err := Normalize(raw, s.loc)
	if err != nil {
		// an empty key makes the coordinator count the entry as skipped
		return ingest.WorkItem{Label: err.Error(), Payload: raw}
	}
	return ingest.WorkItem{
		Key:     article.ID,
		ID:      article.ID,
		Label:   article.Author,
		URL:     article.Link(),
		Payload: article,
	}
}
