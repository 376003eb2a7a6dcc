package ingest

import (
	"context"
	"io"
)

// Source is a lazy, finite, forward-only sequence of work items. Next
// returns io.EOF once the sequence is exhausted.
type Source interface {
	Next(ctx context.Context) (WorkItem, error)
}

// SliceSource yields the items of a slice in order.
type SliceSource struct {
	items []WorkItem
	pos   int
}

func NewSliceSource(items []WorkItem) *SliceSource {
	return &SliceSource{items: items}
}

func (s *SliceSource) Next(ctx context.Context) (WorkItem, error) {
	if err := ctx.Err(); err != nil {
		return WorkItem{}, err
	}
	if s.pos >= len(s.items) {
		return WorkItem{}, io.EOF
	}
	item := s.items[s.pos]
	s.pos++
	return item, nil
}
