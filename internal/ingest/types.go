package ingest

import (
	"fmt"
	"time"
)

// WorkItem is one unit of input. Key is the dedupe key, an empty Key means
// no identifier could be resolved and the item is skipped.
type WorkItem struct {
	Key   string
	ID    string
	Label string
	URL   string
	// Payload carries content that arrived with the listing itself, it is
	// nil for items that still have to be fetched.
	Payload any
}

// FailureEntry is one row of the failure log.
type FailureEntry struct {
	ItemID       string
	ItemLabel    string
	SourceURL    string
	ErrorMessage string
	Timestamp    time.Time
}

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// RunStats are scoped to a single run and never persisted.
type RunStats struct {
	RunID    string
	Started  time.Time
	Finished time.Time

	Total   int
	Success int
	Skipped int
	Failed  int
}

func (s *RunStats) record(o Outcome) {
	s.Total++
	switch o {
	case OutcomeSuccess:
		s.Success++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}

func (s RunStats) Duration() time.Duration {
	if s.Finished.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started)
}

func (s RunStats) String() string {
	return fmt.Sprintf("total=%d success=%d skipped=%d failed=%d", s.Total, s.Success, s.Skipped, s.Failed)
}
