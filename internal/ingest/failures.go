package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"harvest/lib/chrono"
)

// FailureHeader is written once, as the first row of an empty failure log.
var FailureHeader = []string{"item_id", "item_label", "source_url", "error_message", "timestamp"}

const failureTimeLayout = "2006-01-02 15:04:05"

// FailureLog is an append-only csv file of failed items. It is never
// truncated or rewritten, only appended to.
type FailureLog struct {
	mu   sync.Mutex
	path string
	loc  *time.Location
}

func NewFailureLog(path string, loc *time.Location) *FailureLog {
	if loc == nil {
		loc = time.Local
	}
	return &FailureLog{path: path, loc: loc}
}

func (l *FailureLog) Path() string {
	return l.path
}

func (l *FailureLog) LogFailure(entry FailureEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := os.MkdirAll(filepath.Dir(l.path), 0777)
	if err != nil {
		return fmt.Errorf("create failure log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open failure log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat failure log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		err = w.Write(FailureHeader)
		if err != nil {
			return fmt.Errorf("write failure log header: %w", err)
		}
	}
	err = w.Write([]string{
		entry.ItemID,
		entry.ItemLabel,
		entry.SourceURL,
		entry.ErrorMessage,
		entry.Timestamp.In(l.loc).Format(failureTimeLayout),
	})
	if err != nil {
		return fmt.Errorf("write failure log row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush failure log: %w", err)
	}
	return f.Close()
}

// ReadFailureLog returns every entry in the failure log at path, a missing
// file yields no entries.
func ReadFailureLog(path string, loc *time.Location) ([]FailureEntry, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(FailureHeader)

	var entries []FailureEntry
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return entries, fmt.Errorf("read failure log: %w", err)
		}
		if first {
			first = false
			if row[0] == FailureHeader[0] {
				continue
			}
		}
		ts, _ := chrono.Parse(row[4], loc)
		entries = append(entries, FailureEntry{
			ItemID:       row[0],
			ItemLabel:    row[1],
			SourceURL:    row[2],
			ErrorMessage: row[3],
			Timestamp:    ts,
		})
	}
	return entries, nil
}
