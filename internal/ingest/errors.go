package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyExists marks an item whose output is already present.
	ErrAlreadyExists = errors.New("already exists")
	// ErrMissingIdentifier marks an item whose primary identifier could not be resolved.
	ErrMissingIdentifier = errors.New("missing identifier")
)

// IsSkip reports whether err means the item should be counted as skipped
// rather than failed.
func IsSkip(err error) bool {
	return errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrMissingIdentifier)
}

type FetchErrorKind int

const (
	KindTransport FetchErrorKind = iota
	KindStatus
	KindParse
)

func (k FetchErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindParse:
		return "parse"
	}
	return "unknown"
}

// FetchError is the error of the last attempt of a fetch plus the number
// of attempts that were spent.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v (after %d attempts)", e.URL, e.Err, e.Attempts)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StatusError is returned by an attempt that got a non-success http status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("HTTP %s", e.Status)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// PersistError wraps failures of durable storage, they are counted against
// the item but reported at run level as well.
type PersistError struct {
	Key string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Key, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
