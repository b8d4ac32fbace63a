package usage

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownMeter is returned when a meter number has no building mapping.
	ErrUnknownMeter = errors.New("usage: unknown meter")
	// ErrUnknownBuilding is returned when a building has no occupancy entry.
	ErrUnknownBuilding = errors.New("usage: unknown building")
	// ErrMalformedInput is returned when an export is missing columns or metadata, or its rows disagree.
	ErrMalformedInput = errors.New("usage: malformed input")
	// ErrMalformedTimestamp is returned when a row's date and start time do not form a point in time.
	ErrMalformedTimestamp = errors.New("usage: malformed timestamp")
	// ErrInconsistentUnit is returned when records sharing an aggregate key report different units.
	ErrInconsistentUnit = errors.New("usage: inconsistent unit")
)

// LookupError reports a reference table key that could not be resolved.
type LookupError struct {
	Err error // ErrUnknownMeter or ErrUnknownBuilding
	Key string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Key)
}

func (e *LookupError) Unwrap() error { return e.Err }

// FileError ties a failure to the source file that caused it.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }
