package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports that no record matched a keyword or id.
	ErrNotFound = errors.New("not found")
	// ErrEmptyCatalog reports that the catalog has no records at all.
	ErrEmptyCatalog = errors.New("empty catalog")
	// ErrStorage reports an I/O failure of the backing medium.
	ErrStorage = errors.New("storage failure")
	// ErrInvalidInput reports a missing or malformed argument.
	ErrInvalidInput = errors.New("invalid input")
)

// Error describes a failed catalog operation.
// errors.Is matches both Kind and the wrapped cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("catalog: %s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("catalog: %s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Code returns a stable identifier used as the err_code log field.
func (e *Error) Code() string {
	switch e.Kind {
	case ErrNotFound:
		return "NOT_FOUND"
	case ErrEmptyCatalog:
		return "EMPTY_CATALOG"
	case ErrInvalidInput:
		return "INVALID_INPUT"
	case ErrStorage:
		return "STORAGE_FAILURE"
	}
	return "CATALOG_ERROR"
}

func notFound(op string) error {
	return &Error{Op: op, Kind: ErrNotFound}
}

func invalidInput(op, msg string) error {
	return &Error{Op: op, Kind: ErrInvalidInput, Err: errors.New(msg)}
}

func storageErr(op string, err error) error {
	return &Error{Op: op, Kind: ErrStorage, Err: err}
}
