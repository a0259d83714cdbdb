// Package dberrors defines the typed error values the engine returns.
// Each case is its own struct so callers can type-switch or errors.As,
// following the one-struct-per-case idiom the rest of this module uses.
package dberrors

import (
	"fmt"

	cockroacherrors "github.com/cockroachdb/errors"
)

// ErrorCode is the wire-level error code from the client protocol.
type ErrorCode int

const (
	Success ErrorCode = iota
	NoSuchElement
	NoSuchContainer
	InvalidJSONPointer
	InvalidIndex
	InvalidType
	DatabaseNotExists
	DatabaseAlreadyExists
	CollectionNotExists
	CollectionAlreadyExists
	CollectionDropped
	OtherError
)

func (c ErrorCode) String() string {
	switch c {
	case Success:
		return "SUCCESS"
	case NoSuchElement:
		return "NO_SUCH_ELEMENT"
	case NoSuchContainer:
		return "NO_SUCH_CONTAINER"
	case InvalidJSONPointer:
		return "INVALID_JSON_POINTER"
	case InvalidIndex:
		return "INVALID_INDEX"
	case InvalidType:
		return "INVALID_TYPE"
	case DatabaseNotExists:
		return "DATABASE_NOT_EXISTS"
	case DatabaseAlreadyExists:
		return "DATABASE_ALREADY_EXISTS"
	case CollectionNotExists:
		return "COLLECTION_NOT_EXISTS"
	case CollectionAlreadyExists:
		return "COLLECTION_ALREADY_EXISTS"
	case CollectionDropped:
		return "COLLECTION_DROPPED"
	default:
		return "OTHER_ERROR"
	}
}

// Coded is implemented by every error in this package so the dispatcher
// can attach a wire ErrorCode without string matching.
type Coded interface {
	error
	ErrorCode() ErrorCode
}

type NoSuchElementError struct {
	Pointer string
}

func (e *NoSuchElementError) Error() string       { return fmt.Sprintf("no such element at pointer %q", e.Pointer) }
func (e *NoSuchElementError) ErrorCode() ErrorCode { return NoSuchElement }

type NoSuchContainerError struct {
	Pointer string
}

func (e *NoSuchContainerError) Error() string {
	return fmt.Sprintf("no such container for pointer %q", e.Pointer)
}
func (e *NoSuchContainerError) ErrorCode() ErrorCode { return NoSuchContainer }

type InvalidJSONPointerError struct {
	Pointer string
}

func (e *InvalidJSONPointerError) Error() string {
	return fmt.Sprintf("invalid json pointer %q", e.Pointer)
}
func (e *InvalidJSONPointerError) ErrorCode() ErrorCode { return InvalidJSONPointer }

type InvalidIndexError struct {
	Pointer string
	Index   int
}

func (e *InvalidIndexError) Error() string {
	return fmt.Sprintf("invalid array index %d at %q", e.Index, e.Pointer)
}
func (e *InvalidIndexError) ErrorCode() ErrorCode { return InvalidIndex }

type InvalidTypeError struct {
	Pointer string
	Want    string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("value at %q is not of type %s", e.Pointer, e.Want)
}
func (e *InvalidTypeError) ErrorCode() ErrorCode { return InvalidType }

type DatabaseNotExistsError struct {
	Name string
}

func (e *DatabaseNotExistsError) Error() string       { return fmt.Sprintf("database %q does not exist", e.Name) }
func (e *DatabaseNotExistsError) ErrorCode() ErrorCode { return DatabaseNotExists }

type DatabaseAlreadyExistsError struct {
	Name string
}

func (e *DatabaseAlreadyExistsError) Error() string {
	return fmt.Sprintf("database %q already exists", e.Name)
}
func (e *DatabaseAlreadyExistsError) ErrorCode() ErrorCode { return DatabaseAlreadyExists }

type CollectionNotExistsError struct {
	Database   string
	Collection string
}

func (e *CollectionNotExistsError) Error() string {
	return fmt.Sprintf("collection %q.%q does not exist", e.Database, e.Collection)
}
func (e *CollectionNotExistsError) ErrorCode() ErrorCode { return CollectionNotExists }

type CollectionAlreadyExistsError struct {
	Database   string
	Collection string
}

func (e *CollectionAlreadyExistsError) Error() string {
	return fmt.Sprintf("collection %q.%q already exists", e.Database, e.Collection)
}
func (e *CollectionAlreadyExistsError) ErrorCode() ErrorCode { return CollectionAlreadyExists }

type CollectionDroppedError struct {
	Database   string
	Collection string
}

func (e *CollectionDroppedError) Error() string {
	return fmt.Sprintf("collection %q.%q has been dropped", e.Database, e.Collection)
}
func (e *CollectionDroppedError) ErrorCode() ErrorCode { return CollectionDropped }

type IndexNotFoundError struct {
	Name string
}

func (e *IndexNotFoundError) Error() string       { return fmt.Sprintf("index %q not found", e.Name) }
func (e *IndexNotFoundError) ErrorCode() ErrorCode { return InvalidIndex }

type DuplicateKeyError struct {
	Index string
	Key   string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %q violates unique index %q", e.Key, e.Index)
}
func (e *DuplicateKeyError) ErrorCode() ErrorCode { return InvalidIndex }

type OtherErrorWrap struct {
	Cause error
}

func (e *OtherErrorWrap) Error() string       { return e.Cause.Error() }
func (e *OtherErrorWrap) Unwrap() error       { return e.Cause }
func (e *OtherErrorWrap) ErrorCode() ErrorCode { return OtherError }

// CodeOf extracts the wire ErrorCode from any error, defaulting to
// OtherError for errors not produced by this package (and Success for nil).
func CodeOf(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var coded Coded
	if cockroacherrors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return OtherError
}

// Wrap attaches a stack trace to err for propagation across actor
// mailbox boundaries; used on the fatal WAL/disk paths of spec §7.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cockroacherrors.Wrap(err, msg)
}

// Newf creates a stack-carrying formatted error.
func Newf(format string, args ...interface{}) error {
	return cockroacherrors.Newf(format, args...)
}
