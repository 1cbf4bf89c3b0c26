// Package storeerr defines the error taxonomy shared by every layer of the
// knowledge base: the encoded store, the reverse-pointer store, Theo1, and
// Theo2 all report failures as a *StoreError so callers can branch on Kind
// rather than parsing strings.
package storeerr

import "fmt"

// ErrorKind classifies a StoreError per the error handling design.
type ErrorKind int

const (
	// Usage indicates an illegal argument: wrong element type for a
	// position, a non-slot used as a slot, a read attempted in a
	// write-only mode, a stale iterator token.
	Usage ErrorKind = iota
	// Invariant indicates the stored structure itself is broken: a
	// dangling pointer, a missing subslot list, a directory entry
	// referencing an absent partition. Not recoverable by the running
	// process.
	Invariant
	// Schema indicates a Theo2 constraint violation (cardinality, domain,
	// range).
	Schema
	// NotFound indicates the addressed location does not exist.
	NotFound
	// ReadOnly indicates a mutation was attempted against a read-only KB.
	ReadOnly
	// IO indicates a failure propagated from the underlying StoreMap.
	IO
)

func (k ErrorKind) String() string {
	switch k {
	case Usage:
		return "usage"
	case Invariant:
		return "invariant"
	case Schema:
		return "schema"
	case NotFound:
		return "not found"
	case ReadOnly:
		return "read only"
	case IO:
		return "io"
	default:
		return "unknown"
	}
}

// StoreError is the single error type produced by every layer. Op and Loc
// give the operation and location being attempted when the failure
// occurred; Err, if non-nil, is the underlying cause.
type StoreError struct {
	Kind ErrorKind
	Op   string
	Loc  string
	Err  error
}

func (e *StoreError) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Loc != "" {
		msg += " " + e.Loc
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is reports whether target is a *StoreError with the same Kind, so
// errors.Is(err, storeerr.New(storeerr.NotFound, "", "")) style checks work
// regardless of Op/Loc/Err.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds a StoreError with the given kind, operation, and location.
func New(kind ErrorKind, op, loc string) *StoreError {
	return &StoreError{Kind: kind, Op: op, Loc: loc}
}

// Wrap builds a StoreError that carries an underlying cause.
func Wrap(kind ErrorKind, op, loc string, err error) *StoreError {
	return &StoreError{Kind: kind, Op: op, Loc: loc, Err: err}
}

// Kind markers usable with errors.Is, e.g. errors.Is(err, storeerr.ErrNotFound).
var (
	ErrUsage     = &StoreError{Kind: Usage}
	ErrInvariant = &StoreError{Kind: Invariant}
	ErrSchema    = &StoreError{Kind: Schema}
	ErrNotFound  = &StoreError{Kind: NotFound}
	ErrReadOnly  = &StoreError{Kind: ReadOnly}
	ErrIO        = &StoreError{Kind: IO}
)

// Usagef is a convenience constructor mirroring fmt.Errorf for Usage errors.
func Usagef(op, loc, format string, args ...interface{}) *StoreError {
	return &StoreError{Kind: Usage, Op: op, Loc: loc, Err: fmt.Errorf(format, args...)}
}
