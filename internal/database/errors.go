package database

import "fmt"

// Kind identifies one of the error categories spec.md §7 enumerates.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindAlreadyExists   Kind = "already_exists"
	KindNotOpen         Kind = "not_open"
	KindAlreadyOpen     Kind = "already_open"
	KindInvalidArgument Kind = "invalid_argument"
	KindCancelled       Kind = "cancelled"
	KindBusy            Kind = "busy"
	KindIoError         Kind = "io_error"
	KindCorruption      Kind = "corruption"
)

// Error is the taxonomy-tagged error every public operation returns.
// Callers switch on Kind rather than parsing Error().
type Error struct {
	Kind   Kind
	Entity string
	Key    string
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("not found: %s %q", e.Entity, e.Key)
	case KindAlreadyExists:
		return fmt.Sprintf("already exists: %s %q", e.Entity, e.Key)
	case KindNotOpen:
		return "index is not open"
	case KindAlreadyOpen:
		return "index is already open"
	case KindInvalidArgument:
		return fmt.Sprintf("invalid argument %q: %s", e.Entity, e.Reason)
	case KindCancelled:
		return "operation cancelled"
	case KindBusy:
		return fmt.Sprintf("busy: %s", e.Reason)
	case KindIoError:
		return fmt.Sprintf("io error at %q: %v", e.Key, e.Cause)
	case KindCorruption:
		return fmt.Sprintf("corruption: %s", e.Reason)
	default:
		return fmt.Sprintf("verbex: %s", e.Reason)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NotFound builds a KindNotFound error for entity/id.
func NotFound(entity, id string) error {
	return &Error{Kind: KindNotFound, Entity: entity, Key: id}
}

// AlreadyExists builds a KindAlreadyExists error for entity/key.
func AlreadyExists(entity, key string) error {
	return &Error{Kind: KindAlreadyExists, Entity: entity, Key: key}
}

// NotOpen builds a KindNotOpen error.
func NotOpen() error {
	return &Error{Kind: KindNotOpen}
}

// AlreadyOpen builds a KindAlreadyOpen error.
func AlreadyOpen() error {
	return &Error{Kind: KindAlreadyOpen}
}

// InvalidArgument builds a KindInvalidArgument error for field/reason.
func InvalidArgument(field, reason string) error {
	return &Error{Kind: KindInvalidArgument, Entity: field, Reason: reason}
}

// Cancelled builds a KindCancelled error.
func Cancelled() error {
	return &Error{Kind: KindCancelled}
}

// Busy builds a KindBusy error with detail.
func Busy(detail string) error {
	return &Error{Kind: KindBusy, Reason: detail}
}

// IoError builds a KindIoError error for path/cause.
func IoError(path string, cause error) error {
	return &Error{Kind: KindIoError, Key: path, Cause: cause}
}

// Corruption builds a KindCorruption error with detail.
func Corruption(detail string) error {
	return &Error{Kind: KindCorruption, Reason: detail}
}

// Is reports whether err carries the given Kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
