package verbex

import "github.com/verbex/verbex/internal/database"

// Kind identifies the category of an error returned by this package, per
// spec.md §7. Since internal/database is unexported from the module,
// Kind and the classification helpers below are the only way external
// callers can distinguish NotFound from AlreadyExists from Busy and the
// rest of the taxonomy.
type Kind = database.Kind

const (
	KindNotFound        = database.KindNotFound
	KindAlreadyExists   = database.KindAlreadyExists
	KindNotOpen         = database.KindNotOpen
	KindAlreadyOpen     = database.KindAlreadyOpen
	KindInvalidArgument = database.KindInvalidArgument
	KindCancelled       = database.KindCancelled
	KindBusy            = database.KindBusy
	KindIoError         = database.KindIoError
	KindCorruption      = database.KindCorruption
)

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return database.Is(err, kind)
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool { return Is(err, KindNotFound) }

// IsAlreadyExists reports whether err is an AlreadyExists error.
func IsAlreadyExists(err error) bool { return Is(err, KindAlreadyExists) }

// IsNotOpen reports whether err is a NotOpen error.
func IsNotOpen(err error) bool { return Is(err, KindNotOpen) }

// IsAlreadyOpen reports whether err is an AlreadyOpen error.
func IsAlreadyOpen(err error) bool { return Is(err, KindAlreadyOpen) }

// IsInvalidArgument reports whether err is an InvalidArgument error.
func IsInvalidArgument(err error) bool { return Is(err, KindInvalidArgument) }

// IsCancelled reports whether err is a Cancelled error.
func IsCancelled(err error) bool { return Is(err, KindCancelled) }

// IsBusy reports whether err is a Busy error.
func IsBusy(err error) bool { return Is(err, KindBusy) }

// IsIoError reports whether err is an IoError error.
func IsIoError(err error) bool { return Is(err, KindIoError) }

// IsCorruption reports whether err is a Corruption error.
func IsCorruption(err error) bool { return Is(err, KindCorruption) }
