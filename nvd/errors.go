package nvd

import (
	"fmt"

	"golang.org/x/xerrors"
)

type ErrorKind int

const (
	// ConfigurationError is an invalid output directory, year range or identifier.
	ConfigurationError ErrorKind = iota + 1
	// DirectoryError is a failure to create a year directory.
	DirectoryError
	// NetworkError covers connection failures, timeouts and non-200 responses.
	NetworkError
	// DecodeError is a broken gzip payload or malformed JSON.
	DecodeError
	// SchemaError means CVE_Items or an entry ID is missing.
	SchemaError
	// FileError is a failed read or write of a document or entry file.
	FileError
	// CanceledError means the context was done before the year finished.
	CanceledError
)

func (k ErrorKind) String() string {
	switch k {
	case ConfigurationError:
		return "configuration error"
	case DirectoryError:
		return "directory error"
	case NetworkError:
		return "network error"
	case DecodeError:
		return "decode error"
	case SchemaError:
		return "schema error"
	case FileError:
		return "file error"
	case CanceledError:
		return "canceled"
	}
	return fmt.Sprintf("unknown error kind %d", int(k))
}

type Error struct {
	Kind ErrorKind
	// Year is 0 when the error is not bound to a year.
	Year int
	Err  error
}

func newError(kind ErrorKind, year int, err error) error {
	return &Error{Kind: kind, Year: year, Err: err}
}

func (e *Error) Error() string {
	if e.Year == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, YearDir(e.Year), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the outermost *Error in the chain of err.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if !xerrors.As(err, &e) {
		return 0, false
	}
	return e.Kind, true
}

func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
