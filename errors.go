package gzidx

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure classes that can cross the
// indexer/codec/reader boundary (spec.md §4.6, §7). Keeping it a flat,
// stable enumeration rather than ad-hoc wrapped errors is deliberate:
// callers (including non-Go bindings one day) need to switch on a small,
// stable set rather than parse strings.
type ErrorKind int

const (
	// Success is the zero value; it is never itself wrapped into an Error.
	Success ErrorKind = iota
	// Unknown covers anything that doesn't fit a more specific kind.
	Unknown
	// Open indicates a failure to open the compressed file or its sidecar.
	Open
	// ReadErr indicates a failure reading from an already-open file.
	ReadErr
	// WriteErr indicates a failure writing the sidecar.
	WriteErr
	// Data indicates malformed data: a short read before any data was
	// produced, a corrupt DEFLATE block, a failed gzip trailer check
	// (zlib trailers are not checked), or a sidecar whose record digest
	// does not match.
	Data
	// OutOfMemory indicates an allocation failure while building or
	// loading an index. No function in this package returns it.
	OutOfMemory
	// Incompatible indicates a sidecar that cannot be honored by this
	// reader: bad magic, or an offset width the reader was not built
	// with.
	Incompatible
	// Zlib indicates a failure inside the DEFLATE/gzip/zlib container
	// handling itself (a bad header, an unexpected close failure).
	Zlib
)

func (k ErrorKind) String() string {
	switch k {
	case Success:
		return "success"
	case Unknown:
		return "unknown error"
	case Open:
		return "open error"
	case ReadErr:
		return "read error"
	case WriteErr:
		return "write error"
	case Data:
		return "data error"
	case OutOfMemory:
		return "out of memory"
	case Incompatible:
		return "incompatible"
	case Zlib:
		return "zlib error"
	default:
		return "unknown error"
	}
}

// Error pairs an ErrorKind with the underlying cause, if any.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// wrap builds an *Error of the given kind, or returns nil if err is nil.
func wrap(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the ErrorKind from err, or Unknown if err was not
// produced by this package.
func KindOf(err error) ErrorKind {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
