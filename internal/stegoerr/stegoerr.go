// Package stegoerr defines the typed, kind-tagged errors surfaced by the
// pixsafe core packages to the CLI.
//
// Modeled on the teacher's diskimage.StatusError: a small struct that
// exposes a stable, switchable status to the caller alongside a human
// message and an optional wrapped cause, rather than relying on callers to
// string-match error text.
package stegoerr

import "fmt"

// Kind classifies a failure per the error kinds named in §7 of the spec.
type Kind string

const (
	KindInvalidInputPath Kind = "InvalidInputPath"
	KindUnsupportedImage Kind = "UnsupportedImage"
	KindImageTooSmall    Kind = "ImageTooSmall"
	KindCapacityExceeded Kind = "CapacityExceeded"
	KindInvalidImageSet  Kind = "InvalidImageSet"
	KindCorruptPayload   Kind = "CorruptPayload"
	KindIOError          Kind = "IOError"
)

// Error is the kind-tagged error type returned by the encode/decode core
// (container, dirtree, pixelio, stego and most of fsops); bitio, config and
// pathutil return plain errors. Op names the failing step (e.g.
// "stego.Encode"); Err, if non-nil, is the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with a formatted message and no wrapped cause.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error around an existing cause.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err is a *Error of the given Kind. Mirrors the
// diskimage package's Status() accessor pattern but as a free function so
// callers can use errors.As transparently if they prefer.
func Is(err error, kind Kind) bool {
	var se *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			se = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return se != nil && se.Kind == kind
}
