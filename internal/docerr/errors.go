// Package docerr defines the flat error taxonomy shared by the shaper, the
// key generators and the cluster router. There is no wrapping hierarchy:
// every operation in this module returns exactly one Code (or nil), and
// callers compare against the sentinel values below rather than walking a
// chain of wrapped causes.
package docerr

import "fmt"

// Code is one of the closed set of error kinds surfaced to callers.
type Code string

const (
	NoError              Code = "NoError"
	CollectionNotFound   Code = "CollectionNotFound"
	ShardGone            Code = "ShardGone"
	MustNotSpecifyKey    Code = "MustNotSpecifyKey"
	ClusterTimeout       Code = "ClusterTimeout"
	ConnectionLost       Code = "ConnectionLost"
	ContradictingAnswers Code = "ContradictingAnswers"
	HttpNotFound         Code = "HttpNotFound"
	KeyBad               Code = "KeyBad"
	KeyUnexpected        Code = "KeyUnexpected"
	OutOfKeys            Code = "OutOfKeys"
	InvalidKeyGenerator  Code = "InvalidKeyGenerator"
	ShaperFailed         Code = "ShaperFailed"
	ShaperCycle          Code = "ShaperCycle"
	BadParameter         Code = "BadParameter"
	OutOfMemory          Code = "OutOfMemory"
	NotFound             Code = "NotFound"
)

// Error is the single error type returned throughout this module. It
// carries a Code for programmatic dispatch and an optional Detail string
// for human-readable context; it never wraps another error.
type Error struct {
	Detail string
	Code   Code
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// New constructs an *Error with the given code and a formatted detail
// message, mirroring the teacher's fmt.Errorf call sites.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Is reports whether err is a *docerr.Error carrying exactly this code,
// enabling the errors.Is(err, docerr.Of(ShardGone)) idiom used by callers
// that only care about the code, not the detail text.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// Of returns a bare sentinel *Error for the given code, suitable for use
// with errors.Is as a comparison target.
func Of(code Code) *Error {
	return &Error{Code: code}
}

// CodeOf extracts the Code from err if it is a *docerr.Error, or returns
// NoError otherwise.
func CodeOf(err error) Code {
	if err == nil {
		return NoError
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return NoError
}
