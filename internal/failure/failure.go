// Package failure defines the error kinds shared by the pipeline stages.
// Every error carries the operation and the offending path, key or frame
// so that it can be reported without re-deriving state.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a pipeline error.
type Kind int

const (
	Unknown Kind = iota
	NotFound
	Ambiguous
	TypeMismatch
	OutOfRange
	NotInitialized
	IntegrationFailure
	FormatUnsupported
)

var kindNames = map[Kind]string{
	Unknown:            "unknown",
	NotFound:           "not found",
	Ambiguous:          "ambiguous",
	TypeMismatch:       "type mismatch",
	OutOfRange:         "out of range",
	NotInitialized:     "not initialized",
	IntegrationFailure: "integration failed",
	FormatUnsupported:  "format unsupported",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is. An *Error matches the sentinel of its kind.
var (
	ErrNotFound           = errors.New(NotFound.String())
	ErrAmbiguous          = errors.New(Ambiguous.String())
	ErrTypeMismatch       = errors.New(TypeMismatch.String())
	ErrOutOfRange         = errors.New(OutOfRange.String())
	ErrNotInitialized     = errors.New(NotInitialized.String())
	ErrIntegrationFailure = errors.New(IntegrationFailure.String())
	ErrFormatUnsupported  = errors.New(FormatUnsupported.String())
)

var sentinels = map[Kind]error{
	NotFound:           ErrNotFound,
	Ambiguous:          ErrAmbiguous,
	TypeMismatch:       ErrTypeMismatch,
	OutOfRange:         ErrOutOfRange,
	NotInitialized:     ErrNotInitialized,
	IntegrationFailure: ErrIntegrationFailure,
	FormatUnsupported:  ErrFormatUnsupported,
}

// Error is a classified pipeline error.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "resolve" or "fetch".
	Op string
	// Subject is the offending path, key, query or frame.
	Subject string
	// Candidates lists every match of an ambiguous query.
	Candidates []string
	// Detail is an optional human-readable explanation.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Subject != "" {
		fmt.Fprintf(&b, ": %s", e.Subject)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, " (%s)", e.Detail)
	}
	if len(e.Candidates) > 0 {
		fmt.Fprintf(&b, "; candidates: %s", strings.Join(e.Candidates, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// New returns an error of the given kind.
func New(kind Kind, op, subject string, err error) *Error {
	return &Error{Kind: kind, Op: op, Subject: subject, Err: err}
}

// Newf returns an error of the given kind with a formatted detail.
func Newf(kind Kind, op, subject, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Subject: subject, Detail: fmt.Sprintf(format, args...)}
}

// NewAmbiguous reports a query that matched more than one candidate.
func NewAmbiguous(op, query string, candidates []string) *Error {
	return &Error{
		Kind:       Ambiguous,
		Op:         op,
		Subject:    fmt.Sprintf("%q matched %d paths", query, len(candidates)),
		Candidates: append([]string(nil), candidates...),
	}
}

// Frame formats a frame index as an error subject.
func Frame(i int) string { return fmt.Sprintf("frame %d", i) }

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Candidates returns the candidate list of an ambiguous error in err's
// chain, or nil.
func Candidates(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Candidates
	}
	return nil
}
