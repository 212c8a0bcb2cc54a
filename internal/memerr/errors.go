// Package memerr defines the error taxonomy shared across agentmem's
// components. Every fallible operation in the store, embedding, search, and
// ingestion layers wraps its failure in one of these kinds so callers can
// branch on errors.Is / errors.As instead of string matching.
package memerr

import "fmt"

// Kind classifies a failure so callers can decide whether to degrade,
// retry, or surface it as fatal.
type Kind string

const (
	KindConfigMissing       Kind = "config_missing"
	KindConfigInvalid       Kind = "config_invalid"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindProviderAuthMissing Kind = "provider_auth_missing"
	KindProviderProtocol    Kind = "provider_protocol_error"
	KindVectorUnavailable   Kind = "vector_store_unavailable"
	KindDimensionMismatch   Kind = "dimension_mismatch"
	KindStoreBusy           Kind = "store_busy"
	KindFTSUnavailable      Kind = "fts_unavailable"
	KindDuplicateMemory     Kind = "duplicate_memory"
	KindInvalidInput        Kind = "invalid_input"
	KindMigrationFailed     Kind = "migration_failed"
)

// Error is a taxonomy-tagged error with an optional wrapped cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, memerr.New(memerr.KindStoreBusy, "", "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New constructs a tagged error.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap constructs a tagged error around a cause.
func Wrap(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err, if it (or something it wraps) is an
// *Error. Returns ("", false) otherwise.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return "", false
}
