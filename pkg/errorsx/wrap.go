package errorsx

import (
	"errors"
	"fmt"
)

// ReasonedError wraps an error with a reason code.
type ReasonedError struct {
	Err    error
	Reason ReasonCode
}

func (e ReasonedError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return e.Err.Error()
}

func (e ReasonedError) Unwrap() error {
	return e.Err
}

// New builds a reasoned error from a plain message.
func New(reason ReasonCode, msg string) error {
	return ReasonedError{Err: errors.New(msg), Reason: reason}
}

// Newf is New with formatting. %w verbs are honored.
func Newf(reason ReasonCode, format string, args ...any) error {
	return ReasonedError{Err: fmt.Errorf(format, args...), Reason: reason}
}

// Wrap attaches a reason code to an error. An error that already carries a
// reason keeps it.
func Wrap(err error, reason ReasonCode) error {
	if err == nil {
		return nil
	}
	var re ReasonedError
	if errors.As(err, &re) {
		return err
	}
	return ReasonedError{Err: err, Reason: reason}
}

// Reason extracts a reason code from an error, if present.
func Reason(err error) ReasonCode {
	if err == nil {
		return ReasonUnknown
	}
	var re ReasonedError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ReasonUnknown
}

// HasReason returns true if err contains the given reason code.
func HasReason(err error, reason ReasonCode) bool {
	return Reason(err) == reason
}

// Kind groups reason codes into the categories surfaced to users.
type Kind string

const (
	KindNone               Kind = ""
	KindUnsupported        Kind = "unsupported"
	KindCaptureError       Kind = "capture_error"
	KindTranslationFailure Kind = "translation_failure"
	KindSynthesisFailure   Kind = "synthesis_failure"
	KindStorageCorruption  Kind = "storage_corruption"
	KindInternal           Kind = "internal"
)

// KindOf maps err onto its user facing category.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	switch Reason(err) {
	case ReasonUnsupported:
		return KindUnsupported
	case ReasonCaptureError, ReasonCaptureConnect:
		return KindCaptureError
	case ReasonTranslateFailed, ReasonTranslateRateLimit, ReasonTranslateMalformed:
		return KindTranslationFailure
	case ReasonSynthesisFailed, ReasonSynthesisConnect:
		return KindSynthesisFailure
	case ReasonStorageCorrupt, ReasonStorageRead, ReasonStorageWrite:
		return KindStorageCorruption
	default:
		return KindInternal
	}
}
