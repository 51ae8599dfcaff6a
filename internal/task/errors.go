package task

import "errors"

// Stable error codes surfaced to clients when a task fails.
const (
	CodeAcquisition     = "acquisition_error"
	CodeAudioExtraction = "audio_extraction_error"
	CodeTranscription   = "transcription_error"
	CodeStorage         = "storage_error"
	CodeNotFound        = "not_found"
	CodeValidation      = "validation_error"
	CodeUnexpected      = "unexpected_error"
)

// Error is a structured pipeline failure with a stable code, a
// human-readable message, and optional underlying detail text.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	err     error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Code + ": " + e.Message + ": " + e.Details
	}
	return e.Code + ": " + e.Message
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.err }

// NewError builds a structured error, recording the cause both as detail
// text and as the wrapped error.
func NewError(code, message string, cause error) *Error {
	e := &Error{Code: code, Message: message, err: cause}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// AsError coerces any error into a structured *Error. Errors that are not
// already structured are wrapped under the unexpected_error code.
func AsError(err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	return NewError(CodeUnexpected, "unexpected pipeline failure", err)
}
