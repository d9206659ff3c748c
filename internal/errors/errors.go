// Package errors defines the failure taxonomy of the analysis pipeline.
//
// Every stage reports failures as *Error values tagged with a Kind. Fatal
// kinds halt the request and are converted into the sentinel result at the
// pipeline boundary; non-fatal kinds only degrade optional output.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind categorizes a pipeline failure.
type Kind string

const (
	// KindInvalidRequest means the request carried no question, image or
	// recording, or its parameter overrides were out of range.
	KindInvalidRequest Kind = "invalid_request"

	// KindTranscription means a voice recording could not be turned into a question.
	KindTranscription Kind = "transcription_failure"

	// KindTransport covers network or HTTP failures reaching the model or search backend.
	KindTransport Kind = "transport"

	// KindMalformedEnvelope means the model reply lacks the generated content field.
	KindMalformedEnvelope Kind = "malformed_envelope"

	// KindMalformedContent means the generated content is not a flat JSON object
	// with correctly typed fields.
	KindMalformedContent Kind = "malformed_content"

	// KindOutOfRangeProbability means the parsed probability lies outside [0, 100].
	KindOutOfRangeProbability Kind = "out_of_range_probability"

	// KindSynthesis means text-to-speech failed. Non-fatal.
	KindSynthesis Kind = "synthesis_failure"

	// KindEmptySearchResult means search augmentation produced no context. Non-fatal.
	KindEmptySearchResult Kind = "empty_search_result"
)

// Fatal reports whether a failure of this kind aborts the request.
func (k Kind) Fatal() bool {
	switch k {
	case KindSynthesis, KindEmptySearchResult:
		return false
	default:
		return true
	}
}

// Error is a classified pipeline failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Transport wraps a failure reaching a remote backend.
func Transport(message string, cause error) *Error {
	return New(KindTransport, message, cause)
}

// MalformedEnvelope reports a model reply without the expected content field.
func MalformedEnvelope(message string, cause error) *Error {
	return New(KindMalformedEnvelope, message, cause)
}

// MalformedContent reports generated content that is not the expected object.
func MalformedContent(message string, cause error) *Error {
	return New(KindMalformedContent, message, cause)
}

// Invalid reports a rejected request.
func Invalid(message string, cause error) *Error {
	return New(KindInvalidRequest, message, cause)
}

// Transcription reports a failed voice transcription.
func Transcription(message string, cause error) *Error {
	return New(KindTranscription, message, cause)
}

// OutOfRange reports a probability outside [0, 100].
func OutOfRange(value float64) *Error {
	return New(KindOutOfRangeProbability, fmt.Sprintf("probability %v is not within 0-100", value), nil)
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// UserMessage returns the human-readable message shown in place of a reason
// when a request fails with the given kind.
func UserMessage(kind Kind) string {
	switch kind {
	case KindInvalidRequest:
		return "Error: please provide a question or an image."
	case KindTranscription:
		return "Error: could not understand the voice input."
	case KindTransport:
		return "Error: the model API call failed."
	case KindMalformedEnvelope:
		return "Error: the model reply did not contain any content."
	case KindMalformedContent:
		return "Error: invalid response from the model."
	case KindOutOfRangeProbability:
		return "Error: the model returned a probability outside 0-100."
	default:
		return "Error: analysis failed."
	}
}
