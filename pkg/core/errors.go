// Package core defines the error taxonomy shared by the turn pipeline and the
// HTTP gateway. Every failed capability call is classified into exactly one
// ErrorKind, and each kind maps to a fixed user-facing fallback message.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes a turn failure by the capability that caused it.
type ErrorKind string

const (
	KindSTT        ErrorKind = "stt_error"
	KindLLM        ErrorKind = "llm_error"
	KindTTS        ErrorKind = "tts_error"
	KindConnection ErrorKind = "connection_error"
	KindGeneral    ErrorKind = "general_error"

	// KindInvalidRequest marks precondition violations (missing or malformed
	// input). It is rejected at the gateway boundary and never appears in a
	// turn result.
	KindInvalidRequest ErrorKind = "invalid_request"

	// KindNotFound marks lookups of sessions or resources that do not exist.
	KindNotFound ErrorKind = "not_found"
)

// Error is the canonical error carried across the pipeline. Capability
// adapters return it with their own kind so the orchestrator can apply
// fallback policy without inspecting message text.
type Error struct {
	Kind      ErrorKind `json:"type"`
	Message   string    `json:"message"`
	Param     string    `json:"param,omitempty"`
	RequestID string    `json:"request_id,omitempty"`

	wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.wrapped
}

// NewError creates an error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates an error of the given kind wrapping an underlying cause.
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, wrapped: err}
}

// NewInvalidRequestError creates a boundary-rejection error.
func NewInvalidRequestError(message string) *Error {
	return &Error{Kind: KindInvalidRequest, Message: message}
}

// NewInvalidRequestErrorWithParam creates a boundary-rejection error naming
// the offending parameter.
func NewInvalidRequestErrorWithParam(message, param string) *Error {
	return &Error{Kind: KindInvalidRequest, Message: message, Param: param}
}

// fallbackMessages are the fixed user-facing apologies spoken when a
// capability fails. The wording is part of the public contract.
var fallbackMessages = map[ErrorKind]string{
	KindSTT:        "I'm having trouble hearing you right now. Please check your microphone and try again.",
	KindLLM:        "I'm having trouble thinking right now. My AI brain needs a moment to reconnect.",
	KindTTS:        "I'm having trouble speaking right now, but I can still understand you.",
	KindConnection: "I'm having trouble connecting to my services right now. Please try again in a moment.",
	KindGeneral:    "Something went wrong on my end. Let me try to help you differently.",
}

// FallbackMessage returns the fixed fallback sentence for a kind. Unknown
// kinds get the general message.
func FallbackMessage(kind ErrorKind) string {
	if msg, ok := fallbackMessages[kind]; ok {
		return msg
	}
	return fallbackMessages[KindGeneral]
}

// Classify determines the ErrorKind of an arbitrary error. Typed *Error
// values carry their kind directly; context timeouts are connection errors.
// Anything else falls back to scanning the error text for terms associated
// with each capability, which is kept only for errors raised outside adapter
// control.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindGeneral
	}

	var cerr *Error
	if errors.As(err, &cerr) && cerr != nil && cerr.Kind != "" {
		return cerr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindConnection
	}

	text := strings.ToLower(err.Error())
	switch {
	case containsAnyTerm(text, "assemblyai", "transcription", "transcribe", "speech-to-text"):
		return KindSTT
	case containsAnyTerm(text, "gemini", "llm", "language model", "generate"):
		return KindLLM
	case containsAnyTerm(text, "murf", "tts", "text-to-speech", "synthesize"):
		return KindTTS
	case containsAnyTerm(text, "connection", "network", "timeout", "unreachable"):
		return KindConnection
	default:
		return KindGeneral
	}
}

func containsAnyTerm(text string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
