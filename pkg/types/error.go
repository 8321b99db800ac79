package types

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind is the failure class a caller can act on.
type ErrorKind string

const (
	KindInvalidInput     ErrorKind = "invalid_input"
	KindUnreachable      ErrorKind = "unreachable"
	KindTimeout          ErrorKind = "timeout"
	KindOversizeResource ErrorKind = "oversize_resource"
	KindInferenceFailure ErrorKind = "inference_failure"
	KindCapacityExceeded ErrorKind = "capacity_exceeded"
	KindInternal         ErrorKind = "internal"
)

// ErrorCode is the machine-readable code carried on the wire.
type ErrorCode string

const (
	CodeInvalidURL           ErrorCode = "INVALID_URL"
	CodeValidation           ErrorCode = "VALIDATION_ERROR"
	CodeUnsupportedFramework ErrorCode = "UNSUPPORTED_FRAMEWORK"
	CodeUnsupportedStyling   ErrorCode = "UNSUPPORTED_STYLING"
	CodeUnreachableURL       ErrorCode = "UNREACHABLE_URL"
	CodeTimeout              ErrorCode = "TIMEOUT"
	CodeDOMTooLarge          ErrorCode = "DOM_TOO_LARGE"
	CodeResourceTooLarge     ErrorCode = "RESOURCE_TOO_LARGE"
	CodeAIModel              ErrorCode = "AI_MODEL_ERROR"
	CodeRateLimited          ErrorCode = "RATE_LIMITED"
	CodeCapacityExceeded     ErrorCode = "CAPACITY_EXCEEDED"
	CodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// Error is the structured failure returned across the pipeline boundary.
type Error struct {
	Kind       ErrorKind
	Code       ErrorCode
	Message    string
	Details    map[string]any
	Suggestion string
	RequestID  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Payload converts the error to its wire form.
func (e *Error) Payload() *ErrorPayload {
	return &ErrorPayload{
		Code:       string(e.Code),
		Message:    e.Message,
		Details:    e.Details,
		Suggestion: e.Suggestion,
		RequestID:  e.RequestID,
	}
}

// KindOf returns the kind of err if it is an *Error, or KindInternal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Normalize maps any error onto the taxonomy and stamps the request id.
// Raw text of unclassified errors never reaches the returned message.
func Normalize(err error, requestID string) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		out := *e
		out.RequestID = requestID
		return &out
	}

	if errors.Is(err, context.DeadlineExceeded) {
		out := NewTimeout("", 0)
		out.RequestID = requestID
		return out
	}

	out := NewInternal("an unexpected error occurred", nil)
	out.RequestID = requestID
	return out
}

// NewInvalidURL reports a malformed or disallowed URL.
func NewInvalidURL(url, reason string) *Error {
	return &Error{
		Kind:       KindInvalidInput,
		Code:       CodeInvalidURL,
		Message:    fmt.Sprintf("Invalid URL: %s", reason),
		Details:    map[string]any{"url": url, "reason": reason},
		Suggestion: "Provide a valid HTTP or HTTPS URL. Avoid localhost, private IPs, and file:// protocols.",
	}
}

// NewValidation reports malformed request fields.
func NewValidation(message string, details map[string]any) *Error {
	return &Error{
		Kind:       KindInvalidInput,
		Code:       CodeValidation,
		Message:    message,
		Details:    details,
		Suggestion: "Check input parameters and try again",
	}
}

// NewUnsupportedFramework reports an unknown framework.
func NewUnsupportedFramework(framework string) *Error {
	return &Error{
		Kind:       KindInvalidInput,
		Code:       CodeUnsupportedFramework,
		Message:    fmt.Sprintf("Unsupported framework: %s", framework),
		Details:    map[string]any{"framework": framework},
		Suggestion: "Use one of: react, angular, vue, svelte",
	}
}

// NewUnsupportedStyling reports an unknown styling or an incompatible pairing.
func NewUnsupportedStyling(styling, framework string) *Error {
	suggestion := "Use one of: tailwind, css, scss, styled-components (styled-components only for React)"
	if styling == string(StylingStyledComponents) && framework != string(FrameworkReact) {
		suggestion = "styled-components is only compatible with React framework"
	}
	return &Error{
		Kind:       KindInvalidInput,
		Code:       CodeUnsupportedStyling,
		Message:    fmt.Sprintf("Unsupported styling: %s", styling),
		Details:    map[string]any{"styling": styling, "framework": framework},
		Suggestion: suggestion,
	}
}

// NewUnreachable reports a navigation failure or an error status.
func NewUnreachable(url, reason string) *Error {
	return &Error{
		Kind:       KindUnreachable,
		Code:       CodeUnreachableURL,
		Message:    fmt.Sprintf("Cannot reach URL: %s", reason),
		Details:    map[string]any{"url": url, "reason": reason},
		Suggestion: "Check network connectivity and ensure the URL is accessible from your network.",
	}
}

// NewTimeout reports a stage that exceeded its budget.
func NewTimeout(stage string, timeoutMs int64) *Error {
	msg := "Analysis timeout"
	if timeoutMs > 0 {
		msg = fmt.Sprintf("Analysis timeout after %dms", timeoutMs)
	}
	details := map[string]any{}
	if stage != "" {
		details["stage"] = stage
	}
	if timeoutMs > 0 {
		details["timeoutMs"] = timeoutMs
	}
	return &Error{
		Kind:       KindTimeout,
		Code:       CodeTimeout,
		Message:    msg,
		Details:    details,
		Suggestion: "The page took too long to analyze. Try a simpler page or increase the timeout limit.",
	}
}

// NewDOMTooLarge reports an element count above the configured cap.
func NewDOMTooLarge(url string, elementCount, maxElements int) *Error {
	return &Error{
		Kind:       KindOversizeResource,
		Code:       CodeDOMTooLarge,
		Message:    fmt.Sprintf("Page has %d DOM elements (max: %d)", elementCount, maxElements),
		Details:    map[string]any{"url": url, "elementCount": elementCount, "maxElements": maxElements},
		Suggestion: "The page is too complex. Try analyzing a specific section or a simpler page.",
	}
}

// NewResourceTooLarge reports a payload above the configured byte cap.
func NewResourceTooLarge(url string, sizeBytes, maxBytes int64) *Error {
	return &Error{
		Kind:       KindOversizeResource,
		Code:       CodeResourceTooLarge,
		Message:    fmt.Sprintf("Page resources are %dMB (max: %dMB)", sizeBytes/(1<<20), maxBytes/(1<<20)),
		Details:    map[string]any{"url": url, "sizeBytes": sizeBytes, "maxBytes": maxBytes},
		Suggestion: "The page has too many large resources. Try a page with fewer images and assets.",
	}
}

// NewInferenceFailure reports the inference backend being down or erroring.
func NewInferenceFailure(model, reason string) *Error {
	return &Error{
		Kind:       KindInferenceFailure,
		Code:       CodeAIModel,
		Message:    fmt.Sprintf("AI model error (%s): %s", model, reason),
		Details:    map[string]any{"model": model, "reason": reason},
		Suggestion: "Ensure the inference backend is running and the configured models are loaded.",
	}
}

// NewRateLimited reports a client over its request window.
func NewRateLimited(limit int, windowMs int64, resetInSeconds int) *Error {
	return &Error{
		Kind:       KindCapacityExceeded,
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("Rate limit exceeded: %d requests per %ds", limit, windowMs/1000),
		Details:    map[string]any{"limit": limit, "windowMs": windowMs, "resetIn": resetInSeconds},
		Suggestion: fmt.Sprintf("Wait %d seconds before retrying", resetInSeconds),
	}
}

// NewCapacityExceeded reports a full concurrency queue.
func NewCapacityExceeded(maxConcurrent, active, queued int) *Error {
	return &Error{
		Kind:       KindCapacityExceeded,
		Code:       CodeCapacityExceeded,
		Message:    "Server is at maximum capacity",
		Details:    map[string]any{"maxConcurrent": maxConcurrent, "activeRequests": active, "queuedRequests": queued},
		Suggestion: "Please try again in a few moments",
	}
}

// NewInternal reports a failure of the pipeline itself.
func NewInternal(reason string, details map[string]any) *Error {
	return &Error{
		Kind:       KindInternal,
		Code:       CodeInternal,
		Message:    fmt.Sprintf("Internal server error: %s", reason),
		Details:    details,
		Suggestion: "This is an internal error. Please try again or report the issue if it persists.",
	}
}
