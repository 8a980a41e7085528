package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Error codes reported to callers and event consumers.
const (
	CodeTransport = "COMPLETION_TRANSPORT"
	CodeParse     = "COMPLETION_PARSE"
	CodeSchema    = "COMPLETION_SCHEMA"
)

// ErrEmptyInput is returned when a request has a blank system instruction or
// user content. No call is made.
var ErrEmptyInput = errors.New("completion: empty system instruction or user content")

// TransportError means the call to the hosted model failed before a response
// body could be read: network, auth, rate limit, server error or timeout.
type TransportError struct {
	Call       string
	StatusCode int
	// Temporary errors are worth another attempt.
	Temporary bool
	Err       error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion %s: transport (status %d): %v", e.Call, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("completion %s: transport: %v", e.Call, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Code() string { return CodeTransport }

// ParseError means the model answered, but the answer was not JSON or did
// not match the requested schema.
type ParseError struct {
	Call       string
	Raw        string
	Violations []string
	Err        error
}

func (e *ParseError) Error() string {
	if len(e.Violations) > 0 {
		return fmt.Sprintf("completion %s: response does not match schema: %s", e.Call, strings.Join(e.Violations, "; "))
	}
	return fmt.Sprintf("completion %s: parse response: %v", e.Call, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Code() string { return CodeParse }

// SchemaError means the response schema built for a call could not be
// compiled. No call is made.
type SchemaError struct {
	Call string
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("completion %s: invalid response schema: %v", e.Call, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

func (e *SchemaError) Code() string { return CodeSchema }

// IsTemporary reports whether err is a transport error worth retrying.
func IsTemporary(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Temporary
}

// StatusTemporary classifies an HTTP status code returned by a model API.
func StatusTemporary(status int) bool {
	return status == 429 || status == 529 || status >= 500
}

// asTransport wraps err as a TransportError unless it is already typed or
// the caller's context is done.
func asTransport(ctx context.Context, call string, err error) error {
	var te *TransportError
	var pe *ParseError
	if errors.As(err, &te) || errors.As(err, &pe) {
		return err
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	return &TransportError{Call: call, Temporary: true, Err: err}
}
