package processor

import (
	"context"
	"errors"

	"github.com/MikeSquared-Agency/autosocio/internal/completion"
	"github.com/MikeSquared-Agency/autosocio/internal/stage"
	"github.com/MikeSquared-Agency/autosocio/internal/supersede"
)

// RetryMessage is shown to users when a completion call failed.
const RetryMessage = "could not complete analysis, please retry"

const (
	CodeEmptyInput  = "EMPTY_INPUT"
	CodeBadRequest  = "BAD_REQUEST"
	CodeUnknownKind = "UNKNOWN_KIND"
	CodeCanceled    = "CANCELED"
	CodeInternal    = "INTERNAL"
)

// Classify maps err to a stable code and a message safe to show a caller.
func Classify(err error) (code, message string) {
	var te *completion.TransportError
	var pe *completion.ParseError
	var se *completion.SchemaError
	switch {
	case errors.Is(err, supersede.ErrSuperseded):
		return supersede.CodeSuperseded, supersede.ErrSuperseded.Error()
	case errors.Is(err, completion.ErrEmptyInput):
		return CodeEmptyInput, "input is required"
	case errors.As(err, &te):
		return te.Code(), RetryMessage
	case errors.As(err, &pe):
		return pe.Code(), RetryMessage
	case errors.As(err, &se):
		return se.Code(), "response schema could not be built"
	case errors.Is(err, context.Canceled):
		return CodeCanceled, "request cancelled"
	}
	if code := stage.CodeOf(err); code != "" {
		return code, err.Error()
	}
	return CodeInternal, "internal error"
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	code, _ := Classify(err)
	switch code {
	case supersede.CodeSuperseded:
		return "superseded"
	case completion.CodeTransport:
		return "transport"
	case completion.CodeParse:
		return "parse"
	case completion.CodeSchema:
		return "schema"
	case stage.CodeDependency, stage.CodeValidation:
		return "stage"
	case CodeCanceled:
		return "canceled"
	}
	return "error"
}
