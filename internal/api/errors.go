package api

import (
	"encoding/json"
	"net/http"

	"github.com/MikeSquared-Agency/autosocio/internal/completion"
	"github.com/MikeSquared-Agency/autosocio/internal/processor"
	"github.com/MikeSquared-Agency/autosocio/internal/stage"
	"github.com/MikeSquared-Agency/autosocio/internal/supersede"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func statusFor(code string) int {
	switch code {
	case completion.CodeTransport, completion.CodeParse:
		return http.StatusBadGateway
	case stage.CodeDependency, stage.CodeValidation:
		return http.StatusUnprocessableEntity
	case supersede.CodeSuperseded:
		return http.StatusConflict
	case processor.CodeEmptyInput, processor.CodeBadRequest:
		return http.StatusBadRequest
	case processor.CodeCanceled:
		return http.StatusServiceUnavailable
	case completion.CodeSchema:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}
