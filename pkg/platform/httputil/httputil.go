// Package httputil centralizes domain error translation to HTTP responses so
// every handler emits the same JSON error envelope.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "chrona/pkg/domain-errors"
)

// wire maps domain codes onto HTTP status codes and stable wire identifiers.
var wire = map[dErrors.Code]struct {
	status int
	code   string
}{
	dErrors.CodeInvalidTransition: {http.StatusUnprocessableEntity, "invalid_transition"},
	dErrors.CodeConflict:          {http.StatusConflict, "conflict"},
	dErrors.CodeForbidden:         {http.StatusForbidden, "forbidden"},
	dErrors.CodeNotFound:          {http.StatusNotFound, "not_found"},
	dErrors.CodeUnauthorized:      {http.StatusUnauthorized, "unauthorized"},
	dErrors.CodeBadRequest:        {http.StatusBadRequest, "bad_request"},
	dErrors.CodeInvalidInput:      {http.StatusBadRequest, "invalid_input"},
	dErrors.CodeValidation:        {http.StatusUnprocessableEntity, "validation_failed"},
	dErrors.CodeTimeout:           {http.StatusGatewayTimeout, "timeout"},
	dErrors.CodeInternal:          {http.StatusInternalServerError, "internal_error"},
}

// WriteError renders a domain error as a JSON envelope. Internal errors omit
// the description so store details never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	mapping, ok := wire[code]
	if !ok {
		mapping = wire[dErrors.CodeInternal]
	}

	body := map[string]string{"error": mapping.code}
	if mapping.status != http.StatusInternalServerError {
		var domainErr *dErrors.Error
		if errors.As(err, &domainErr) {
			body["error_description"] = domainErr.Message
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(mapping.status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteJSON renders v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Validatable request bodies validate and normalize themselves after decode.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes the request body into T and runs its validation.
// On failure it writes the error response and returns ok=false, so handlers
// can bail with a bare return.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "request body decode failed",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return nil, false
	}
	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			WriteError(w, err)
			return nil, false
		}
	}
	return &req, true
}
