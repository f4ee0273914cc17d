package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "credon/pkg/domain-errors"
)

// Validatable is implemented by request types that support validation.
type Validatable interface {
	Validate() error
}

// Normalizable is implemented by request types that support normalization.
// Normalize runs before Validate.
type Normalizable interface {
	Normalize()
}

// DecodeJSON decodes a JSON request body into the target type, then runs its
// Normalize and Validate hooks when present. An empty body decodes to the
// zero value so validation decides whether that is acceptable.
// Returns the decoded value and true on success. On failure, writes an error
// response and returns nil, false.
//
// Usage:
//
//	req, ok := httputil.DecodeJSON[submitClaimsRequest](w, r, h.logger, ctx, requestID)
//	if !ok {
//	    return
//	}
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}

	if err := PrepareRequest(&req); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return &req, true
}

// PrepareRequest normalizes and validates a request value.
func PrepareRequest(req any) error {
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	if v, ok := req.(Validatable); ok {
		return v.Validate()
	}
	return nil
}
