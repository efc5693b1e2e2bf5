package web

// errors.go maps the engine's error taxonomy onto HTTP responses. Every
// engine error is recoverable by the caller, so each kind gets a stable
// status code and a machine-readable kind string; the raw message carries
// the identifying key that failed.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stocktally/engine/internal/core"
	"github.com/stocktally/engine/internal/inventory"
	"github.com/stocktally/engine/internal/logging"
)

// ErrorResponse is the JSON body for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Key   string `json:"key,omitempty"`
}

// respondError classifies err, logs it with request context, and writes the
// mapped JSON response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := classify(err)

	logger := logging.FromContext(r.Context())
	if status >= 500 {
		logger.Error("request failed",
			"path", r.URL.Path, "method", r.Method, "status", status, "error", err)
	} else {
		logger.Warn("request rejected",
			"path", r.URL.Path, "method", r.Method, "status", status, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func classify(err error) (int, ErrorResponse) {
	var (
		notFound    *inventory.NotFoundError
		duplicate   *inventory.DuplicateFileError
		empty       *inventory.EmptyFileError
		malformed   *inventory.MalformedInputError
		invalidQty  *inventory.InvalidQuantityError
		invalidArg  *inventory.InvalidArgumentError
		unavailable *inventory.StorageUnavailableError
	)

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound, ErrorResponse{Error: err.Error(), Kind: "not_found", Key: notFound.Key}
	case errors.As(err, &duplicate):
		return http.StatusConflict, ErrorResponse{Error: err.Error(), Kind: "duplicate_file", Key: duplicate.Path}
	case errors.As(err, &empty):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Kind: "empty_file", Key: empty.Name}
	case errors.As(err, &malformed):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Kind: "malformed_input", Key: malformed.Name}
	case errors.As(err, &invalidQty):
		return http.StatusConflict, ErrorResponse{Error: err.Error(), Kind: "invalid_quantity", Key: invalidQty.ItemNo}
	case errors.As(err, &invalidArg):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "invalid_argument"}
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Kind: "storage_unavailable"}
	case errors.Is(err, core.ErrTooManyIngests):
		return http.StatusTooManyRequests, ErrorResponse{Error: err.Error(), Kind: "too_many_ingests"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, ErrorResponse{Error: err.Error(), Kind: "cancelled"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Kind: "internal"}
	}
}
