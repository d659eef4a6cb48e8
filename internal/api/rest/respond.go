package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/kevin07696/paygo-service/internal/domain"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// errorResponse is the body of every non-2xx response
type errorResponse struct {
	Error   string                 `json:"error"`
	Code    domain.ErrorCode       `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

// malformedBodyError is a request body that is not the expected JSON
type malformedBodyError struct {
	err error
}

func (e *malformedBodyError) Error() string {
	return "malformed request body: " + e.err.Error()
}

func (e *malformedBodyError) Unwrap() error { return e.err }

// statusFor maps domain error codes onto HTTP status codes
func statusFor(err error) int {
	var malformed *malformedBodyError
	switch code := domain.GetErrorCode(err); {
	case errors.As(err, &malformed):
		return http.StatusBadRequest
	case code == domain.ErrorCodeAuthAccessDenied || code == domain.ErrorCodeAuthUserInactive:
		return http.StatusForbidden
	case domain.IsAuthError(err):
		return http.StatusUnauthorized
	case domain.IsValidationError(err):
		return http.StatusUnprocessableEntity
	case domain.IsNotFoundError(err):
		return http.StatusNotFound
	case domain.IsStateError(err):
		return http.StatusConflict
	case code == domain.ErrorCodeBiometryRejected || code == domain.ErrorCodeNoPrimaryCard:
		return http.StatusPaymentRequired
	case code == domain.ErrorCodeAcquirerTimeout:
		return http.StatusGatewayTimeout
	case domain.IsAcquirerError(err):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as JSON. Internal errors are logged and hidden
// from the caller.
func respondError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error(), Code: domain.GetErrorCode(err)}

	var de *domain.DomainError
	if errors.As(err, &de) {
		body.Error = de.Message
		if len(de.Details) > 0 {
			body.Details = de.Details
		}
	}

	if status == http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		body = errorResponse{Error: "internal server error", Code: domain.ErrorCodeInternalError}
	}
	respondJSON(w, logger, status, body)
}

func respondMessage(w http.ResponseWriter, logger *zap.Logger, status int, msg string) {
	respondJSON(w, logger, status, errorResponse{Error: msg})
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &malformedBodyError{err: err}
	}
	return nil
}

// pagination reads skip and limit query parameters
func pagination(r *http.Request, defaultLimit int) (offset, limit int, err error) {
	limit = defaultLimit
	if v := r.URL.Query().Get("skip"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil {
			return 0, 0, domain.Validation("skip", "skip must be an integer")
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return 0, 0, domain.Validation("limit", "limit must be an integer")
		}
	}
	return offset, limit, nil
}

func queryBool(r *http.Request, name string) (*bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, domain.Validation(name, fmt.Sprintf("%s must be true or false", name))
	}
	return &b, nil
}
