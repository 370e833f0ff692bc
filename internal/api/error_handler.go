package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/agent007moss/MLT/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// kindStatus maps each domain error kind to its HTTP status.
var kindStatus = map[domain.Kind]int{
	domain.KindInvalidCredentials:    http.StatusUnauthorized,
	domain.KindAccountLocked:         http.StatusLocked,
	domain.KindOtpExpired:            http.StatusUnauthorized,
	domain.KindOtpInvalid:            http.StatusUnauthorized,
	domain.KindOtpRetryLimitExceeded: http.StatusLocked,
	domain.KindInvalidToken:          http.StatusUnauthorized,
	domain.KindSessionRevoked:        http.StatusUnauthorized,
	domain.KindForbidden:             http.StatusForbidden,
	domain.KindNotFound:              http.StatusNotFound,
	domain.KindUserExists:            http.StatusConflict,
	domain.KindConflict:              http.StatusConflict,
	domain.KindInvalidInput:          http.StatusBadRequest,
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain errors to their HTTP status and stable code.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders {"error": "<message>", "code": "<kind>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, resp := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, rate limiter, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message), Code: httpCode(he.Code)}
	}

	kind := domain.KindOf(err)
	if status, ok := kindStatus[kind]; ok {
		return status, errorResponse{Error: publicMessage(err, kind), Code: string(kind)}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: string(domain.KindInternal)}
}

// publicMessage keeps validation detail for invalid input and falls back to
// the sentinel text for everything else, so wrapping context never leaks.
func publicMessage(err error, kind domain.Kind) string {
	if kind == domain.KindInvalidInput {
		return err.Error()
	}
	for _, sentinel := range []error{
		domain.ErrInvalidCredentials, domain.ErrAccountLocked, domain.ErrOtpExpired,
		domain.ErrOtpInvalid, domain.ErrOtpRetryLimitExceeded, domain.ErrInvalidToken,
		domain.ErrSessionRevoked, domain.ErrForbidden, domain.ErrNotFound,
		domain.ErrUserExists, domain.ErrConflict,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func httpCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return string(domain.KindInvalidInput)
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return string(domain.KindForbidden)
	case http.StatusNotFound:
		return string(domain.KindNotFound)
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "http_error"
	}
}
