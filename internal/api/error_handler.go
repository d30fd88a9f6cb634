package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

var kindStatus = map[domain.Kind]int{
	domain.KindUnauthenticated:   http.StatusUnauthorized,
	domain.KindForbidden:         http.StatusForbidden,
	domain.KindNotFound:          http.StatusNotFound,
	domain.KindInvalidInput:      http.StatusBadRequest,
	domain.KindInvalidTransition: http.StatusUnprocessableEntity,
	domain.KindConflict:          http.StatusConflict,
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain error kinds to their HTTP status codes.
//   - Logs upstream and unexpected errors without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "kind": "<kind>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	kind := domain.KindOf(err)
	if code, ok := kindStatus[kind]; ok {
		return code, errorResponse{Error: err.Error(), Kind: string(kind)}
	}

	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if kind == "" && errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message), Kind: kindForStatus(he.Code)}
	}

	// Upstream or unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{
		Error: "internal server error",
		Kind:  string(domain.KindUpstream),
	}
}

func kindForStatus(code int) string {
	for k, status := range kindStatus {
		if status == code {
			return string(k)
		}
	}
	if code >= http.StatusInternalServerError {
		return string(domain.KindUpstream)
	}
	return strings.ReplaceAll(strings.ToLower(http.StatusText(code)), " ", "_")
}
