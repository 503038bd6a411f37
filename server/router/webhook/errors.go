package webhook

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/chronolog/server/internal/errors"
)

// ErrorHandler renders errors as ErrorResponse bodies. Unexpected errors are
// logged and reported without detail.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	body := ErrorResponse{
		Code:      apperrors.ErrCodeInternal,
		Message:   "internal error",
		RequestID: c.Response().Header().Get(HeaderRequestID),
	}

	var httpErr *echo.HTTPError
	if serviceErr, ok := asServiceError(err); ok {
		status = serviceErr.HTTPStatus()
		body.Code = serviceErr.Code
		if serviceErr.Code != apperrors.ErrCodeInternal {
			body.Message = serviceErr.Message
		}
	} else if errors.As(err, &httpErr) {
		status = httpErr.Code
		body.Code = codeForStatus(status)
		body.Message = http.StatusText(status)
	}

	if status >= http.StatusInternalServerError {
		slog.Error("webhook error", "error", err, "path", c.Path(), "status", status)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		slog.Error("failed to write error response", "error", err)
	}
}

func asServiceError(err error) (*apperrors.ServiceError, bool) {
	var serviceErr *apperrors.ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return nil, false
}

func codeForStatus(status int) apperrors.ErrorCode {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.ErrCodeUnauthorized
	case http.StatusTooManyRequests:
		return apperrors.ErrCodeRateLimitExceeded
	case http.StatusServiceUnavailable:
		return apperrors.ErrCodeServiceUnavailable
	}
	if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		return apperrors.ErrCodeInvalidArgument
	}
	return apperrors.ErrCodeInternal
}
