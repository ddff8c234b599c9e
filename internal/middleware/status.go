package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-patients/internal/apperror"
)

// statusOf maps a handler error to the status the error handler will send.
func statusOf(err error) int {
	if e, ok := apperror.As(err); ok {
		return e.Status()
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
