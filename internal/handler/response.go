package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/clinic-patients/internal/apperror"
)

// envelope is the shape of every JSON response.
type envelope struct {
	Success bool                  `json:"success"`
	Message string                `json:"message,omitempty"`
	Data    any                   `json:"data,omitempty"`
	Errors  []apperror.FieldError `json:"errors,omitempty"`
}

func respond(c echo.Context, status int, msg string, data any) error {
	return c.JSON(status, envelope{Success: true, Message: msg, Data: data})
}

const (
	msgInternal      = "Error interno del servidor"
	msgRouteNotFound = "Ruta no encontrada"
)

// httpErrorMessages replaces Echo's English messages for errors raised by
// the framework itself (routing, binding, body limit).
var httpErrorMessages = map[int]string{
	http.StatusBadRequest:            "Datos inválidos",
	http.StatusNotFound:              msgRouteNotFound,
	http.StatusMethodNotAllowed:      "Método no permitido",
	http.StatusRequestEntityTooLarge: "El cuerpo de la solicitud es demasiado grande",
	http.StatusUnsupportedMediaType:  "Tipo de contenido no soportado",
	http.StatusTooManyRequests:       "Demasiadas solicitudes. Intenta de nuevo más tarde.",
}

// render converts err into a status code and failure envelope.  Causes
// of internal errors never reach the body.
func render(err error) (int, envelope) {
	if e, ok := apperror.As(err); ok {
		msg := e.Message
		if e.Kind == apperror.KindInternal && msg == "" {
			msg = msgInternal
		}
		return e.Status(), envelope{Message: msg, Errors: e.Fields}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError {
			return he.Code, envelope{Message: msgInternal}
		}
		if msg, ok := httpErrorMessages[he.Code]; ok {
			return he.Code, envelope{Message: msg}
		}
		return he.Code, envelope{Message: fmt.Sprint(he.Message)}
	}
	return http.StatusInternalServerError, envelope{Message: msgInternal}
}

// ErrorHandler is installed as Echo's HTTPErrorHandler.  Server-side
// failures are logged with their cause.
func ErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := render(err)
		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			log.Error().Err(err).
				Str("request_id", rid).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.Error().Err(werr).Msg("write error response")
		}
	}
}
