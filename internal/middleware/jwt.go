package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-patients/internal/apperror"
	"github.com/iliyamo/clinic-patients/internal/utils"
)

const (
	msgNoToken      = "Token no proporcionado. Debes iniciar sesión."
	msgTokenExpired = "Token expirado. Vuelve a iniciar sesión."
	msgTokenInvalid = "Token inválido. Acceso denegado."
)

// TokenVerifier checks an access token and returns its claims.
type TokenVerifier interface {
	Verify(raw string) (*utils.Claims, error)
}

// Authenticator validates Bearer access tokens.
type Authenticator struct {
	tokens TokenVerifier
}

func NewAuthenticator(tokens TokenVerifier) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// Wrap returns an Echo handler that verifies the Authorization header
// and calls next with the caller's identity.  Expired and otherwise
// invalid tokens are reported with different messages.
func (a *Authenticator) Wrap(next AuthedHandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(auth, "Bearer ") {
			return apperror.Unauthorized(msgNoToken)
		}
		raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if raw == "" {
			return apperror.Unauthorized(msgNoToken)
		}

		claims, err := a.tokens.Verify(raw)
		if errors.Is(err, utils.ErrTokenExpired) {
			return apperror.Unauthorized(msgTokenExpired)
		}
		if err != nil {
			return apperror.Unauthorized(msgTokenInvalid)
		}

		id := Identity{ID: claims.ID, Email: claims.Email, Role: claims.Role}
		c.Set(identityKey, id)
		return next(c, id)
	}
}
