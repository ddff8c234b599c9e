package middleware

// identity.go defines the authenticated caller handed from the token
// check to the role gate and handlers.  Protected handlers receive it as
// an argument, so a route cannot be role-gated without first being
// authenticated.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-patients/internal/model"
)

// contextKey under which the identity is also stored for logging.
const identityKey = "identity"

// Identity is the caller extracted from a verified access token.
type Identity struct {
	ID    uint64
	Email string
	Role  model.Role
}

// AuthedHandlerFunc is a handler that runs only after authentication.
type AuthedHandlerFunc func(c echo.Context, id Identity) error

// IdentityFrom returns the identity stored by Authenticator, if any.
func IdentityFrom(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}

// userID returns the caller's id for log lines, or "guest".
func userID(c echo.Context) string {
	if id, ok := IdentityFrom(c); ok {
		return strconv.FormatUint(id.ID, 10)
	}
	return "guest"
}
