package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-patients/internal/apperror"
	"github.com/iliyamo/clinic-patients/internal/model"
)

const msgRoleUnknown = "No se pudo verificar tu rol de usuario."

// RequireRole restricts an authenticated handler to the given roles.
// Callers whose token carries no role, or one this build does not know,
// get 403 as well; the message then says the role could not be checked
// rather than naming the allowed set.
func RequireRole(roles ...model.Role) func(AuthedHandlerFunc) AuthedHandlerFunc {
	allowed := make(map[model.Role]bool, len(roles))
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		allowed[r] = true
		names = append(names, string(r))
	}
	denied := "Acceso denegado. Requiere rol: " + strings.Join(names, " o ")

	return func(next AuthedHandlerFunc) AuthedHandlerFunc {
		return func(c echo.Context, id Identity) error {
			if !id.Role.Valid() {
				return apperror.Forbidden(msgRoleUnknown)
			}
			if !allowed[id.Role] {
				return apperror.Forbidden(denied)
			}
			return next(c, id)
		}
	}
}
