package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mess-connect/internal/model"
)

// RequireRole lets the request through only when Authenticate attached a
// user holding one of roles. Students must also be approved. Anything else
// gets 401 in the standard envelope.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil || !allowed[u.Role] {
				return fail(c, http.StatusUnauthorized, "Unauthorized")
			}
			if u.Role == model.RoleStudent && u.Status != model.StatusApproved {
				return fail(c, http.StatusUnauthorized, "Unauthorized")
			}
			return next(c)
		}
	}
}

// RequireAuth accepts any approved user of any role.
func RequireAuth() echo.MiddlewareFunc {
	return RequireRole(model.RoleStudent, model.RoleManager, model.RoleAdmin)
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "error": msg})
}
