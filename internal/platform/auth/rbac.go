package auth

import (
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
)

// StaffRoles are every role that works inside a clinic.
var StaffRoles = []string{RoleClinicAdmin, RoleManager, RoleDoctor, RoleNurse, RoleReceptionist}

// RequireRole admits callers holding any of roles. A caller without an
// identity gets 401; one with the wrong roles gets 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	need := "required role: " + strings.Join(roles, " or ")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, err := RequireUser(c)
			if err != nil {
				return err
			}
			if !slices.ContainsFunc(roles, u.HasRole) {
				return echo.NewHTTPError(http.StatusForbidden, need)
			}
			return next(c)
		}
	}
}

// RequireStaff admits clinic staff and admins.
func RequireStaff() echo.MiddlewareFunc {
	return RequireRole(StaffRoles...)
}
