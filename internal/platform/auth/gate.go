package auth

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
)

// User is the signed-in staff member as seen by the export controls.
type User struct {
	ID   string
	Role string
}

// MayExport reports whether u may see export controls. A nil user or a role
// outside allowed yields false. There is no admin bypass: admin must be
// listed to be allowed.
func MayExport(u *User, allowed []string) bool {
	if u == nil || u.Role == "" {
		return false
	}
	return hasAnyRole([]string{u.Role}, allowed)
}

// MayExportContext applies MayExport to each role carried on ctx.
func MayExportContext(ctx context.Context, allowed []string) bool {
	uid := UserIDFromContext(ctx)
	if uid == "" {
		return false
	}
	for _, role := range RolesFromContext(ctx) {
		if MayExport(&User{ID: uid, Role: role}, allowed) {
			return true
		}
	}
	return false
}

// RequireRole returns middleware that answers 403 unless the caller carries
// one of roles. It follows the export gate: admin passes only when listed.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !hasAnyRole(RolesFromContext(c.Request().Context()), roles) {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
			}
			return next(c)
		}
	}
}

func hasAnyRole(have, allowed []string) bool {
	for _, r := range have {
		if r != "" && slices.Contains(allowed, r) {
			return true
		}
	}
	return false
}
