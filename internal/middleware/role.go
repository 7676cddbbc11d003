package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/orderdesk/internal/apperr"
	"github.com/iliyamo/orderdesk/internal/policy"
)

// Authorize rejects callers whose role can never perform action, before
// any row is loaded. Ownership checks still happen in the services; this
// only spares them requests that cannot succeed. It must run after JWTAuth.
func Authorize(action policy.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return apperr.Unauthorized("unauthorized")
			}
			if !policy.RoleMayAttempt(id.Role, action) {
				return apperr.Forbidden("forbidden")
			}
			return next(c)
		}
	}
}
