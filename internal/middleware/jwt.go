package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/orderdesk/internal/apperr"
	"github.com/iliyamo/orderdesk/internal/model"
)

// TokenVerifier checks an access token and returns the identity inside it.
type TokenVerifier interface {
	VerifyAccessToken(raw string) (model.Identity, error)
}

// JWTAuth requires a valid Bearer access token and stores the caller's
// identity for handlers and later middleware. Failures are returned as
// apperr values so the shared error handler renders them.
func JWTAuth(v TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, raw, found := strings.Cut(auth, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
				return apperr.Unauthorized("missing bearer token")
			}
			id, err := v.VerifyAccessToken(strings.TrimSpace(raw))
			if err != nil {
				return err
			}
			SetIdentity(c, id)
			return next(c)
		}
	}
}
