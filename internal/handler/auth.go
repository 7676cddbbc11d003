package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/orderdesk/internal/config"
	"github.com/iliyamo/orderdesk/internal/service"
)

// RefreshCookie is the cookie carrying the raw refresh token.
const RefreshCookie = "refresh_token"

// AuthHandler serves login, refresh, logout and the caller's profile.
type AuthHandler struct {
	Cfg  config.AuthConfig
	Auth *service.AuthService
}

func NewAuthHandler(cfg config.AuthConfig, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Auth: auth}
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userPart struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func sessionBody(s service.Session) echo.Map {
	return echo.Map{
		"access_token": s.Access.Token,
		"expires_at":   s.Access.Exp,
		"user": userPart{
			ID:    s.User.ID,
			Name:  s.User.Name,
			Email: s.User.Email,
			Role:  string(s.User.Role),
		},
	}
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, raw string, exp time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    raw,
		Path:     h.Cfg.CookiePath,
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     h.Cfg.CookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func refreshRaw(c echo.Context) string {
	ck, err := c.Cookie(RefreshCookie)
	if err != nil {
		return ""
	}
	return ck.Value
}

// Login: verify credentials, set the refresh cookie, return an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	sess, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	h.setRefreshCookie(c, sess.Refresh.Raw, sess.Refresh.Exp)
	return ok(c, sessionBody(sess))
}

// Refresh: exchange the refresh cookie for a new access token. The cookie
// itself is left unchanged.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	sess, err := h.Auth.RotateSession(ctx, refreshRaw(c))
	if err != nil {
		return err
	}
	return ok(c, sessionBody(sess))
}

// Logout: revoke the presented refresh token only and clear the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.RevokeSession(ctx, refreshRaw(c)); err != nil {
		return err
	}
	h.clearRefreshCookie(c)
	return ok(c, nil)
}

// Me returns the caller's current profile.
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Auth.Me(ctx, id)
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"user": u})
}
