package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/orderdesk/internal/apperr"
	"github.com/iliyamo/orderdesk/internal/model"
	"github.com/iliyamo/orderdesk/internal/ports"
	"github.com/iliyamo/orderdesk/internal/utils"
)

// AuthService issues, verifies, rotates and revokes tokens.
type AuthService struct {
	users  ports.UserRepository
	tokens ports.TokenRepository
	issuer *utils.TokenIssuer
	clock  utils.Clock
	log    *zap.Logger
}

func NewAuthService(d Deps) *AuthService {
	return &AuthService{
		users:  d.Repos.Users,
		tokens: d.Repos.Tokens,
		issuer: d.Issuer,
		clock:  d.Clock,
		log:    d.Log.Named("auth"),
	}
}

// Session is what a successful login or rotation hands back. Refresh is
// zero after a rotation since refresh tokens are not rotated.
type Session struct {
	Access  utils.AccessToken
	Refresh utils.RefreshToken
	User    model.User
}

var errInvalidCredentials = apperr.Unauthorized("invalid credentials")

// Login checks email and password and opens a new session. Disabled accounts
// get Forbidden only after the password matched, so the response does not
// reveal whether an account exists.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, errInvalidCredentials
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Session{}, errInvalidCredentials
		}
		return Session{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, errInvalidCredentials
	}
	if !u.IsActive {
		return Session{}, apperr.Forbidden("account disabled")
	}

	access, err := s.IssueAccessToken(u)
	if err != nil {
		return Session{}, err
	}
	refresh, err := s.IssueRefreshToken(ctx, u.ID)
	if err != nil {
		return Session{}, err
	}
	s.log.Info("login", zap.Uint64("user_id", u.ID), zap.String("role", string(u.Role)))
	return Session{Access: access, Refresh: refresh, User: u}, nil
}

func (s *AuthService) IssueAccessToken(u model.User) (utils.AccessToken, error) {
	tok, err := s.issuer.NewAccessToken(u.Identity())
	if err != nil {
		return utils.AccessToken{}, apperr.Internal("sign access token", err)
	}
	return tok, nil
}

// IssueRefreshToken signs a refresh token and stores its digest.
func (s *AuthService) IssueRefreshToken(ctx context.Context, userID uint64) (utils.RefreshToken, error) {
	tok, err := s.issuer.NewRefreshToken(userID)
	if err != nil {
		return utils.RefreshToken{}, apperr.Internal("sign refresh token", err)
	}
	if err := s.tokens.Store(ctx, userID, utils.HashRefreshRaw(tok.Raw), tok.Exp); err != nil {
		return utils.RefreshToken{}, err
	}
	return tok, nil
}

// VerifyAccessToken returns the identity carried by a valid access token.
func (s *AuthService) VerifyAccessToken(raw string) (model.Identity, error) {
	id, err := s.issuer.ParseAccessToken(raw)
	if err != nil {
		return model.Identity{}, apperr.Unauthorized("invalid or expired token")
	}
	return id, nil
}

var errInvalidRefresh = apperr.Unauthorized("invalid refresh token")

// RotateSession exchanges a refresh token for a fresh access token. The
// token must verify, be present in storage, be unexpired by the injected
// clock and belong to an active user.
func (s *AuthService) RotateSession(ctx context.Context, raw string) (Session, error) {
	userID, err := s.issuer.ParseRefreshToken(raw)
	if err != nil {
		return Session{}, errInvalidRefresh
	}
	stored, err := s.tokens.Find(ctx, userID, utils.HashRefreshRaw(raw))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Session{}, errInvalidRefresh
		}
		return Session{}, err
	}
	if !s.clock.Now().Before(stored.ExpiresAt) {
		return Session{}, errInvalidRefresh
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Session{}, errInvalidRefresh
		}
		return Session{}, err
	}
	if !u.IsActive {
		return Session{}, errInvalidRefresh
	}
	access, err := s.IssueAccessToken(u)
	if err != nil {
		return Session{}, err
	}
	return Session{Access: access, User: u}, nil
}

// RevokeSession deletes the presented refresh token. Other sessions of the
// same user stay valid. Unknown or empty tokens are a no-op.
func (s *AuthService) RevokeSession(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	return s.tokens.DeleteByHash(ctx, utils.HashRefreshRaw(raw))
}

// SweepExpired deletes refresh tokens whose expiry has passed.
func (s *AuthService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.tokens.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("swept expired refresh tokens", zap.Int64("count", n))
	}
	return n, nil
}

// Me reloads the caller so disabled accounts and renamed users are seen.
func (s *AuthService) Me(ctx context.Context, actor model.Identity) (model.User, error) {
	u, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return model.User{}, apperr.Unauthorized("unknown user")
		}
		return model.User{}, err
	}
	return u, nil
}
