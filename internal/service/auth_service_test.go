package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/orderdesk/internal/apperr"
	"github.com/iliyamo/orderdesk/internal/model"
	"github.com/iliyamo/orderdesk/internal/utils"
)

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials open a session", func(t *testing.T) {
		f := newFixture(t)
		sess, err := f.svc.Auth.Login(ctx, "  Client@Demo.local ", demoPassword)
		require.NoError(t, err)
		assert.Equal(t, clientID.ID, sess.User.ID)
		assert.NotEmpty(t, sess.Access.Token)
		assert.NotEmpty(t, sess.Refresh.Raw)
		assert.Equal(t, 1, f.store.tokenCount())

		id, err := f.svc.Auth.VerifyAccessToken(sess.Access.Token)
		require.NoError(t, err)
		assert.Equal(t, clientID, id)
	})

	t.Run("stored digest is not the raw token", func(t *testing.T) {
		f := newFixture(t)
		sess, err := f.svc.Auth.Login(ctx, clientID.Email, demoPassword)
		require.NoError(t, err)
		stored, err := f.store.Repos().Tokens.Find(ctx, clientID.ID, utils.HashRefreshRaw(sess.Refresh.Raw))
		require.NoError(t, err)
		assert.NotEqual(t, sess.Refresh.Raw, stored.TokenHash)
		assert.Len(t, stored.TokenHash, 64)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Auth.Login(ctx, clientID.Email, "nope")
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("unknown email", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Auth.Login(ctx, "ghost@demo.local", demoPassword)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("disabled account", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Users.Toggle(ctx, adminID, clientID.ID)
		require.NoError(t, err)

		_, err = f.svc.Auth.Login(ctx, clientID.Email, demoPassword)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		assert.Zero(t, f.store.tokenCount())
	})
}

func TestRefreshRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.svc.Auth.Login(ctx, staffID.Email, demoPassword)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	rotated, err := f.svc.Auth.RotateSession(ctx, sess.Refresh.Raw)
	require.NoError(t, err)
	assert.Equal(t, staffID.ID, rotated.User.ID)
	assert.Empty(t, rotated.Refresh.Raw, "refresh tokens are not rotated")

	id, err := f.svc.Auth.VerifyAccessToken(rotated.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, staffID, id)

	require.NoError(t, f.svc.Auth.RevokeSession(ctx, sess.Refresh.Raw))
	_, err = f.svc.Auth.RotateSession(ctx, sess.Refresh.Raw)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestRevokeSession_KeepsOtherSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.svc.Auth.Login(ctx, managerID.Email, demoPassword)
	require.NoError(t, err)
	second, err := f.svc.Auth.Login(ctx, managerID.Email, demoPassword)
	require.NoError(t, err)
	require.NotEqual(t, first.Refresh.Raw, second.Refresh.Raw)

	require.NoError(t, f.svc.Auth.RevokeSession(ctx, first.Refresh.Raw))

	_, err = f.svc.Auth.RotateSession(ctx, second.Refresh.Raw)
	assert.NoError(t, err)
	assert.NoError(t, f.svc.Auth.RevokeSession(ctx, ""))
	assert.NoError(t, f.svc.Auth.RevokeSession(ctx, "never-issued"))
}

func TestRotateSession_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("expired by the injected clock", func(t *testing.T) {
		f := newFixture(t)
		sess, err := f.svc.Auth.Login(ctx, clientID.Email, demoPassword)
		require.NoError(t, err)

		f.clock.Advance(8 * 24 * time.Hour)
		_, err = f.svc.Auth.RotateSession(ctx, sess.Refresh.Raw)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		f := newFixture(t)
		sess, err := f.svc.Auth.Login(ctx, clientID.Email, demoPassword)
		require.NoError(t, err)

		_, err = f.svc.Auth.RotateSession(ctx, sess.Access.Token)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("user disabled after login", func(t *testing.T) {
		f := newFixture(t)
		sess, err := f.svc.Auth.Login(ctx, clientID.Email, demoPassword)
		require.NoError(t, err)
		_, err = f.svc.Users.Toggle(ctx, adminID, clientID.ID)
		require.NoError(t, err)

		_, err = f.svc.Auth.RotateSession(ctx, sess.Refresh.Raw)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("garbage", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Auth.RotateSession(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
}

func TestVerifyAccessToken_Expired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess, err := f.svc.Auth.Login(ctx, adminID.Email, demoPassword)
	require.NoError(t, err)

	f.clock.Advance(16 * time.Minute)
	_, err = f.svc.Auth.VerifyAccessToken(sess.Access.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestSweepExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Auth.Login(ctx, clientID.Email, demoPassword)
	require.NoError(t, err)
	f.clock.Advance(3 * 24 * time.Hour)
	_, err = f.svc.Auth.Login(ctx, staffID.Email, demoPassword)
	require.NoError(t, err)

	f.clock.Advance(5 * 24 * time.Hour)
	n, err := f.svc.Auth.SweepExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, 1, f.store.tokenCount())
}

func TestMe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	u, err := f.svc.Auth.Me(ctx, courierID)
	require.NoError(t, err)
	assert.Equal(t, courierID.Email, u.Email)

	_, err = f.svc.Auth.Me(ctx, clientID)
	require.NoError(t, err)
	_, err = f.svc.Auth.Me(ctx, model.Identity{ID: 404, Role: model.RoleClient})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}
