package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/medipass-api/internal/model"
	"github.com/jwalitptl/medipass-api/internal/service/directory"
	"github.com/jwalitptl/medipass-api/pkg/auth"
	"github.com/jwalitptl/medipass-api/pkg/security"
)

func newAuth(t *testing.T) (*Service, *directory.Service) {
	t.Helper()
	ctx := context.Background()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	dir := directory.NewService()
	svc := NewService(dir, hasher, auth.NewJWTService("secret", "medipass", time.Hour, nil), time.Hour, nil)

	hash, err := svc.HashSecret("house-secret")
	require.NoError(t, err)
	_, err = dir.CreatePractitioner(ctx, model.Practitioner{
		Person:    model.Person{ID: 10, FamilyName: "House", GivenName: "Gregory"},
		Account:   model.Account{Login: "house", SecretHash: hash, Active: true},
		Specialty: "diagnostics",
	})
	require.NoError(t, err)

	hash, err = svc.HashSecret("admin-secret")
	require.NoError(t, err)
	_, err = dir.CreateAdministrator(ctx, model.Administrator{
		Person:  model.Person{ID: 1, FamilyName: "Root", GivenName: "Admin"},
		Account: model.Account{Login: "root", SecretHash: hash, Active: true},
	})
	require.NoError(t, err)
	return svc, dir
}

func TestLoginAndAuthenticate(t *testing.T) {
	svc, _ := newAuth(t)
	ctx := context.Background()

	resp, err := svc.Login(ctx, "house", "house-secret")
	require.NoError(t, err)
	assert.Equal(t, model.KindPractitioner, resp.Kind)
	assert.Equal(t, 10, resp.PersonID)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	actor, claims, err := svc.Authenticate(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, 10, actor.PersonID())
	assert.Equal(t, "house", claims.Login)

	admin, err := svc.Login(ctx, "root", "admin-secret")
	require.NoError(t, err)
	actor, _, err = svc.Authenticate(ctx, admin.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, model.KindAdministrator, actor.Kind())
}

func TestLoginFailures(t *testing.T) {
	svc, dir := newAuth(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "house", "wrong-secret")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody", "whatever-secret")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	require.NoError(t, dir.SetAccountActive(ctx, "house", false))
	_, err = svc.Login(ctx, "house", "house-secret")
	assert.ErrorIs(t, err, model.ErrAccountInactive)
	assert.True(t, IsAuthError(err))
}

func TestAuthenticateTracksDirectory(t *testing.T) {
	svc, dir := newAuth(t)
	ctx := context.Background()
	resp, err := svc.Login(ctx, "house", "house-secret")
	require.NoError(t, err)

	require.NoError(t, dir.SetAccountActive(ctx, "house", false))
	_, _, err = svc.Authenticate(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, model.ErrAccountInactive)

	require.NoError(t, dir.SetAccountActive(ctx, "house", true))
	require.NoError(t, dir.RemovePractitioner(ctx, 10))
	_, _, err = svc.Authenticate(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _ := newAuth(t)
	ctx := context.Background()
	resp, err := svc.Login(ctx, "root", "admin-secret")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, resp.AccessToken))
	_, _, err = svc.Authenticate(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, model.ErrTokenRevoked)

	other, err := svc.Login(ctx, "root", "admin-secret")
	require.NoError(t, err)
	_, _, err = svc.Authenticate(ctx, other.AccessToken)
	assert.NoError(t, err)
}
