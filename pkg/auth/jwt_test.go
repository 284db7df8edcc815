package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medipass-api/internal/model"
)

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	svc := NewJWTService("secret", "medipass", time.Hour, func() time.Time { return now })

	actor := &model.Practitioner{Person: model.Person{ID: 10}}
	token, issued, err := svc.GenerateAccessToken(actor, "house")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 10, claims.PersonID)
	assert.Equal(t, model.KindPractitioner, claims.Kind)
	assert.Equal(t, "house", claims.Login)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestValidateRejects(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc := NewJWTService("secret", "medipass", time.Hour, clock)
	token, _, err := svc.GenerateAccessToken(&model.Administrator{Person: model.Person{ID: 1}}, "root")
	require.NoError(t, err)

	_, err = NewJWTService("other", "medipass", time.Hour, clock).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	_, err = NewJWTService("secret", "someone-else", time.Hour, clock).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong issuer")

	later := func() time.Time { return now.Add(2 * time.Hour) }
	_, err = NewJWTService("secret", "medipass", time.Hour, later).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")

	_, err = svc.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
