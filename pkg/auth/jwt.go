package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jwalitptl/medipass-api/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

type JWTService interface {
	GenerateAccessToken(actor model.Actor, login string) (string, *model.TokenClaims, error)
	ValidateToken(token string) (*model.TokenClaims, error)
}

type hmacService struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

// NewJWTService signs HS256 tokens. now may be nil.
func NewJWTService(secret, issuer string, expiry time.Duration, now func() time.Time) JWTService {
	if now == nil {
		now = time.Now
	}
	return &hmacService{secret: []byte(secret), issuer: issuer, expiry: expiry, now: now}
}

func (s *hmacService) GenerateAccessToken(actor model.Actor, login string) (string, *model.TokenClaims, error) {
	issued := s.now()
	claims := &model.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   fmt.Sprintf("%s:%d", actor.Kind(), actor.PersonID()),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(s.expiry)),
		},
		PersonID: actor.PersonID(),
		Login:    login,
		Kind:     actor.Kind(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

func (s *hmacService) ValidateToken(token string) (*model.TokenClaims, error) {
	claims := &model.TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" || claims.PersonID <= 0 {
		return nil, fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}
	return claims, nil
}
