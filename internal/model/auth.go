package model

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// AuthRequest types
type LoginRequest struct {
	Login  string `json:"login" binding:"required"`
	Secret string `json:"secret" binding:"required"`
}

// AuthResponse types
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Kind        Kind   `json:"kind"`
	PersonID    int    `json:"person_id"`
}

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

// TokenClaims represents JWT claims
type TokenClaims struct {
	jwt.RegisteredClaims
	PersonID int    `json:"person_id"`
	Login    string `json:"login"`
	Kind     Kind   `json:"kind"`
}
