package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrHashingFailed = errors.New("password hashing failed")
	ErrTooShort      = errors.New("password too short")
	MinPasswordLen   = 8
)

// PasswordHasher hashes account secrets and checks them in constant time.
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(hash, secret string) bool
	// Burn spends the cost of one comparison. Used when the login is unknown so
	// response time does not reveal which logins exist.
	Burn(secret string)
}

type bcryptHasher struct {
	cost  int
	dummy []byte
}

// NewBcryptHasher creates a new password hasher using bcrypt
func NewBcryptHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("medipass-dummy-secret"), cost)
	return &bcryptHasher{cost: cost, dummy: dummy}
}

func (b *bcryptHasher) Hash(secret string) (string, error) {
	if len(secret) < MinPasswordLen {
		return "", ErrTooShort
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), b.cost)
	if err != nil {
		return "", ErrHashingFailed
	}
	return string(bytes), nil
}

func (b *bcryptHasher) Verify(hash, secret string) bool {
	if hash == "" {
		b.Burn(secret)
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

func (b *bcryptHasher) Burn(secret string) {
	_ = bcrypt.CompareHashAndPassword(b.dummy, []byte(secret))
}
