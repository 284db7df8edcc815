package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/medipass-api/internal/model"
	"github.com/jwalitptl/medipass-api/pkg/auth"
	"github.com/jwalitptl/medipass-api/pkg/logger"
	"github.com/jwalitptl/medipass-api/pkg/security"
)

// Directory resolves account holders.
type Directory interface {
	ActorByLogin(login string) (model.Actor, model.Account, error)
	Practitioner(id int) (model.Practitioner, error)
	Administrator(id int) (model.Administrator, error)
}

type Service struct {
	dir     Directory
	hasher  security.PasswordHasher
	jwtSvc  auth.JWTService
	expiry  time.Duration
	revoked *cache.Cache
	log     *logger.Logger
}

func NewService(dir Directory, hasher security.PasswordHasher, jwtSvc auth.JWTService, expiry time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		dir:     dir,
		hasher:  hasher,
		jwtSvc:  jwtSvc,
		expiry:  expiry,
		revoked: cache.New(expiry, 10*time.Minute),
		log:     log,
	}
}

// Login checks the secret and issues a token. Unknown logins and wrong secrets
// produce the same error.
func (s *Service) Login(ctx context.Context, login, secret string) (*model.TokenResponse, error) {
	actor, account, err := s.dir.ActorByLogin(login)
	if err != nil {
		s.hasher.Burn(secret)
		return nil, model.ErrInvalidCredentials
	}
	if !s.hasher.Verify(account.SecretHash, secret) {
		s.log.Warn("login rejected", "login", login)
		return nil, model.ErrInvalidCredentials
	}
	if !account.Active {
		return nil, model.ErrAccountInactive
	}

	token, claims, err := s.jwtSvc.GenerateAccessToken(actor, account.Login)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	s.log.Info("login", "login", account.Login, "kind", actor.Kind())

	return &model.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int64(claims.ExpiresAt.Sub(claims.IssuedAt.Time).Seconds()),
		Kind:        actor.Kind(),
		PersonID:    actor.PersonID(),
	}, nil
}

// Authenticate validates a token and resolves its holder against the current
// directory, so deactivated or archived accounts lose access immediately.
func (s *Service) Authenticate(ctx context.Context, token string) (model.Actor, *model.TokenClaims, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, nil, err
	}
	if _, found := s.revoked.Get(claims.ID); found {
		return nil, nil, model.ErrTokenRevoked
	}

	switch claims.Kind {
	case model.KindPractitioner:
		p, err := s.dir.Practitioner(claims.PersonID)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", auth.ErrInvalidToken, err)
		}
		if !p.Active {
			return nil, nil, model.ErrAccountInactive
		}
		return &p, claims, nil
	case model.KindAdministrator:
		a, err := s.dir.Administrator(claims.PersonID)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", auth.ErrInvalidToken, err)
		}
		if !a.Active {
			return nil, nil, model.ErrAccountInactive
		}
		return &a, claims, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown kind %q", auth.ErrInvalidToken, claims.Kind)
}

// Logout revokes the token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return err
	}
	ttl := s.expiry
	if claims.ExpiresAt != nil && claims.IssuedAt != nil {
		ttl = claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	}
	s.revoked.Set(claims.ID, struct{}{}, ttl)
	return nil
}

// HashSecret hashes a new account secret.
func (s *Service) HashSecret(secret string) (string, error) {
	return s.hasher.Hash(secret)
}

// IsAuthError reports errors that should map to 401.
func IsAuthError(err error) bool {
	return errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, model.ErrTokenRevoked) ||
		errors.Is(err, model.ErrInvalidCredentials) ||
		errors.Is(err, model.ErrAccountInactive)
}
