package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medipass-api/internal/handler"
	"github.com/jwalitptl/medipass-api/internal/model"
	apperrors "github.com/jwalitptl/medipass-api/pkg/errors"
)

// Authenticator resolves a bearer token into an actor.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.Actor, *model.TokenClaims, error)
}

type AuthMiddleware struct {
	authService Authenticator
}

func NewAuthMiddleware(authService Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate verifies the JWT and puts the actor in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			handler.Fail(c, apperrors.Unauthorized(nil))
			return
		}

		actor, claims, err := m.authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			handler.Fail(c, apperrors.Unauthorized(err))
			return
		}

		handler.SetActor(c, actor)
		c.Set("login", claims.Login)
		c.Next()
	}
}

// RequireAdmin allows only administrators through.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := handler.ActorFrom(c)
		if actor == nil || actor.Kind() != model.KindAdministrator {
			handler.Fail(c, apperrors.Forbidden(nil))
			return
		}
		c.Next()
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
