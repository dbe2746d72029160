package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	appidentity "github.com/retail/backend/internal/application/identity"
	appshared "github.com/retail/backend/internal/application/shared"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/auth"
	"github.com/retail/backend/internal/infrastructure/logger"
	"github.com/retail/backend/internal/interfaces/http/dto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "
	actorKey     = "actor"
)

// TokenAuthenticator turns a bearer token into the principal it was issued to
type TokenAuthenticator interface {
	Authenticate(token string) (appidentity.Principal, error)
}

// ActorResolver looks up the organization role of a principal
type ActorResolver interface {
	Resolve(ctx context.Context, p appidentity.Principal) (appshared.Actor, error)
}

// Authenticate validates the bearer token, resolves the caller's role in the token's
// organization and stores the resulting actor on the context. The request logger
// and the current span are tagged with the organization and user.
func Authenticate(tokens TokenAuthenticator, members ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(authHeader)
		if !strings.HasPrefix(header, bearerPrefix) || strings.TrimSpace(header[len(bearerPrefix):]) == "" {
			abort(c, http.StatusUnauthorized, shared.CodeUnauthorized, "Missing bearer token")
			return
		}

		principal, err := tokens.Authenticate(strings.TrimSpace(header[len(bearerPrefix):]))
		if err != nil {
			logger.L(c.Request.Context()).Warn("token rejected", zap.Error(err))
			if errors.Is(err, auth.ErrExpiredToken) {
				abort(c, http.StatusUnauthorized, dto.CodeTokenExpired, "Token has expired")
				return
			}
			abort(c, http.StatusUnauthorized, dto.CodeInvalidToken, "Invalid token")
			return
		}

		actor, err := members.Resolve(c.Request.Context(), principal)
		if err != nil {
			logger.L(c.Request.Context()).Error("failed to resolve member",
				zap.String("user_id", principal.UserID.String()),
				zap.Error(err),
			)
			abortWithError(c, err)
			return
		}

		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		ctx, log = logger.WithOrganizationID(ctx, log, actor.OrganizationID.String())
		ctx, _ = logger.WithUserID(ctx, log, actor.UserID.String())
		c.Request = c.Request.WithContext(ctx)

		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetAttributes(
				attribute.String("organization_id", actor.OrganizationID.String()),
				attribute.String("user_id", actor.UserID.String()),
				attribute.String("role", actor.Role.String()),
			)
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// GetActor returns the actor stored by Authenticate
func GetActor(c *gin.Context) (appshared.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return appshared.Actor{}, false
	}
	actor, ok := v.(appshared.Actor)
	return actor, ok
}

// SetActor stores an actor on the context, for callers that authenticate another way
func SetActor(c *gin.Context, actor appshared.Actor) {
	c.Set(actorKey, actor)
}
