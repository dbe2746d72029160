package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// RequirePermission rejects callers whose role does not hold p. It must run after
// Authenticate.
func RequirePermission(p identity.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			abort(c, http.StatusUnauthorized, shared.CodeUnauthorized, "Authentication required")
			return
		}
		if err := actor.Require(p); err != nil {
			logger.L(c.Request.Context()).Info("permission denied",
				zap.String("permission", p.String()),
				zap.String("role", actor.Role.String()),
			)
			abortWithError(c, err)
			return
		}
		c.Next()
	}
}
