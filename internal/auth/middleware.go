package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/space-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/space-booking-backend/internal/user"
)

// ActorResolver turns a token subject into an Actor. user.Service satisfies it.
type ActorResolver interface {
	Actor(ctx context.Context, id string) (user.Actor, error)
}

// AuthRequired is a Gin middleware that validates JWT from Authorization: Bearer <token>
// and stores the resolved Actor on the context.
func AuthRequired(jwtManager *JWTManager, resolver ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{
				Error: "missing Authorization header",
			})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{
				Error: "invalid Authorization header format",
			})
			return
		}

		claims, err := jwtManager.ParseAndValidate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{
				Error: "invalid or expired token",
			})
			return
		}

		actor, err := resolver.Actor(c.Request.Context(), claims.UserID())
		if err != nil {
			if apperror.IsKind(err, apperror.KindNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{
					Error: "unknown user",
				})
				return
			}
			response.Error(c, err)
			c.Abort()
			return
		}

		SetActor(c, actor)
		c.Next()
	}
}
