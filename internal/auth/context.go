package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/space-booking-backend/internal/user"
)

const actorKey = "actor"

// SetActor stores the resolved caller on the Gin context.
func SetActor(c *gin.Context, a user.Actor) {
	c.Set(actorKey, a)
}

// GetActor returns the authenticated caller. ok is false on unauthenticated routes.
func GetActor(c *gin.Context) (user.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return user.Actor{}, false
	}
	a, ok := v.(user.Actor)
	return a, ok
}

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	if a, ok := GetActor(c); ok {
		return a.UserID
	}
	return ""
}
