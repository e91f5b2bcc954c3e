package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler) {
	spaces := g.Group("/spaces")

	// === Public Routes ===
	spaces.GET("/:id/availability", h.Available)
	spaces.GET("/:id/availability/check", h.Check)
}
