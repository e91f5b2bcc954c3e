package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	spaces := g.Group("/spaces")

	// === Public Routes ===
	spaces.GET("/:id/calendar", h.Calendar)

	// === Authenticated Routes ===
	spaces.POST("/:id/blocks", authMiddleware, h.Create)
	g.DELETE("/blocks/:id", authMiddleware, h.Delete)
}
