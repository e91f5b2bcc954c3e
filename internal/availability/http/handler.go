package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/space-booking-backend/internal/availability"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/response"
)

type Handler struct {
	service availability.Service
}

func NewHandler(service availability.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Available(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var q AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	horizon := q.HorizonDays
	if horizon == 0 {
		horizon = availability.DefaultHorizonDays
	}

	dates, err := h.service.AvailableDates(c.Request.Context(), uri.ID, horizon)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAvailabilityResponse(uri.ID, horizon, dates))
}

func (h *Handler) Check(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var q CheckQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	rng, err := q.Range()
	if err != nil {
		response.BadRequest(c, "invalid dates", err)
		return
	}

	ok, err := h.service.IsAvailable(c.Request.Context(), uri.ID, rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, CheckResponse{
		SpaceID:   uri.ID,
		StartDate: rng.Start.Format(request.DateLayout),
		EndDate:   rng.End.Format(request.DateLayout),
		Available: ok,
	})
}
