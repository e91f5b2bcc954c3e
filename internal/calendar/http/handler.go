package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/space-booking-backend/internal/auth"
	"github.com/nekogravitycat/space-booking-backend/internal/calendar"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/daterange"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/response"
)

type Handler struct {
	service calendar.Service
	now     func() time.Time
}

func NewHandler(service calendar.Service) *Handler {
	return &Handler{service: service, now: time.Now}
}

func (h *Handler) Calendar(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var q CalendarQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	window, err := q.Window(daterange.Date(h.now().UTC()))
	if err != nil {
		response.BadRequest(c, "invalid dates", err)
		return
	}

	blocks, err := h.service.ListInRange(c.Request.Context(), uri.ID, window)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BlockResponse, len(blocks))
	for i, b := range blocks {
		items[i] = NewBlockResponse(b)
	}
	c.JSON(http.StatusOK, response.NewListResponse(items))
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := auth.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Error: "unauthorized"})
		return
	}

	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var body CreateBlockRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	start, err := request.ParseDate(body.StartDate)
	if err != nil {
		response.BadRequest(c, "invalid start_date", err)
		return
	}
	end, err := request.ParseDate(body.EndDate)
	if err != nil {
		response.BadRequest(c, "invalid end_date", err)
		return
	}

	b, err := h.service.BlockDates(c.Request.Context(), calendar.BlockRequest{
		SpaceID:   uri.ID,
		StartDate: start,
		EndDate:   end,
		Kind:      calendar.Kind(body.Kind),
		Label:     body.Label,
	}, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewBlockResponse(b))
}

func (h *Handler) Delete(c *gin.Context) {
	actor, ok := auth.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Error: "unauthorized"})
		return
	}

	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	if err := h.service.DeleteBlock(c.Request.Context(), uri.ID, actor); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
