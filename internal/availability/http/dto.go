package http

import (
	"time"

	"github.com/nekogravitycat/space-booking-backend/internal/pkg/daterange"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/request"
)

type AvailabilityQuery struct {
	HorizonDays int `form:"horizon_days" binding:"omitempty,min=1"`
}

type CheckQuery struct {
	StartDate string `form:"start_date" binding:"required"`
	EndDate   string `form:"end_date" binding:"required"`
}

func (q *CheckQuery) Range() (daterange.Range, error) {
	start, err := request.ParseDate(q.StartDate)
	if err != nil {
		return daterange.Range{}, err
	}
	end, err := request.ParseDate(q.EndDate)
	if err != nil {
		return daterange.Range{}, err
	}
	return daterange.Span(start, end), nil
}

type AvailabilityResponse struct {
	SpaceID     string   `json:"space_id"`
	HorizonDays int      `json:"horizon_days"`
	Dates       []string `json:"dates"`
}

func NewAvailabilityResponse(spaceID string, horizon int, dates []time.Time) AvailabilityResponse {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(request.DateLayout)
	}
	return AvailabilityResponse{SpaceID: spaceID, HorizonDays: horizon, Dates: out}
}

type CheckResponse struct {
	SpaceID   string `json:"space_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Available bool   `json:"available"`
}
