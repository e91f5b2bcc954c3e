package http

import (
	"time"

	"github.com/nekogravitycat/space-booking-backend/internal/calendar"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/daterange"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/request"
)

// defaultWindowDays is the calendar span returned when no "to" is given.
const defaultWindowDays = 90

type CreateBlockRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Kind      string `json:"kind" binding:"omitempty,oneof=booked blocked"`
	Label     string `json:"label" binding:"max=200"`
}

type CalendarQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}

// Window resolves the requested range, defaulting to today plus defaultWindowDays.
func (q *CalendarQuery) Window(today time.Time) (daterange.Range, error) {
	from := today
	if q.From != "" {
		t, err := request.ParseDate(q.From)
		if err != nil {
			return daterange.Range{}, err
		}
		from = t
	}
	to := from.AddDate(0, 0, defaultWindowDays)
	if q.To != "" {
		t, err := request.ParseDate(q.To)
		if err != nil {
			return daterange.Range{}, err
		}
		to = t
	}
	return daterange.Span(from, to), nil
}

type BlockResponse struct {
	ID        string    `json:"id"`
	SpaceID   string    `json:"space_id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Kind      string    `json:"kind"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewBlockResponse(b *calendar.Block) BlockResponse {
	return BlockResponse{
		ID:        b.ID,
		SpaceID:   b.SpaceID,
		StartDate: b.StartDate.Format(request.DateLayout),
		EndDate:   b.EndDate.Format(request.DateLayout),
		Kind:      string(b.Kind),
		Label:     b.Label,
		CreatedAt: b.CreatedAt,
	}
}
