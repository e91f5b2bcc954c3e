package http

import (
	"time"

	"github.com/nekogravitycat/space-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/space-booking-backend/internal/reservation"
)

const (
	ViewTenant = "tenant"
	ViewOwner  = "owner"
)

type CreateReservationRequest struct {
	SpaceID   string `json:"space_id" binding:"required,uuid"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

// Dates parses both bounds into calendar dates.
func (r *CreateReservationRequest) Dates() (time.Time, time.Time, error) {
	start, err := request.ParseDate(r.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := request.ParseDate(r.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// ListReservationsRequest defines query parameters for listing reservations.
type ListReservationsRequest struct {
	request.ListParams
	As       string `form:"as" binding:"omitempty,oneof=tenant owner"`
	SpaceID  string `form:"space_id" binding:"omitempty,uuid"`
	TenantID string `form:"tenant_id" binding:"omitempty,uuid"`
	Status   string `form:"status" binding:"omitempty,oneof=PENDING CONFIRMED REJECTED CANCELLED COMPLETED"`
	From     string `form:"from"`
	To       string `form:"to"`
}

// Window parses the optional from/to dates.
func (r *ListReservationsRequest) Window() (from, to *time.Time, err error) {
	if r.From != "" {
		t, err := request.ParseDate(r.From)
		if err != nil {
			return nil, nil, err
		}
		from = &t
	}
	if r.To != "" {
		t, err := request.ParseDate(r.To)
		if err != nil {
			return nil, nil, err
		}
		to = &t
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, reservation.ErrInvalidDateRange
	}
	return from, to, nil
}

type StatsRequest struct {
	As      string `form:"as" binding:"omitempty,oneof=tenant owner"`
	SpaceID string `form:"space_id" binding:"omitempty,uuid"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING CONFIRMED REJECTED CANCELLED COMPLETED"`
}

type SpaceTag struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type ReservationResponse struct {
	ID          string    `json:"id"`
	Space       SpaceTag  `json:"space"`
	TenantID    string    `json:"tenant_id"`
	OwnerID     string    `json:"owner_id"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	Status      string    `json:"status"`
	Nights      int       `json:"nights"`
	NightlyRate int64     `json:"nightly_rate"`
	TotalPrice  int64     `json:"total_price"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:          r.ID,
		Space:       SpaceTag{ID: r.SpaceID, Title: r.SpaceTitle},
		TenantID:    r.TenantID,
		OwnerID:     r.OwnerID,
		StartDate:   r.StartDate.Format(request.DateLayout),
		EndDate:     r.EndDate.Format(request.DateLayout),
		Status:      string(r.Status),
		Nights:      r.Nights(),
		NightlyRate: r.NightlyRate,
		TotalPrice:  r.TotalPrice(),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type StatsResponse struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Rejected  int `json:"rejected"`
	Cancelled int `json:"cancelled"`
	Completed int `json:"completed"`
}

func NewStatsResponse(s reservation.Stats) StatsResponse {
	return StatsResponse{
		Total:     s.Total,
		Pending:   s.Count(reservation.StatusPending),
		Confirmed: s.Count(reservation.StatusConfirmed),
		Rejected:  s.Count(reservation.StatusRejected),
		Cancelled: s.Count(reservation.StatusCancelled),
		Completed: s.Count(reservation.StatusCompleted),
	}
}
