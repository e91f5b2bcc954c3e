package events

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Event names published by the booking engine.
const (
	ReservationCreated       = "reservation.created"
	ReservationStatusChanged = "reservation.status_changed"
	ReservationDeleted       = "reservation.deleted"
	CalendarBlocked          = "calendar.blocked"
	CalendarReleased         = "calendar.released"
)

// Event is a fact about a reservation or calendar block that already committed.
type Event struct {
	Name        string    `json:"name"`
	SpaceID     string    `json:"space_id"`
	AggregateID string    `json:"aggregate_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Payload     any       `json:"payload,omitempty"`
}

// Publisher delivers events to interested neighbours (notifications, payments, caches).
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error {
	return f(ctx, e)
}

type fanout []Publisher

// Fanout publishes every event to all publishers, joining their errors.
func Fanout(pubs ...Publisher) Publisher {
	out := make(fanout, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (f fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes events to the structured log. Used when no broker is configured.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	p.log.InfoContext(ctx, "event published",
		"event", e.Name,
		"space_id", e.SpaceID,
		"aggregate_id", e.AggregateID,
	)
	return nil
}

// publishTimeout bounds a post-commit publish once it is detached from the request.
const publishTimeout = 5 * time.Second

// Emit publishes e after the write it describes committed. Failures are logged and swallowed:
// the store is the source of truth and the operation already succeeded.
// Publishing ignores cancellation of ctx; a client hanging up after the commit
// must not skip cache invalidation.
func Emit(ctx context.Context, pub Publisher, log *slog.Logger, e Event) {
	if pub == nil {
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := pub.Publish(ctx, e); err != nil {
		log.WarnContext(ctx, "publish event failed",
			"event", e.Name,
			"aggregate_id", e.AggregateID,
			"error", err,
		)
	}
}
