package calendar

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/christopherklint97/bookr/internal/booking"
)

// Booking is a created event as written to the history log.
type Booking struct {
	Title         string
	Description   string
	AttendeeEmail string
	StartTime     time.Time
	EndTime       time.Time
	Backend       string
}

// Recorder persists bookings.
type Recorder interface {
	InsertBooking(b *Booking) (int64, error)
}

type historyBackend struct {
	Backend
	recorder Recorder
	name     string
	logger   *slog.Logger
}

// WithHistory records every successful CreateEvent of backend through rec.
// Recording failures are logged and never fail the booking itself.
func WithHistory(backend Backend, rec Recorder, name string, logger *slog.Logger) Backend {
	if rec == nil {
		return backend
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &historyBackend{Backend: backend, recorder: rec, name: name, logger: logger}
}

func (h *historyBackend) CreateEvent(ctx context.Context, slot booking.Slot, title, description, attendeeEmail string) (bool, error) {
	ok, err := h.Backend.CreateEvent(ctx, slot, title, description, attendeeEmail)
	if err != nil || !ok {
		return ok, err
	}

	if _, err := h.recorder.InsertBooking(&Booking{
		Title:         title,
		Description:   description,
		AttendeeEmail: attendeeEmail,
		StartTime:     slot.Start,
		EndTime:       slot.End,
		Backend:       h.name,
	}); err != nil {
		h.logger.Warn("failed to record booking", "title", title, "error", err)
	}
	return true, nil
}
