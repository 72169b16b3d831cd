package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/christopherklint97/bookr/internal/booking"
)

// ErrReadOnly is returned by backends that can list availability but cannot
// create events.
var ErrReadOnly = errors.New("calendar source is read-only")

// Backend is the calendar the assistant books against.
type Backend interface {
	// Availability lists free slots between start and end, in order.
	Availability(ctx context.Context, start, end time.Time) ([]booking.Slot, error)
	// CreateEvent books slot. A false result without an error means the
	// backend declined the booking.
	CreateEvent(ctx context.Context, slot booking.Slot, title, description, attendeeEmail string) (bool, error)
	// IsReal reports whether events land in a real calendar that sends
	// invitations.
	IsReal() bool
}

// Event represents a parsed calendar event.
type Event struct {
	UID       string
	Summary   string
	StartTime time.Time
	EndTime   time.Time
}

func (e Event) overlaps(start, end time.Time) bool {
	return e.StartTime.Before(end) && e.EndTime.After(start)
}
