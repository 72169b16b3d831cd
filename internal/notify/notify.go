// Package notify sends desktop notifications for finished bookings.
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gen2brain/beeep"
)

const appName = "bookr"

// Notifier posts desktop notifications. A disabled notifier does nothing.
type Notifier struct {
	enabled bool
	send    func(title, message string) error
	logger  *slog.Logger
}

func New(enabled bool, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Notifier{
		enabled: enabled,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		logger: logger,
	}
}

// Booked announces a created event. Failures are logged, never returned:
// a missing notification daemon must not affect the booking.
func (n *Notifier) Booked(title string, start time.Time) {
	if n == nil || !n.enabled {
		return
	}
	msg := fmt.Sprintf("%s booked for %s", title, start.Format("Mon Jan 2, 3:04 PM"))
	if err := n.send(appName, msg); err != nil {
		n.logger.Warn("desktop notification failed", "error", err)
	}
}
