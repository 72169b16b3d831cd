// Package dialogue runs the booking conversation: one utterance in, one
// reply out, with the session's draft and phase updated in between.
package dialogue

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/christopherklint97/bookr/internal/booking"
	"github.com/christopherklint97/bookr/internal/calendar"
)

// Engine is the booking state machine. It holds no per-session state and
// can serve any number of sessions, provided callers never run two turns
// of the same session at once.
type Engine struct {
	backend         calendar.Backend
	now             func() time.Time
	loc             *time.Location
	logger          *slog.Logger
	defaultTitle    string
	defaultDuration int
}

type Option func(*Engine)

// WithClock sets the source of "now" used to resolve relative dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone dates are resolved and slots displayed in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDefaultTitle names events whose draft has no title.
func WithDefaultTitle(title string) Option {
	return func(e *Engine) {
		if title != "" {
			e.defaultTitle = title
		}
	}
}

// WithDefaultDuration sets the meeting length of new sessions, in minutes.
func WithDefaultDuration(minutes int) Option {
	return func(e *Engine) {
		if minutes > 0 {
			e.defaultDuration = minutes
		}
	}
}

func New(backend calendar.Backend, opts ...Option) *Engine {
	e := &Engine{
		backend:         backend,
		now:             time.Now,
		loc:             time.Local,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		defaultTitle:    "Appointment",
		defaultDuration: booking.DefaultDurationMinutes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewSession starts a conversation in the greeting phase.
func (e *Engine) NewSession() *booking.Session {
	return booking.NewSession(e.defaultDuration)
}

// Location is the zone the engine resolves dates in.
func (e *Engine) Location() *time.Location { return e.loc }

// Backend returns the calendar the engine books against.
func (e *Engine) Backend() calendar.Backend { return e.backend }

// ProcessTurn feeds one utterance to the session and returns it with the
// reply in LastAgentReply. It never fails: errors and panics inside the
// turn end the attempt with an apology and a reset to the greeting phase.
func (e *Engine) ProcessTurn(ctx context.Context, s *booking.Session, text string) *booking.Session {
	if s == nil {
		s = e.NewSession()
	}
	text = strings.TrimSpace(text)
	s.LastUserUtterance = text
	s.Append(booking.RoleUser, text)

	from := s.Phase
	reply, err := e.turn(ctx, s, text)
	if err != nil {
		e.logger.Error("turn failed", "phase", from, "error", err)
		s.Phase = booking.PhaseFailed
		reply = e.startOver(s)
	}

	e.logger.Debug("turn processed", "from", from, "to", s.Phase)
	s.LastAgentReply = reply
	s.Append(booking.RoleAssistant, reply)
	return s
}

func (e *Engine) turn(ctx context.Context, s *booking.Session, text string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s handler: %v\n%s", s.Phase, r, debug.Stack())
		}
	}()

	switch s.Phase {
	case booking.PhaseGreeting:
		return e.greeting(ctx, s, text)
	case booking.PhaseGathering:
		return e.gathering(ctx, s, text)
	case booking.PhaseCheckingAvailability:
		return e.checkingAvailability(ctx, s, text)
	case booking.PhaseConfirming:
		return e.confirming(ctx, s, text)
	case booking.PhaseComplete:
		return e.complete(ctx, s, text)
	default:
		// failed or unknown: start over
		s.Reset()
		s.Phase = booking.PhaseGreeting
		return e.greeting(ctx, s, text)
	}
}

// startOver is the single exit for terminal failures.
func (e *Engine) startOver(s *booking.Session) string {
	s.Reset()
	s.Phase = booking.PhaseGreeting
	return apologyPrompt
}

func (e *Engine) today() time.Time {
	return e.now().In(e.loc)
}
