package dialogue

import (
	"context"
	"errors"
	"fmt"

	"github.com/christopherklint97/bookr/internal/booking"
	"github.com/christopherklint97/bookr/internal/extract"
)

var errNoConfirmedSlot = errors.New("confirmation without a selected slot")

func (e *Engine) greeting(ctx context.Context, s *booking.Session, text string) (string, error) {
	if text == "" {
		return welcomePrompt, nil
	}

	s.Phase = booking.PhaseGathering
	if extract.ClassifyIntent(text).Kind != extract.IntentBookingRequest {
		return clarifyPrompt, nil
	}

	e.fill(s, extract.Extract(text, e.today()))
	reply, err := e.evaluate(ctx, s)
	if err != nil {
		return "", err
	}
	return ackPrompt + "\n\n" + reply, nil
}

func (e *Engine) gathering(ctx context.Context, s *booking.Session, text string) (string, error) {
	frags := extract.Extract(text, e.today())

	// A complete draft here means the user turned down an offer; naming a
	// new date or time is an explicit revision, not a silent overwrite.
	var revised bool
	if s.Draft.Complete() {
		revised = revise(&s.Draft, frags)
	}
	e.fill(s, frags)

	reply, err := e.evaluate(ctx, s)
	if err != nil {
		return "", err
	}
	if revised {
		return revisedPrompt(s.Draft) + "\n\n" + reply, nil
	}
	return reply, nil
}

// fill copies fragments into empty draft fields only.
func (e *Engine) fill(s *booking.Session, f extract.Fragments) {
	d := &s.Draft
	if d.Date == "" {
		d.Date = f.Date
	}
	if d.Time == "" {
		d.Time = f.Time
	}
	if d.Title == "" {
		d.Title = f.Title
	}
	if d.AttendeeEmail == "" {
		d.AttendeeEmail = f.Email
	}
}

// revise replaces date and time with differing values from f and reports
// whether anything changed.
func revise(d *booking.Draft, f extract.Fragments) bool {
	changed := false
	if f.Date != "" && f.Date != d.Date {
		d.Date = f.Date
		changed = true
	}
	if f.Time != "" && f.Time != d.Time {
		d.Time = f.Time
		changed = true
	}
	return changed
}

// evaluate asks for whatever the draft still lacks, or moves on to
// availability once it is complete.
func (e *Engine) evaluate(ctx context.Context, s *booking.Session) (string, error) {
	s.Catalog = nil
	s.ConfirmedSlot = nil

	if missing := s.Draft.Missing(); len(missing) > 0 {
		s.Phase = booking.PhaseGathering
		return missingPrompt(missing), nil
	}

	s.Phase = booking.PhaseCheckingAvailability
	if err := e.refreshCatalog(ctx, s); err != nil {
		return "", err
	}
	if len(s.Catalog) == 0 {
		return e.noSlots(s), nil
	}
	return checkingPrompt(s.Draft) + "\n\n" + catalogPrompt(s.Draft.Date, s.Catalog, e.loc), nil
}

// refreshCatalog replaces the catalog with the best offers for the draft's
// day. The previous catalog is never merged in.
func (e *Engine) refreshCatalog(ctx context.Context, s *booking.Session) error {
	start, end, err := booking.DayBounds(s.Draft.Date, e.loc)
	if err != nil {
		return err
	}

	slots, err := e.backend.Availability(ctx, start, end)
	if err != nil {
		return fmt.Errorf("querying availability for %s: %w", s.Draft.Date, err)
	}

	hour, ok := extract.Hour24(s.Draft.Time)
	slots = booking.FilterByDuration(slots, s.Draft.DurationMinutes)
	s.Catalog = booking.RankSlots(slots, hour, ok, booking.MaxOffers, e.loc)

	e.logger.Debug("catalog refreshed", "date", s.Draft.Date, "available", len(slots), "offered", len(s.Catalog))
	return nil
}

func (e *Engine) noSlots(s *booking.Session) string {
	date := s.Draft.Date
	s.Draft.Date = ""
	s.Catalog = nil
	s.Phase = booking.PhaseGathering
	return noSlotsPrompt(date)
}

func (e *Engine) checkingAvailability(ctx context.Context, s *booking.Session, text string) (string, error) {
	if len(s.Catalog) == 0 {
		if err := e.refreshCatalog(ctx, s); err != nil {
			return "", err
		}
		if len(s.Catalog) == 0 {
			return e.noSlots(s), nil
		}
	}

	frags := extract.Extract(text, e.today())
	namesDateOrTime := frags.Date != "" || frags.Time != ""
	rejected := extract.ClassifyIntent(text).Kind == extract.IntentRejection

	// "2 pm" names a time, not the second slot, and "none of the three"
	// turns the offers down.
	if !namesDateOrTime && !rejected {
		if idx, ok := extract.SlotSelection(text); ok && idx < len(s.Catalog) {
			slot := s.Catalog[idx]
			s.ConfirmedSlot = &slot
			s.Phase = booking.PhaseConfirming
			return confirmPrompt(e.title(s), slot, e.loc), nil
		}
	}

	if rejected && !namesDateOrTime {
		s.Draft.Date = ""
		s.Draft.Time = ""
		s.Catalog = nil
		s.ConfirmedSlot = nil
		s.Phase = booking.PhaseGathering
		return rejectedCatalog, nil
	}

	if revise(&s.Draft, frags) {
		reply, err := e.evaluate(ctx, s)
		if err != nil {
			return "", err
		}
		return revisedPrompt(s.Draft) + "\n\n" + reply, nil
	}

	return catalogPrompt(s.Draft.Date, s.Catalog, e.loc), nil
}

func (e *Engine) confirming(ctx context.Context, s *booking.Session, text string) (string, error) {
	switch extract.ClassifyIntent(text).Kind {
	case extract.IntentConfirmation:
		return e.book(ctx, s)
	case extract.IntentRejection:
		s.ConfirmedSlot = nil
		s.Catalog = nil
		s.Phase = booking.PhaseGathering
		return rejectedOffer, nil
	default:
		return yesNoPrompt, nil
	}
}

func (e *Engine) book(ctx context.Context, s *booking.Session) (string, error) {
	if s.ConfirmedSlot == nil {
		return "", errNoConfirmedSlot
	}
	slot := *s.ConfirmedSlot
	title := e.title(s)

	ok, err := e.backend.CreateEvent(ctx, slot, title, s.Draft.Description, s.Draft.AttendeeEmail)
	if err != nil {
		return "", fmt.Errorf("creating event: %w", err)
	}
	if !ok {
		return "", errors.New("calendar declined the booking")
	}

	e.logger.Info("booking created", "title", title, "start", slot.Start, "attendee", s.Draft.AttendeeEmail)
	s.Phase = booking.PhaseComplete
	return bookedPrompt(title, slot, e.loc, e.backend.IsReal()), nil
}

// complete starts the next attempt. The finished draft stays visible until
// the user says something.
func (e *Engine) complete(ctx context.Context, s *booking.Session, text string) (string, error) {
	s.Reset()
	s.Phase = booking.PhaseGreeting
	if text == "" {
		return welcomePrompt, nil
	}
	if extract.ClassifyIntent(text).Kind == extract.IntentRejection {
		return farewellPrompt, nil
	}
	return e.greeting(ctx, s, text)
}

func (e *Engine) title(s *booking.Session) string {
	if s.Draft.Title != "" {
		return s.Draft.Title
	}
	return e.defaultTitle
}
