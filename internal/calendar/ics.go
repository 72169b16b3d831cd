package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	ical "github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/christopherklint97/bookr/internal/booking"
)

const productID = "-//bookr//booking assistant//EN"

// ICS books against an iCalendar source. Local files are read for busy
// times and new events are appended to them; http(s) sources are read-only.
type ICS struct {
	source string
	hours  WorkingHours
	logger *slog.Logger
}

func NewICS(source string, hours WorkingHours, logger *slog.Logger) *ICS {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ICS{source: source, hours: hours, logger: logger}
}

func (c *ICS) Availability(ctx context.Context, start, end time.Time) ([]booking.Slot, error) {
	busy, err := Fetch(ctx, c.source, start, end, c.hours.Location)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !isRemote(c.source) {
			// A calendar file that doesn't exist yet has no events.
			busy = nil
		} else {
			return nil, err
		}
	}
	slots := FreeSlots(c.hours, start, end, busy)
	c.logger.Debug("ics availability computed", "source", c.source, "busy", len(busy), "free", len(slots))
	return slots, nil
}

func (c *ICS) CreateEvent(ctx context.Context, slot booking.Slot, title, description, attendeeEmail string) (bool, error) {
	if isRemote(c.source) {
		return false, ErrReadOnly
	}
	if err := AppendEvent(c.source, slot, title, description, attendeeEmail); err != nil {
		return false, err
	}
	c.logger.Info("ics event written", "path", c.source, "title", title, "start", slot.Start)
	return true, nil
}

// IsReal is false: writing to a calendar file notifies nobody.
func (c *ICS) IsReal() bool { return false }

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Fetch retrieves and parses iCalendar events from a URL or file path,
// returning events that overlap with the given time window. Floating times
// are read in loc.
func Fetch(ctx context.Context, source string, windowStart, windowEnd time.Time, loc *time.Location) ([]Event, error) {
	var r io.ReadCloser

	if isRemote(source) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching calendar: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("calendar fetch returned status %d", resp.StatusCode)
		}
		r = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("opening calendar file: %w", err)
		}
		r = f
	}
	defer r.Close()

	dec := ical.NewDecoder(r)
	var events []Event

	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing calendar: %w", err)
		}

		for _, component := range cal.Children {
			if component.Name != ical.CompEvent {
				continue
			}
			event := ical.Event{Component: component}

			if status, _ := event.Props.Text(ical.PropStatus); strings.EqualFold(status, "CANCELLED") {
				continue
			}

			start, err := event.DateTimeStart(loc)
			if err != nil {
				continue // skip malformed events
			}
			end, err := event.DateTimeEnd(loc)
			if err != nil {
				continue
			}

			e := Event{StartTime: start, EndTime: end}
			e.UID, _ = event.Props.Text(ical.PropUID)
			e.Summary, _ = event.Props.Text(ical.PropSummary)
			if e.overlaps(windowStart, windowEnd) {
				events = append(events, e)
			}
		}
	}

	return events, nil
}

// AppendEvent adds a VEVENT for slot to the calendar file at path, creating
// the file if needed. The file is replaced atomically.
func AppendEvent(path string, slot booking.Slot, title, description, attendeeEmail string) error {
	cal, err := readCalendar(path)
	if err != nil {
		return err
	}

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uuid.NewString()+"@bookr")
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, slot.Start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, slot.End.UTC())
	event.Props.SetText(ical.PropSummary, title)
	if description != "" {
		event.Props.SetText(ical.PropDescription, description)
	}
	if attendeeEmail != "" {
		attendee := ical.NewProp(ical.PropAttendee)
		attendee.Value = "mailto:" + attendeeEmail
		event.Props.Add(attendee)
	}
	cal.Children = append(cal.Children, event.Component)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating calendar directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating temp calendar file: %w", err)
	}
	if err := ical.NewEncoder(f).Encode(cal); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding calendar: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing calendar: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming calendar file: %w", err)
	}
	return nil
}

func readCalendar(path string) (*ical.Calendar, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		cal := ical.NewCalendar()
		cal.Props.SetText(ical.PropVersion, "2.0")
		cal.Props.SetText(ical.PropProductID, productID)
		return cal, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening calendar file: %w", err)
	}
	defer f.Close()

	cal, err := ical.NewDecoder(f).Decode()
	if err != nil {
		return nil, fmt.Errorf("parsing calendar: %w", err)
	}
	return cal, nil
}
