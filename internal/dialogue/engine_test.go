package dialogue

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christopherklint97/bookr/internal/booking"
	"github.com/christopherklint97/bookr/internal/calendar"
)

// Monday 2024-06-10, mid morning.
var monday = time.Date(2024, 6, 10, 10, 30, 0, 0, time.UTC)

type fakeBackend struct {
	slots     []booking.Slot
	availErr  error
	createOK  bool
	createErr error
	real      bool
	panics    bool

	queried       []time.Time
	created       []booking.Slot
	createdTitles []string
}

func (f *fakeBackend) Availability(_ context.Context, start, end time.Time) ([]booking.Slot, error) {
	if f.panics {
		panic("boom")
	}
	f.queried = append(f.queried, start)
	return f.slots, f.availErr
}

func (f *fakeBackend) CreateEvent(_ context.Context, slot booking.Slot, title, description, attendeeEmail string) (bool, error) {
	f.created = append(f.created, slot)
	f.createdTitles = append(f.createdTitles, title)
	return f.createOK, f.createErr
}

func (f *fakeBackend) IsReal() bool { return f.real }

func hourSlots(day time.Time, hours ...int) []booking.Slot {
	slots := make([]booking.Slot, len(hours))
	for i, h := range hours {
		start := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, time.UTC)
		slots[i] = booking.Slot{Start: start, End: start.Add(time.Hour), Available: true}
	}
	return slots
}

func newEngine(b calendar.Backend) *Engine {
	return New(b,
		WithClock(func() time.Time { return monday }),
		WithLocation(time.UTC),
	)
}

func mockEngine() *Engine {
	return newEngine(calendar.NewMock(calendar.DefaultWorkingHours(time.UTC), nil))
}

func catalogHours(s *booking.Session) []int {
	hours := make([]int, len(s.Catalog))
	for i, slot := range s.Catalog {
		hours[i] = slot.Start.Hour()
	}
	return hours
}

// checkingSession drives a fresh session to the slot list for Tuesday
// 2024-06-11 around 2 PM.
func checkingSession(t *testing.T, e *Engine) *booking.Session {
	t.Helper()
	s := e.ProcessTurn(context.Background(), e.NewSession(), "I want to schedule a meeting tomorrow at 2 PM")
	require.Equal(t, booking.PhaseCheckingAvailability, s.Phase)
	return s
}

func TestGreeting_EmptyInput(t *testing.T) {
	e := mockEngine()
	s := e.NewSession()

	for i := 0; i < 2; i++ {
		s = e.ProcessTurn(context.Background(), s, "   ")
		assert.Equal(t, booking.PhaseGreeting, s.Phase)
		assert.Equal(t, welcomePrompt, s.LastAgentReply)
		assert.Equal(t, booking.NewDraft(60), s.Draft)
	}

	// Empty utterances never reach the transcript.
	require.Len(t, s.Transcript, 2)
	assert.Equal(t, booking.RoleAssistant, s.Transcript[0].Role)
}

func TestGreeting_BookingRequestGoesStraightToAvailability(t *testing.T) {
	e := mockEngine()
	s := checkingSession(t, e)

	assert.Equal(t, "2024-06-11", s.Draft.Date)
	assert.Equal(t, "2:00 PM", s.Draft.Time)
	assert.Equal(t, "Meeting", s.Draft.Title)
	assert.Equal(t, []int{14, 15, 16}, catalogHours(s))

	assert.Contains(t, s.LastAgentReply, ackPrompt)
	assert.Contains(t, s.LastAgentReply, "Perfect! Let me check availability for Tuesday, June 11 around 2:00 PM.")
	assert.Contains(t, s.LastAgentReply, "1. 02:00 PM - 03:00 PM\n2. 03:00 PM - 04:00 PM\n3. 04:00 PM - 05:00 PM")
	assert.Contains(t, s.LastAgentReply, "Just type 1, 2, or 3.")

	require.Len(t, s.Transcript, 2)
	assert.Equal(t, booking.Message{Role: booking.RoleUser, Content: "I want to schedule a meeting tomorrow at 2 PM"}, s.Transcript[0])
	assert.Equal(t, s.LastAgentReply, s.Transcript[1].Content)
}

func TestGreeting_OtherInputClarifies(t *testing.T) {
	e := mockEngine()
	s := e.ProcessTurn(context.Background(), e.NewSession(), "hello there, tomorrow maybe")

	assert.Equal(t, booking.PhaseGathering, s.Phase)
	assert.Equal(t, clarifyPrompt, s.LastAgentReply)
	assert.Empty(t, s.Draft.Date, "clarifying turn does not extract")
}

func TestGathering_PromptsForMissingFields(t *testing.T) {
	e := mockEngine()
	ctx := context.Background()

	s := e.ProcessTurn(ctx, e.NewSession(), "Can we book a call?")
	assert.Equal(t, booking.PhaseGathering, s.Phase)
	assert.Contains(t, s.LastAgentReply, "Could you please specify the date and preferred time?")
	assert.Equal(t, "Phone Call", s.Draft.Title)

	s = e.ProcessTurn(ctx, s, "thursday")
	assert.Equal(t, booking.PhaseGathering, s.Phase)
	assert.Equal(t, "I need to know the preferred time. When would you like to schedule this?", s.LastAgentReply)
	assert.Equal(t, "2024-06-13", s.Draft.Date)

	s = e.ProcessTurn(ctx, s, "in the afternoon")
	assert.Equal(t, booking.PhaseCheckingAvailability, s.Phase)
	assert.Equal(t, "2:00 PM", s.Draft.Time)
	assert.Equal(t, "Phone Call", s.Draft.Title, "title is not overwritten")
}

func TestGathering_FillsOnlyEmptyFields(t *testing.T) {
	e := mockEngine()
	s := e.NewSession()
	s.Phase = booking.PhaseGathering
	s.Draft.Time = "11:00 AM"
	s.Draft.AttendeeEmail = "ana@example.com"

	s = e.ProcessTurn(context.Background(), s, "tomorrow at 3pm, invite bo@example.com")

	assert.Equal(t, "2024-06-11", s.Draft.Date)
	assert.Equal(t, "11:00 AM", s.Draft.Time)
	assert.Equal(t, "ana@example.com", s.Draft.AttendeeEmail)
	assert.Equal(t, booking.PhaseCheckingAvailability, s.Phase)
	assert.Equal(t, []int{11, 10, 9}, catalogHours(s))
}

func TestGathering_CapturesAttendee(t *testing.T) {
	e := mockEngine()
	s := e.ProcessTurn(context.Background(), e.NewSession(), "I'd like to book a meeting with Ana@Example.com")
	assert.Equal(t, "ana@example.com", s.Draft.AttendeeEmail)
}

func TestChecking_NoSlotsClearsDate(t *testing.T) {
	e := newEngine(&fakeBackend{})
	s := e.ProcessTurn(context.Background(), e.NewSession(), "I want to schedule a meeting tomorrow at 2 PM")

	assert.Equal(t, booking.PhaseGathering, s.Phase)
	assert.Empty(t, s.Draft.Date)
	assert.Equal(t, "2:00 PM", s.Draft.Time)
	assert.Empty(t, s.Catalog)
	assert.Contains(t, s.LastAgentReply, "I don't have any available slots on Tuesday, June 11. Would you like to try a different date?")

	s = e.ProcessTurn(context.Background(), s, "wednesday then")
	assert.Equal(t, booking.PhaseGathering, s.Phase)
	assert.Contains(t, s.LastAgentReply, "Wednesday, June 12")
}

func TestChecking_SelectSlot(t *testing.T) {
	e := mockEngine()
	s := checkingSession(t, e)
	catalog := append([]booking.Slot(nil), s.Catalog...)

	s = e.ProcessTurn(context.Background(), s, "2")

	assert.Equal(t, booking.PhaseConfirming, s.Phase)
	require.NotNil(t, s.ConfirmedSlot)
	assert.Equal(t, catalog[1], *s.ConfirmedSlot)
	assert.Equal(t, "Perfect! I'll book your meeting for Tuesday, June 11 at 03:00 PM. Please confirm - is this correct?", s.LastAgentReply)
}

func TestChecking_OrdinalWordsMatchDigits(t *testing.T) {
	for _, text := range []string{"second", "the second one", "2nd please"} {
		e := mockEngine()
		s := checkingSession(t, e)
		s = e.ProcessTurn(context.Background(), s, text)
		require.NotNil(t, s.ConfirmedSlot, text)
		assert.Equal(t, 15, s.ConfirmedSlot.Start.Hour(), text)
	}
}

func TestChecking_InvalidSelectionRedisplays(t *testing.T) {
	backend := &fakeBackend{slots: hourSlots(monday.AddDate(0, 0, 1), 14, 15)}
	e := newEngine(backend)
	s := checkingSession(t, e)
	require.Len(t, s.Catalog, 2)

	for _, text := range []string{"3", "hmm, not sure"} {
		s = e.ProcessTurn(context.Background(), s, text)
		assert.Equal(t, booking.PhaseCheckingAvailability, s.Phase)
		assert.Nil(t, s.ConfirmedSlot)
		assert.Contains(t, s.LastAgentReply, "Here are some available time slots for Tuesday, June 11:")
		assert.Contains(t, s.LastAgentReply, "Just type 1 or 2.")
	}
	assert.Len(t, backend.queried, 1, "re-display does not query again")
}

func TestChecking_TimeIsNotASlotIndex(t *testing.T) {
	e := mockEngine()
	s := checkingSession(t, e)

	s = e.ProcessTurn(context.Background(), s, "how about 9 am")

	assert.Equal(t, booking.PhaseCheckingAvailability, s.Phase)
	assert.Nil(t, s.ConfirmedSlot)
	assert.Equal(t, "9:00 AM", s.Draft.Time)
	assert.Equal(t, []int{9, 10, 11}, catalogHours(s), "catalog is re-derived, not merged")
	assert.Contains(t, s.LastAgentReply, "Got it, let's look at Tuesday, June 11 around 9:00 AM instead.")
}

func TestChecking_RejectionStartsOver(t *testing.T) {
	e := mockEngine()
	s := checkingSession(t, e)

	s = e.ProcessTurn(context.Background(), s, "no, none of those")

	assert.Equal(t, booking.PhaseGathering, s.Phase)
	assert.Empty(t, s.Draft.Date)
	assert.Empty(t, s.Draft.Time)
	assert.Equal(t, "Meeting", s.Draft.Title)
	assert.Empty(t, s.Catalog)
	assert.Equal(t, rejectedCatalog, s.LastAgentReply)
}

func TestChecking_RefusalNamingACountIsNotASelection(t *testing.T) {
	for _, text := range []string{
		"no thanks, none of the three work for me",
		"no, not the first one",
	} {
		t.Run(text, func(t *testing.T) {
			e := mockEngine()
			s := checkingSession(t, e)

			s = e.ProcessTurn(context.Background(), s, text)

			assert.Equal(t, booking.PhaseGathering, s.Phase)
			assert.Nil(t, s.ConfirmedSlot)
			assert.Empty(t, s.Draft.Date)
			assert.Empty(t, s.Draft.Time)
			assert.Equal(t, rejectedCatalog, s.LastAgentReply)
		})
	}
}

func TestGreeting_RangeAcrossNoonRanksMorningFirst(t *testing.T) {
	e := mockEngine()

	s := e.ProcessTurn(context.Background(), e.NewSession(), "I want to schedule a meeting tomorrow from 9 to 5pm")

	require.Equal(t, booking.PhaseCheckingAvailability, s.Phase)
	assert.Equal(t, "9:00 AM", s.Draft.Time)
	assert.Equal(t, []int{9, 10, 11}, catalogHours(s))
}

func TestChecking_PauseIsNotASelection(t *testing.T) {
	e := mockEngine()
	s := checkingSession(t, e)

	s = e.ProcessTurn(context.Background(), s, "one sec")

	assert.Equal(t, booking.PhaseCheckingAvailability, s.Phase)
	assert.Nil(t, s.ConfirmedSlot)
	assert.Contains(t, s.LastAgentReply, "Here are some available time slots for Tuesday, June 11:")
}

func TestConfirming_RejectionKeepsDraft(t *testing.T) {
	e := mockEngine()
	s := checkingSession(t, e)
	s = e.ProcessTurn(context.Background(), s, "1")
	require.Equal(t, booking.PhaseConfirming, s.Phase)
	draft := s.Draft

	s = e.ProcessTurn(context.Background(), s, "no")

	assert.Equal(t, booking.PhaseGathering, s.Phase)
	assert.Nil(t, s.ConfirmedSlot)
	assert.Equal(t, draft, s.Draft)
	assert.Equal(t, rejectedOffer, s.LastAgentReply)
}

func TestConfirming_RevisionAfterRejection(t *testing.T) {
	e := mockEngine()
	ctx := context.Background()
	s := checkingSession(t, e)
	s = e.ProcessTurn(ctx, s, "1")
	s = e.ProcessTurn(ctx, s, "no")

	s = e.ProcessTurn(ctx, s, "actually friday at 10am")

	assert.Equal(t, booking.PhaseCheckingAvailability, s.Phase)
	assert.Equal(t, "2024-06-14", s.Draft.Date)
	assert.Equal(t, "10:00 AM", s.Draft.Time)
	assert.Equal(t, []int{10, 9, 11}, catalogHours(s))
	assert.Contains(t, s.LastAgentReply, "Got it, let's look at Friday, June 14 around 10:00 AM instead.")
}

func TestConfirming_NoNewInfoRequeriesSameDay(t *testing.T) {
	e := mockEngine()
	ctx := context.Background()
	s := checkingSession(t, e)
	s = e.ProcessTurn(ctx, s, "1")
	s = e.ProcessTurn(ctx, s, "no")

	s = e.ProcessTurn(ctx, s, "show me the slots again")

	assert.Equal(t, booking.PhaseCheckingAvailability, s.Phase)
	assert.Equal(t, "2024-06-11", s.Draft.Date)
	assert.NotContains(t, s.LastAgentReply, "instead")
	assert.Len(t, s.Catalog, 3)
}

func TestConfirming_AmbiguousAsksYesNo(t *testing.T) {
	e := mockEngine()
	s := checkingSession(t, e)
	s = e.ProcessTurn(context.Background(), s, "3")

	s = e.ProcessTurn(context.Background(), s, "hmm let me think")

	assert.Equal(t, booking.PhaseConfirming, s.Phase)
	assert.NotNil(t, s.ConfirmedSlot)
	assert.Equal(t, yesNoPrompt, s.LastAgentReply)
}

func TestConfirming_BooksEvent(t *testing.T) {
	tests := []struct {
		name       string
		real       bool
		invitation bool
	}{
		{"real backend", true, true},
		{"mock backend", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{slots: hourSlots(monday.AddDate(0, 0, 1), 9, 14, 15, 16), createOK: true, real: tt.real}
			e := newEngine(backend)
			ctx := context.Background()

			s := checkingSession(t, e)
			s = e.ProcessTurn(ctx, s, "2")
			s = e.ProcessTurn(ctx, s, "yes")

			assert.Equal(t, booking.PhaseComplete, s.Phase)
			require.Len(t, backend.created, 1)
			assert.Equal(t, 15, backend.created[0].Start.Hour())
			assert.Contains(t, s.LastAgentReply, "🎉 Your meeting has been successfully booked for Tuesday, June 11 at 03:00 PM!")
			assert.Equal(t, tt.invitation, strings.Contains(s.LastAgentReply, "You should receive a calendar invitation shortly."))
			assert.Contains(t, s.LastAgentReply, "Is there anything else I can help you with?")
		})
	}
}

func TestConfirming_CalendarFilePromisesNoInvitation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookings.ics")
	e := newEngine(calendar.NewICS(path, calendar.DefaultWorkingHours(time.UTC), nil))
	ctx := context.Background()

	s := checkingSession(t, e)
	s = e.ProcessTurn(ctx, s, "1")
	s = e.ProcessTurn(ctx, s, "yes")

	require.Equal(t, booking.PhaseComplete, s.Phase)
	assert.Contains(t, s.LastAgentReply, "🎉 Your meeting has been successfully booked for Tuesday, June 11 at 02:00 PM!")
	assert.NotContains(t, s.LastAgentReply, "calendar invitation")
	assert.FileExists(t, path)
}

func TestFailures_ResetToGreeting(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeBackend
		turns   []string
	}{
		{
			name:    "create declined",
			backend: &fakeBackend{slots: hourSlots(monday.AddDate(0, 0, 1), 14), createOK: false},
			turns:   []string{"1", "yes"},
		},
		{
			name:    "create error",
			backend: &fakeBackend{slots: hourSlots(monday.AddDate(0, 0, 1), 14), createErr: errors.New("graph API error (status 500)")},
			turns:   []string{"1", "yes"},
		},
		{
			name:    "availability error",
			backend: &fakeBackend{availErr: errors.New("dial tcp: connection refused")},
		},
		{
			name:    "availability panic",
			backend: &fakeBackend{panics: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(tt.backend)
			ctx := context.Background()

			s := e.ProcessTurn(ctx, e.NewSession(), "I want to schedule a meeting tomorrow at 2 PM")
			for _, text := range tt.turns {
				s = e.ProcessTurn(ctx, s, text)
			}

			assert.Equal(t, booking.PhaseGreeting, s.Phase)
			assert.Equal(t, apologyPrompt, s.LastAgentReply)
			assert.Equal(t, booking.NewDraft(60), s.Draft)
			assert.Nil(t, s.Catalog)
			assert.Nil(t, s.ConfirmedSlot)
			assert.NotEmpty(t, s.Transcript, "transcript survives the reset")
		})
	}
}

func TestFailures_MalformedStoredDate(t *testing.T) {
	e := mockEngine()
	s := e.NewSession()
	s.Phase = booking.PhaseGathering
	s.Draft.Date = "June the 11th"
	s.Draft.Time = "2:00 PM"

	s = e.ProcessTurn(context.Background(), s, "ok")

	assert.Equal(t, booking.PhaseGreeting, s.Phase)
	assert.Equal(t, apologyPrompt, s.LastAgentReply)
	assert.Empty(t, s.Draft.Date)
}

func TestFailures_ConfirmationWithoutSlot(t *testing.T) {
	e := mockEngine()
	s := e.NewSession()
	s.Phase = booking.PhaseConfirming
	s.Draft.Date = "2024-06-11"

	s = e.ProcessTurn(context.Background(), s, "yes")

	assert.Equal(t, booking.PhaseGreeting, s.Phase)
	assert.Equal(t, apologyPrompt, s.LastAgentReply)
}

func TestComplete_StartsNewAttempt(t *testing.T) {
	backend := &fakeBackend{slots: hourSlots(monday.AddDate(0, 0, 1), 14, 15), createOK: true}
	e := newEngine(backend)
	ctx := context.Background()

	s := checkingSession(t, e)
	s = e.ProcessTurn(ctx, s, "1")
	s = e.ProcessTurn(ctx, s, "yes")
	require.Equal(t, booking.PhaseComplete, s.Phase)

	done := e.ProcessTurn(ctx, s, "no thanks")
	assert.Equal(t, booking.PhaseGreeting, done.Phase)
	assert.Equal(t, farewellPrompt, done.LastAgentReply)
	assert.Empty(t, done.Draft.Date)

	s = checkingSession(t, e)
	s = e.ProcessTurn(ctx, s, "1")
	s = e.ProcessTurn(ctx, s, "yes")
	s = e.ProcessTurn(ctx, s, "Can we book another call tomorrow at 3 pm?")
	assert.Equal(t, booking.PhaseCheckingAvailability, s.Phase)
	assert.Equal(t, "Phone Call", s.Draft.Title)
	assert.Equal(t, "3:00 PM", s.Draft.Time)
}

func TestUnknownPhaseRecovers(t *testing.T) {
	e := mockEngine()
	s := e.NewSession()
	s.Phase = booking.PhaseFailed
	s.Draft.Date = "2024-06-11"

	s = e.ProcessTurn(context.Background(), s, "")

	assert.Equal(t, booking.PhaseGreeting, s.Phase)
	assert.Equal(t, welcomePrompt, s.LastAgentReply)
	assert.Empty(t, s.Draft.Date)
}

func TestDefaultTitleAndDuration(t *testing.T) {
	backend := &fakeBackend{slots: []booking.Slot{
		{Start: time.Date(2024, 6, 11, 14, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 11, 14, 30, 0, 0, time.UTC), Available: true},
		{Start: time.Date(2024, 6, 11, 15, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 11, 16, 30, 0, 0, time.UTC), Available: true},
	}, createOK: true}
	e := New(backend,
		WithClock(func() time.Time { return monday }),
		WithLocation(time.UTC),
		WithDefaultDuration(90),
		WithDefaultTitle("Intro Chat"),
	)

	s := e.NewSession()
	assert.Equal(t, 90, s.Draft.DurationMinutes)

	s = e.ProcessTurn(context.Background(), s, "I want to schedule something tomorrow at 2 PM")
	require.Equal(t, booking.PhaseCheckingAvailability, s.Phase)
	assert.Equal(t, []int{15}, catalogHours(s), "too-short slots are not offered")
	assert.Empty(t, s.Draft.Title)

	s = e.ProcessTurn(context.Background(), s, "1")
	assert.Contains(t, s.LastAgentReply, "your intro chat")

	s = e.ProcessTurn(context.Background(), s, "yes")
	require.Len(t, backend.created, 1)
	assert.Equal(t, "Intro Chat", backend.createdTitles[0])
}

func TestUnnamedMeetingUsesStockTitle(t *testing.T) {
	e := mockEngine()
	ctx := context.Background()

	s := e.ProcessTurn(ctx, e.NewSession(), "I want to schedule something tomorrow at 2 PM")
	s = e.ProcessTurn(ctx, s, "1")

	assert.Contains(t, s.LastAgentReply, "your appointment")
}
