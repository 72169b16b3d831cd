package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourlySlots(day time.Time, hours ...int) []Slot {
	slots := make([]Slot, len(hours))
	for i, h := range hours {
		start := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, time.UTC)
		slots[i] = Slot{Start: start, End: start.Add(time.Hour), Available: true}
	}
	return slots
}

func TestRankSlots_ByProximity(t *testing.T) {
	day := time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)
	slots := hourlySlots(day, 9, 10, 11, 14, 15, 16)

	ranked := RankSlots(slots, 14, true, MaxOffers, time.UTC)
	require.Len(t, ranked, 3)
	assert.Equal(t, 14, ranked[0].Start.Hour())
	assert.Equal(t, 15, ranked[1].Start.Hour())
	assert.Equal(t, 16, ranked[2].Start.Hour())
}

func TestRankSlots_TiesKeepOrder(t *testing.T) {
	day := time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)
	slots := hourlySlots(day, 11, 13, 9, 15)

	ranked := RankSlots(slots, 12, true, 4, time.UTC)
	require.Len(t, ranked, 4)
	assert.Equal(t, 11, ranked[0].Start.Hour())
	assert.Equal(t, 13, ranked[1].Start.Hour())
	assert.Equal(t, 9, ranked[2].Start.Hour())
	assert.Equal(t, 15, ranked[3].Start.Hour())
}

func TestRankSlots_NoPreferenceKeepsCollaboratorOrder(t *testing.T) {
	day := time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)
	slots := hourlySlots(day, 16, 9, 11, 10)

	ranked := RankSlots(slots, 0, false, MaxOffers, time.UTC)
	require.Len(t, ranked, 3)
	assert.Equal(t, 16, ranked[0].Start.Hour())
	assert.Equal(t, 9, ranked[1].Start.Hour())
	assert.Equal(t, 11, ranked[2].Start.Hour())
	assert.Equal(t, 16, slots[0].Start.Hour(), "input must not be reordered")
}

func TestRankSlots_SkipsUnavailable(t *testing.T) {
	day := time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)
	slots := hourlySlots(day, 9, 10)
	slots[0].Available = false

	ranked := RankSlots(slots, 9, true, MaxOffers, time.UTC)
	require.Len(t, ranked, 1)
	assert.Equal(t, 10, ranked[0].Start.Hour())
}

func TestFilterByDuration(t *testing.T) {
	day := time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)
	slots := hourlySlots(day, 9, 10)
	slots[1].End = slots[1].Start.Add(30 * time.Minute)

	assert.Len(t, FilterByDuration(slots, 60), 1)
	assert.Len(t, FilterByDuration(slots, 30), 2)
	assert.Len(t, FilterByDuration(slots, 0), 2)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "Tuesday, June 11", FormatDate("2024-06-11"))
	assert.Equal(t, "not-a-date", FormatDate("not-a-date"))

	start := time.Date(2024, 6, 11, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, "Tuesday, June 11 at 02:00 PM", FormatSlotTime(start, time.UTC))

	catalog := []Slot{
		{Start: start, End: start.Add(time.Hour), Available: true},
		{Start: start.Add(time.Hour), End: start.Add(2 * time.Hour), Available: true},
	}
	assert.Equal(t, "1. 02:00 PM - 03:00 PM\n2. 03:00 PM - 04:00 PM", FormatCatalog(catalog, time.UTC))
}

func TestDayBounds(t *testing.T) {
	start, end, err := DayBounds("2024-06-11", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 6, 11, 23, 59, 59, 0, time.UTC), end)

	_, _, err = DayBounds("06/11/2024", time.UTC)
	assert.Error(t, err)
}

func TestSessionReset(t *testing.T) {
	s := NewSession(45)
	s.Draft.Date = "2024-06-11"
	s.Draft.Time = "2:00 PM"
	s.Catalog = []Slot{{Available: true}}
	s.ConfirmedSlot = &Slot{Available: true}
	s.Append(RoleUser, "hi")
	s.Append(RoleAssistant, "")

	s.Reset()

	assert.Equal(t, Draft{DurationMinutes: 45}, s.Draft)
	assert.Nil(t, s.Catalog)
	assert.Nil(t, s.ConfirmedSlot)
	assert.Len(t, s.Transcript, 1)
	assert.Equal(t, []string{"date", "preferred time"}, s.Draft.Missing())
}
