package dialogue

import (
	"fmt"
	"strings"
	"time"

	"github.com/christopherklint97/bookr/internal/booking"
)

const (
	welcomePrompt   = "Hi! I'm your calendar booking assistant. I can help you schedule appointments and check availability. What would you like to schedule today?"
	ackPrompt       = "Great! I'd be happy to help you schedule an appointment. Let me gather some details."
	clarifyPrompt   = "I can help you book appointments and schedule meetings. Could you tell me what kind of meeting you'd like to schedule and when?"
	yesNoPrompt     = "Please type 'yes' to confirm the booking or 'no' to choose a different time."
	rejectedOffer   = "No problem! Would you like to see different time slots or schedule for a different date?"
	rejectedCatalog = "No problem! Which other day and time would suit you?"
	invitationNote  = " You should receive a calendar invitation shortly."
	anythingElse    = "\n\nIs there anything else I can help you with?"
	farewellPrompt  = "Alright! Just let me know whenever you'd like to schedule something else."
	apologyPrompt   = "I apologize, but I encountered an issue. Let's start fresh - how can I help you schedule an appointment?"
)

func missingPrompt(missing []string) string {
	if len(missing) == 1 {
		return fmt.Sprintf("I need to know the %s. When would you like to schedule this?", missing[0])
	}
	return fmt.Sprintf("I need a bit more information. Could you please specify the %s?", strings.Join(missing, " and "))
}

func checkingPrompt(d booking.Draft) string {
	return fmt.Sprintf("Perfect! Let me check availability for %s around %s.", booking.FormatDate(d.Date), d.Time)
}

func revisedPrompt(d booking.Draft) string {
	return fmt.Sprintf("Got it, let's look at %s around %s instead.", booking.FormatDate(d.Date), d.Time)
}

func noSlotsPrompt(date string) string {
	return fmt.Sprintf("I don't have any available slots on %s. Would you like to try a different date?", booking.FormatDate(date))
}

func catalogPrompt(date string, catalog []booking.Slot, loc *time.Location) string {
	return fmt.Sprintf("Here are some available time slots for %s:\n\n%s\n\nWhich slot works best for you? Just type %s.",
		booking.FormatDate(date), booking.FormatCatalog(catalog, loc), choices(len(catalog)))
}

// choices renders "1", "1 or 2", "1, 2, or 3".
func choices(n int) string {
	switch n {
	case 1:
		return "1"
	case 2:
		return "1 or 2"
	default:
		return "1, 2, or 3"
	}
}

func confirmPrompt(title string, slot booking.Slot, loc *time.Location) string {
	return fmt.Sprintf("Perfect! I'll book your %s for %s. Please confirm - is this correct?",
		strings.ToLower(title), booking.FormatSlotTime(slot.Start, loc))
}

func bookedPrompt(title string, slot booking.Slot, loc *time.Location, real bool) string {
	msg := fmt.Sprintf("🎉 Your %s has been successfully booked for %s!",
		strings.ToLower(title), booking.FormatSlotTime(slot.Start, loc))
	if real {
		msg += invitationNote
	}
	return msg + anythingElse
}
