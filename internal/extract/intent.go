package extract

import (
	"regexp"
	"strings"
)

// IntentKind is the coarse category of an utterance.
type IntentKind int

const (
	IntentGeneral IntentKind = iota
	IntentBookingRequest
	IntentConfirmation
	IntentRejection
	IntentSlotSelection
)

func (k IntentKind) String() string {
	switch k {
	case IntentBookingRequest:
		return "booking_request"
	case IntentConfirmation:
		return "confirmation"
	case IntentRejection:
		return "rejection"
	case IntentSlotSelection:
		return "slot_selection"
	default:
		return "general"
	}
}

// Intent is the classification of one utterance. Slot is only meaningful
// for IntentSlotSelection and holds a zero-based catalog index.
type Intent struct {
	Kind IntentKind
	Slot int
}

var (
	bookingPatterns = compileAll(
		`\b(book|schedule|set up|arrange|plan)\b.*\b(meeting|call|appointment|session)s?\b`,
		`\b(want to|need to|would like to|wanna)\b.*\b(meet|talk|discuss|schedule|book)\b`,
		`\b(available|free)\b.*\b(time|slot)s?\b`,
		`\b(when can|what time)\b`,
		`\bdo you have\b.*\b(time|availability)\b`,
		`\bcan we (book|meet|schedule)\b`,
		`\bwhat times are available\b`,
	)

	confirmationPatterns = compileAll(
		`\b(yes|yeah|yep|yup|ok|okay|sure|sounds good|perfect|great)\b`,
		`\b(confirm|book it|schedule it)\b`,
		`\b(that works|looks good)\b`,
	)

	rejectionPatterns = compileAll(
		`\b(no|nope|nah|not available|can't make it|cannot make it)\b`,
		`\b(different time|another time|reschedule)\b`,
		`\b(cancel|not interested)\b`,
	)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

func matchAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// ClassifyIntent applies the rule sets in fixed priority order: booking
// request, confirmation, rejection, slot selection. The first category with
// a matching rule wins.
func ClassifyIntent(text string) Intent {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return Intent{Kind: IntentGeneral}
	}

	switch {
	case matchAny(bookingPatterns, text):
		return Intent{Kind: IntentBookingRequest}
	case matchAny(confirmationPatterns, text):
		return Intent{Kind: IntentConfirmation}
	case matchAny(rejectionPatterns, text):
		return Intent{Kind: IntentRejection}
	}

	if idx, ok := SlotSelection(text); ok {
		return Intent{Kind: IntentSlotSelection, Slot: idx}
	}
	return Intent{Kind: IntentGeneral}
}

var (
	// "one sec", "a second" and friends ask for time, they don't pick a slot.
	pauseRe    = regexp.MustCompile(`(?i)\b(one|a|just a) (sec|second|moment|minute)s?\b`)
	ordinalRe  = regexp.MustCompile(`(?i)\b(first|1st|second|2nd|third|3rd|[123])\b`)
	cardinalRe = regexp.MustCompile(`(?i)\b(one|two|three)\b`)
)

var selectionIndex = map[string]int{
	"first": 0, "1st": 0, "1": 0, "one": 0,
	"second": 1, "2nd": 1, "2": 1, "two": 1,
	"third": 2, "3rd": 2, "3": 2, "three": 2,
}

// SlotSelection returns the zero-based index of the offered slot the text
// refers to. Only the first three offers can be named. Ordinals and digits
// win over cardinal words, so "the second one" selects index 1.
func SlotSelection(text string) (int, bool) {
	text = pauseRe.ReplaceAllString(strings.ToLower(text), " ")
	for _, re := range []*regexp.Regexp{ordinalRe, cardinalRe} {
		if m := re.FindString(text); m != "" {
			return selectionIndex[m], true
		}
	}
	return 0, false
}
