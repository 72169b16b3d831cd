package extract

import (
	"regexp"
	"strings"
	"time"
)

// Fragments is everything a single utterance contributes to a draft.
// Empty fields were not found.
type Fragments struct {
	Date  string
	Time  string
	Title string
	Email string
}

// Extract runs every extractor over text.
func Extract(text string, now time.Time) Fragments {
	date, tod := DateTime(text, now)
	return Fragments{
		Date:  date,
		Time:  tod,
		Title: Title(text),
		Email: Email(text),
	}
}

var (
	callRe       = regexp.MustCompile(`(?i)\bcalls?\b`)
	meetingRe    = regexp.MustCompile(`(?i)\bmeetings?\b`)
	discussionRe = regexp.MustCompile(`(?i)\bdiscuss(ion)?\b`)
	apptRe       = regexp.MustCompile(`(?i)\bappointments?\b`)
	emailRe      = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// Title guesses a meeting title from the kind of meeting mentioned. It is
// empty when the text names none, leaving the choice to the caller.
func Title(text string) string {
	switch {
	case callRe.MatchString(text):
		return "Phone Call"
	case meetingRe.MatchString(text):
		return "Meeting"
	case discussionRe.MatchString(text):
		return "Discussion"
	case apptRe.MatchString(text):
		return "Appointment"
	default:
		return ""
	}
}

// Email returns the first e-mail address in text.
func Email(text string) string {
	return strings.ToLower(emailRe.FindString(text))
}
