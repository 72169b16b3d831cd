package booking

import "time"

// Phase is the dialogue phase of a session's current booking attempt.
type Phase string

const (
	PhaseGreeting             Phase = "greeting"
	PhaseGathering            Phase = "gathering"
	PhaseCheckingAvailability Phase = "checking_availability"
	PhaseConfirming           Phase = "confirming"
	PhaseComplete             Phase = "complete"
	PhaseFailed               Phase = "failed"
)

// DefaultDurationMinutes is used when no duration is configured.
const DefaultDurationMinutes = 60

// DateLayout is the storage layout of Draft.Date.
const DateLayout = "2006-01-02"

// Draft is the booking request being filled in across turns.
// Empty strings mean "not provided yet".
type Draft struct {
	Title           string `json:"title,omitempty"`
	Date            string `json:"date,omitempty"`
	Time            string `json:"time,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	AttendeeEmail   string `json:"attendee_email,omitempty"`
	Description     string `json:"description,omitempty"`
}

func NewDraft(durationMinutes int) Draft {
	if durationMinutes <= 0 {
		durationMinutes = DefaultDurationMinutes
	}
	return Draft{DurationMinutes: durationMinutes}
}

// Missing lists the fields still needed before availability can be checked,
// in prompt order.
func (d Draft) Missing() []string {
	var missing []string
	if d.Date == "" {
		missing = append(missing, "date")
	}
	if d.Time == "" {
		missing = append(missing, "preferred time")
	}
	return missing
}

func (d Draft) Complete() bool {
	return d.Date != "" && d.Time != ""
}

// Slot is a concrete appointment window offered to the user.
type Slot struct {
	Start     time.Time `json:"start_time"`
	End       time.Time `json:"end_time"`
	Available bool      `json:"available"`
}

func (s Slot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Message is one transcript entry.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session holds everything one conversation knows. It is owned by a single
// conversation and mutated only by the dialogue engine.
type Session struct {
	Phase             Phase     `json:"phase"`
	Draft             Draft     `json:"draft"`
	Catalog           []Slot    `json:"catalog,omitempty"`
	ConfirmedSlot     *Slot     `json:"confirmed_slot,omitempty"`
	LastUserUtterance string    `json:"last_user_utterance"`
	LastAgentReply    string    `json:"last_agent_reply"`
	Transcript        []Message `json:"transcript"`
}

func NewSession(durationMinutes int) *Session {
	return &Session{
		Phase: PhaseGreeting,
		Draft: NewDraft(durationMinutes),
	}
}

// Reset discards the current attempt. The transcript is kept.
func (s *Session) Reset() {
	s.Draft = NewDraft(s.Draft.DurationMinutes)
	s.Catalog = nil
	s.ConfirmedSlot = nil
}

// Append adds a transcript entry; empty content is skipped.
func (s *Session) Append(role, content string) {
	if content == "" {
		return
	}
	s.Transcript = append(s.Transcript, Message{Role: role, Content: content})
}
