package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/christopherklint97/bookr/internal/booking"
	"github.com/christopherklint97/bookr/internal/dialogue"
	"github.com/christopherklint97/bookr/internal/notify"
)

const turnTimeout = 60 * time.Second

type viewState int

const (
	chatView viewState = iota
	thinkingView
)

// Result summarizes a chat session once the program exits.
type Result struct {
	Booked []booking.Slot
}

type turnMsg struct {
	from    booking.Phase
	session *booking.Session
}

// App is a single-session chat window. Only one turn runs at a time: input
// is ignored while the engine is working.
type App struct {
	state    viewState
	input    inputModel
	viewport viewport.Model
	spinner  spinner.Model
	width    int

	engine   *dialogue.Engine
	session  *booking.Session
	notifier *notify.Notifier
	backend  string
	pending  string
	result   Result
}

func NewApp(engine *dialogue.Engine, notifier *notify.Notifier, backendName string) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return &App{
		state:    thinkingView,
		input:    newInputModel(),
		viewport: viewport.New(80, 20),
		spinner:  s,
		width:    80,
		engine:   engine,
		session:  engine.NewSession(),
		notifier: notifier,
		backend:  backendName,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.input.textarea.Focus(), a.spinner.Tick, a.runTurn(""))
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return a.resize(msg)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return a, tea.Quit
		}
	case turnMsg:
		return a.handleTurn(msg)
	}

	switch a.state {
	case chatView:
		return a.updateChat(msg)
	case thinkingView:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) resize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	a.width = msg.Width
	a.viewport.Width = msg.Width
	// header, status, input and help take the rest
	a.viewport.Height = max(msg.Height-9, 5)
	a.refresh()

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) updateChat(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			text := strings.TrimSpace(a.input.Value())
			if text == "" {
				return a, nil
			}
			a.input.Reset()
			a.state = thinkingView
			a.pending = text
			a.refresh()
			return a, tea.Batch(a.spinner.Tick, a.runTurn(text))
		case "pgup", "pgdown":
			var cmd tea.Cmd
			a.viewport, cmd = a.viewport.Update(msg)
			return a, cmd
		}
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// runTurn hands a copy of the session to the engine so View can keep
// reading the current one while the turn runs.
func (a *App) runTurn(text string) tea.Cmd {
	s := cloneSession(a.session)
	engine := a.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		defer cancel()

		from := s.Phase
		return turnMsg{from: from, session: engine.ProcessTurn(ctx, s, text)}
	}
}

func cloneSession(s *booking.Session) *booking.Session {
	c := *s
	c.Catalog = append([]booking.Slot(nil), s.Catalog...)
	c.Transcript = append([]booking.Message(nil), s.Transcript...)
	if s.ConfirmedSlot != nil {
		slot := *s.ConfirmedSlot
		c.ConfirmedSlot = &slot
	}
	return &c
}

func (a *App) handleTurn(msg turnMsg) (tea.Model, tea.Cmd) {
	a.session = msg.session
	a.state = chatView
	a.pending = ""

	if msg.from != booking.PhaseComplete && a.session.Phase == booking.PhaseComplete && a.session.ConfirmedSlot != nil {
		slot := *a.session.ConfirmedSlot
		a.result.Booked = append(a.result.Booked, slot)
		a.notifier.Booked(a.session.Draft.Title, slot.Start)
	}

	a.refresh()
	return a, a.input.textarea.Focus()
}

func (a *App) refresh() {
	a.viewport.SetContent(a.renderTranscript())
	a.viewport.GotoBottom()
}

func (a *App) renderTranscript() string {
	wrap := bubbleStyle.Width(max(a.width-4, 20))

	var b strings.Builder
	for _, m := range a.session.Transcript {
		if m.Role == booking.RoleUser {
			b.WriteString(userStyle.Render("You") + "\n")
			b.WriteString(wrap.Render(m.Content) + "\n")
			continue
		}
		b.WriteString(assistantStyle.Render("bookr") + "\n")
		content := m.Content
		if strings.HasPrefix(content, "🎉") {
			content = successStyle.Render(content)
		}
		b.WriteString(wrap.Render(content) + "\n")
	}
	if a.pending != "" {
		b.WriteString(userStyle.Render("You") + "\n")
		b.WriteString(wrap.Render(a.pending) + "\n")
	}
	return b.String()
}

func (a *App) statusLine() string {
	d := a.session.Draft
	field := func(v string) string {
		if v == "" {
			return "-"
		}
		return v
	}
	status := fmt.Sprintf("%s · date %s · time %s · %d min · calendar: %s",
		a.session.Phase, field(d.Date), field(d.Time), d.DurationMinutes, a.backend)
	if len(a.result.Booked) > 0 {
		status += " · " + successStyle.Render(fmt.Sprintf("%d booked", len(a.result.Booked)))
	}
	return dimStyle.Render(status)
}

func (a *App) View() string {
	header := titleStyle.Render("bookr") + " " + subtitleStyle.Render("booking assistant")

	prompt := a.input.View()
	if a.state == thinkingView {
		prompt = a.spinner.View() + warningStyle.Render(" Checking...")
	}

	help := helpStyle.Render("Enter: send • PgUp/PgDn: scroll • Esc/Ctrl+C: quit")
	return header + "\n\n" + a.viewport.View() + "\n" + a.statusLine() + "\n" + prompt + "\n" + help
}

func (a *App) GetResult() Result {
	return a.result
}
