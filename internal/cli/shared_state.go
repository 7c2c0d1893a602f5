package cli

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// defaultTypeDelay paces the narrative typewriter.
const defaultTypeDelay = 20 * time.Millisecond

// SharedState holds context shared across all views via pointer.
type SharedState struct {
	App *App

	// Terminal dimensions
	Width  int
	Height int

	// Flash is a one-shot notice shown above the status bar until the next key.
	Flash string

	// Animate enables spinners, cursor blink and the typewriter. Off in tests.
	Animate   bool
	TypeDelay time.Duration

	// send delivers messages produced outside the update loop (store
	// subscriptions, redirects). It must not block.
	send func(tea.Msg)
}

func newSharedState(app *App) *SharedState {
	return &SharedState{App: app, send: func(tea.Msg) {}}
}

// Send delivers msg into the running program.
func (s *SharedState) Send(msg tea.Msg) {
	if s.send != nil {
		s.send(msg)
	}
}

// ContentHeight returns the available height for view content,
// accounting for header (2 lines: title + separator) and
// status bar (2 lines: separator + hints).
func (s *SharedState) ContentHeight() int {
	h := s.Height - 4
	if h < 1 {
		return 1
	}
	return h
}

// ContentWidth is the usable width inside the two-column view margin.
func (s *SharedState) ContentWidth() int {
	if s.Width <= 4 {
		return 76
	}
	return s.Width - 4
}
