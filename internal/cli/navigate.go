package cli

import (
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/traitquest/traitquest/internal/auth"
)

// Navigation messages used by views to request view transitions.
// The appModel handles these in its Update method.

// pushViewMsg pushes a new view onto the navigation stack.
type pushViewMsg struct {
	view View
}

// popViewMsg pops the current view off the navigation stack,
// returning to the previous view.
type popViewMsg struct{}

// replaceViewMsg replaces the current top view with a new one.
type replaceViewMsg struct {
	view View
}

// refreshViewMsg is broadcast to every view on the stack so views below the
// active one can reload from their stores.
type refreshViewMsg struct{}

// navigateMsg resets the stack to a route. It arrives from outside the
// program, e.g. when a 401 forces a logout.
type navigateMsg struct {
	route string
}

func pushView(v View) tea.Cmd {
	return func() tea.Msg { return pushViewMsg{view: v} }
}

func popView() tea.Cmd {
	return func() tea.Msg { return popViewMsg{} }
}

func replaceView(v View) tea.Cmd {
	return func() tea.Msg { return replaceViewMsg{view: v} }
}

// Navigator routes auth redirects to whichever presentation is running: the
// TUI when one is attached, otherwise a message on out.
type Navigator struct {
	out io.Writer

	mu   sync.Mutex
	send func(tea.Msg)
}

var _ auth.Navigator = (*Navigator)(nil)

// NewNavigator creates a Navigator that reports redirects to out while no
// TUI is attached.
func NewNavigator(out io.Writer) *Navigator {
	return &Navigator{out: out}
}

// Attach routes redirects into a running program until detach is called.
func (n *Navigator) Attach(send func(tea.Msg)) (detach func()) {
	n.mu.Lock()
	n.send = send
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		n.send = nil
		n.mu.Unlock()
	}
}

// Navigate implements auth.Navigator.
func (n *Navigator) Navigate(route string) {
	n.mu.Lock()
	send := n.send
	n.mu.Unlock()
	if send != nil {
		send(navigateMsg{route: route})
		return
	}
	if n.out != nil && route == auth.RouteHome {
		fmt.Fprintln(n.out, "Session expired. Run `traitquest login` to sign in again.")
	}
}
