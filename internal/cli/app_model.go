package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/traitquest/traitquest/internal/auth"
	"github.com/traitquest/traitquest/internal/cli/formatter"
	"github.com/traitquest/traitquest/internal/domain"
)

const flashSessionExpired = "Session expired. Quit and run `traitquest login` to continue."

// appModel is the root bubbletea Model for the TUI.
// It manages a view stack whose bottom is always the map (route "/").
type appModel struct {
	state     *SharedState
	viewStack []View
	quitting  bool
}

// newAppModel starts at the map. A non-empty questID opens that quest on top.
func newAppModel(state *SharedState, questID domain.QuestID) appModel {
	m := appModel{state: state}
	m.viewStack = []View{newMapView(state)}
	if questID != "" {
		region, _ := state.App.Regions.Region(string(questID))
		m.viewStack = append(m.viewStack, newQuestView(state, questID, region))
	}
	return m
}

// activeView returns the top view on the stack, or nil.
func (m *appModel) activeView() View {
	if n := len(m.viewStack); n > 0 {
		return m.viewStack[n-1]
	}
	return nil
}

// forward hands msg to the top view only.
func (m appModel) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	n := len(m.viewStack)
	if n == 0 {
		return m, nil
	}
	updated, cmd := m.viewStack[n-1].Update(msg)
	m.viewStack[n-1] = updated.(View)
	return m, cmd
}

// broadcast hands msg to every view, bottom first.
func (m appModel) broadcast(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmds := make([]tea.Cmd, 0, len(m.viewStack))
	for i, v := range m.viewStack {
		updated, cmd := v.Update(msg)
		m.viewStack[i] = updated.(View)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// pop removes the top view, never the map.
func (m *appModel) pop() {
	n := len(m.viewStack)
	if n <= 1 {
		return
	}
	top := m.viewStack[n-1]
	m.viewStack = m.viewStack[:n-1]
	closeView(top)
}

// resetTo closes every view and starts over at the map.
func (m *appModel) resetTo(route string) tea.Cmd {
	for i := len(m.viewStack) - 1; i >= 0; i-- {
		closeView(m.viewStack[i])
	}
	home := newMapView(m.state)
	m.viewStack = []View{home}
	if route == auth.RouteHome && !m.state.App.Auth.IsAuthenticated() {
		m.state.Flash = flashSessionExpired
	}
	return home.Init()
}

func (m appModel) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.viewStack))
	for _, v := range m.viewStack {
		cmds = append(cmds, v.Init())
	}
	return tea.Batch(cmds...)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.state.Width, m.state.Height = msg.Width, msg.Height
		return m.broadcast(msg)

	case refreshViewMsg:
		return m.broadcast(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case pushViewMsg:
		m.viewStack = append(m.viewStack, msg.view)
		return m, msg.view.Init()

	case replaceViewMsg:
		if len(m.viewStack) > 1 {
			closeView(m.activeView())
			m.viewStack = m.viewStack[:len(m.viewStack)-1]
		}
		m.viewStack = append(m.viewStack, msg.view)
		return m, msg.view.Init()

	case popViewMsg:
		m.pop()
		return m, nil

	case navigateMsg:
		return m, m.resetTo(msg.route)
	}
	return m.forward(msg)
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}
	m.state.Flash = ""

	// A text input owns q and esc while focused.
	if v := m.activeView(); v != nil && viewCapturesInput(v) {
		return m.forward(msg)
	}

	switch {
	case msg.String() == "q":
		m.quitting = true
		return m, tea.Quit
	case msg.Type == tea.KeyEsc:
		m.pop()
		return m, nil
	}
	return m.forward(msg)
}

func (m appModel) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{m.renderHeader()}
	if v := m.activeView(); v != nil {
		sections = append(sections, v.View())
	}
	if m.state.Flash != "" {
		sections = append(sections, "  "+formatter.StyleYellow.Render(m.state.Flash))
	}
	sections = append(sections, m.renderStatusBar())
	body := strings.Join(sections, "\n")

	// Alt-screen redraws diff by line; a short frame leaves old lines behind.
	if m.state.Height > 0 {
		body = lipgloss.PlaceVertical(m.state.Height, lipgloss.Top, body)
	}
	return body
}

func (m *appModel) rule() string {
	return formatter.Dim(strings.Repeat("─", max(m.state.Width, 20)))
}

func (m *appModel) renderHeader() string {
	crumbs := []string{formatter.StylePurple.Render("traitquest")}
	for _, v := range m.viewStack {
		if t := v.Title(); t != "" {
			crumbs = append(crumbs, formatter.Dim(t))
		}
	}
	header := strings.Join(crumbs, formatter.Dim(" › "))

	if u := m.state.App.Auth.User(); u != nil {
		hero := formatter.StyleGreen.Render(u.DisplayName) + " " + formatter.Dim(fmt.Sprintf("Lv.%d", u.Level))
		gap := max(m.state.Width-lipgloss.Width(header)-lipgloss.Width(hero), 2)
		header += strings.Repeat(" ", gap) + hero
	}
	return header + "\n" + m.rule()
}

func (m *appModel) renderStatusBar() string {
	var hints []string
	if v := m.activeView(); v != nil {
		for _, b := range v.ShortHelp() {
			h := b.Help()
			hints = append(hints, h.Key+": "+h.Desc)
		}
	}
	if len(m.viewStack) > 1 {
		hints = append(hints, "esc: back")
	}
	hints = append(hints, "ctrl+c: quit")
	return m.rule() + "\n" + formatter.Dim(strings.Join(hints, "  "))
}

// viewCapturesInput reports whether v wants every key, bypassing q and esc.
func viewCapturesInput(v View) bool {
	c, ok := v.(interface{ CapturesInput() bool })
	return ok && c.CapturesInput()
}
