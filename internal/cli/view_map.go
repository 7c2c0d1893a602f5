package cli

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/traitquest/traitquest/internal/cli/formatter"
	"github.com/traitquest/traitquest/internal/domain"
)

// regionsLoadedMsg signals that the region cache finished a fetch.
type regionsLoadedMsg struct {
	regions []domain.Region
	err     error
}

// accessCheckedMsg carries the answer to an attempt to enter a region.
type accessCheckedMsg struct {
	region domain.Region
	result domain.AccessResult
}

// reportLoadedMsg carries the stored report of a conquered region.
type reportLoadedMsg struct {
	region domain.Region
	report *domain.QuestReport
	err    error
}

// mapView is the home route: the list of regions and their status.
type mapView struct {
	state   *SharedState
	regions []domain.Region
	cursor  int
	loading bool
	err     error

	signedOut bool
	checking  bool
	waitLabel string
	notice    string
	spinner   spinner.Model
}

func newMapView(state *SharedState) *mapView {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = formatter.StylePurple
	return &mapView{state: state, spinner: sp}
}

func (v *mapView) ID() ViewID    { return ViewMap }
func (v *mapView) Title() string { return "Map" }

func (v *mapView) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "enter / report")),
		key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "play again")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	}
}

func (v *mapView) Init() tea.Cmd {
	if !v.state.App.Auth.IsAuthenticated() {
		v.signedOut = true
		return nil
	}
	return v.load(false)
}

func (v *mapView) load(force bool) tea.Cmd {
	v.loading = true
	store := v.state.App.Regions
	fetch := func() tea.Msg {
		err := store.FetchRegions(context.Background(), force)
		return regionsLoadedMsg{regions: store.Regions(), err: err}
	}
	if v.state.Animate {
		return tea.Batch(fetch, v.spinner.Tick)
	}
	return fetch
}

func (v *mapView) checkAccess(r domain.Region) tea.Cmd {
	v.checking = true
	v.waitLabel = "Approaching the gate..."
	store := v.state.App.Regions
	return func() tea.Msg {
		return accessCheckedMsg{region: r, result: store.CheckAccess(context.Background(), r.ID)}
	}
}

// openReport fetches the latest report of a conquered region.
func (v *mapView) openReport(r domain.Region) tea.Cmd {
	questID, err := domain.ParseQuestID(r.ID)
	if err != nil {
		v.notice = err.Error()
		return nil
	}
	v.checking = true
	v.waitLabel = "Unrolling the chronicle..."
	api := v.state.App.API
	return func() tea.Msg {
		rep, err := api.Report(context.Background(), questID)
		return reportLoadedMsg{region: r, report: rep, err: err}
	}
}

func (v *mapView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case regionsLoadedMsg:
		v.loading = false
		v.err = msg.err
		if msg.err == nil {
			v.regions = msg.regions
		}
		if v.cursor >= len(v.regions) {
			v.cursor = max(len(v.regions)-1, 0)
		}
		return v, nil

	case refreshViewMsg:
		v.regions = v.state.App.Regions.Regions()
		return v, nil

	case accessCheckedMsg:
		v.checking = false
		if !msg.result.CanEnter {
			v.notice = msg.result.Message
			if v.notice == "" {
				v.notice = msg.region.Name + " is locked."
			}
			return v, nil
		}
		questID, err := domain.ParseQuestID(msg.region.ID)
		if err != nil {
			v.notice = err.Error()
			return v, nil
		}
		v.notice = ""
		return v, pushView(newQuestView(v.state, questID, msg.region))

	case reportLoadedMsg:
		v.checking = false
		if msg.err != nil {
			v.notice = "No report for " + msg.region.Name + ": " + msg.err.Error()
			return v, nil
		}
		v.notice = ""
		return v, pushView(newReportView(v.state, msg.region, msg.report))

	case spinner.TickMsg:
		if !v.loading && !v.checking {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case tea.KeyMsg:
		return v.updateKeys(msg)
	}
	return v, nil
}

func (v *mapView) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if v.signedOut || v.checking {
		return v, nil
	}
	switch msg.String() {
	case "up", "k":
		if v.cursor > 0 {
			v.cursor--
		}
	case "down", "j":
		if v.cursor < len(v.regions)-1 {
			v.cursor++
		}
	case "r":
		v.notice = ""
		return v, v.load(true)
	case "enter":
		if v.cursor < len(v.regions) {
			v.notice = ""
			r := v.regions[v.cursor]
			if r.Status == domain.RegionConquered {
				return v, v.openReport(r)
			}
			return v, v.checkAccess(r)
		}
	case "p":
		if v.cursor < len(v.regions) {
			v.notice = ""
			return v, v.checkAccess(v.regions[v.cursor])
		}
	}
	return v, nil
}

func (v *mapView) View() string {
	if v.signedOut {
		return "\n  " + formatter.Dim("Not signed in. Run `traitquest login` to begin your journey.")
	}
	if v.loading && len(v.regions) == 0 {
		return "\n  " + v.spinner.View() + " " + formatter.Dim("Charting the world...")
	}
	if v.err != nil && len(v.regions) == 0 {
		return "\n  " + formatter.StyleRed.Render("Error: "+v.err.Error()) + "\n  " + formatter.Dim("r: retry")
	}

	var b strings.Builder
	b.WriteString("\n")
	if len(v.regions) == 0 {
		b.WriteString("  " + formatter.Dim("No regions discovered yet.") + "\n")
	}
	for i, r := range v.regions {
		b.WriteString(formatter.RegionLine(r, i == v.cursor) + "\n")
	}

	switch {
	case v.checking:
		b.WriteString("\n  " + v.spinner.View() + " " + formatter.Dim(v.waitLabel))
	case v.notice != "":
		b.WriteString("\n  " + formatter.StyleRed.Render(v.notice))
	case v.err != nil:
		b.WriteString("\n  " + formatter.StyleRed.Render("Refresh failed: "+v.err.Error()))
	}
	return b.String()
}
