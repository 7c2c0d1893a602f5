package cli

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/traitquest/traitquest/internal/cli/formatter"
	"github.com/traitquest/traitquest/internal/domain"
)

// resultView shows either the final result of a quest just played or the
// stored report of a conquered region, in a scrollable viewport.
type resultView struct {
	state  *SharedState
	region domain.Region
	result *domain.FinalResult
	report *domain.QuestReport
	vp     viewport.Model
	ready  bool
}

func newResultView(state *SharedState, region domain.Region, res domain.FinalResult) *resultView {
	return &resultView{state: state, region: region, result: &res}
}

func newReportView(state *SharedState, region domain.Region, rep *domain.QuestReport) *resultView {
	return &resultView{state: state, region: region, report: rep}
}

func (v *resultView) ID() ViewID {
	if v.report != nil {
		return ViewReport
	}
	return ViewResult
}

func (v *resultView) Title() string {
	if v.report != nil {
		return "Report"
	}
	return "Result"
}

func (v *resultView) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑↓", "scroll")),
	}
}

// Init refreshes the region cache after a fresh result: a finished quest
// usually conquers a region and may unlock the next one. A stored report
// changes nothing on the map.
func (v *resultView) Init() tea.Cmd {
	v.layout()
	if v.report != nil {
		return nil
	}
	store := v.state.App.Regions
	return func() tea.Msg {
		if err := store.FetchRegions(context.Background(), true); err != nil {
			return nil
		}
		return refreshViewMsg{}
	}
}

func (v *resultView) layout() {
	w := v.state.ContentWidth()
	h := max(v.state.ContentHeight()-3, 1)
	if !v.ready {
		v.vp = viewport.New(w, h)
		v.ready = true
	} else {
		v.vp.Width = w
		v.vp.Height = h
	}
	if v.report != nil {
		v.vp.SetContent(formatter.FormatReport(v.report, w))
		return
	}
	v.vp.SetContent(formatter.FormatResult(v.result, w))
}

func (v *resultView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.layout()
		return v, nil
	case tea.KeyMsg, tea.MouseMsg:
		var cmd tea.Cmd
		v.vp, cmd = v.vp.Update(msg)
		return v, cmd
	}
	return v, nil
}

func (v *resultView) View() string {
	title := formatter.RegionStyle(v.region).Render(strings.ToUpper(v.region.Name))
	return "\n  " + title + "\n\n" + indent(v.vp.View())
}
