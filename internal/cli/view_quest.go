package cli

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/traitquest/traitquest/internal/cli/formatter"
	"github.com/traitquest/traitquest/internal/domain"
	"github.com/traitquest/traitquest/internal/quest"
)

// questStartedMsg reports the outcome of InitQuest.
type questStartedMsg struct {
	err error
}

// questCmdFailedMsg reports a submit or result request the store refused.
type questCmdFailedMsg struct {
	err error
}

// snapshotMsg carries a quest store snapshot into the update loop. Messages
// from a closed view, or older than the last one applied, are ignored.
type snapshotMsg struct {
	owner *questView
	seq   uint64
	snap  quest.Snapshot
}

// typeTickMsg advances the narrative typewriter.
type typeTickMsg struct {
	owner *questView
}

const typeStep = 3

// questView renders one questionnaire attempt from quest store snapshots.
// It holds no quest state of its own beyond input widgets.
type questView struct {
	state   *SharedState
	questID domain.QuestID
	region  domain.Region

	seq         atomic.Uint64
	lastSeq     uint64
	unsubscribe func()
	closed      bool

	snap      quest.Snapshot
	startErr  error
	cmdErr    error
	revealed  bool
	lastQID   string
	cursor    int
	typed     int
	requested bool

	input   textarea.Model
	spinner spinner.Model
}

func newQuestView(state *SharedState, questID domain.QuestID, region domain.Region) *questView {
	ta := textarea.New()
	ta.Placeholder = "Speak your mind..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000
	ta.SetHeight(3)
	ta.SetWidth(state.ContentWidth())
	if !state.Animate {
		ta.Cursor.SetMode(cursor.CursorStatic)
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = formatter.StylePurple

	if region.ID == "" {
		region = domain.Region{ID: string(questID), Name: questID.DisplayName()}
	}
	return &questView{
		state:   state,
		questID: questID,
		region:  region,
		input:   ta,
		spinner: sp,
	}
}

func (v *questView) ID() ViewID    { return ViewQuest }
func (v *questView) Title() string { return v.region.Name }

func (v *questView) ShortHelp() []key.Binding {
	switch {
	case v.snap.Phase == domain.PhaseCompleted:
		return []key.Binding{key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "reveal result"))}
	case v.freeText():
		return []key.Binding{key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "answer"))}
	case v.snap.Phase == domain.PhaseQuestionActive:
		return []key.Binding{
			key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑↓", "choose")),
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "answer")),
		}
	}
	return nil
}

// CapturesInput is true while a free-text answer is being typed.
func (v *questView) CapturesInput() bool {
	return v.freeText()
}

func (v *questView) freeText() bool {
	q := v.snap.CurrentQuestion
	return v.snap.Phase == domain.PhaseQuestionActive && q != nil && q.IsFreeText()
}

func (v *questView) Init() tea.Cmd {
	v.unsubscribe = v.state.App.Quest.Subscribe(func(s quest.Snapshot) {
		v.state.Send(snapshotMsg{owner: v, seq: v.seq.Add(1), snap: s})
	})

	app := v.state.App
	questID := v.questID
	start := func() tea.Msg {
		err := app.Quest.InitQuest(context.Background(), questID, app.Auth.Token())
		return questStartedMsg{err: err}
	}
	if v.state.Animate {
		return tea.Batch(start, v.spinner.Tick)
	}
	return start
}

// Close ends the attempt. The store is reset so the next quest starts Idle.
func (v *questView) Close() {
	if v.closed {
		return
	}
	v.closed = true
	if v.unsubscribe != nil {
		v.unsubscribe()
	}
	v.state.App.Quest.ResetQuest()
}

func (v *questView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case questStartedMsg:
		v.startErr = msg.err
		return v, nil

	case snapshotMsg:
		if msg.owner != v || msg.seq <= v.lastSeq || v.closed {
			return v, nil
		}
		v.lastSeq = msg.seq
		return v, v.apply(msg.snap)

	case questCmdFailedMsg:
		v.cmdErr = msg.err
		v.requested = false
		return v, nil

	case typeTickMsg:
		if msg.owner != v {
			return v, nil
		}
		v.typed += typeStep
		if v.typed < len([]rune(v.snap.Narrative)) {
			return v, v.typeTick()
		}
		return v, nil

	case spinner.TickMsg:
		if !v.busy() {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case tea.WindowSizeMsg:
		v.input.SetWidth(v.state.ContentWidth())
		return v, nil

	case tea.KeyMsg:
		return v.updateKeys(msg)
	}
	return v, nil
}

// apply adopts a newer snapshot and resets input widgets when the question
// changes.
func (v *questView) apply(s quest.Snapshot) tea.Cmd {
	prevNarrative := v.snap.Narrative
	v.snap = s

	if s.FinalResult != nil && !v.revealed {
		v.revealed = true
		return replaceView(newResultView(v.state, v.region, *s.FinalResult))
	}

	// A refused result request leaves the quest completed; enter may ask again.
	if v.requested && !s.IsLoading && s.LastError != nil {
		v.requested = false
	}

	var cmds []tea.Cmd
	if q := s.CurrentQuestion; q != nil && questionKey(s) != v.lastQID {
		v.lastQID = questionKey(s)
		v.cursor = 0
		v.cmdErr = nil
		v.input.Reset()
		if q.IsFreeText() {
			cmds = append(cmds, v.focusInput())
		} else {
			v.input.Blur()
		}
	}
	if s.Narrative != prevNarrative {
		v.typed = 0
		if v.state.Animate && v.state.TypeDelay > 0 {
			cmds = append(cmds, v.typeTick())
		} else {
			v.typed = len([]rune(s.Narrative))
		}
	}
	if v.busy() && v.state.Animate {
		cmds = append(cmds, v.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func questionKey(s quest.Snapshot) string {
	return fmt.Sprintf("%d:%s", s.QuestionIndex, s.CurrentQuestion.ID)
}

func (v *questView) focusInput() tea.Cmd {
	cmd := v.input.Focus()
	if !v.state.Animate {
		return nil
	}
	return cmd
}

func (v *questView) typeTick() tea.Cmd {
	owner := v
	return tea.Tick(v.state.TypeDelay, func(time.Time) tea.Msg { return typeTickMsg{owner: owner} })
}

func (v *questView) busy() bool {
	switch v.snap.Phase {
	case domain.PhaseIdle, domain.PhaseConnecting, domain.PhaseAwaitingQuestion, domain.PhaseSubmitting:
		return v.startErr == nil
	}
	return v.snap.IsLoading
}

func (v *questView) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if v.startErr != nil {
		return v, nil
	}
	if v.freeText() {
		return v.updateFreeText(msg)
	}

	switch v.snap.Phase {
	case domain.PhaseQuestionActive:
		q := v.snap.CurrentQuestion
		if q == nil || v.snap.IsLoading {
			return v, nil
		}
		switch s := msg.String(); s {
		case "up", "k":
			if v.cursor > 0 {
				v.cursor--
			}
		case "down", "j":
			if v.cursor < len(q.Options)-1 {
				v.cursor++
			}
		case "enter":
			if v.cursor < len(q.Options) {
				return v, v.submit(q.Options[v.cursor].ID)
			}
		default:
			if answer, ok := resolveAnswer(q, s); ok {
				return v, v.submit(answer)
			}
		}

	case domain.PhaseCompleted:
		if msg.Type == tea.KeyEnter && !v.snap.IsLoading && !v.requested {
			v.requested = true
			store := v.state.App.Quest
			return v, func() tea.Msg {
				if err := store.RequestResult(); err != nil {
					return questCmdFailedMsg{err: err}
				}
				return nil
			}
		}
	}
	return v, nil
}

func (v *questView) updateFreeText(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return v, popView()
	case tea.KeyEnter:
		answer := strings.TrimSpace(v.input.Value())
		if answer == "" || v.snap.IsLoading {
			return v, nil
		}
		return v, v.submit(answer)
	}
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *questView) submit(answer string) tea.Cmd {
	v.cmdErr = nil
	store := v.state.App.Quest
	index := v.snap.QuestionIndex
	return func() tea.Msg {
		if err := store.SubmitAnswer(answer, index); err != nil {
			return questCmdFailedMsg{err: err}
		}
		return nil
	}
}

func (v *questView) View() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + formatter.RegionStyle(v.region).Render(strings.ToUpper(v.region.Name)))
	if v.snap.CurrentQuestion != nil {
		b.WriteString("  " + formatter.RenderSteps(v.snap.QuestionIndex, v.snap.TotalSteps, 20))
	}
	b.WriteString("\n\n")

	if v.startErr != nil {
		b.WriteString("  " + formatter.StyleRed.Render("Could not enter the region: "+v.startErr.Error()) + "\n")
		return b.String()
	}

	if n := v.snap.Narrative; n != "" {
		r := []rune(n)
		shown := string(r[:min(v.typed, len(r))])
		b.WriteString(indent(formatter.Wrap(formatter.Narrative(shown), v.state.ContentWidth())) + "\n\n")
	}
	if g := formatter.Guide(v.snap.GuideMessage); g != "" {
		b.WriteString("  " + g + "\n\n")
	}

	switch v.snap.Phase {
	case domain.PhaseIdle, domain.PhaseConnecting:
		b.WriteString("  " + v.spinner.View() + " " + formatter.Dim("Opening the gate...") + "\n")
	case domain.PhaseAwaitingQuestion:
		b.WriteString("  " + v.spinner.View() + " " + formatter.Dim("The guide is listening...") + "\n")
	case domain.PhaseQuestionActive, domain.PhaseSubmitting:
		b.WriteString(v.renderQuestion())
	case domain.PhaseCompleted:
		b.WriteString("  " + formatter.StyleGreen.Render("✔ Quest complete"))
		if v.snap.ExpGained > 0 {
			b.WriteString("  " + formatter.StyleHeader.Render(fmt.Sprintf("+%d exp", v.snap.ExpGained)))
		}
		b.WriteString("\n\n")
		if v.requested || v.snap.IsLoading {
			b.WriteString("  " + v.spinner.View() + " " + formatter.Dim("The oracle is reading your path...") + "\n")
		} else {
			b.WriteString("  " + formatter.Dim("Press enter to reveal your result.") + "\n")
		}
	}

	if err := v.displayErr(); err != nil {
		b.WriteString("\n  " + formatter.StyleRed.Render(err.Error()) + "\n")
	}
	return b.String()
}

func (v *questView) renderQuestion() string {
	q := v.snap.CurrentQuestion
	if q == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(indent(formatter.Wrap(formatter.Bold(q.Text), v.state.ContentWidth())) + "\n\n")
	if q.IsFreeText() {
		b.WriteString(indent(v.input.View()) + "\n")
	} else {
		for i, o := range q.Options {
			b.WriteString("  " + formatter.OptionLine(o, i == v.cursor) + "\n")
		}
	}
	if v.snap.Phase == domain.PhaseSubmitting {
		b.WriteString("\n  " + v.spinner.View() + " " + formatter.Dim("The guide ponders your answer...") + "\n")
	}
	return b.String()
}

func (v *questView) displayErr() error {
	if v.cmdErr != nil {
		return v.cmdErr
	}
	return v.snap.LastError
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
