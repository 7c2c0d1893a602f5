package cli

import (
	"testing"
	"time"

	"github.com/traitquest/traitquest/internal/domain"
	"github.com/traitquest/traitquest/internal/teatest"
)

// TestDriver wraps teatest.Driver with TraitQuest-specific inspection methods.
// It provides access to appModel internals (view stack, shared state) that
// the generic driver can't see.
type TestDriver struct {
	*teatest.Driver
	detach func()
}

// NewTestDriver builds the appModel against env, sets terminal size, and
// drains Init(). Store snapshots and redirects are routed through the
// driver's injection queue, the way Program.Send delivers them in a real run.
func NewTestDriver(t *testing.T, env *testEnv, questID domain.QuestID) *TestDriver {
	t.Helper()

	state := newSharedState(env.app)
	m := newAppModel(state, questID)
	d := teatest.New(t, m, teatest.WithSize(120, 40), teatest.WithCmdTimeout(2*time.Second))
	state.send = d.Inject

	td := &TestDriver{Driver: d, detach: env.app.Nav.Attach(d.Inject)}
	t.Cleanup(func() {
		td.detach()
		env.app.Quest.ResetQuest()
	})
	d.DrainInit()
	return td
}

// ── TraitQuest-specific inspection ───────────────────────────────────────────

func (d *TestDriver) appModel() appModel {
	return d.Model.(appModel)
}

// ActiveViewID returns the ViewID of the top view on the stack.
func (d *TestDriver) ActiveViewID() ViewID {
	m := d.appModel()
	v := m.activeView()
	if v == nil {
		return ViewID(-1)
	}
	return v.ID()
}

// ViewStackLen returns the number of views on the stack.
func (d *TestDriver) ViewStackLen() int {
	return len(d.appModel().viewStack)
}

// ViewStackIDs returns the ViewIDs of all views on the stack, bottom to top.
func (d *TestDriver) ViewStackIDs() []ViewID {
	m := d.appModel()
	ids := make([]ViewID, len(m.viewStack))
	for i, v := range m.viewStack {
		ids[i] = v.ID()
	}
	return ids
}

// State returns the shared state for inspection.
func (d *TestDriver) State() *SharedState {
	return d.appModel().state
}

// IsQuitting returns whether the app has signaled a quit.
func (d *TestDriver) IsQuitting() bool {
	return d.appModel().quitting || d.Quitting
}

// QuestView returns the active quest view, or nil.
func (d *TestDriver) QuestView() *questView {
	m := d.appModel()
	qv, _ := m.activeView().(*questView)
	return qv
}

// WaitPhase pumps store snapshots until the quest view shows phase.
func (d *TestDriver) WaitPhase(phase domain.Phase) {
	d.T.Helper()
	d.WaitFor(func() bool {
		qv := d.QuestView()
		return qv != nil && qv.snap.Phase == phase
	}, 2*time.Second, "quest phase "+phase.String())
}

// WaitView pumps injected messages until id is the active view.
func (d *TestDriver) WaitView(id ViewID) {
	d.T.Helper()
	d.WaitFor(func() bool { return d.ActiveViewID() == id }, 2*time.Second, "active view")
}
