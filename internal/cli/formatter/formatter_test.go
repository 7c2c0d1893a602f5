package formatter

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traitquest/traitquest/internal/domain"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// stripANSI removes ANSI escape codes so assertions are terminal-independent.
func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func TestRenderProgress(t *testing.T) {
	tests := []struct {
		name  string
		pct   float64
		width int
		want  string
	}{
		{"empty", 0, 4, "[░░░░]   0%"},
		{"half", 0.5, 4, "[██░░]  50%"},
		{"full", 1, 4, "[████] 100%"},
		{"over clamps", 1.7, 4, "[████] 100%"},
		{"negative clamps", -1, 4, "[░░░░]   0%"},
		{"tiny width", 0.5, 1, "[█░]  50%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripANSI(RenderProgress(tt.pct, tt.width)))
		})
	}
}

func TestRenderSteps(t *testing.T) {
	assert.Equal(t, "Step 1/10 ░░░░░░░░░░", stripANSI(RenderSteps(0, 10, 10)))
	assert.Equal(t, "Step 4/10 ███░░░░░░░", stripANSI(RenderSteps(3, 10, 10)))
	assert.Equal(t, "Step 5/5 █████", stripANSI(RenderSteps(9, 5, 5)))
}

func TestFormatScores_SortedAndAligned(t *testing.T) {
	out := stripANSI(FormatScores(map[string]float64{"Openness": 80, "Agreeableness": 45}))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	assert.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Agreeableness "))
	assert.True(t, strings.HasPrefix(lines[1], "Openness      "))
	assert.Contains(t, lines[1], " 80")
}

func TestFormatRegions(t *testing.T) {
	out := stripANSI(FormatRegions([]domain.Region{
		{ID: "mbti", Name: "MBTI Sanctum", Status: domain.RegionConquered, Glyph: "✦", Color: "#11D452"},
		{ID: "gallup", Name: "Gallup Summit", Status: domain.RegionLocked, UnlockHint: "Reach Lv.5"},
	}))

	assert.Contains(t, out, "WORLD MAP")
	assert.Contains(t, out, "✦ MBTI Sanctum")
	assert.Contains(t, out, "✔ CONQUERED")
	assert.Contains(t, out, "◆ Gallup Summit")
	assert.Contains(t, out, "Reach Lv.5")

	assert.Contains(t, stripANSI(FormatRegions(nil)), "No regions")
}

func TestRegionLine_HintOnlyWhenLocked(t *testing.T) {
	open := stripANSI(RegionLine(domain.Region{Name: "DISC", Status: domain.RegionAvailable, UnlockHint: "hidden"}, true))
	assert.True(t, strings.HasPrefix(open, "▸ "))
	assert.NotContains(t, open, "hidden")

	locked := stripANSI(RegionLine(domain.Region{Name: "DISC", Status: domain.RegionLocked, UnlockHint: "Reach Lv.3"}, false))
	assert.Contains(t, locked, "Reach Lv.3")
}

func TestFormatQuestion(t *testing.T) {
	q := &domain.Question{Text: "Pick one", Type: domain.QuestionQuantitative, Options: []domain.Option{{ID: "1", Text: "Sword"}, {ID: "2", Text: "Shield"}}}
	out := stripANSI(FormatQuestion(q))
	assert.Contains(t, out, "1. Sword")
	assert.Contains(t, out, "2. Shield")

	free := stripANSI(FormatQuestion(&domain.Question{Text: "Tell me", Type: domain.QuestionSoulNarrative}))
	assert.Contains(t, free, "own words")
}

func TestFormatUser(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	u := &domain.User{UserID: "u1", DisplayName: "Ada", Level: 3, Exp: 120, HeroClassID: "bard"}

	out := stripANSI(FormatUser(u, now.Add(90*time.Minute), now))
	assert.Contains(t, out, "Ada")
	assert.Contains(t, out, "Level 3")
	assert.Contains(t, out, "bard")
	assert.Contains(t, out, "in 1h")

	assert.Contains(t, stripANSI(FormatUser(nil, time.Time{}, now)), "Not signed in")
}

func TestExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "never", Expiry(time.Time{}, now))
	assert.Equal(t, "expired", stripANSI(Expiry(now.Add(-time.Minute), now)))
	assert.Equal(t, "in 30m", Expiry(now.Add(30*time.Minute), now))
	assert.Equal(t, "in 5h", Expiry(now.Add(5*time.Hour), now))
	assert.Equal(t, "Mar 11, 2026", Expiry(now.Add(10*24*time.Hour), now))
}

func TestFormatResult(t *testing.T) {
	res := &domain.FinalResult{
		ResultType: "INFP",
		Scores:     map[string]float64{"E": 30, "I": 70},
		Analysis:   "The **Mediator** walks a quiet road.",
		LevelInfo:  &domain.LevelInfo{Level: 3, Exp: 120, PrevLevelExp: 100, NextLevelExp: 200},
		NewTalents: []string{"Empathy"},
	}
	out := stripANSI(FormatResult(res, 60))

	assert.Contains(t, out, "INFP")
	assert.Contains(t, out, "Lv.3")
	assert.Contains(t, out, "Empathy")
	assert.Contains(t, out, "Mediator")
	assert.Contains(t, out, "120/200 exp")

	assert.Contains(t, stripANSI(FormatResult(nil, 60)), "still reading")
}

func TestFormatReport(t *testing.T) {
	rep := &domain.QuestReport{
		QuestType:     "mbti",
		ClassID:       "CLS_INTJ",
		Class:         &domain.Asset{ID: "CLS_INTJ", Name: "Architect", Description: "Plans ahead."},
		DestinyGuide:  domain.DestinyGuide{Daily: "Rest", Oracle: "Patience"},
		LevelInfo:     domain.ReportLevel{Level: 3, Exp: 260, ExpToNextLevel: 400, ExpProgress: 0.5, IsLeveledUp: true},
		HeroChronicle: "You walked alone.",
	}
	out := stripANSI(FormatReport(rep, 60))

	assert.Contains(t, out, "ARCHITECT")
	assert.Contains(t, out, "Plans ahead.")
	assert.Contains(t, out, "Lv.3")
	assert.Contains(t, out, "260/400 exp")
	assert.Contains(t, out, "50%")
	assert.Contains(t, out, "level up!")
	assert.Contains(t, out, "Destiny Guide")
	assert.Contains(t, out, "Patience")
	assert.NotContains(t, out, "Main quest", "empty guide lines are skipped")
	assert.Contains(t, out, "You walked alone.")

	assert.Contains(t, stripANSI(FormatReport(nil, 60)), "No report")
}

func TestFormatReport_StatsOnly(t *testing.T) {
	rep := &domain.QuestReport{
		QuestType: "bigfive",
		Stats:     map[string]domain.StatValue{"openness": {Label: "Intellect", Score: 80}},
	}
	out := stripANSI(FormatReport(rep, 60))
	assert.Contains(t, out, "YOUR REPORT")
	assert.Contains(t, out, "Intellect")
	assert.NotContains(t, out, "Lv.")
	assert.NotContains(t, out, "Destiny Guide")
}

func TestSpinner_StopClearsLineAndIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "Charting")
	s.tick = time.Millisecond
	s.Start()
	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Stop()
	s.Stop()

	out := buf.String()
	assert.Contains(t, out, "Charting")
	assert.True(t, strings.HasSuffix(out, "\r\033[K"), "the last write erases the line")
}

func TestSpinner_StopBeforeStart(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "never shown")

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a spinner that never started")
	}
	assert.Empty(t, buf.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 5))
	assert.Equal(t, "hel…", Truncate("hello", 4))
	assert.Equal(t, "…", Truncate("hello", 1))
	assert.Equal(t, "hello", Truncate("hello", 0))
}

func TestRenderTable_AlignsColumns(t *testing.T) {
	out := stripANSI(RenderTable([]string{"NAME", "STATUS"}, [][]string{
		{"MBTI Sanctum", "OPEN"},
		{"DISC", "LOCKED", "extra cell dropped"},
		{"Enneagram"},
	}))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[1], "─")
	assert.NotContains(t, out, "extra cell dropped")

	col := strings.Index(lines[0], "STATUS")
	require.Positive(t, col)
	assert.Equal(t, col, strings.Index(lines[2], "OPEN"))
	assert.Equal(t, col, strings.Index(lines[3], "LOCKED"))

	assert.Empty(t, RenderTable(nil, nil))
}
