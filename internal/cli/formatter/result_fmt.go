package formatter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/traitquest/traitquest/internal/domain"
)

const scoreBarWidth = 24

// FormatScores renders score bars sorted by label.
func FormatScores(scores map[string]float64) string {
	if len(scores) == 0 {
		return ""
	}
	labels := make([]string, 0, len(scores))
	width := 0
	for k := range scores {
		labels = append(labels, k)
		if n := len([]rune(k)); n > width {
			width = n
		}
	}
	sort.Strings(labels)

	var b strings.Builder
	for _, l := range labels {
		b.WriteString(RenderScoreBar(l, scores[l], width, scoreBarWidth))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatLevel renders the level line of a final result.
func FormatLevel(li *domain.LevelInfo) string {
	if li == nil {
		return ""
	}
	span := li.NextLevelExp - li.PrevLevelExp
	pct := 0.0
	if span > 0 {
		pct = float64(li.Exp-li.PrevLevelExp) / float64(span)
	}
	return fmt.Sprintf("%s %s %s",
		StyleHeader.Render(fmt.Sprintf("Lv.%d", li.Level)),
		RenderProgress(pct, 20),
		Dim(fmt.Sprintf("%d/%d exp", li.Exp, li.NextLevelExp)))
}

// RenderMarkdown renders analysis markdown for the terminal. On renderer
// failure the source text is returned as is.
func RenderMarkdown(md string, width int) string {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// FormatResult renders a final quest result.
func FormatResult(res *domain.FinalResult, width int) string {
	if res == nil {
		return Dim("The oracle is still reading your path...") + "\n"
	}
	var b strings.Builder

	title := res.ResultType
	if title == "" {
		title = "Your Result"
	}
	b.WriteString(Header(title))
	b.WriteString("\n")

	if lvl := FormatLevel(res.LevelInfo); lvl != "" {
		b.WriteString(lvl + "\n")
	}
	if res.ClassID != "" {
		b.WriteString("Class " + StylePurple.Render(res.ClassID) + "\n")
	}
	if len(res.NewTalents) > 0 {
		b.WriteString("Talents " + StyleGreen.Render(strings.Join(res.NewTalents, ", ")) + "\n")
	}

	scores := res.DimensionScores
	if len(scores) == 0 {
		scores = res.Scores
	}
	if s := FormatScores(scores); s != "" {
		b.WriteString("\n" + s)
	}
	if strings.TrimSpace(res.Analysis) != "" {
		b.WriteString(RenderMarkdown(res.Analysis, width))
	}
	return b.String()
}

// FormatReportLevel renders the level line of a stored report, using the
// progress the server computed.
func FormatReportLevel(li domain.ReportLevel) string {
	if li.Level == 0 {
		return ""
	}
	line := fmt.Sprintf("%s %s %s",
		StyleHeader.Render(fmt.Sprintf("Lv.%d", li.Level)),
		RenderProgress(li.ExpProgress, 20),
		Dim(fmt.Sprintf("%d/%d exp", li.Exp, li.ExpToNextLevel)))
	if li.IsLeveledUp {
		line += " " + StyleGreen.Render("level up!")
	}
	return line
}

// FormatReport renders the latest stored report of a conquered quest.
func FormatReport(rep *domain.QuestReport, width int) string {
	if rep == nil {
		return Dim("No report has been written for this region yet.") + "\n"
	}
	var b strings.Builder

	outcome, ok := rep.Outcome()
	title := "Your Report"
	if ok {
		title = outcome.Name
	}
	b.WriteString(Header(title))
	b.WriteString("\n")
	if outcome.Description != "" {
		b.WriteString(Wrap(outcome.Description, width) + "\n")
	}
	if lvl := FormatReportLevel(rep.LevelInfo); lvl != "" {
		b.WriteString(lvl + "\n")
	}
	if len(rep.Talents) > 0 {
		names := make([]string, len(rep.Talents))
		for i, t := range rep.Talents {
			names[i] = t.Name
		}
		b.WriteString("Talents " + StyleGreen.Render(strings.Join(names, ", ")) + "\n")
	} else if len(rep.TalentIDs) > 0 {
		b.WriteString("Talents " + StyleGreen.Render(strings.Join(rep.TalentIDs, ", ")) + "\n")
	}
	if s := FormatScores(rep.Scores()); s != "" {
		b.WriteString("\n" + s)
	}

	g := rep.DestinyGuide
	var guide []string
	for _, row := range [][2]string{{"Today", g.Daily}, {"Main quest", g.Main}, {"Side quest", g.Side}, {"Oracle", g.Oracle}} {
		if strings.TrimSpace(row[1]) != "" {
			guide = append(guide, "- **"+row[0]+":** "+row[1])
		}
	}
	if len(guide) > 0 {
		b.WriteString(RenderMarkdown("## Destiny Guide\n\n"+strings.Join(guide, "\n"), width))
	}
	if strings.TrimSpace(rep.HeroChronicle) != "" {
		b.WriteString(RenderMarkdown("## Hero Chronicle\n\n"+rep.HeroChronicle, width))
	}
	return b.String()
}
