package formatter

import (
	"fmt"
	"strings"

	"github.com/traitquest/traitquest/internal/domain"
)

// FormatQuestion renders a question for line mode, numbering its options.
func FormatQuestion(q *domain.Question) string {
	if q == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(Bold(q.Text) + "\n")
	if q.IsFreeText() {
		b.WriteString(Dim("(answer in your own words)") + "\n")
		return b.String()
	}
	for i, o := range q.Options {
		fmt.Fprintf(&b, "  %s %s\n", StyleHeader.Render(fmt.Sprintf("%d.", i+1)), o.Text)
	}
	return b.String()
}

// OptionLine renders one selectable option for the TUI.
func OptionLine(o domain.Option, selected bool) string {
	if selected {
		return StyleHeader.Render("▸ ") + StyleGreen.Render(o.Text)
	}
	return "  " + StyleFg.Render(o.Text)
}

// Narrative renders narrative flavor text.
func Narrative(text string) string {
	return StylePurple.Italic(true).Render(text)
}

// Guide renders the guide's aside.
func Guide(text string) string {
	if text == "" {
		return ""
	}
	return StyleBlue.Render("✧ " + text)
}
