package formatter

import (
	"fmt"
	"strings"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

func clampPct(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 1 {
		return 1
	}
	return pct
}

func bar(pct float64, width int) string {
	if width < 2 {
		width = 2
	}
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, width-filled)
}

// RenderProgress renders a progress bar like [████░░░░] 45%.
// The bar is colored based on percentage: green >66%, yellow 33-66%, red <33%.
func RenderProgress(pct float64, width int) string {
	pct = clampPct(pct)

	var style = StyleGreen
	if pct < 0.33 {
		style = StyleRed
	} else if pct < 0.66 {
		style = StyleYellow
	}

	return fmt.Sprintf("[%s] %3.0f%%", style.Render(bar(pct, width)), pct*100)
}

// RenderSteps renders quest progress as "Step 3/10 [███░░░░░░░]".
// index is zero-based.
func RenderSteps(index, total, width int) string {
	if total <= 0 {
		total = 1
	}
	step := index + 1
	if step > total {
		step = total
	}
	pct := clampPct(float64(index) / float64(total))
	return fmt.Sprintf("%s %s",
		Dim(fmt.Sprintf("Step %d/%d", step, total)),
		StylePurple.Render(bar(pct, width)))
}

// RenderScoreBar renders a labeled score on a 0-100 scale.
func RenderScoreBar(label string, score float64, labelWidth, width int) string {
	pct := clampPct(score / 100)
	pad := labelWidth - len([]rune(label))
	if pad < 0 {
		pad = 0
	}
	return fmt.Sprintf("%s%s %s %s",
		StyleFg.Render(label), strings.Repeat(" ", pad),
		StyleBlue.Render(bar(pct, width)),
		Dim(fmt.Sprintf("%3.0f", score)))
}
