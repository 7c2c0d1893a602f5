package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/traitquest/traitquest/internal/domain"
)

// Palette: forest green for the hero, amber for rewards, slate for fog.
var (
	ColorGreen  = lipgloss.Color("#11d452")
	ColorYellow = lipgloss.Color("#f5c542")
	ColorRed    = lipgloss.Color("#ef5a5a")
	ColorBlue   = lipgloss.Color("#5aa9e6")
	ColorPurple = lipgloss.Color("#b48ef0")
	ColorDim    = lipgloss.Color("#7b8494")
	ColorFg     = lipgloss.Color("#e6e8ec")
	ColorHeader = lipgloss.Color("#f0a030")
	ColorLocked = lipgloss.Color("#4a505c")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = StyleFg.Bold(true)
)

// RegionStyle returns the style a region is drawn in: its own color while
// it can be entered, a muted one while locked.
func RegionStyle(r domain.Region) lipgloss.Style {
	if r.Status == domain.RegionLocked || r.Color == "" {
		return lipgloss.NewStyle().Foreground(ColorLocked)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(r.Color))
}

// StatusBadge returns a colored region status such as "● AVAILABLE".
func StatusBadge(status domain.RegionStatus) string {
	switch status {
	case domain.RegionConquered:
		return StyleGreen.Render("✔ CONQUERED")
	case domain.RegionAvailable:
		return StyleYellow.Render("● AVAILABLE")
	case domain.RegionLocked:
		return StyleDim.Render("✖ LOCKED")
	default:
		return StyleDim.Render(string(status))
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}
