package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/traitquest/traitquest/internal/domain"
)

// FormatRegions renders the map as a table of regions.
func FormatRegions(regions []domain.Region) string {
	if len(regions) == 0 {
		return Dim("No regions discovered yet.") + "\n"
	}
	rows := make([][]string, 0, len(regions))
	for _, r := range regions {
		hint := r.UnlockHint
		if r.Status != domain.RegionLocked {
			hint = ""
		}
		rows = append(rows, []string{
			RegionStyle(r).Render(regionGlyph(r) + " " + r.Name),
			Dim(r.ID),
			StatusBadge(r.Status),
			Dim(hint),
		})
	}
	return Header("World Map") + "\n" + RenderTable([]string{"REGION", "ID", "STATUS", "UNLOCK"}, rows)
}

// RegionLine renders one map entry for the TUI list.
func RegionLine(r domain.Region, selected bool) string {
	cursor := "  "
	if selected {
		cursor = StyleHeader.Render("▸ ")
	}
	line := cursor + RegionStyle(r).Render(regionGlyph(r)+" "+r.Name) + "  " + StatusBadge(r.Status)
	if r.Status == domain.RegionLocked && r.UnlockHint != "" {
		line += "  " + Dim(r.UnlockHint)
	}
	return line
}

func regionGlyph(r domain.Region) string {
	if r.Glyph == "" {
		return "◆"
	}
	return r.Glyph
}

// FormatUser renders the signed-in player card.
func FormatUser(u *domain.User, expiresAt, now time.Time) string {
	if u == nil {
		return Dim("Not signed in.") + "\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", Bold(u.DisplayName), Dim(u.UserID))
	fmt.Fprintf(&b, "Level %s  %s\n", StyleHeader.Render(fmt.Sprint(u.Level)), Dim(fmt.Sprintf("%d exp", u.Exp)))
	if u.HeroClassID != "" {
		fmt.Fprintf(&b, "Class %s\n", StylePurple.Render(u.HeroClassID))
	}
	if u.QuestMode != nil {
		fmt.Fprintf(&b, "Mode  %s %s\n", StyleBlue.Render(u.QuestMode.Name), Dim(u.QuestMode.Description))
	}
	fmt.Fprintf(&b, "Token %s\n", Expiry(expiresAt, now))
	return b.String()
}
