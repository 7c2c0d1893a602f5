package regions

import "github.com/traitquest/traitquest/internal/domain"

type visual struct {
	color string
	glyph string
}

var visuals = map[domain.QuestID]visual{
	domain.QuestMBTI:      {color: "#11D452", glyph: "✦"},
	domain.QuestBigFive:   {color: "#00F0FF", glyph: "ϟ"},
	domain.QuestEnneagram: {color: "#BD00FF", glyph: "⌘"},
	domain.QuestDISC:      {color: "#FF4F4F", glyph: "⚔"},
	domain.QuestGallup:    {color: "#FFD000", glyph: "♛"},
}

// WithVisuals fills in the terminal color and glyph for r. Unknown regions
// are returned unchanged.
func WithVisuals(r domain.Region) domain.Region {
	id, err := domain.ParseQuestID(r.ID)
	if err != nil {
		return r
	}
	v := visuals[id]
	r.Color = v.color
	r.Glyph = v.glyph
	return r
}
