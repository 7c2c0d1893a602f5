package domain

// Asset is a game asset a report resolves to: a race, class, stance or talent.
type Asset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// StatValue is one Big Five attribute on a 0-100 scale.
type StatValue struct {
	Label string `json:"label"`
	Score int    `json:"score"`
}

// DestinyGuide is the guide's advice attached to every report.
type DestinyGuide struct {
	Daily  string `json:"daily"`
	Main   string `json:"main"`
	Side   string `json:"side"`
	Oracle string `json:"oracle"`
}

// ReportLevel is the level block of a stored report. ExpToNextLevel and
// ExpProgress are computed by the server when the report is read.
type ReportLevel struct {
	Level          int     `json:"level"`
	Exp            int     `json:"exp"`
	IsLeveledUp    bool    `json:"isLeveledUp"`
	EarnedExp      int     `json:"earnedExp"`
	Milestone      string  `json:"milestone,omitempty"`
	ExpToNextLevel int     `json:"expToNextLevel"`
	ExpProgress    float64 `json:"expProgress"`
}

// QuestReport is the latest stored analysis for one quest, as returned by
// GET /quests/report/{quest_type}. Only the outcome fields of its own
// instrument are set.
type QuestReport struct {
	QuestType string `json:"quest_type"`

	RaceID    string               `json:"race_id,omitempty"`
	Race      *Asset               `json:"race,omitempty"`
	ClassID   string               `json:"class_id,omitempty"`
	Class     *Asset               `json:"class,omitempty"`
	Stats     map[string]StatValue `json:"stats,omitempty"`
	StanceID  string               `json:"stance_id,omitempty"`
	Stance    *Asset               `json:"stance,omitempty"`
	TalentIDs []string             `json:"talent_ids,omitempty"`
	Talents   []Asset              `json:"talents,omitempty"`

	DestinyGuide  DestinyGuide `json:"destiny_guide"`
	LevelInfo     ReportLevel  `json:"level_info"`
	HeroChronicle string       `json:"hero_chronicle,omitempty"`
}

// Scores flattens Stats into label to score, falling back to the stat key
// when a label is missing.
func (r QuestReport) Scores() map[string]float64 {
	if len(r.Stats) == 0 {
		return nil
	}
	out := make(map[string]float64, len(r.Stats))
	for k, v := range r.Stats {
		label := v.Label
		if label == "" {
			label = k
		}
		out[label] = float64(v.Score)
	}
	return out
}

// Outcome returns the headline asset of the report, if its instrument
// produced one.
func (r QuestReport) Outcome() (Asset, bool) {
	for _, a := range []*Asset{r.Class, r.Race, r.Stance} {
		if a != nil {
			return *a, true
		}
	}
	switch {
	case r.ClassID != "":
		return Asset{ID: r.ClassID, Name: r.ClassID}, true
	case r.RaceID != "":
		return Asset{ID: r.RaceID, Name: r.RaceID}, true
	case r.StanceID != "":
		return Asset{ID: r.StanceID, Name: r.StanceID}, true
	}
	return Asset{}, false
}
