package domain

type RegionStatus string

const (
	RegionLocked    RegionStatus = "LOCKED"
	RegionAvailable RegionStatus = "AVAILABLE"
	RegionConquered RegionStatus = "CONQUERED"
)

// Region is one map node: an instrument and the player's progress on it.
// Color and Glyph are filled in client-side for rendering.
type Region struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Status     RegionStatus `json:"status"`
	UnlockHint string       `json:"unlock_hint,omitempty"`

	Color string `json:"-"`
	Glyph string `json:"-"`
}

// Enterable reports whether a quest may be started in this region.
func (r Region) Enterable() bool {
	return r.Status == RegionAvailable || r.Status == RegionConquered
}

// AccessResult is the answer of GET /map/check-access.
type AccessResult struct {
	CanEnter bool         `json:"can_enter"`
	Message  string       `json:"message"`
	Status   RegionStatus `json:"status"`
}
