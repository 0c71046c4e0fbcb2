package evaluation

import "time"

// Mode selects single-screen critique or A/B comparison
type Mode string

const (
	ModeSingle     Mode = "single"
	ModeComparison Mode = "comparison"
)

// ParseMode converts a user-supplied string into a Mode
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeSingle:
		return ModeSingle, true
	case ModeComparison:
		return ModeComparison, true
	default:
		return "", false
	}
}

// ImageCount returns how many images the mode attaches
func (m Mode) ImageCount() int {
	if m == ModeComparison {
		return 2
	}
	return 1
}

// Result is one persona's evaluation. It is never mutated after creation.
type Result struct {
	PersonaName string    `json:"persona"`
	Text        string    `json:"text"`
	ProducedAt  time.Time `json:"produced_at"`
	Mode        Mode      `json:"mode"`
	Failed      bool      `json:"failed"`
}

// Timestamp formats ProducedAt for display
func (r Result) Timestamp() string {
	return r.ProducedAt.Format("2006-01-02 15:04:05")
}
