package conjunction

// Category is a coarse collision-risk level.
type Category string

const (
	Critical     Category = "CRITICAL"
	Elevated     Category = "ELEVATED"
	Moderate     Category = "MODERATE"
	Low          Category = "LOW"
	Undetermined Category = "UNDETERMINED"
)

// Lower bounds (km) of the ELEVATED, MODERATE and LOW bands. Bands are
// half-open: a distance equal to a bound belongs to the farther band.
const (
	CriticalBelowKm = 5.0
	ElevatedBelowKm = 50.0
	ModerateBelowKm = 200.0
)

var messages = map[Category]string{
	Critical:     "High probability of collision. Immediate evasive action required.",
	Elevated:     "Satellites will pass dangerously close. Monitoring recommended.",
	Moderate:     "Close approach detected, but no immediate collision risk.",
	Low:          "Satellites remain at safe separation distance.",
	Undetermined: "No valid sample pair in the prediction window; closest approach could not be determined.",
}

// Message returns the advisory text for c.
func (c Category) Message() string {
	return messages[c]
}

// Classify maps a minimum separation to a category and its advisory.
func Classify(distanceKm float64) (Category, string) {
	var c Category
	switch {
	case distanceKm < CriticalBelowKm:
		c = Critical
	case distanceKm < ElevatedBelowKm:
		c = Elevated
	case distanceKm < ModerateBelowKm:
		c = Moderate
	default:
		c = Low
	}
	return c, c.Message()
}
