package viewer

import (
	"fmt"
	"math"

	"waypoint-tracker/internal/geo"
	"waypoint-tracker/internal/route"
)

// ETA states.
const (
	StatePending = "pending"
	StateReady   = "ready"
	StateUnknown = "unknown"
)

// Lookup is the outcome of resolving the viewer's location.
type Lookup struct {
	Done  bool
	Coord geo.Coord
	Err   error
}

// ETA is the coarse time until the entity reaches the waypoint nearest to
// the viewer.
type ETA struct {
	State    string
	Text     string
	Seconds  float64 // NaN unless State is ready
	Waypoint int     // -1 unless State is ready
}

func unknownETA() ETA {
	return ETA{State: StateUnknown, Text: "Unknown", Seconds: math.NaN(), Waypoint: -1}
}

// EstimateETA picks the waypoint closest to the viewer and measures the
// time until its approach start. It is independent of the entity's phase.
func EstimateETA(now float64, l Lookup, tbl route.Table) ETA {
	if !l.Done {
		return ETA{State: StatePending, Text: "Loading...", Seconds: math.NaN(), Waypoint: -1}
	}
	if l.Err != nil {
		return unknownETA()
	}
	i, ok := tbl.Nearest(l.Coord)
	if !ok {
		return unknownETA()
	}
	arrival := tbl[i].ApproachStart
	if math.IsNaN(arrival) || math.IsInf(arrival, 0) {
		return unknownETA()
	}
	delta := arrival - now
	return ETA{State: StateReady, Text: FormatETA(delta), Seconds: delta, Waypoint: i}
}

// FormatETA renders delta seconds rounded to the nearest half hour:
// "anytime" under 30 minutes, otherwise "½ hour", "1 hour", "2½ hours".
// Exact ties round down, so 45 minutes reads "½ hour".
func FormatETA(delta float64) string {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return "Unknown"
	}
	if delta <= 0 || delta < 30*60 {
		return "anytime"
	}
	halfHours := math.Ceil(delta/3600*2 - 0.5)
	whole := int(halfHours) / 2
	if int(halfHours)%2 == 0 {
		if whole == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", whole)
	}
	if whole == 0 {
		return "½ hour"
	}
	return fmt.Sprintf("%d½ hours", whole)
}
