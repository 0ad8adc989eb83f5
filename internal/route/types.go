package route

import (
	"math"
	"sort"

	"waypoint-tracker/internal/geo"
)

// Waypoint is one scheduled stop on the itinerary. Unknown numeric fields
// hold NaN; timestamps are epoch seconds.
type Waypoint struct {
	City   string
	Region string
	Lat    float64
	Lon    float64

	Ordinal float64 // itinerary rank; best-effort, used as a threshold discriminator

	ApproachStart float64
	ArrivedAt     float64
	DepartedAt    float64

	ItemsA float64 // cumulative, e.g. items delivered
	ItemsB float64 // cumulative, e.g. items consumed

	Timezone       string
	Population     float64
	PopulationYear string
	Elevation      float64
	AttributionURL string
}

func (w Waypoint) Coord() geo.Coord { return geo.Coord{Lat: w.Lat, Lon: w.Lon} }

func (w Waypoint) HasCoord() bool { return w.Coord().Valid() }

// Table is the itinerary sorted ascending by ApproachStart. It is never
// mutated after construction.
type Table []Waypoint

// NewTable copies wps and stable-sorts them by ApproachStart, keeping
// waypoints without an approach time at the end in their original order.
func NewTable(wps []Waypoint) Table {
	t := make(Table, len(wps))
	copy(t, wps)
	sort.SliceStable(t, func(i, j int) bool {
		a, b := t[i].ApproachStart, t[j].ApproachStart
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		return a < b
	})
	return t
}

// Nearest returns the index of the waypoint closest to c by surface
// distance, skipping waypoints with unknown coordinates.
func (t Table) Nearest(c geo.Coord) (int, bool) {
	if !c.Valid() {
		return -1, false
	}
	best := -1
	bestKm := math.Inf(1)
	for i, w := range t {
		if !w.HasCoord() {
			continue
		}
		if d := geo.HaversineKm(c, w.Coord()); d < bestKm {
			bestKm = d
			best = i
		}
	}
	return best, best >= 0
}

// DeliveredThrough counts the leading waypoints whose departure has passed.
func (t Table) DeliveredThrough(now float64) int {
	n := 0
	for _, w := range t {
		if math.IsNaN(w.DepartedAt) || !(now >= w.DepartedAt) {
			break
		}
		n++
	}
	return n
}
