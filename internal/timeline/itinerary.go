package timeline

import (
	"math"

	"waypoint-tracker/internal/route"
)

// Itinerary binds an immutable waypoint table to its thresholds and the
// indices derived from them. It is safe for concurrent use.
type Itinerary struct {
	wps route.Table
	th  Thresholds

	eps       float64 // seconds
	minLaunch float64 // seconds

	launch     int // -1 when the table has no transit waypoint
	completion int // -1 only for an empty table

	// running floors of the cumulative counters
	floorA []float64
	floorB []float64
}

// NewItinerary validates th and precomputes launch/completion indices and
// counter floors for wps.
func NewItinerary(wps route.Table, th Thresholds) (*Itinerary, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	it := &Itinerary{
		wps:        wps,
		th:         th,
		eps:        th.Epsilon.Seconds(),
		minLaunch:  th.MinLaunchWindow.Seconds(),
		launch:     -1,
		completion: len(wps) - 1,
		floorA:     make([]float64, len(wps)),
		floorB:     make([]float64, len(wps)),
	}

	launchOrd := float64(th.LaunchOrdinal)
	for i, w := range wps {
		if w.Ordinal == launchOrd {
			it.launch = i
			break
		}
	}
	if it.launch < 0 {
		for i, w := range wps {
			if w.Ordinal >= launchOrd {
				it.launch = i
				break
			}
		}
	}
	for i, w := range wps {
		if w.Ordinal == float64(th.CompletionOrdinal) {
			it.completion = i
			break
		}
	}

	var a, b float64
	for i, w := range wps {
		if finite(w.ItemsA) && w.ItemsA > a {
			a = w.ItemsA
		}
		if finite(w.ItemsB) && w.ItemsB > b {
			b = w.ItemsB
		}
		it.floorA[i], it.floorB[i] = a, b
	}
	return it, nil
}

func (it *Itinerary) Table() route.Table     { return it.wps }
func (it *Itinerary) Thresholds() Thresholds { return it.th }
func (it *Itinerary) Len() int               { return len(it.wps) }

// LaunchIndex returns the launch waypoint index or -1.
func (it *Itinerary) LaunchIndex() int { return it.launch }

// CompletionIndex returns the journey-completion waypoint index or -1.
func (it *Itinerary) CompletionIndex() int { return it.completion }

func (it *Itinerary) Waypoint(i int) (route.Waypoint, bool) {
	if i < 0 || i >= len(it.wps) {
		return route.Waypoint{}, false
	}
	return it.wps[i], true
}

// LaunchStart is the launch waypoint's approach start, NaN if unknown.
func (it *Itinerary) LaunchStart() float64 {
	if it.launch < 0 {
		return math.NaN()
	}
	return it.wps[it.launch].ApproachStart
}

// CompletionTime is the arrival at the completion waypoint, NaN if unknown.
func (it *Itinerary) CompletionTime() float64 {
	if it.completion < 0 {
		return math.NaN()
	}
	w := it.wps[it.completion]
	return firstFinite(w.ArrivedAt, w.ApproachStart)
}

// inTransit reports whether waypoint i is on the delivery leg. A waypoint
// after the launch with an unknown ordinal stays on it.
func (it *Itinerary) inTransit(i int) bool {
	o := it.wps[i].Ordinal
	if finite(o) {
		return o >= float64(it.th.LaunchOrdinal)
	}
	return it.launch >= 0 && i > it.launch
}

func (it *Itinerary) isCheckpoint(i int) bool {
	o := it.wps[i].Ordinal
	return finite(o) && o < float64(it.th.LaunchOrdinal)
}

// A recorded launch window no longer than this many seconds has collapsed.
const collapsedLaunch = 0.5

// deliverEnd is the end of waypoint i's stop window. A launch whose
// recorded window collapses is stretched so Launch holds for the full
// MinLaunchWindow from its approach start, boundary tolerance included.
func (it *Itinerary) deliverEnd(i int) float64 {
	w := it.wps[i]
	end := firstFinite(w.DepartedAt, w.ArrivedAt, w.ApproachStart)
	if i == it.launch && finite(w.ApproachStart) {
		if !finite(end) || end <= w.ApproachStart+collapsedLaunch {
			end = w.ApproachStart + it.minLaunch + it.eps
		}
	}
	return end
}

// departure is the moment travel out of waypoint i starts.
func (it *Itinerary) departure(i int) float64 {
	if d := it.wps[i].DepartedAt; finite(d) {
		return d
	}
	return it.deliverEnd(i)
}

// Resolve maps now (epoch seconds) to exactly one phase. The first
// matching rule wins, so overlapping or out-of-order windows still give a
// single deterministic answer.
func (it *Itinerary) Resolve(now float64) Phase {
	n := len(it.wps)
	if n == 0 || math.IsNaN(now) {
		return pre()
	}
	eps := it.eps

	if ls := it.LaunchStart(); !finite(ls) || now < ls-eps {
		best := -1
		bestT := math.Inf(-1)
		for i, w := range it.wps {
			if !it.isCheckpoint(i) || !finite(w.ApproachStart) {
				continue
			}
			if w.ApproachStart <= now+eps && w.ApproachStart > bestT {
				best, bestT = i, w.ApproachStart
			}
		}
		if best >= 0 {
			return at(Checkpoint, best)
		}
		if first := it.wps[0].ApproachStart; finite(first) && now < first-eps {
			return pre()
		}
	}

	for i, w := range it.wps {
		if !it.inTransit(i) || !finite(w.ApproachStart) {
			continue
		}
		end := it.deliverEnd(i)
		if now >= w.ApproachStart-eps && now < end-eps {
			if i == it.launch {
				return at(Launch, i)
			}
			return at(Stop, i)
		}
		if i+1 < n {
			next := it.wps[i+1].ApproachStart
			if finite(next) && now >= end-eps && now < next-eps {
				return travel(i, i+1)
			}
		}
	}

	if c := it.CompletionTime(); finite(c) && now >= c {
		return complete()
	}
	return at(Stop, n-1)
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func firstFinite(xs ...float64) float64 {
	for _, x := range xs {
		if finite(x) {
			return x
		}
	}
	return math.NaN()
}
