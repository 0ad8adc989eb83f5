package timeline

import (
	"math"

	"waypoint-tracker/internal/geo"
)

// Metrics are the interpolated counters and speed at an instant. Speed is
// NaN where it is undefined (checkpoints, launch, pre, complete).
type Metrics struct {
	CounterA float64
	CounterB float64
	SpeedKmh float64
	SpeedMph float64
}

func (it *Itinerary) coordAt(i int) (geo.Coord, bool) {
	w, ok := it.Waypoint(i)
	if !ok || !w.HasCoord() {
		return geo.Coord{}, false
	}
	return w.Coord(), true
}

// travelProgress is the fraction of the from->to hop covered at now.
func (it *Itinerary) travelProgress(from, to int, now float64) float64 {
	dep := it.departure(from)
	arr := it.wps[to].ApproachStart
	if !finite(dep) || !finite(arr) {
		return 0
	}
	return geo.Clamp01((now - dep) / math.Max(1, arr-dep))
}

// Position interpolates the entity's coordinate. It reports false when a
// required coordinate is unknown so callers can keep the previous one.
func (it *Itinerary) Position(p Phase, now float64) (geo.Coord, bool) {
	switch p.Kind {
	case Pre:
		return it.coordAt(0)
	case Complete:
		return it.coordAt(it.completion)
	case Checkpoint, Launch, Stop:
		return it.coordAt(p.Index)
	case Travel:
		a, okA := it.coordAt(p.From)
		b, okB := it.coordAt(p.To)
		if !okA || !okB {
			return geo.Coord{}, false
		}
		return geo.Interpolate(a, b, it.travelProgress(p.From, p.To, now)), true
	}
	return geo.Coord{}, false
}

// Metrics interpolates the cumulative counters and derives speed. Counters
// move between running floors and therefore never decrease within a phase.
func (it *Itinerary) Metrics(p Phase, now float64) Metrics {
	m := Metrics{SpeedKmh: math.NaN(), SpeedMph: math.NaN()}
	switch p.Kind {
	case Complete:
		if it.completion >= 0 {
			m.CounterA, m.CounterB = it.floorA[it.completion], it.floorB[it.completion]
		}
	case Stop:
		i := p.Index
		if i < 0 || i >= len(it.wps) {
			return m
		}
		w := it.wps[i]
		arr := firstFinite(w.ArrivedAt, w.ApproachStart)
		dep := it.departure(i)
		t := 0.0
		if finite(arr) && finite(dep) {
			t = geo.Clamp01((now - arr) / math.Max(1, dep-arr))
		}
		var fromA, fromB float64
		if i > 0 {
			fromA, fromB = it.floorA[i-1], it.floorB[i-1]
		}
		m.CounterA = geo.Lerp(fromA, it.floorA[i], t)
		m.CounterB = geo.Lerp(fromB, it.floorB[i], t)
		if i > 0 && it.inTransit(i) && it.inTransit(i-1) {
			it.setSpeed(&m, i-1, i)
		}
	case Travel:
		if p.From < 0 || p.To >= len(it.wps) || it.isCheckpoint(p.To) {
			return m
		}
		t := it.travelProgress(p.From, p.To, now)
		m.CounterA = geo.Lerp(it.floorA[p.From], it.floorA[p.To], t)
		m.CounterB = geo.Lerp(it.floorB[p.From], it.floorB[p.To], t)
		it.setSpeed(&m, p.From, p.To)
	}
	return m
}

// setSpeed fills speed from the hop's surface distance over its scheduled
// duration (at least one second).
func (it *Itinerary) setSpeed(m *Metrics, from, to int) {
	a, okA := it.coordAt(from)
	b, okB := it.coordAt(to)
	if !okA || !okB {
		return
	}
	secs := it.wps[to].ApproachStart - it.departure(from)
	if !finite(secs) {
		return
	}
	kmh := geo.HaversineKm(a, b) / math.Max(1, secs) * 3600
	m.SpeedKmh = kmh
	m.SpeedMph = kmh * geo.KmToMiles
}

// Direction is the compass heading of a Travel hop.
func (it *Itinerary) Direction(p Phase) (geo.Heading, bool) {
	if p.Kind != Travel {
		return geo.Heading{}, false
	}
	a, okA := it.coordAt(p.From)
	b, okB := it.coordAt(p.To)
	if !okA || !okB {
		return geo.Heading{}, false
	}
	return geo.Compass(geo.Bearing(a, b)), true
}
