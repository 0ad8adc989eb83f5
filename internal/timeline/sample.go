package timeline

import (
	"math"

	"waypoint-tracker/internal/geo"
)

// Sample is the read model for one instant. Unknown durations are NaN.
type Sample struct {
	Now   float64
	Phase Phase

	Position    geo.Coord
	HasPosition bool

	Metrics

	Heading    geo.Heading
	HasHeading bool

	// EtaSeconds counts down to the next arrival; before the launch it
	// counts down to the launch instead.
	EtaSeconds float64
	// StopRemainingSeconds is set while stopped at a transit waypoint.
	StopRemainingSeconds float64

	// Current is the waypoint the phase is about: the stop itself, or the
	// destination while travelling. -1 when there is none.
	Current int
	// Revealed is true once Current has reached the reveal ordinal.
	Revealed bool
	// BeforeLaunch is true while Current is still in the checkpoint regime.
	BeforeLaunch bool
	// Delivered counts the leading waypoints already departed.
	Delivered int
}

// Current returns the waypoint index a phase refers to.
func (it *Itinerary) Current(p Phase) int {
	switch p.Kind {
	case Pre:
		if len(it.wps) == 0 {
			return -1
		}
		return 0
	case Complete:
		return it.completion
	case Travel:
		return p.To
	}
	return p.Index
}

// Revealed reports whether destination names and delivery counts may be
// shown for phase p.
func (it *Itinerary) Revealed(p Phase) bool {
	if p.Kind == Pre {
		return false
	}
	if p.Kind == Complete {
		return true
	}
	w, ok := it.Waypoint(it.Current(p))
	return ok && finite(w.Ordinal) && w.Ordinal >= float64(it.th.RevealOrdinal)
}

// BeforeLaunch reports whether phase p still belongs to the checkpoint regime.
func (it *Itinerary) BeforeLaunch(p Phase) bool {
	if p.Kind == Pre {
		return true
	}
	if p.Kind == Complete {
		return false
	}
	w, ok := it.Waypoint(it.Current(p))
	return ok && finite(w.Ordinal) && w.Ordinal < float64(it.th.LaunchOrdinal)
}

// Sample resolves now and runs every interpolator over the result.
func (it *Itinerary) Sample(now float64) Sample {
	p := it.Resolve(now)
	s := Sample{
		Now:                  now,
		Phase:                p,
		Metrics:              it.Metrics(p, now),
		EtaSeconds:           math.NaN(),
		StopRemainingSeconds: math.NaN(),
		Current:              it.Current(p),
		Revealed:             it.Revealed(p),
		BeforeLaunch:         it.BeforeLaunch(p),
		Delivered:            it.wps.DeliveredThrough(now),
	}
	s.Position, s.HasPosition = it.Position(p, now)
	s.Heading, s.HasHeading = it.Direction(p)

	switch p.Kind {
	case Pre:
		if w, ok := it.Waypoint(0); ok {
			s.EtaSeconds = w.ApproachStart - now
		}
	case Travel:
		s.EtaSeconds = it.wps[p.To].ApproachStart - now
	case Launch:
		if w, ok := it.Waypoint(p.Index + 1); ok {
			s.EtaSeconds = w.ApproachStart - now
		}
	case Stop:
		if it.inTransit(p.Index) {
			s.StopRemainingSeconds = it.departure(p.Index) - now
		}
	}
	if p.Kind != Launch && p.Kind != Complete {
		if ls := it.LaunchStart(); finite(ls) && now < ls {
			s.EtaSeconds = ls - now
		}
	}
	if math.IsInf(s.EtaSeconds, 0) {
		s.EtaSeconds = math.NaN()
	}
	return s
}
