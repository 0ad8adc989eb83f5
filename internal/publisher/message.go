package publisher

import (
	"math"
	"time"

	"waypoint-tracker/internal/geo"
	"waypoint-tracker/internal/hud"
	"waypoint-tracker/internal/timeline"
	"waypoint-tracker/internal/viewer"
)

// SnapshotMessage is the wire form of one tick. Unknown values are omitted.
type SnapshotMessage struct {
	Entity    string    `json:"entity"`
	Timestamp time.Time `json:"timestamp"`
	Now       float64   `json:"now"`

	Phase    PhaseMessage `json:"phase"`
	Position *geo.Coord   `json:"position,omitempty"`

	SpeedKmh *float64 `json:"speedKmh,omitempty"`
	SpeedMph *float64 `json:"speedMph,omitempty"`
	CounterA float64  `json:"counterA"`
	CounterB float64  `json:"counterB"`

	Direction *geo.Heading `json:"direction,omitempty"`

	EtaSeconds           *float64 `json:"etaSeconds,omitempty"`
	StopRemainingSeconds *float64 `json:"stopRemainingSeconds,omitempty"`

	Revealed       bool             `json:"revealed"`
	Current        *WaypointRef     `json:"current,omitempty"`
	DeliveredCount int              `json:"deliveredCount"`
	ViewerEta      ViewerEtaMessage `json:"viewerEta"`
	Weather        hud.Weather      `json:"weather"`
	HUD            hud.View         `json:"hud"`
}

type PhaseMessage struct {
	Kind  string `json:"kind"`
	Index *int   `json:"index,omitempty"`
	From  *int   `json:"from,omitempty"`
	To    *int   `json:"to,omitempty"`
}

type WaypointRef struct {
	Index   int      `json:"index"`
	City    string   `json:"city"`
	Region  string   `json:"region,omitempty"`
	Ordinal *float64 `json:"ordinal,omitempty"`
}

type ViewerEtaMessage struct {
	State   string   `json:"state"`
	Text    string   `json:"text"`
	Seconds *float64 `json:"seconds,omitempty"`
}

// Frame is everything a snapshot is built from.
type Frame struct {
	Entity    string
	Wall      time.Time
	Sample    timeline.Sample
	Itinerary *timeline.Itinerary
	// Position overrides Sample.Position, e.g. the last known one.
	Position  *geo.Coord
	ViewerETA viewer.ETA
	Weather   hud.Weather
	View      hud.View
}

func NewSnapshotMessage(f Frame) SnapshotMessage {
	s := f.Sample
	m := SnapshotMessage{
		Entity:               f.Entity,
		Timestamp:            f.Wall.UTC(),
		Now:                  s.Now,
		Phase:                phaseMessage(s.Phase),
		Position:             f.Position,
		SpeedKmh:             optional(s.SpeedKmh),
		SpeedMph:             optional(s.SpeedMph),
		CounterA:             s.CounterA,
		CounterB:             s.CounterB,
		EtaSeconds:           optional(s.EtaSeconds),
		StopRemainingSeconds: optional(s.StopRemainingSeconds),
		Revealed:             s.Revealed,
		DeliveredCount:       s.Delivered,
		ViewerEta: ViewerEtaMessage{
			State:   f.ViewerETA.State,
			Text:    f.ViewerETA.Text,
			Seconds: optional(f.ViewerETA.Seconds),
		},
		Weather: f.Weather,
		HUD:     f.View,
	}
	if m.Position == nil && s.HasPosition {
		pos := s.Position
		m.Position = &pos
	}
	if s.HasHeading {
		h := s.Heading
		m.Direction = &h
	}
	if f.Itinerary != nil {
		if w, ok := f.Itinerary.Waypoint(s.Current); ok {
			m.Current = &WaypointRef{Index: s.Current, City: w.City, Ordinal: optional(w.Ordinal)}
			if !s.BeforeLaunch {
				m.Current.Region = w.Region
			}
		}
	}
	return m
}

func phaseMessage(p timeline.Phase) PhaseMessage {
	m := PhaseMessage{Kind: p.Kind.String()}
	if p.Index >= 0 {
		m.Index = intPtr(p.Index)
	}
	if p.From >= 0 {
		m.From = intPtr(p.From)
	}
	if p.To >= 0 {
		m.To = intPtr(p.To)
	}
	return m
}

func intPtr(i int) *int { return &i }

func optional(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
