package hud

import (
	"fmt"
	"math"
	"time"

	"waypoint-tracker/internal/route"
	"waypoint-tracker/internal/timeline"
	"waypoint-tracker/internal/viewer"
)

const (
	notAvailable = "N/A"
	loading      = "Loading…"
	unknown      = "Unknown"
)

// Weather is the state of the lookup for the current waypoint.
type Weather struct {
	State    string `json:"state"`
	Text     string `json:"text"`
	Timezone string `json:"timezone,omitempty"`
}

// View is the text a heads-up display shows for one sample.
type View struct {
	Status     string `json:"status"`
	ShowStatus bool   `json:"showStatus"`
	Last       string `json:"last"`
	Next       string `json:"next"`

	EtaLabel string `json:"etaLabel"`
	Eta      string `json:"eta"`
	ShowEta  bool   `json:"showEta"`

	StopRemaining     string `json:"stopRemaining"`
	ShowStopRemaining bool   `json:"showStopRemaining"`

	Speed    string `json:"speed"`
	CounterA string `json:"counterA"`
	CounterB string `json:"counterB"`

	ViewerEta     string `json:"viewerEta"`
	ShowViewerEta bool   `json:"showViewerEta"`

	City *CityPanel `json:"city,omitempty"`
}

type CityPanel struct {
	Title      string `json:"title"`
	Population string `json:"population"`
	Elevation  string `json:"elevation"`
	Direction  string `json:"direction"`
	LocalTime  string `json:"localTime"`
	Weather    string `json:"weather"`
	Collapsed  bool   `json:"collapsed"`
}

// Input bundles everything Present reads.
type Input struct {
	Sample    timeline.Sample
	Itinerary *timeline.Itinerary
	ViewerETA viewer.ETA
	Weather   Weather
	Wall      time.Time
}

// CityLabel renders "City, Region".
func CityLabel(w route.Waypoint) string {
	city := w.City
	if city == "" {
		city = unknown
	}
	if w.Region != "" {
		return city + ", " + w.Region
	}
	return city
}

// CityOnly renders just the city name.
func CityOnly(w route.Waypoint) string {
	if w.City == "" {
		return unknown
	}
	return w.City
}

func orPreparing(city string) string {
	if city == "" {
		return "Preparing…"
	}
	return city
}

// Present turns a sample into display text.
func Present(in Input, s Settings) View {
	smp, it := in.Sample, in.Itinerary
	p := smp.Phase

	v := View{
		ShowStatus:        true,
		ShowEta:           true,
		Speed:             FormatSpeed(smp.SpeedKmh, smp.SpeedMph, s.SpeedUnit),
		CounterA:          FormatInt(smp.CounterA),
		CounterB:          FormatInt(smp.CounterB),
		Eta:               DurationWords(smp.EtaSeconds),
		StopRemaining:     DurationWords(smp.StopRemainingSeconds),
		ShowStopRemaining: smp.Revealed,
		ShowViewerEta:     smp.Revealed,
		EtaLabel:          "Arriving in:",
		Last:              notAvailable,
		Next:              Placeholder,
	}
	if smp.BeforeLaunch {
		v.EtaLabel = "Countdown to takeoff:"
	}
	v.ViewerEta = in.ViewerETA.Text
	if s.StreamerMode {
		v.ViewerEta = "HIDDEN | S.M. enabled"
	}

	label := func(i int) string {
		w, ok := it.Waypoint(i)
		if !ok {
			return Placeholder
		}
		if smp.Revealed {
			return CityLabel(w)
		}
		return CityOnly(w)
	}

	switch p.Kind {
	case timeline.Complete:
		v.ShowStatus, v.ShowEta = false, false
		v.ShowStopRemaining, v.ShowViewerEta = false, false
		v.Status, v.Eta = "", ""
		if w, ok := it.Waypoint(it.CompletionIndex()); ok {
			v.Last = CityLabel(w)
		}
		return v

	case timeline.Pre:
		v.Status = "Preparing for takeoff…"
		v.Next = label(0)

	case timeline.Launch:
		v.Status = "Takeoff clearance granted — lifting off!"
		v.Next = label(p.Index + 1)

	case timeline.Checkpoint:
		w, _ := it.Waypoint(p.Index)
		v.Status = orPreparing(w.City)
		v.Next = label(p.Index + 1)

	case timeline.Stop:
		w, _ := it.Waypoint(p.Index)
		v.Status = "Delivering in " + w.City
		v.Eta = "Currently delivering in " + w.City
		if smp.Revealed && p.Index > 0 {
			v.Last = label(p.Index - 1)
		} else if smp.Revealed {
			v.Last = Placeholder
		}
		v.Next = label(p.Index + 1)

	case timeline.Travel:
		to, _ := it.Waypoint(p.To)
		if smp.BeforeLaunch {
			v.Status = orPreparing(to.City)
		} else {
			v.Status = "Heading to: " + CityLabel(to)
		}
		if smp.Revealed {
			v.Last = label(p.From)
		}
		v.Next = label(p.To)
	}

	v.City = cityPanel(in, s)
	return v
}

func cityPanel(in Input, s Settings) *CityPanel {
	w, ok := in.Itinerary.Waypoint(in.Sample.Current)
	if !ok {
		return nil
	}
	c := &CityPanel{
		Title:      "Information about: " + orDefault(w.City, "Unknown city"),
		Population: unknown,
		Elevation:  unknown,
		Direction:  notAvailable,
		LocalTime:  loading,
		Weather:    loading,
		Collapsed:  s.PanelCollapsed,
	}
	if pop := w.Population; !math.IsNaN(pop) && pop > 0 {
		c.Population = FormatInt(pop)
		if w.PopulationYear != "" {
			c.Population = fmt.Sprintf("%s (as of %s)", c.Population, w.PopulationYear)
		}
	}
	if !math.IsNaN(w.Elevation) {
		c.Elevation = FormatInt(w.Elevation) + " meters"
	}
	if in.Sample.HasHeading {
		c.Direction = in.Sample.Heading.Glyph + " | " + in.Sample.Heading.Label
	}

	tz := in.Weather.Timezone
	if tz == "" {
		tz = w.Timezone
	}
	if tz != "" {
		c.LocalTime = LocalTime(in.Wall, tz)
	} else if in.Weather.State == "failed" {
		c.LocalTime = unknown
	}
	switch in.Weather.State {
	case "ready":
		c.Weather = orDefault(in.Weather.Text, unknown)
	case "failed", "unknown":
		c.Weather = unknown
	}
	return c
}

// LocalTime renders wall in the named zone as "3:04 PM", falling back to
// the process's local zone when tz cannot be loaded.
func LocalTime(wall time.Time, tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}
	return wall.In(loc).Format("3:04 PM")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
