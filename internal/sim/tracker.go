package sim

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"waypoint-tracker/internal/cache"
	"waypoint-tracker/internal/geo"
	"waypoint-tracker/internal/hud"
	"waypoint-tracker/internal/publisher"
	"waypoint-tracker/internal/timeline"
	"waypoint-tracker/internal/viewer"
	"waypoint-tracker/internal/weather"
)

// ErrNoLocator is recorded as the viewer lookup error when no locator is
// configured.
var ErrNoLocator = errors.New("no viewer locator configured")

// Sink receives every snapshot the tracker produces.
type Sink interface {
	Publish(msg publisher.SnapshotMessage) error
}

// WeatherSource looks up current conditions at a waypoint.
type WeatherSource interface {
	Current(ctx context.Context, at geo.Coord, timezone string) (weather.Report, error)
}

type Metrics interface {
	ObserveTick(d time.Duration, current, delivered int)
	PhaseChanged(kind string)
	WeatherFetched(err error)
	ViewerLocated(err error)
	RouteLoaded(n int)
}

type Options struct {
	Entity    string
	Clock     Clock
	Scheduler Scheduler
	Weather   WeatherSource  // nil disables weather lookups
	Locator   viewer.Locator // nil leaves the viewer ETA unknown
	Settings  hud.Settings
	Sinks     []Sink
	Metrics   Metrics

	LogPhaseChanges bool
}

// Tracker resolves the itinerary on every tick and fans the resulting
// snapshot out to its sinks.
type Tracker struct {
	entity          string
	clock           Clock
	sched           Scheduler
	wx              WeatherSource
	locator         viewer.Locator
	sinks           []Sink
	metrics         Metrics
	logPhaseChanges bool

	ctx    context.Context
	cancel context.CancelFunc

	itin     atomic.Pointer[timeline.Itinerary]
	settings atomic.Pointer[hud.Settings]
	weather  *cache.Flight[weather.Report]

	viewerMu sync.Mutex
	lookup   viewer.Lookup

	mu        sync.Mutex
	last      *publisher.SnapshotMessage
	lastPos   *geo.Coord
	lastPhase timeline.Phase
	hasPhase  bool
}

func NewTracker(it *timeline.Itinerary, opts Options) *Tracker {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &Tracker{
		entity:          opts.Entity,
		clock:           opts.Clock,
		sched:           opts.Scheduler,
		wx:              opts.Weather,
		locator:         opts.Locator,
		sinks:           opts.Sinks,
		metrics:         opts.Metrics,
		logPhaseChanges: opts.LogPhaseChanges,
		ctx:             ctx,
		cancel:          cancel,
	}
	t.weather = cache.NewFlight[weather.Report](ctx, t.weatherDone)
	s := opts.Settings
	t.settings.Store(&s)
	t.SetItinerary(it)
	return t
}

// Close abandons background lookups.
func (t *Tracker) Close() { t.cancel() }

func (t *Tracker) Itinerary() *timeline.Itinerary { return t.itin.Load() }

// SetItinerary swaps in a freshly loaded itinerary. The next tick uses it.
func (t *Tracker) SetItinerary(it *timeline.Itinerary) {
	t.itin.Store(it)
	t.weather.Forget()
	if t.metrics != nil {
		t.metrics.RouteLoaded(it.Len())
	}
}

func (t *Tracker) Settings() hud.Settings { return *t.settings.Load() }

func (t *Tracker) SetSettings(s hud.Settings) { t.settings.Store(&s) }

// AddSink registers a sink before Run is called.
func (t *Tracker) AddSink(s Sink) { t.sinks = append(t.sinks, s) }

// LocateViewer resolves the viewer's location once. It blocks on the
// locator; callers run it on its own goroutine.
func (t *Tracker) LocateViewer(ctx context.Context) {
	var l viewer.Lookup
	if t.locator == nil {
		l = viewer.Lookup{Done: true, Err: ErrNoLocator}
	} else {
		c, err := t.locator.Locate(ctx)
		l = viewer.Lookup{Done: true, Coord: c, Err: err}
		if err != nil {
			log.Printf("viewer location lookup failed: %v", err)
		} else {
			log.Printf("viewer located at %.4f,%.4f", c.Lat, c.Lon)
		}
		if t.metrics != nil {
			t.metrics.ViewerLocated(err)
		}
	}
	t.viewerMu.Lock()
	t.lookup = l
	t.viewerMu.Unlock()
}

func (t *Tracker) viewerLookup() viewer.Lookup {
	t.viewerMu.Lock()
	defer t.viewerMu.Unlock()
	return t.lookup
}

// Latest returns the most recent snapshot.
func (t *Tracker) Latest() (publisher.SnapshotMessage, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return publisher.SnapshotMessage{}, false
	}
	return *t.last, true
}

// Run ticks once immediately, then on every scheduler tick until ctx is
// cancelled.
func (t *Tracker) Run(ctx context.Context) error {
	if t.sched == nil {
		return errors.New("tracker has no scheduler")
	}
	defer t.sched.Stop()
	t.Tick(t.clock.Now())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.sched.Ticks():
			t.Tick(t.clock.Now())
		}
	}
}

// Tick resolves the itinerary at now, publishes the snapshot to every sink
// and returns it.
func (t *Tracker) Tick(now time.Time) publisher.SnapshotMessage {
	tickStart := time.Now()
	it := t.itin.Load()
	nowSec := EpochSeconds(now)
	smp := it.Sample(nowSec)

	t.mu.Lock()
	if !t.hasPhase || smp.Phase != t.lastPhase {
		if t.logPhaseChanges {
			if t.hasPhase {
				log.Printf("phase %s -> %s at %s", t.lastPhase, smp.Phase, now.UTC().Format(time.RFC3339))
			} else {
				log.Printf("phase %s at %s", smp.Phase, now.UTC().Format(time.RFC3339))
			}
		}
		if t.metrics != nil {
			t.metrics.PhaseChanged(smp.Phase.Kind.String())
		}
		t.lastPhase, t.hasPhase = smp.Phase, true
	}
	if smp.HasPosition {
		pos := smp.Position
		t.lastPos = &pos
	}
	lastPos := t.lastPos
	t.mu.Unlock()

	wx := t.weatherFor(it, smp)
	eta := viewer.EstimateETA(nowSec, t.viewerLookup(), it.Table())
	view := hud.Present(hud.Input{
		Sample:    smp,
		Itinerary: it,
		ViewerETA: eta,
		Weather:   wx,
		Wall:      now,
	}, t.Settings())

	msg := publisher.NewSnapshotMessage(publisher.Frame{
		Entity:    t.entity,
		Wall:      now,
		Sample:    smp,
		Itinerary: it,
		Position:  lastPos,
		ViewerETA: eta,
		Weather:   wx,
		View:      view,
	})

	t.mu.Lock()
	t.last = &msg
	t.mu.Unlock()

	for _, s := range t.sinks {
		if err := s.Publish(msg); err != nil {
			log.Printf("publish error for %s: %v", t.entity, err)
		}
	}
	if t.metrics != nil {
		t.metrics.ObserveTick(time.Since(tickStart), smp.Current, smp.Delivered)
	}
	return msg
}

// weatherFor reports the weather at the waypoint the sample is about,
// starting a lookup when that waypoint changes.
func (t *Tracker) weatherFor(it *timeline.Itinerary, smp timeline.Sample) hud.Weather {
	w, ok := it.Waypoint(smp.Current)
	if !ok || smp.Phase.Kind == timeline.Complete {
		return hud.Weather{State: "unknown", Text: "Unknown"}
	}
	if t.wx == nil || !w.HasCoord() {
		return hud.Weather{State: "unknown", Text: "Unknown", Timezone: w.Timezone}
	}
	key := fmt.Sprintf("%d:%s", smp.Current, w.City)
	report, st, _ := t.weather.GetOrStart(key, func(ctx context.Context) (weather.Report, error) {
		return t.wx.Current(ctx, w.Coord(), w.Timezone)
	})
	switch st {
	case cache.Ready:
		return hud.Weather{State: st.String(), Text: report.Text(), Timezone: report.Timezone}
	case cache.Failed:
		return hud.Weather{State: st.String(), Text: "Unknown", Timezone: w.Timezone}
	}
	return hud.Weather{State: st.String(), Text: "Loading…", Timezone: w.Timezone}
}

func (t *Tracker) weatherDone(key string, err error) {
	if err != nil {
		log.Printf("weather lookup %s failed: %v", key, err)
	}
	if t.metrics != nil {
		t.metrics.WeatherFetched(err)
	}
}
