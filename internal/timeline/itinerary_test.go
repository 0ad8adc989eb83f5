package timeline

import (
	"math"
	"testing"
	"time"

	"waypoint-tracker/internal/route"
)

var nan = math.NaN()

// scenarioTable is the three-waypoint launch scenario: one checkpoint, an
// instantaneous launch, and the first delivery stop.
func scenarioTable() route.Table {
	return route.NewTable([]route.Waypoint{
		{City: "Workshop", Lat: 90, Lon: 0, Ordinal: 75, ApproachStart: 1000, ArrivedAt: nan, DepartedAt: nan, ItemsA: nan, ItemsB: nan},
		{City: "Launch", Lat: 89, Lon: 10, Ordinal: 76, ApproachStart: 2000, ArrivedAt: 2000, DepartedAt: 2000},
		{City: "First", Lat: 80, Lon: 20, Ordinal: 77, ApproachStart: 2100, ArrivedAt: 2105, DepartedAt: 2200, ItemsA: 1000, ItemsB: 10},
	})
}

func newTestItinerary(t *testing.T, tbl route.Table) *Itinerary {
	t.Helper()
	it, err := NewItinerary(tbl, DefaultThresholds())
	if err != nil {
		t.Fatalf("NewItinerary: %v", err)
	}
	return it
}

func TestResolveScenario(t *testing.T) {
	it := newTestItinerary(t, scenarioTable())
	cases := []struct {
		now  float64
		want string
	}{
		{0, "pre"},
		{999, "pre"},
		{999.6, "checkpoint(0)"}, // within epsilon of the approach
		{1500, "checkpoint(0)"},
		{1999.4, "checkpoint(0)"},
		{1999.5, "launch(1)"},
		{2003, "launch(1)"},
		{2050, "travel(1,2)"},
		{2099.4, "travel(1,2)"},
		{2102, "stop(2)"},
		{2150, "stop(2)"},
		{2199.4, "stop(2)"},
		{2300, "complete"},
	}
	for _, tc := range cases {
		if got := it.Resolve(tc.now).String(); got != tc.want {
			t.Errorf("Resolve(%v) = %s, want %s", tc.now, got, tc.want)
		}
	}
}

func TestResolveDegenerateLaunchWindow(t *testing.T) {
	it := newTestItinerary(t, scenarioTable())
	for now := 2000.0; now < 2008; now += 0.1 {
		p := it.Resolve(now)
		if p.Kind != Launch || p.Index != 1 {
			t.Fatalf("Resolve(%v) = %s, want launch(1)", now, p)
		}
	}
	if p := it.Resolve(2008); p.Kind != Travel {
		t.Fatalf("Resolve(2008) = %s, want travel after the synthesized window", p)
	}
}

func TestResolveRecordedLaunchWindowIsKept(t *testing.T) {
	tbl := scenarioTable()
	tbl[1].DepartedAt = 2060
	it := newTestItinerary(t, tbl)
	if p := it.Resolve(2050); p.Kind != Launch {
		t.Fatalf("Resolve(2050) = %s, want launch(1)", p)
	}
	if p := it.Resolve(2070); p.Kind != Travel {
		t.Fatalf("Resolve(2070) = %s, want travel(1,2)", p)
	}
}

func TestResolveTotality(t *testing.T) {
	tables := map[string]route.Table{
		"scenario": scenarioTable(),
		"empty":    nil,
		"single":   route.NewTable([]route.Waypoint{{Ordinal: 80, ApproachStart: 50, ArrivedAt: nan, DepartedAt: nan}}),
		"no-ordinals": route.NewTable([]route.Waypoint{
			{Ordinal: nan, ApproachStart: 10, ArrivedAt: nan, DepartedAt: 20},
			{Ordinal: nan, ApproachStart: nan, ArrivedAt: nan, DepartedAt: nan},
		}),
		"overlapping": route.NewTable([]route.Waypoint{
			{Ordinal: 76, ApproachStart: 100, ArrivedAt: 100, DepartedAt: 500},
			{Ordinal: 77, ApproachStart: 200, ArrivedAt: 200, DepartedAt: 300},
			{Ordinal: 78, ApproachStart: 250, ArrivedAt: nan, DepartedAt: 150},
		}),
	}
	for name, tbl := range tables {
		t.Run(name, func(t *testing.T) {
			it := newTestItinerary(t, tbl)
			samples := []float64{math.Inf(-1), math.Inf(1), nan}
			for now := -1e6; now <= 1e6; now += 997.3 {
				samples = append(samples, now)
			}
			for now := -50.0; now <= 3000; now += 0.25 {
				samples = append(samples, now)
			}
			for _, now := range samples {
				p := it.Resolve(now)
				if p.Kind < Pre || p.Kind > Complete {
					t.Fatalf("Resolve(%v) returned unknown kind %d", now, p.Kind)
				}
				switch p.Kind {
				case Checkpoint, Launch, Stop:
					if p.Index < 0 || p.Index >= len(tbl) {
						t.Fatalf("Resolve(%v) = %s: index out of range", now, p)
					}
				case Travel:
					if p.From < 0 || p.To != p.From+1 || p.To >= len(tbl) {
						t.Fatalf("Resolve(%v) = %s: travel indices out of range", now, p)
					}
				}
				// every interpolator must accept whatever the resolver returns
				_ = it.Sample(now)
			}
		})
	}
}

func TestResolveFallbackOnScheduleGap(t *testing.T) {
	tbl := route.NewTable([]route.Waypoint{
		{Ordinal: 76, ApproachStart: 100, ArrivedAt: 100, DepartedAt: 200},
		{Ordinal: 77, ApproachStart: nan, ArrivedAt: nan, DepartedAt: nan},
	})
	it := newTestItinerary(t, tbl)
	if p := it.Resolve(300); p.Kind != Stop || p.Index != 1 {
		t.Fatalf("Resolve(300) = %s, want stop(1)", p)
	}
}

func TestResolveCompletionOrdinal(t *testing.T) {
	tbl := route.NewTable([]route.Waypoint{
		{Ordinal: 76, ApproachStart: 100, ArrivedAt: 100, DepartedAt: 200},
		{Ordinal: 1048, ApproachStart: 300, ArrivedAt: 310, DepartedAt: 400},
		{Ordinal: 1049, ApproachStart: 500, ArrivedAt: 500, DepartedAt: 600},
	})
	it := newTestItinerary(t, tbl)
	if it.CompletionIndex() != 1 {
		t.Fatalf("CompletionIndex = %d, want 1", it.CompletionIndex())
	}
	// the stop window at the completion waypoint still wins: first match
	if p := it.Resolve(350); p.Kind != Stop || p.Index != 1 {
		t.Fatalf("Resolve(350) = %s, want stop(1)", p)
	}
	// travel 1->2 still matches before the completion rule is consulted
	if p := it.Resolve(450); p.Kind != Travel {
		t.Fatalf("Resolve(450) = %s, want travel(1,2)", p)
	}
	if p := it.Resolve(700); p.Kind != Complete {
		t.Fatalf("Resolve(700) = %s, want complete", p)
	}
}

func TestResolveCustomThresholds(t *testing.T) {
	tbl := route.NewTable([]route.Waypoint{
		{Ordinal: 1, ApproachStart: 10, ArrivedAt: nan, DepartedAt: nan},
		{Ordinal: 2, ApproachStart: 20, ArrivedAt: 20, DepartedAt: 25},
		{Ordinal: 3, ApproachStart: 40, ArrivedAt: 40, DepartedAt: 50},
	})
	th := Thresholds{LaunchOrdinal: 2, RevealOrdinal: 3, CompletionOrdinal: 3, Epsilon: 0, MinLaunchWindow: time.Second}
	it, err := NewItinerary(tbl, th)
	if err != nil {
		t.Fatalf("NewItinerary: %v", err)
	}
	cases := map[float64]string{
		5:  "pre",
		15: "checkpoint(0)",
		20: "launch(1)",
		24: "launch(1)",
		25: "travel(1,2)",
		45: "stop(2)",
		50: "complete",
	}
	for now, want := range cases {
		if got := it.Resolve(now).String(); got != want {
			t.Errorf("Resolve(%v) = %s, want %s", now, got, want)
		}
	}
}

func TestResolveIgnoresWaypointsWithoutApproach(t *testing.T) {
	tbl := route.NewTable([]route.Waypoint{
		{Ordinal: 76, ApproachStart: 100, ArrivedAt: 100, DepartedAt: 200},
		{Ordinal: 77, ApproachStart: 300, ArrivedAt: nan, DepartedAt: nan},
	})
	it := newTestItinerary(t, tbl)
	// arrived/departed absent: zero-length stop window at 300
	if p := it.Resolve(250); p.Kind != Travel {
		t.Fatalf("Resolve(250) = %s, want travel(0,1)", p)
	}
	if p := it.Resolve(301); p.Kind != Complete {
		t.Fatalf("Resolve(301) = %s, want complete", p)
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("default thresholds invalid: %v", err)
	}
	bad := DefaultThresholds()
	bad.RevealOrdinal = bad.LaunchOrdinal - 1
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error when reveal ordinal precedes launch")
	}
	bad = DefaultThresholds()
	bad.MinLaunchWindow = 0
	if _, err := NewItinerary(nil, bad); err == nil {
		t.Fatal("expected error for zero launch window")
	}
	bad = DefaultThresholds()
	bad.Epsilon = -time.Second
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for negative epsilon")
	}
}

func TestPhaseString(t *testing.T) {
	if s := travel(3, 4).String(); s != "travel(3,4)" {
		t.Fatalf("String = %q", s)
	}
	if s := Kind(42).String(); s != "kind(42)" {
		t.Fatalf("String = %q", s)
	}
}

// unrankedTable has a delivery stop with no usable ordinal in the middle
// of the leg.
func unrankedTable() route.Table {
	return route.NewTable([]route.Waypoint{
		{City: "Launch", Lat: 0, Lon: 0, Ordinal: 76, ApproachStart: 2000, ArrivedAt: 2000, DepartedAt: 2000, ItemsA: nan, ItemsB: nan},
		{City: "A", Lat: 0, Lon: 1, Ordinal: 77, ApproachStart: 2100, ArrivedAt: 2100, DepartedAt: 2200, ItemsA: 1000, ItemsB: 10},
		{City: "X", Lat: 0, Lon: 2, Ordinal: nan, ApproachStart: 2300, ArrivedAt: 2300, DepartedAt: 2400, ItemsA: 2000, ItemsB: 20},
		{City: "B", Lat: 0, Lon: 3, Ordinal: 79, ApproachStart: 2500, ArrivedAt: 2500, DepartedAt: 2600, ItemsA: 3000, ItemsB: 30},
		{City: "Z", Lat: 0, Lon: 50, Ordinal: 80, ApproachStart: 2700, ArrivedAt: 2700, DepartedAt: 2800, ItemsA: 3000, ItemsB: 30},
	})
}

func TestResolveUnrankedWaypointAfterLaunch(t *testing.T) {
	it := newTestItinerary(t, unrankedTable())
	cases := map[float64]string{
		2199: "stop(1)",
		2201: "travel(1,2)",
		2350: "stop(2)",
		2450: "travel(2,3)",
		2550: "stop(3)",
	}
	for now, want := range cases {
		if got := it.Resolve(now).String(); got != want {
			t.Errorf("Resolve(%v) = %s, want %s", now, got, want)
		}
	}
}

func TestResolveStretchesCollapsedLaunchWithoutEpsilon(t *testing.T) {
	tbl := scenarioTable()
	tbl[1].DepartedAt = 2000.3
	th := DefaultThresholds()
	th.Epsilon = 0
	it, err := NewItinerary(tbl, th)
	if err != nil {
		t.Fatalf("NewItinerary: %v", err)
	}
	for _, now := range []float64{2000, 2000.3, 2005, 2007.9} {
		if p := it.Resolve(now); p.Kind != Launch {
			t.Fatalf("Resolve(%v) = %s, want launch(1)", now, p)
		}
	}
	if p := it.Resolve(2008); p.Kind != Travel {
		t.Fatalf("Resolve(2008) = %s, want travel(1,2)", p)
	}
}
