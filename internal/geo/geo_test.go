package geo

import (
	"math"
	"testing"
)

func TestHaversineKm(t *testing.T) {
	// One degree of latitude is ~111.19 km on a 6371 km sphere.
	got := HaversineKm(Coord{Lat: 0, Lon: 0}, Coord{Lat: 1, Lon: 0})
	if math.Abs(got-111.195) > 0.01 {
		t.Fatalf("HaversineKm = %v, want ~111.195", got)
	}
	if d := HaversineKm(Coord{Lat: 10, Lon: 20}, Coord{Lat: 10, Lon: 20}); d != 0 {
		t.Fatalf("HaversineKm(same point) = %v, want 0", d)
	}
}

func TestBearingCardinals(t *testing.T) {
	cases := []struct {
		name string
		to   Coord
		want float64
	}{
		{"north", Coord{Lat: 1, Lon: 0}, 0},
		{"east", Coord{Lat: 0, Lon: 1}, 90},
		{"south", Coord{Lat: -1, Lon: 0}, 180},
		{"west", Coord{Lat: 0, Lon: -1}, 270},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Bearing(Coord{}, tc.to)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("Bearing = %v, want %v", got, tc.want)
			}
			if got < 0 || got >= 360 {
				t.Fatalf("Bearing %v outside [0,360)", got)
			}
		})
	}
}

func TestWrapLon(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		179:  179,
		180:  -180,
		-180: -180,
		190:  -170,
		-190: 170,
		-358: 2,
		540:  -180,
	}
	for in, want := range cases {
		if got := WrapLon(in); math.Abs(got-want) > 1e-9 {
			t.Errorf("WrapLon(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestInterpolateCrossesAntimeridian(t *testing.T) {
	a := Coord{Lat: 10, Lon: 179}
	b := Coord{Lat: 20, Lon: -179}
	for i := 0; i <= 100; i++ {
		p := Interpolate(a, b, float64(i)/100)
		if math.Abs(p.Lon) < 170 {
			t.Fatalf("t=%v: lon %v went the long way round", float64(i)/100, p.Lon)
		}
	}
	mid := Interpolate(a, b, 0.5)
	if math.Abs(math.Abs(mid.Lon)-180) > 1e-9 || math.Abs(mid.Lat-15) > 1e-9 {
		t.Fatalf("midpoint = %+v, want lat 15 lon ±180", mid)
	}
}

func TestInterpolateEndpoints(t *testing.T) {
	a := Coord{Lat: 51.5, Lon: -0.12}
	b := Coord{Lat: 48.85, Lon: 2.35}
	got := Interpolate(a, b, 0)
	if math.Abs(got.Lat-a.Lat) > 1e-9 || math.Abs(got.Lon-a.Lon) > 1e-9 {
		t.Fatalf("t=0 got %+v, want %+v", got, a)
	}
	got = Interpolate(a, b, 1)
	if math.Abs(got.Lat-b.Lat) > 1e-9 || math.Abs(got.Lon-b.Lon) > 1e-9 {
		t.Fatalf("t=1 got %+v, want %+v", got, b)
	}
}

func TestCompass(t *testing.T) {
	cases := []struct {
		bearing float64
		label   string
		glyph   string
	}{
		{0, "North", "↑"},
		{22, "North", "↑"},
		{23, "North-East", "↗"},
		{90, "East", "→"},
		{135, "South-East", "↘"},
		{180, "South", "↓"},
		{225, "South-West", "↙"},
		{270, "West", "←"},
		{315, "North-West", "↖"},
		{350, "North", "↑"},
	}
	for _, tc := range cases {
		h := Compass(tc.bearing)
		if h.Label != tc.label || h.Glyph != tc.glyph {
			t.Errorf("Compass(%v) = %s %s, want %s %s", tc.bearing, h.Label, h.Glyph, tc.label, tc.glyph)
		}
	}
}

func TestClamp01(t *testing.T) {
	if Clamp01(-1) != 0 || Clamp01(2) != 1 || Clamp01(0.25) != 0.25 {
		t.Fatal("Clamp01 did not clamp to [0,1]")
	}
}
