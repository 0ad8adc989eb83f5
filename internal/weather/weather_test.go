package weather

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"waypoint-tracker/internal/geo"
)

func TestReportText(t *testing.T) {
	cases := []struct {
		name string
		r    Report
		want string
	}{
		{"both", Report{TempC: 12.3, TempF: 54.1, Condition: "Clear"}, "12.3 °C / 54.1 °F, Clear"},
		{"derived", Report{TempC: 10, TempF: math.NaN(), Condition: "Rain"}, "10.0 °C / 50.0 °F, Rain"},
		{"no temp", Report{TempC: math.NaN(), TempF: math.NaN(), Condition: "Fog"}, "Fog"},
		{"no condition", Report{TempC: 0, TempF: 32}, "0.0 °C / 32.0 °F, Unknown conditions"},
	}
	for _, tc := range cases {
		if got := tc.r.Text(); got != tc.want {
			t.Errorf("%s: Text() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/current.json" || q.Get("key") != "k" || q.Get("q") != "48.85,2.35" || q.Get("aqi") != "no" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"location":{"tz_id":"Europe/Paris"},"current":{"temp_c":12.3,"condition":{"text":"Clear"}}}`))
	}))
	defer srv.Close()

	c := NewClient("k")
	c.BaseURL = srv.URL

	r, err := c.Current(context.Background(), geo.Coord{Lat: 48.85, Lon: 2.35}, "")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if r.Timezone != "Europe/Paris" {
		t.Errorf("Timezone = %q, want Europe/Paris", r.Timezone)
	}
	if got, want := r.Text(), "12.3 °C / 54.1 °F, Clear"; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}

	r, err = c.Current(context.Background(), geo.Coord{Lat: 48.85, Lon: 2.35}, " Europe/Berlin ")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if r.Timezone != "Europe/Berlin" {
		t.Errorf("Timezone = %q, want waypoint zone to win", r.Timezone)
	}
}

func TestCurrentErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient("k")
	c.BaseURL = srv.URL
	if _, err := c.Current(context.Background(), geo.Coord{Lat: 1, Lon: 1}, ""); err == nil {
		t.Fatal("expected error for HTTP 403")
	}
	if _, err := NewClient("").Current(context.Background(), geo.Coord{Lat: 1, Lon: 1}, ""); !errors.Is(err, ErrNoKey) {
		t.Fatalf("err = %v, want ErrNoKey", err)
	}
	if _, err := c.Current(context.Background(), geo.Coord{Lat: 1, Lon: math.NaN()}, ""); err == nil {
		t.Fatal("expected error for invalid coordinate")
	}
}

func TestCurrentFallsBackToConditionCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("q") {
		case "1,1":
			w.Write([]byte(`{"current":{"temp_c":-2,"condition":{"text":"","code":1117}}}`))
		default:
			w.Write([]byte(`{"current":{"temp_c":-2,"condition":{"code":9999}}}`))
		}
	}))
	defer srv.Close()

	c := NewClient("k")
	c.BaseURL = srv.URL
	r, err := c.Current(context.Background(), geo.Coord{Lat: 1, Lon: 1}, "")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got, want := r.Text(), "-2.0 °C / 28.4 °F, Blizzard"; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}

	r, err = c.Current(context.Background(), geo.Coord{Lat: 2, Lon: 2}, "")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got, want := r.Text(), "-2.0 °C / 28.4 °F, Unknown conditions"; got != want {
		t.Errorf("unknown code Text() = %q, want %q", got, want)
	}
}

func TestConditionText(t *testing.T) {
	cases := map[int]string{1000: "Clear", 1009: "Overcast", 1195: "Rain", 1282: "Thunderstorm with snow", 42: ""}
	for code, want := range cases {
		if got := ConditionText(code); got != want {
			t.Errorf("ConditionText(%d) = %q, want %q", code, got, want)
		}
	}
}
