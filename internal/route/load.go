package route

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrEmptyRoute        = errors.New("route has no waypoints")
	ErrUnsupportedFormat = errors.New("route format not recognized: expected a list or an object with a 'route' or 'stops' list")
)

// Field names of the published route dataset.
const (
	keyCity        = "City"
	keyRegion      = "Region"
	keyLat         = "Latitude"
	keyLon         = "Longitude"
	keyOrdinal     = "DR"
	keyApproach    = "Unix Arrival Arrival"
	keyArrived     = "Unix Arrival"
	keyDeparted    = "Unix Arrival Departure"
	keyItemsA      = "Eggs Delivered"
	keyItemsB      = "Carrots eaten"
	keyTimezone    = "Timezone"
	keyPopulation  = "Population Num"
	keyPopYear     = "Population Year"
	keyElevation   = "Elevation Meter"
	keyAttribution = "Wikipedia attr"
)

// LoadFile reads a JSON route file from disk.
func LoadFile(path string) (Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route file: %w", err)
	}
	return LoadJSON(bytes.NewReader(b))
}

// LoadJSON decodes a route dataset. Absent or non-numeric fields become
// unknown (NaN or empty) instead of failing the load.
func LoadJSON(r io.Reader) (Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode route: %w", err)
	}
	records, err := extractRecords(doc)
	if err != nil {
		return nil, err
	}
	wps := make([]Waypoint, 0, len(records))
	for _, rec := range records {
		m, ok := rec.(map[string]any)
		if !ok {
			continue
		}
		wps = append(wps, fromRecord(m))
	}
	if len(wps) == 0 {
		return nil, ErrEmptyRoute
	}
	return NewTable(wps), nil
}

func extractRecords(doc any) ([]any, error) {
	switch v := doc.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for _, k := range []string{"route", "stops"} {
			if list, ok := v[k].([]any); ok {
				return list, nil
			}
		}
	}
	return nil, ErrUnsupportedFormat
}

func fromRecord(m map[string]any) Waypoint {
	return Waypoint{
		City:           str(m[keyCity]),
		Region:         str(m[keyRegion]),
		Lat:            num(m[keyLat]),
		Lon:            num(m[keyLon]),
		Ordinal:        ParseOrdinal(m[keyOrdinal]),
		ApproachStart:  num(m[keyApproach]),
		ArrivedAt:      num(m[keyArrived]),
		DepartedAt:     num(m[keyDeparted]),
		ItemsA:         num(m[keyItemsA]),
		ItemsB:         num(m[keyItemsB]),
		Timezone:       str(m[keyTimezone]),
		Population:     num(m[keyPopulation]),
		PopulationYear: str(m[keyPopYear]),
		Elevation:      num(m[keyElevation]),
		AttributionURL: str(m[keyAttribution]),
	}
}

var ordinalDigits = regexp.MustCompile(`-?\d+`)

// ParseOrdinal reads an itinerary rank, salvaging the first integer from
// labels such as "76 (TAKEOFF)" or "DR 76". Unparseable input yields NaN.
func ParseOrdinal(v any) float64 {
	if n := num(v); !math.IsNaN(n) {
		return n
	}
	s, ok := v.(string)
	if !ok {
		return math.NaN()
	}
	m := ordinalDigits.FindString(s)
	if m == "" {
		return math.NaN()
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return math.NaN()
	}
	return n
}

func num(v any) float64 {
	var f float64
	var err error
	switch x := v.(type) {
	case json.Number:
		f, err = x.Float64()
	case float64:
		f = x
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		return math.NaN()
	}
	if err != nil || math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}

func str(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	}
	return ""
}
