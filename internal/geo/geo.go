package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for surface distances.
const EarthRadiusKm = 6371.0

// KmToMiles converts kilometres (or km/h) to miles (or mph).
const KmToMiles = 0.621371

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both components are finite numbers.
func (c Coord) Valid() bool {
	return finite(c.Lat) && finite(c.Lon)
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func toRad(d float64) float64 { return d * math.Pi / 180 }
func toDeg(r float64) float64 { return r * 180 / math.Pi }

// HaversineKm returns the great-circle surface distance in kilometres.
func HaversineKm(a, b Coord) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// Bearing returns the initial great-circle bearing from a to b in [0, 360).
func Bearing(a, b Coord) float64 {
	dLon := toRad(b.Lon - a.Lon)
	y := math.Sin(dLon) * math.Cos(toRad(b.Lat))
	x := math.Cos(toRad(a.Lat))*math.Sin(toRad(b.Lat)) - math.Sin(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Cos(dLon)
	brng := math.Mod(toDeg(math.Atan2(y, x))+360, 360)
	if brng >= 360 {
		brng = 0
	}
	return brng
}

// WrapLon normalises a longitude or longitude delta to [-180, 180).
func WrapLon(deg float64) float64 {
	w := math.Mod(deg+180, 360)
	if w < 0 {
		w += 360
	}
	return w - 180
}

func Lerp(a, b, t float64) float64 { return a + (b-a)*t }

func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Interpolate moves fraction t from a to b. Longitude follows the shortest
// signed delta so paths across the antimeridian never go the long way round.
func Interpolate(a, b Coord, t float64) Coord {
	dLon := WrapLon(b.Lon - a.Lon)
	return Coord{
		Lat: Lerp(a.Lat, b.Lat, t),
		Lon: WrapLon(a.Lon + dLon*t),
	}
}

// Heading is a bearing bucketed into one of eight compass sectors.
type Heading struct {
	Bearing float64 `json:"bearing"`
	Label   string  `json:"label"`
	Glyph   string  `json:"glyph"`
}

var (
	compassLabels = [8]string{"North", "North-East", "East", "South-East", "South", "South-West", "West", "North-West"}
	compassGlyphs = [8]string{"↑", "↗", "→", "↘", "↓", "↙", "←", "↖"}
)

// Compass buckets a bearing in degrees into round(b/45) mod 8.
func Compass(bearing float64) Heading {
	sector := int(math.Round(bearing/45)) % 8
	if sector < 0 {
		sector += 8
	}
	return Heading{Bearing: bearing, Label: compassLabels[sector], Glyph: compassGlyphs[sector]}
}
