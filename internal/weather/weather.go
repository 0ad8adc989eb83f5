package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"waypoint-tracker/internal/geo"
)

// ErrNoKey is returned when the client has no API key configured.
var ErrNoKey = errors.New("weatherapi key not configured")

// Report is the current weather at a waypoint.
type Report struct {
	TempC     float64 // NaN when unknown
	TempF     float64 // NaN when unknown
	Condition string
	Timezone  string
}

// Text renders the report as "12.3 °C / 54.1 °F, Clear". °F is derived
// from °C when the provider omits it.
func (r Report) Text() string {
	desc := r.Condition
	if desc == "" {
		desc = "Unknown conditions"
	}
	if !finite(r.TempC) {
		return desc
	}
	f := r.TempF
	if !finite(f) {
		f = r.TempC*9/5 + 32
	}
	return fmt.Sprintf("%.1f °C / %.1f °F, %s", r.TempC, f, desc)
}

// Client queries the WeatherAPI current conditions endpoint.
type Client struct {
	BaseURL string
	Key     string
	HTTP    *http.Client
}

func NewClient(key string) *Client {
	return &Client{
		BaseURL: "https://api.weatherapi.com/v1",
		Key:     key,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

type currentResponse struct {
	Location struct {
		TzID string `json:"tz_id"`
	} `json:"location"`
	Current struct {
		TempC     *float64 `json:"temp_c"`
		TempF     *float64 `json:"temp_f"`
		Condition struct {
			Text string `json:"text"`
			Code int    `json:"code"`
		} `json:"condition"`
	} `json:"current"`
}

// Current fetches the weather at c. timezone is the waypoint's own zone and
// takes precedence over the one reported by the provider.
func (c *Client) Current(ctx context.Context, at geo.Coord, timezone string) (Report, error) {
	timezone = strings.TrimSpace(timezone)
	if c.Key == "" {
		return Report{}, ErrNoKey
	}
	if !at.Valid() {
		return Report{}, fmt.Errorf("invalid coordinate %v,%v", at.Lat, at.Lon)
	}
	q := url.Values{}
	q.Set("key", c.Key)
	q.Set("q", fmt.Sprintf("%g,%g", at.Lat, at.Lon))
	q.Set("aqi", "no")
	u := strings.TrimRight(c.BaseURL, "/") + "/current.json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Report{}, err
	}
	req.Header.Set("Cache-Control", "no-store")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Report{}, fmt.Errorf("weather HTTP %d", resp.StatusCode)
	}

	var body currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Report{}, fmt.Errorf("decode weather response: %w", err)
	}
	r := Report{
		TempC:     math.NaN(),
		TempF:     math.NaN(),
		Condition: strings.TrimSpace(body.Current.Condition.Text),
		Timezone:  timezone,
	}
	if r.Condition == "" {
		r.Condition = ConditionText(body.Current.Condition.Code)
	}
	if body.Current.TempC != nil {
		r.TempC = *body.Current.TempC
	}
	if body.Current.TempF != nil {
		r.TempF = *body.Current.TempF
	}
	if r.Timezone == "" {
		r.Timezone = strings.TrimSpace(body.Location.TzID)
	}
	return r, nil
}

// ConditionText describes a WeatherAPI condition code. It backs responses
// that carry a code without text.
func ConditionText(code int) string {
	switch code {
	case 1000:
		return "Clear"
	case 1003:
		return "Partly cloudy"
	case 1006:
		return "Cloudy"
	case 1009:
		return "Overcast"
	case 1030:
		return "Mist"
	case 1135:
		return "Fog"
	case 1147:
		return "Freezing fog"
	case 1063, 1180, 1183, 1240:
		return "Light rain"
	case 1186, 1189, 1192, 1195, 1243, 1246:
		return "Rain"
	case 1150, 1153:
		return "Light drizzle"
	case 1072, 1168, 1171:
		return "Freezing drizzle"
	case 1198, 1201:
		return "Freezing rain"
	case 1069, 1204, 1207, 1249, 1252:
		return "Sleet"
	case 1066, 1210, 1213, 1216, 1219, 1255:
		return "Snow"
	case 1222, 1225, 1258:
		return "Heavy snow"
	case 1114:
		return "Blowing snow"
	case 1117:
		return "Blizzard"
	case 1237, 1261, 1264:
		return "Ice pellets"
	case 1087, 1273, 1276:
		return "Thunderstorm"
	case 1279, 1282:
		return "Thunderstorm with snow"
	}
	return ""
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
