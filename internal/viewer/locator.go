package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"waypoint-tracker/internal/geo"
)

// Locator resolves the approximate location of the viewer.
type Locator interface {
	Locate(ctx context.Context) (geo.Coord, error)
}

// Static is a fixed viewer location, e.g. from configuration.
type Static geo.Coord

func (s Static) Locate(context.Context) (geo.Coord, error) { return geo.Coord(s), nil }

// IPInfo looks the viewer up by IP address through ipinfo.io.
type IPInfo struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewIPInfo(token string) *IPInfo {
	return &IPInfo{
		BaseURL: "https://ipinfo.io",
		Token:   token,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type ipinfoResponse struct {
	Loc string `json:"loc"`
}

func (l *IPInfo) Locate(ctx context.Context) (geo.Coord, error) {
	u := strings.TrimRight(l.BaseURL, "/") + "/json"
	if l.Token != "" {
		u += "?token=" + url.QueryEscape(l.Token)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return geo.Coord{}, err
	}
	req.Header.Set("Cache-Control", "no-store")
	resp, err := l.Client.Do(req)
	if err != nil {
		return geo.Coord{}, fmt.Errorf("ipinfo request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return geo.Coord{}, fmt.Errorf("ipinfo returned %d", resp.StatusCode)
	}
	var body ipinfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return geo.Coord{}, fmt.Errorf("decode ipinfo response: %w", err)
	}
	if body.Loc == "" {
		return geo.Coord{}, fmt.Errorf("ipinfo response missing 'loc'")
	}
	return ParseCoord(body.Loc)
}

// ParseCoord parses "lat,lon".
func ParseCoord(s string) (geo.Coord, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geo.Coord{}, fmt.Errorf("invalid coordinate: %q", s)
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	c := geo.Coord{Lat: lat, Lon: lon}
	if err1 != nil || err2 != nil || !c.Valid() {
		return geo.Coord{}, fmt.Errorf("invalid lat/lon: %q", s)
	}
	return c, nil
}
