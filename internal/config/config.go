package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"waypoint-tracker/internal/geo"
	"waypoint-tracker/internal/timeline"
)

// ErrNoRouteSource is returned when neither a route file nor a database is configured.
var ErrNoRouteSource = errors.New("ROUTE_FILE, DATABASE_URL or PGDATABASE must be set (set PGDATABASE=postgres when using ROUTE_NAME)")

type Config struct {
	RouteFile           string
	DatabaseURL         string
	RouteName           string
	RouteReloadInterval time.Duration

	NATSURL           string
	NATSSubjectPrefix string
	EntityID          string
	LogNATSSubjects   bool

	TickInterval time.Duration
	HTTPAddr     string
	MetricsAddr  string

	WeatherAPIKey  string
	IPInfoToken    string
	ViewerLocation *geo.Coord

	SettingsFile    string
	Thresholds      timeline.Thresholds
	LogPhaseChanges bool
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.RouteFile = strings.TrimSpace(os.Getenv("ROUTE_FILE"))
	cfg.RouteName = firstNonEmpty(os.Getenv("ROUTE_NAME"), os.Getenv("CITY"))

	// Database URL (cluster DSN): prefer DATABASE_URL / PG_DSN, else build from PG* vars
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" {
		db := os.Getenv("PGDATABASE")
		// With ROUTE_NAME the base DB defaults to 'postgres' for import resolution.
		if db == "" && cfg.RouteName != "" {
			db = "postgres"
		}
		if db != "" {
			host := getenvDefault("PGHOST", "127.0.0.1")
			port := getenvDefault("PGPORT", "5432")
			user := getenvDefault("PGUSER", "postgres")
			pass := os.Getenv("PGPASSWORD")
			sslmode := getenvDefault("PGSSLMODE", "disable")
			if pass != "" {
				dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
			} else {
				dsn = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
			}
		}
	}
	cfg.DatabaseURL = dsn
	if cfg.RouteFile == "" && cfg.DatabaseURL == "" {
		return nil, ErrNoRouteSource
	}

	reload, err := intEnv("ROUTE_RELOAD_INTERVAL_MIN", 30, 0)
	if err != nil {
		return nil, err
	}
	cfg.RouteReloadInterval = time.Duration(reload) * time.Minute

	// Empty NATS_URL disables publishing.
	cfg.NATSURL = strings.TrimSpace(os.Getenv("NATS_URL"))
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", "tracker.snapshots")
	cfg.EntityID = getenvDefault("ENTITY_ID", "main")
	cfg.LogNATSSubjects = boolEnv("LOG_NATS_SUBJECTS")

	tickMs, err := intEnv("TICK_INTERVAL_MS", 250, 1)
	if err != nil {
		return nil, err
	}
	cfg.TickInterval = time.Duration(tickMs) * time.Millisecond

	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", ":8080")
	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_KEY")
	cfg.IPInfoToken = os.Getenv("IPINFO_TOKEN")
	if lat, lon := os.Getenv("VIEWER_LAT"), os.Getenv("VIEWER_LON"); lat != "" || lon != "" {
		c, err := parseCoord(lat, lon)
		if err != nil {
			return nil, err
		}
		cfg.ViewerLocation = &c
	}

	cfg.SettingsFile = os.Getenv("SETTINGS_FILE")
	cfg.LogPhaseChanges = boolEnv("LOG_PHASE_CHANGES")

	th, err := loadThresholds()
	if err != nil {
		return nil, err
	}
	cfg.Thresholds = th

	return cfg, nil
}

func loadThresholds() (timeline.Thresholds, error) {
	th := timeline.DefaultThresholds()
	var err error
	if th.LaunchOrdinal, err = intEnv("LAUNCH_ORDINAL", th.LaunchOrdinal, 0); err != nil {
		return th, err
	}
	if th.RevealOrdinal, err = intEnv("REVEAL_ORDINAL", th.RevealOrdinal, 0); err != nil {
		return th, err
	}
	if th.CompletionOrdinal, err = intEnv("COMPLETION_ORDINAL", th.CompletionOrdinal, 0); err != nil {
		return th, err
	}
	if th.Epsilon, err = secondsEnv("BOUNDARY_EPSILON_SEC", th.Epsilon); err != nil {
		return th, err
	}
	if th.MinLaunchWindow, err = secondsEnv("MIN_LAUNCH_WINDOW_SEC", th.MinLaunchWindow); err != nil {
		return th, err
	}
	if err := th.Validate(); err != nil {
		return th, err
	}
	return th, nil
}

func parseCoord(lat, lon string) (geo.Coord, error) {
	la, err1 := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	lo, err2 := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	c := geo.Coord{Lat: la, Lon: lo}
	if err1 != nil || err2 != nil || !c.Valid() || la < -90 || la > 90 || lo < -180 || lo > 180 {
		return geo.Coord{}, fmt.Errorf("invalid VIEWER_LAT/VIEWER_LON: %q,%q", lat, lon)
	}
	return c, nil
}

func intEnv(k string, def, min int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return n, nil
}

func secondsEnv(k string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return time.Duration(f * float64(time.Second)), nil
}

func boolEnv(k string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
