package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"waypoint-tracker/internal/config"
	"waypoint-tracker/internal/db"
	"waypoint-tracker/internal/hud"
	"waypoint-tracker/internal/metrics"
	"waypoint-tracker/internal/publisher"
	"waypoint-tracker/internal/route"
	"waypoint-tracker/internal/server"
	"waypoint-tracker/internal/sim"
	"waypoint-tracker/internal/timeline"
	"waypoint-tracker/internal/viewer"
	"waypoint-tracker/internal/weather"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src := &routeSource{cfg: cfg}
	defer src.Close()
	table, err := src.Load(ctx)
	if err != nil {
		log.Fatalf("load route: %v", err)
	}
	itin, err := timeline.NewItinerary(table, cfg.Thresholds)
	if err != nil {
		log.Fatalf("build itinerary: %v", err)
	}
	log.Printf("loaded %d waypoints from %s", itin.Len(), src.Describe())

	settings, err := hud.LoadSettings(cfg.SettingsFile)
	if err != nil {
		log.Fatalf("settings error: %v", err)
	}

	// Metrics setup; the interfaces stay nil when metrics are disabled
	var (
		mcol       *metrics.Collector
		trackerM   sim.Metrics
		publisherM publisher.PublisherMetrics
		serverM    server.Metrics
	)
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.TickInterval, cfg.RouteReloadInterval)
		trackerM, publisherM, serverM = mcol, mcol, mcol
		msrv := mcol.Serve(cfg.MetricsAddr)
		defer shutdown(msrv.Shutdown)
	}

	opts := sim.Options{
		Entity:          cfg.EntityID,
		Scheduler:       sim.NewTickerScheduler(cfg.TickInterval),
		Settings:        settings,
		Metrics:         trackerM,
		LogPhaseChanges: cfg.LogPhaseChanges,
	}
	if cfg.WeatherAPIKey != "" {
		opts.Weather = weather.NewClient(cfg.WeatherAPIKey)
	} else {
		log.Printf("WEATHERAPI_KEY not set; weather disabled")
	}
	if cfg.ViewerLocation != nil {
		opts.Locator = viewer.Static(*cfg.ViewerLocation)
	} else {
		opts.Locator = viewer.NewIPInfo(cfg.IPInfoToken)
	}
	tr := sim.NewTracker(itin, opts)
	defer tr.Close()

	// Optional NATS fan-out
	if cfg.NATSURL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, publisherM)
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		defer pub.Close()
		tr.AddSink(pub)
		log.Printf("publishing snapshots to %s", publisher.Subject(cfg.NATSSubjectPrefix, cfg.EntityID))
	}

	srv := server.New(tr, tr, cfg.SettingsFile, serverM)
	tr.AddSink(srv)
	httpSrv := srv.Serve(cfg.HTTPAddr)
	defer srv.Close()
	defer shutdown(httpSrv.Shutdown)

	go tr.LocateViewer(ctx)

	var done chan struct{}
	if cfg.RouteReloadInterval > 0 {
		done = make(chan struct{})
		go func() {
			defer close(done)
			watchRoute(ctx, src, tr, cfg, mcol)
		}()
	}

	// Block until context cancelled
	if err := tr.Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("tracker stopped: %v", err)
	}
	if done != nil {
		<-done
	}
	log.Println("shutdown complete")
}

// watchRoute reloads the route every RouteReloadInterval and swaps it into
// the tracker when it changes.
func watchRoute(ctx context.Context, src *routeSource, tr *sim.Tracker, cfg *config.Config, mcol *metrics.Collector) {
	ticker := time.NewTicker(cfg.RouteReloadInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		table, reason, err := src.Reload(ctx)
		if err != nil {
			log.Printf("route reload error: %v", err)
			continue
		}
		if table == nil {
			continue
		}
		it, err := timeline.NewItinerary(table, cfg.Thresholds)
		if err != nil {
			log.Printf("rebuild itinerary: %v", err)
			continue
		}
		tr.SetItinerary(it)
		if mcol != nil {
			mcol.RouteReloaded(reason)
		}
		log.Printf("route reloaded (%s): %d waypoints from %s", reason, it.Len(), src.Describe())
	}
}

// routeSource loads waypoints from ROUTE_FILE or from the route database,
// resolving the latest import when ROUTE_NAME is set.
type routeSource struct {
	cfg    *config.Config
	sqlDB  *sql.DB
	dbName string
}

func (s *routeSource) Describe() string {
	if s.cfg.RouteFile != "" {
		return s.cfg.RouteFile
	}
	if s.dbName != "" {
		return fmt.Sprintf("database %q", s.dbName)
	}
	return db.Redact(s.cfg.DatabaseURL)
}

func (s *routeSource) Close() {
	if s.sqlDB != nil {
		s.sqlDB.Close()
	}
}

func (s *routeSource) Load(ctx context.Context) (route.Table, error) {
	if s.cfg.RouteFile != "" {
		return route.LoadFile(s.cfg.RouteFile)
	}
	name, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	conn, err := s.connect(ctx, name)
	if err != nil {
		return nil, err
	}
	s.sqlDB, s.dbName = conn, name
	if name != "" {
		log.Printf("Using database %q for route %q", name, s.cfg.RouteName)
	}
	return db.FetchWaypoints(ctx, s.sqlDB)
}

// Reload returns a fresh table and the reason it was reloaded, or a nil
// table when nothing changed. Route files are always re-read.
func (s *routeSource) Reload(ctx context.Context) (route.Table, string, error) {
	if s.cfg.RouteFile != "" {
		t, err := route.LoadFile(s.cfg.RouteFile)
		return t, "update", err
	}

	// 1) Ping current DB; if it fails, force re-resolve
	reason := ""
	if err := db.Ping(ctx, s.sqlDB); err != nil {
		log.Printf("db ping failed: %v, re-resolving route DB", err)
		reason = "ping_failure"
	}

	// 2) Always re-resolve latest import, compare db_name
	name, err := s.resolve(ctx)
	if err != nil {
		return nil, "", err
	}
	if name != s.dbName {
		log.Printf("Detected updated DB for route %q: %q -> %q", s.cfg.RouteName, s.dbName, name)
		reason = "update"
	}
	if reason == "" {
		return nil, "", nil
	}

	conn, err := s.connect(ctx, name)
	if err != nil {
		return nil, "", err
	}
	table, err := db.FetchWaypoints(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, "", err
	}
	if s.sqlDB != nil {
		s.sqlDB.Close()
	}
	s.sqlDB, s.dbName = conn, name
	return table, reason, nil
}

// resolve returns the latest import's database name, or "" when ROUTE_NAME
// is unset and DatabaseURL is used as is.
func (s *routeSource) resolve(ctx context.Context) (string, error) {
	if s.cfg.RouteName == "" {
		return "", nil
	}
	// Use a short-lived meta connection
	metaDSN, err := db.MetaDSN(s.cfg.DatabaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base DSN: %w", err)
	}
	meta, err := db.Open(metaDSN)
	if err != nil {
		return "", fmt.Errorf("db open (meta): %w", err)
	}
	defer meta.Close()
	if err := db.Ping(ctx, meta); err != nil {
		return "", fmt.Errorf("db ping (meta): %w", err)
	}
	imp, err := db.LatestRouteImport(ctx, meta, s.cfg.RouteName)
	if err != nil {
		return "", err
	}
	if imp.DBName != s.dbName {
		log.Printf("latest import for route %q: %q (imported %s)", s.cfg.RouteName, imp.DBName, imp.ImportedAt.Format(time.RFC3339))
	}
	return imp.DBName, nil
}

func (s *routeSource) connect(ctx context.Context, name string) (*sql.DB, error) {
	dsn := s.cfg.DatabaseURL
	if name != "" {
		var err error
		if dsn, err = db.WithDBName(dsn, name); err != nil {
			return nil, fmt.Errorf("compose DSN: %w", err)
		}
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.Ping(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return conn, nil
}

func shutdown(fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = fn(ctx)
}
