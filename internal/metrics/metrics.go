package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	Ticks        prometheus.Counter
	TickDuration prometheus.Histogram

	Phase           *prometheus.GaugeVec   // kind label, 1 for the active phase
	PhaseChanges    *prometheus.CounterVec // kind label
	CurrentWaypoint prometheus.Gauge
	Delivered       prometheus.Gauge
	RouteWaypoints  prometheus.Gauge

	WeatherFetches *prometheus.CounterVec // result label: ok|error
	ViewerLookups  *prometheus.CounterVec // result label: ok|error

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	RouteReloads *prometheus.CounterVec // reason label: update|ping_failure

	WSClients    prometheus.Gauge
	WSBroadcasts prometheus.Counter

	TickInterval   prometheus.Gauge // seconds
	ReloadInterval prometheus.Gauge // seconds
}

// phaseKinds lists the label values of Phase so a change can zero the rest.
var phaseKinds = []string{"pre", "checkpoint", "launch", "stop", "travel", "complete"}

func NewCollector(tickInterval, reloadInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_ticks_total",
			Help: "Total timeline resolutions.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_tick_duration_seconds",
			Help:    "Duration of a tick: resolve, interpolate, present and fan out.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 15),
		}),
		Phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tracker_phase",
			Help: "1 for the currently active phase kind, 0 otherwise.",
		}, []string{"kind"}),
		PhaseChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_phase_changes_total",
			Help: "Phase transitions by the kind entered.",
		}, []string{"kind"}),
		CurrentWaypoint: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_current_waypoint",
			Help: "Index of the waypoint the current phase refers to, -1 if none.",
		}),
		Delivered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_delivered_waypoints",
			Help: "Waypoints whose departure has passed.",
		}),
		RouteWaypoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_route_waypoints",
			Help: "Waypoints in the loaded itinerary.",
		}),
		WeatherFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_weather_fetches_total",
			Help: "Completed weather lookups by result.",
		}, []string{"result"}),
		ViewerLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_viewer_lookups_total",
			Help: "Completed viewer location lookups by result.",
		}, []string{"result"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		RouteReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_route_reloads_total",
			Help: "Number of itinerary reloads.",
		}, []string{"reason"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_ws_clients",
			Help: "Connected WebSocket clients.",
		}),
		WSBroadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_ws_broadcasts_total",
			Help: "Snapshots broadcast to WebSocket clients.",
		}),
		TickInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_tick_interval_seconds",
			Help: "Tick interval in seconds.",
		}),
		ReloadInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_reload_interval_seconds",
			Help: "Route reload check interval in seconds.",
		}),
	}

	reg.MustRegister(
		c.Ticks, c.TickDuration,
		c.Phase, c.PhaseChanges, c.CurrentWaypoint, c.Delivered, c.RouteWaypoints,
		c.WeatherFetches, c.ViewerLookups,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.RouteReloads, c.WSClients, c.WSBroadcasts,
		c.TickInterval, c.ReloadInterval,
	)

	c.TickInterval.Set(tickInterval.Seconds())
	c.ReloadInterval.Set(reloadInterval.Seconds())
	c.CurrentWaypoint.Set(-1)

	return c
}

// ObserveTick records one tick and the state it produced.
func (c *Collector) ObserveTick(d time.Duration, current, delivered int) {
	c.Ticks.Inc()
	c.TickDuration.Observe(d.Seconds())
	c.CurrentWaypoint.Set(float64(current))
	c.Delivered.Set(float64(delivered))
}

// PhaseChanged moves the phase gauge to kind.
func (c *Collector) PhaseChanged(kind string) {
	for _, k := range phaseKinds {
		c.Phase.WithLabelValues(k).Set(0)
	}
	c.Phase.WithLabelValues(kind).Set(1)
	c.PhaseChanges.WithLabelValues(kind).Inc()
}

func (c *Collector) WeatherFetched(err error)       { c.WeatherFetches.WithLabelValues(result(err)).Inc() }
func (c *Collector) ViewerLocated(err error)        { c.ViewerLookups.WithLabelValues(result(err)).Inc() }
func (c *Collector) RouteLoaded(n int)              { c.RouteWaypoints.Set(float64(n)) }
func (c *Collector) RouteReloaded(reason string)    { c.RouteReloads.WithLabelValues(reason).Inc() }
func (c *Collector) WSClientsSet(n int)             { c.WSClients.Set(float64(n)) }
func (c *Collector) WSBroadcastInc()                { c.WSBroadcasts.Inc() }
func (c *Collector) NATSPublishedInc()              { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc()             { c.NATSPublishErrs.Inc() }
func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }

func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
