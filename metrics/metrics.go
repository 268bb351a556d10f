package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	Polls        *prometheus.CounterVec // result label: ok|error
	PollsSkipped prometheus.Counter
	PollDuration prometheus.Histogram
	TickDuration prometheus.Histogram

	Trips *prometheus.CounterVec // outcome label: created|updated

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	Stations      prometheus.Gauge
	PollInterval  prometheus.Gauge // seconds
	PreviewWindow prometheus.Gauge // seconds
}

func NewCollector(stations int, pollInterval time.Duration, previewWindow time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticktrack_polls_total",
			Help: "Station polls, by result.",
		}, []string{"result"}),
		PollsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ticktrack_polls_skipped_total",
			Help: "Station polls skipped as no departure was coming up.",
		}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ticktrack_poll_duration_seconds",
			Help:    "Duration of a single station poll.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ticktrack_tick_duration_seconds",
			Help:    "Duration of a scheduler tick, all polls included.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		Trips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticktrack_trips_total",
			Help: "Monitored trips written, by outcome.",
		}, []string{"outcome"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ticktrack_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ticktrack_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ticktrack_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		Stations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ticktrack_stations",
			Help: "Number of monitored stations.",
		}),
		PollInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ticktrack_poll_interval_seconds",
			Help: "Scheduler tick interval in seconds.",
		}),
		PreviewWindow: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ticktrack_preview_window_seconds",
			Help: "Next departure preview window in seconds.",
		}),
	}

	reg.MustRegister(
		c.Polls, c.PollsSkipped, c.PollDuration, c.TickDuration,
		c.Trips,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.Stations, c.PollInterval, c.PreviewWindow,
	)

	c.Stations.Set(float64(stations))
	c.PollInterval.Set(pollInterval.Seconds())
	c.PreviewWindow.Set(previewWindow.Seconds())

	return c
}

func (c *Collector) ObservePoll(stationID string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.Polls.WithLabelValues(result).Inc()
	c.PollDuration.Observe(elapsed.Seconds())
}

func (c *Collector) ObserveTick(polled int, skipped int, elapsed time.Duration) {
	c.PollsSkipped.Add(float64(skipped))
	c.TickDuration.Observe(elapsed.Seconds())
}

func (c *Collector) ObserveTrip(outcome string) {
	c.Trips.WithLabelValues(outcome).Inc()
}

func (c *Collector) NATSPublishedInc() { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }

func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }
