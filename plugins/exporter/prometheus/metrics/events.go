package metrics

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	Register("events", func(logger *slog.Logger) (MetricHandler, error) {
		return newEventsMetricHandler(logger), nil
	})
}

type eventsMetricHandler struct {
	logger *slog.Logger
	descs  map[string]*prometheus.Desc
}

func newEventsMetricHandler(logger *slog.Logger) *eventsMetricHandler {
	return &eventsMetricHandler{
		logger: logger,
		descs: map[string]*prometheus.Desc{
			"published":   prometheus.NewDesc("dhclient_events_published_total", "Total number of lifecycle events published", nil, nil),
			"dropped":     prometheus.NewDesc("dhclient_events_dropped_total", "Total number of lifecycle events dropped on full subscriber queues", nil, nil),
			"subscribers": prometheus.NewDesc("dhclient_events_subscribers", "Number of subscribers per topic", []string{"topic"}, nil),
		},
	}
}

func (h *eventsMetricHandler) Name() string {
	return "events"
}

func (h *eventsMetricHandler) Describe(ch chan<- *prometheus.Desc) {
	for _, desc := range h.descs {
		ch <- desc
	}
}

func (h *eventsMetricHandler) Collect(_ context.Context, src Source, ch chan<- prometheus.Metric) error {
	if src.Bus == nil {
		return nil
	}

	stats := src.Bus.Stats()
	ch <- prometheus.MustNewConstMetric(h.descs["published"], prometheus.CounterValue, float64(stats.Published))
	ch <- prometheus.MustNewConstMetric(h.descs["dropped"], prometheus.CounterValue, float64(stats.Dropped))
	for topic, n := range stats.Subscribers {
		ch <- prometheus.MustNewConstMetric(h.descs["subscribers"], prometheus.GaugeValue, float64(n), topic)
	}
	return nil
}
