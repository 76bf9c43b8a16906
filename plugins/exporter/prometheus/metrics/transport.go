package metrics

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	Register("transport", func(logger *slog.Logger) (MetricHandler, error) {
		return newTransportMetricHandler(logger), nil
	})
}

type transportMetricHandler struct {
	logger *slog.Logger
	descs  map[string]*prometheus.Desc
}

func newTransportMetricHandler(logger *slog.Logger) *transportMetricHandler {
	return &transportMetricHandler{
		logger: logger,
		descs: map[string]*prometheus.Desc{
			"received": prometheus.NewDesc("dhclient_transport_frames_received_total", "Total number of frames accepted by the packet sockets", nil, nil),
			"sent":     prometheus.NewDesc("dhclient_transport_frames_sent_total", "Total number of frames and datagrams sent", nil, nil),
			"rejected": prometheus.NewDesc("dhclient_transport_frames_rejected_total", "Total number of frames rejected by the packet decoder", nil, nil),
			"errors":   prometheus.NewDesc("dhclient_transport_errors_total", "Total number of socket errors", nil, nil),
		},
	}
}

func (h *transportMetricHandler) Name() string {
	return "transport"
}

func (h *transportMetricHandler) Describe(ch chan<- *prometheus.Desc) {
	for _, desc := range h.descs {
		ch <- desc
	}
}

func (h *transportMetricHandler) Collect(_ context.Context, src Source, ch chan<- prometheus.Metric) error {
	if src.Transport == nil {
		return nil
	}

	stats := src.Transport.Stats()
	ch <- prometheus.MustNewConstMetric(h.descs["received"], prometheus.CounterValue, float64(stats.Received.Load()))
	ch <- prometheus.MustNewConstMetric(h.descs["sent"], prometheus.CounterValue, float64(stats.Sent.Load()))
	ch <- prometheus.MustNewConstMetric(h.descs["rejected"], prometheus.CounterValue, float64(stats.Rejected.Load()))
	ch <- prometheus.MustNewConstMetric(h.descs["errors"], prometheus.CounterValue, float64(stats.Errors.Load()))
	return nil
}
