package prometheus

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veesix-networks/dhclient/pkg/component"
	"github.com/veesix-networks/dhclient/pkg/dhcp"
	"github.com/veesix-networks/dhclient/pkg/events"
	"github.com/veesix-networks/dhclient/pkg/hook"
	"github.com/veesix-networks/dhclient/pkg/logger"
	"github.com/veesix-networks/dhclient/plugins/exporter/prometheus/metrics"
)

func init() {
	component.Register(Namespace, New)
}

var states = []string{"INIT", "SELECTING", "REQUESTING", "BOUND", "RENEWING", "REBINDING", "REBOOTING", "STOPPED"}

// Status is the exporter's own view of itself.
type Status struct {
	State         string `json:"state" yaml:"state"`
	ListenAddress string `json:"listen_address" yaml:"listen_address"`
	HandlerCount  int    `json:"handler_count" yaml:"handler_count"`
	ServerRunning bool   `json:"server_running" yaml:"server_running"`
}

// Component exports protocol counters, per-interface state and lease
// timers. It doubles as the engine's packet observer.
type Component struct {
	*component.Base
	logger   *slog.Logger
	source   metrics.Source
	addr     string
	server   *http.Server
	registry *prometheus.Registry

	sent        *prometheus.CounterVec
	received    *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	transitions *prometheus.CounterVec
	state       *prometheus.GaugeVec
	leaseTimes  *prometheus.GaugeVec

	mu            sync.RWMutex
	subs          []events.Subscription
	handlerCount  int
	serverRunning bool
}

func New(deps component.Dependencies) (component.Component, error) {
	if deps.Config == nil || !deps.Config.Metrics.Enabled {
		return nil, nil
	}

	c := NewComponent(listenAddress(deps.Config.Metrics), metrics.Source{
		Bus:       deps.EventBus,
		Transport: deps.Transport,
	})
	return c, nil
}

func NewComponent(addr string, source metrics.Source) *Component {
	c := &Component{
		Base:     component.NewBase(Namespace),
		logger:   logger.Get(logger.Metrics),
		source:   source,
		addr:     addr,
		registry: prometheus.NewRegistry(),

		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dhclient_packets_sent_total",
			Help: "Total number of DHCP messages sent",
		}, []string{"interface", "type"}),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dhclient_packets_received_total",
			Help: "Total number of DHCP messages accepted for processing",
		}, []string{"interface", "type"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dhclient_packets_dropped_total",
			Help: "Total number of DHCP messages dropped",
		}, []string{"interface", "reason"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dhclient_state_transitions_total",
			Help: "Total number of protocol state transitions",
		}, []string{"interface", "from", "to"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dhclient_client_state",
			Help: "Current protocol state of the client (1 for the current state)",
		}, []string{"interface", "state"}),
		leaseTimes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dhclient_lease_timestamp_seconds",
			Help: "Renewal, rebind and expiry time of the bound lease",
		}, []string{"interface", "timer"}),
	}

	c.registry.MustRegister(c.sent, c.received, c.dropped, c.transitions, c.state, c.leaseTimes)
	return c
}

func (c *Component) Addr() string {
	return c.addr
}

// Registry is the registry served on /metrics.
func (c *Component) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Component) GetStatus() *Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state := "stopped"
	if c.serverRunning {
		state = "running"
	}

	return &Status{
		State:         state,
		ListenAddress: c.addr,
		HandlerCount:  c.handlerCount,
		ServerRunning: c.serverRunning,
	}
}

func (c *Component) PacketSent(ifname string, mt dhcp.MessageType) {
	c.sent.WithLabelValues(ifname, mt.String()).Inc()
}

func (c *Component) PacketReceived(ifname string, mt dhcp.MessageType) {
	c.received.WithLabelValues(ifname, mt.String()).Inc()
}

func (c *Component) PacketDropped(ifname, reason string) {
	c.dropped.WithLabelValues(ifname, reason).Inc()
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Starting Prometheus exporter", "addr", c.addr)

	handlers, err := metrics.DefaultRegistry().CreateHandlers(c.logger)
	if err != nil {
		return err
	}
	c.registry.MustRegister(&prometheusCollector{
		source:   c.source,
		logger:   c.logger,
		handlers: handlers,
	})

	c.mu.Lock()
	c.handlerCount = len(handlers)
	if bus := c.source.Bus; bus != nil {
		c.subs = append(c.subs,
			bus.Subscribe(events.TopicState, c.handleEvent),
			bus.Subscribe(events.TopicLease, c.handleEvent),
		)
	}
	c.mu.Unlock()

	c.Go(func() {
		c.startServer()
	})

	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping Prometheus exporter")

	c.mu.Lock()
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.subs = nil
	server := c.server
	c.mu.Unlock()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			c.logger.Warn("Metrics server shutdown", "error", err)
		}
	}

	c.mu.Lock()
	c.serverRunning = false
	c.mu.Unlock()

	return c.StopContext(ctx)
}

func (c *Component) handleEvent(ev events.Event) {
	switch data := ev.Data.(type) {
	case events.StateEvent:
		c.transitions.WithLabelValues(data.Interface, data.From, data.To).Inc()
		for _, s := range states {
			v := 0.0
			if s == data.To {
				v = 1
			}
			c.state.WithLabelValues(data.Interface, s).Set(v)
		}
	case events.LeaseEvent:
		reason := hook.Reason(data.Reason)
		switch {
		case reason.Binds():
			c.leaseTimes.WithLabelValues(data.Interface, "renewal").Set(float64(data.Renewal.Unix()))
			c.leaseTimes.WithLabelValues(data.Interface, "rebind").Set(float64(data.Rebind.Unix()))
			c.leaseTimes.WithLabelValues(data.Interface, "expiry").Set(float64(data.Expiry.Unix()))
		case reason.Unbinds():
			c.leaseTimes.DeletePartialMatch(prometheus.Labels{"interface": data.Interface})
		}
	}
}

type prometheusCollector struct {
	source   metrics.Source
	logger   *slog.Logger
	handlers []metrics.MetricHandler
}

func (pc *prometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, handler := range pc.handlers {
		handler.Describe(ch)
	}
}

func (pc *prometheusCollector) Collect(ch chan<- prometheus.Metric) {
	ctx := context.Background()
	for _, handler := range pc.handlers {
		if err := handler.Collect(ctx, pc.source, ch); err != nil {
			pc.logger.Error("Failed to collect metrics", "handler", handler.Name(), "error", err)
		}
	}
}

func (c *Component) startServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:    c.addr,
		Handler: mux,
	}

	c.mu.Lock()
	c.server = server
	c.serverRunning = true
	c.mu.Unlock()

	c.logger.Info("Prometheus HTTP server listening", "addr", c.addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		c.logger.Error("Prometheus HTTP server error", "error", err)
		c.mu.Lock()
		c.serverRunning = false
		c.mu.Unlock()
	}
}
