// Package metrics exports scheduler activity as Prometheus collectors.
//
// Collectors live on a private registry so several schedulers (or tests)
// can each own a Metrics without colliding on the default registerer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/tickr/internal/command"
	"github.com/roach88/tickr/internal/scheduler"
)

const namespace = "tickr"

// Metrics holds the collectors for one scheduler.
type Metrics struct {
	registry *prometheus.Registry

	events       *prometheus.CounterVec
	running      prometheus.Gauge
	ticks        prometheus.Counter
	tickErrors   prometheus.Counter
	tickDuration prometheus.Histogram
}

// Option configures New.
type Option func(*options)

type options struct {
	processCollectors bool
}

// WithProcessCollectors also registers the Go runtime and process
// collectors.
func WithProcessCollectors() Option {
	return func(o *options) { o.processCollectors = true }
}

// New creates the collectors and registers them on a fresh registry.
func New(opts ...Option) *Metrics {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "command_events_total",
				Help:      "Command lifecycle events by event type.",
			},
			[]string{"event"},
		),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running_commands",
			Help:      "Commands currently admitted by the scheduler.",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Scheduler ticks executed.",
		}),
		tickErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tick_errors_total",
			Help:      "Ticks that returned an error.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent inside Scheduler.Tick.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .02, .05, .1},
		}),
	}

	m.registry.MustRegister(m.events, m.running, m.ticks, m.tickErrors, m.tickDuration)
	if o.processCollectors {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Attach counts s's lifecycle events and tracks its running set.
func (m *Metrics) Attach(s *scheduler.Scheduler) {
	hook := func(event string) scheduler.Hook {
		counter := m.events.WithLabelValues(event)
		return func(command.Command) {
			counter.Inc()
			m.running.Set(float64(len(s.Running())))
		}
	}
	s.OnInitialize(hook("initialize"))
	s.OnExecute(hook("execute"))
	s.OnInterrupt(hook("interrupt"))
	s.OnFinish(hook("finish"))
}

// ObserveTick records one Scheduler.Tick call.
func (m *Metrics) ObserveTick(d time.Duration, err error) {
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
	if err != nil {
		m.tickErrors.Inc()
	}
}
