// Package metrics exports printer and HTTP activity as Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mzyy94/niimprint/internal/niim"
	"github.com/mzyy94/niimprint/internal/printer"
)

const namespace = "niimprint"

// Metrics owns a registry with every niimprint collector.
type Metrics struct {
	reg *prometheus.Registry

	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	packets         *prometheus.CounterVec
	frameErrors     prometheus.Counter
	jobsStarted     prometheus.Counter
	jobsFinished    prometheus.Counter
	connected       prometheus.Gauge
	powerLevel      prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "printer",
			Name:      "commands_total",
			Help:      "Printer commands by result.",
		}, []string{"command", "result"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "printer",
			Name:      "command_duration_seconds",
			Help:      "Time from request to response.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		packets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "printer",
			Name:      "packets_received_total",
			Help:      "Packets received from the printer.",
		}, []string{"code"}),
		frameErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "printer",
			Name:      "frame_errors_total",
			Help:      "Received frames dropped for bad framing or checksum.",
		}),
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "printer",
			Name:      "print_jobs_started_total",
			Help:      "Print jobs accepted by the printer.",
		}),
		jobsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "printer",
			Name:      "print_jobs_finished_total",
			Help:      "Print jobs completed by the printer.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "printer",
			Name:      "connected",
			Help:      "1 while the serial connection is open.",
		}),
		powerLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "printer",
			Name:      "power_level",
			Help:      "Last power level reported by a heartbeat.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
	m.reg.MustRegister(
		m.commands, m.commandDuration, m.packets, m.frameErrors,
		m.jobsStarted, m.jobsFinished, m.connected, m.powerLevel,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// CommandHook records command results; pass it to printer.WithCommandHook.
func (m *Metrics) CommandHook() printer.CommandHook {
	return func(code niim.Code, elapsed time.Duration, err error) {
		m.commands.WithLabelValues(code.String(), result(err)).Inc()
		m.commandDuration.WithLabelValues(code.String()).Observe(elapsed.Seconds())
	}
}

// Observe records a printer event; pass it to Printer.Subscribe.
func (m *Metrics) Observe(ev printer.Event) {
	switch ev.Kind {
	case printer.EventConnect:
		m.connected.Set(1)
	case printer.EventDisconnect:
		m.connected.Set(0)
	case printer.EventPacket:
		if ev.Packet != nil {
			m.packets.WithLabelValues(ev.Packet.Code.String()).Inc()
		}
	case printer.EventFrameError:
		m.frameErrors.Inc()
	case printer.EventPrintStart:
		m.jobsStarted.Inc()
	case printer.EventPrintEnd:
		m.jobsFinished.Inc()
	case printer.EventHeartbeat:
		if ev.Heartbeat != nil && ev.Heartbeat.PowerLevel != nil {
			m.powerLevel.Set(float64(*ev.Heartbeat.PowerLevel))
		}
	}
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, niim.ErrTimeout):
		return "timeout"
	case errors.Is(err, printer.ErrNotImplemented):
		return "not_implemented"
	case errors.Is(err, printer.ErrValue):
		return "value_error"
	case errors.Is(err, printer.ErrConnectionClosed):
		return "closed"
	default:
		return "error"
	}
}
