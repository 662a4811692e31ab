package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "livemark"

// Metrics groups the collectors shared by the watcher, hub and responder.
type Metrics struct {
	// Subscribers tracks currently connected live-update clients.
	Subscribers prometheus.Gauge

	// Dispatches counts hub fan-outs.
	Dispatches prometheus.Counter

	// Deliveries counts per-subscriber sends by result (queued|dropped|failed).
	Deliveries *prometheus.CounterVec

	// Polls counts watcher cycles by result (unchanged|changed|error).
	Polls *prometheus.CounterVec

	// Renders counts Markdown renders by caller (watcher|request) and status (ok|error).
	Renders *prometheus.CounterVec

	// Requests counts handled HTTP requests by route and status code.
	Requests *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Subscribers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Number of connected live-update subscribers",
		}),
		Dispatches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Total broadcast dispatches",
		}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Per-subscriber message sends by result",
		}, []string{"result"}),
		Polls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Document poll cycles by result",
		}, []string{"result"}),
		Renders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Markdown renders by caller and status",
		}, []string{"caller", "status"}),
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Handled HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
}

// Nop returns collectors bound to a throwaway registry.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler serves g in the Prometheus text exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Summary gathers g and returns one entry per counter or gauge sample,
// keyed by metric name plus its labels, e.g. `livemark_polls_total{result="changed"}`.
func Summary(g prometheus.Gatherer) (map[string]float64, error) {
	mfs, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("metrics: gather: %w", err)
	}
	out := make(map[string]float64)
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			var v float64
			switch {
			case m.Counter != nil:
				v = m.GetCounter().GetValue()
			case m.Gauge != nil:
				v = m.GetGauge().GetValue()
			default:
				continue
			}
			out[sampleKey(mf.GetName(), m.GetLabel())] = v
		}
	}
	return out, nil
}

func sampleKey(name string, labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return name
	}
	pairs := make([]string, 0, len(labels))
	for _, l := range labels {
		pairs = append(pairs, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
	}
	sort.Strings(pairs)
	return name + "{" + strings.Join(pairs, ",") + "}"
}
