// Package monitor exports engine events as Prometheus metrics.
package monitor

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements core.Monitor.
type Prometheus struct {
	failures   *prometheus.CounterVec
	strategies *prometheus.CounterVec
	rows       *prometheus.HistogramVec
	cache      *prometheus.CounterVec
	requests   *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them with reg. A nil
// reg leaves them unregistered.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "facilitytables_failures_total",
			Help: "Engine failures by kind, table type and severity.",
		}, []string{"kind", "table_type", "severity"}),
		strategies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "facilitytables_strategy_total",
			Help: "Render strategies chosen, by table type.",
		}, []string{"table_type", "strategy"}),
		rows: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "facilitytables_rows",
			Help:    "Row counts of optimized tables.",
			Buckets: []float64{1, 10, 20, 50, 100, 200, 500, 1000, 5000},
		}, []string{"strategy"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "facilitytables_cache_lookups_total",
			Help: "Cache lookups by layer and result.",
		}, []string{"layer", "result"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "facilitytables_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
	if reg != nil {
		for _, c := range p.Collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

// Collectors returns every collector owned by p.
func (p *Prometheus) Collectors() []prometheus.Collector {
	return []prometheus.Collector{p.failures, p.strategies, p.rows, p.cache, p.requests}
}

func (p *Prometheus) ReportFailure(kind, tableType, severity string, _ error) {
	p.failures.WithLabelValues(kind, tableType, severity).Inc()
}

func (p *Prometheus) ObserveStrategy(tableType, strategy string, rows int) {
	p.strategies.WithLabelValues(tableType, strategy).Inc()
	p.rows.WithLabelValues(strategy).Observe(float64(rows))
}

func (p *Prometheus) CacheHit(layer string)  { p.cache.WithLabelValues(layer, "hit").Inc() }
func (p *Prometheus) CacheMiss(layer string) { p.cache.WithLabelValues(layer, "miss").Inc() }

// ObserveRequest records one HTTP request.
func (p *Prometheus) ObserveRequest(method, route string, code int, d time.Duration) {
	p.requests.WithLabelValues(method, route, strconv.Itoa(code)).Observe(d.Seconds())
}
