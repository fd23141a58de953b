package telemetry

import (
	"bytes"
	"net/http"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// Collector exports per-operation counters and process gauges on a private
// registry. Counter increments are safe from every spawn; no percentile
// state lives here.
type Collector struct {
	registry *prometheus.Registry
	vendor   string

	ops   *prometheus.CounterVec
	fails *prometheus.CounterVec
	cpu   prometheus.Gauge
	rss   prometheus.Gauge
}

// NewCollector builds the registry and metric families for one run.
func NewCollector(vendor string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		vendor:   vendor,
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gdbench",
			Name:      "operations_total",
			Help:      "Completed operations by spawn and query name",
		}, []string{"vendor", "spawn", "query"}),
		fails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gdbench",
			Name:      "operation_errors_total",
			Help:      "Failed operations by spawn and query name",
		}, []string{"vendor", "spawn", "query"}),
		cpu: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gdbench",
			Name:      "cpu_usage_percent",
			Help:      "Mean CPU utilization of the benchmark process",
		}),
		rss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gdbench",
			Name:      "resident_memory_peak_bytes",
			Help:      "Peak resident set size of the benchmark process",
		}),
	}
	c.registry.MustRegister(c.ops, c.fails, c.cpu, c.rss)
	return c
}

// ObserveOperation counts one completed operation.
func (c *Collector) ObserveOperation(spawnID int, name string) {
	c.ops.WithLabelValues(c.vendor, strconv.Itoa(spawnID), name).Inc()
}

// ObserveError counts one failed operation.
func (c *Collector) ObserveError(spawnID int, name string) {
	c.fails.WithLabelValues(c.vendor, strconv.Itoa(spawnID), name).Inc()
}

// SetUsage updates the process gauges, typically from the sampler callback.
func (c *Collector) SetUsage(cpuPercent float64, rssBytes uint64) {
	c.cpu.Set(cpuPercent)
	c.rss.Set(float64(rssBytes))
}

// Registry exposes the private registry, e.g. for extra collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until the returned server is shut down.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}

// Export renders the registry in the text exposition format.
func (c *Collector) Export() ([]byte, error) {
	mfs, err := c.registry.Gather()
	if err != nil {
		return nil, errors.Wrap(err, "cannot gather metrics")
	}
	var buf bytes.Buffer
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, errors.Wrap(err, "cannot render metrics")
		}
	}
	return buf.Bytes(), nil
}

// WriteProm writes the text exposition snapshot to path.
func (c *Collector) WriteProm(path string) error {
	data, err := c.Export()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "cannot write metrics %s", path)
	}
	return nil
}
