package pool

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Compile-time interface check.
var _ prometheus.Collector = (*Collector)(nil)

// Collector exposes Pool.Stats to a Prometheus registry.
//
// Example:
//
//	prometheus.MustRegister(pool.NewCollector(p))
type Collector struct {
	pool *Pool

	open         *prometheus.Desc
	idle         *prometheus.Desc
	inUse        *prometheus.Desc
	maxOpen      *prometheus.Desc
	waitCount    *prometheus.Desc
	waitDuration *prometheus.Desc
	discarded    *prometheus.Desc
}

// NewCollector creates a collector for p, labelled with the pool name.
func NewCollector(p *Pool) *Collector {
	labels := prometheus.Labels{"pool": p.Name()}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("sentinel", "db_pool", name), help, nil, labels)
	}

	return &Collector{
		pool:         p,
		open:         desc("connections_open", "Number of open connections in the pool."),
		idle:         desc("connections_idle", "Number of idle connections in the pool."),
		inUse:        desc("connections_in_use", "Number of connections currently leased."),
		maxOpen:      desc("connections_max", "Maximum number of connections leased at once."),
		waitCount:    desc("wait_count_total", "Total number of times Get waited for a connection."),
		waitDuration: desc("wait_duration_seconds_total", "Total time Get waited for connections."),
		discarded:    desc("connections_discarded_total", "Total number of connections closed as unusable."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.open
	ch <- c.idle
	ch <- c.inUse
	ch <- c.maxOpen
	ch <- c.waitCount
	ch <- c.waitDuration
	ch <- c.discarded
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stats()

	ch <- prometheus.MustNewConstMetric(c.open, prometheus.GaugeValue, float64(s.Open))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.Idle))
	ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(s.InUse))
	ch <- prometheus.MustNewConstMetric(c.maxOpen, prometheus.GaugeValue, float64(s.MaxOpen))
	ch <- prometheus.MustNewConstMetric(c.waitCount, prometheus.CounterValue, float64(s.WaitCount))
	ch <- prometheus.MustNewConstMetric(c.waitDuration, prometheus.CounterValue, s.WaitDuration.Seconds())
	ch <- prometheus.MustNewConstMetric(c.discarded, prometheus.CounterValue, float64(s.Discarded))
}
