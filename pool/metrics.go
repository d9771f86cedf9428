package pool

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// registerPoolMetrics registers pool gauges with callbacks.
// These metrics are collected lazily when scraped.
func registerPoolMetrics(meter metric.Meter, p *Pool) (metric.Registration, error) {
	openConnections, err := meter.Int64ObservableGauge(
		"db.client.connections.open",
		metric.WithDescription("Number of open connections in the pool"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}

	idleConnections, err := meter.Int64ObservableGauge(
		"db.client.connections.idle",
		metric.WithDescription("Number of idle connections in the pool"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}

	maxConnections, err := meter.Int64ObservableGauge(
		"db.client.connections.max",
		metric.WithDescription("Maximum number of connections allowed in the pool"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}

	usedConnections, err := meter.Int64ObservableGauge(
		"db.client.connections.used",
		metric.WithDescription("Number of connections currently in use"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}

	waitCount, err := meter.Int64ObservableCounter(
		"db.client.connections.wait_count",
		metric.WithDescription("Total number of times waited for a connection"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}

	waitDuration, err := meter.Float64ObservableCounter(
		"db.client.connections.wait_duration",
		metric.WithDescription("Total time waited for connections in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	attrs := metric.WithAttributes(attribute.String("db.client.connections.pool.name", p.cfg.Name))

	return meter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			stats := p.Stats()

			o.ObserveInt64(openConnections, int64(stats.Open), attrs)
			o.ObserveInt64(idleConnections, int64(stats.Idle), attrs)
			o.ObserveInt64(maxConnections, int64(stats.MaxOpen), attrs)
			o.ObserveInt64(usedConnections, int64(stats.InUse), attrs)
			o.ObserveInt64(waitCount, stats.WaitCount, attrs)
			o.ObserveFloat64(waitDuration, stats.WaitDuration.Seconds(), attrs)

			return nil
		},
		openConnections,
		idleConnections,
		maxConnections,
		usedConnections,
		waitCount,
		waitDuration,
	)
}
