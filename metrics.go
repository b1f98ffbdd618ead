package main

import (
	"fmt"
	"io"

	"github.com/dgnsrekt/memocache/internal/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// newQueryMetrics registers the cache counters on a fresh registry.
func newQueryMetrics() (*cache.Metrics, *prometheus.Registry, error) {
	metrics := cache.NewMetrics("memocache")
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return nil, nil, fmt.Errorf("unable to register metrics: %w", err)
	}
	return metrics, reg, nil
}

// writeMetrics writes everything g gathers in the Prometheus text format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("unable to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("unable to write metrics: %w", err)
		}
	}
	return nil
}
