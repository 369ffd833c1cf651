// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package metric is a small wrapper around the Prometheus client library,
// giving components a Counter/Gauge vocabulary with named Metadata instead
// of reaching for prometheus.NewCounter directly, the way this
// organization's services register metrics.
package metric

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Unit names a metric's unit, mirroring the Metadata.Unit field used
// throughout this codebase's metrics.
type Unit int

// Units.
const (
	Unit_COUNT Unit = iota
	Unit_NANOSECONDS
	Unit_BYTES
)

// Metadata describes a metric: its name, help text, and unit. One Metadata
// value is defined per metric and passed to NewCounter/NewGauge.
type Metadata struct {
	Name        string
	Help        string
	Measurement string
	Unit        Unit
}

func (m Metadata) promDesc() *prometheus.Desc {
	return prometheus.NewDesc(promName(m.Name), m.Help, nil, nil)
}

func promName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// Counter is a monotonically increasing metric.
type Counter struct {
	meta  Metadata
	count int64
}

// NewCounter constructs a Counter from its Metadata.
func NewCounter(meta Metadata) *Counter {
	return &Counter{meta: meta}
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { atomic.AddInt64(&c.count, 1) }

// Add increments the counter by n.
func (c *Counter) Add(n int64) { atomic.AddInt64(&c.count, n) }

// Count returns the current value.
func (c *Counter) Count() int64 { return atomic.LoadInt64(&c.count) }

// Describe implements prometheus.Collector.
func (c *Counter) Describe(ch chan<- *prometheus.Desc) { ch <- c.meta.promDesc() }

// Collect implements prometheus.Collector.
func (c *Counter) Collect(ch chan<- prometheus.Metric) {
	m, err := prometheus.NewConstMetric(c.meta.promDesc(), prometheus.CounterValue, float64(c.Count()))
	if err == nil {
		ch <- m
	}
}

var _ prometheus.Collector = (*Counter)(nil)

// Gauge is a metric that can move up and down.
type Gauge struct {
	meta  Metadata
	value int64
}

// NewGauge constructs a Gauge from its Metadata.
func NewGauge(meta Metadata) *Gauge {
	return &Gauge{meta: meta}
}

// Update sets the gauge's value.
func (g *Gauge) Update(v int64) { atomic.StoreInt64(&g.value, v) }

// Inc increments the gauge by 1.
func (g *Gauge) Inc() { atomic.AddInt64(&g.value, 1) }

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() { atomic.AddInt64(&g.value, -1) }

// Value returns the current value.
func (g *Gauge) Value() int64 { return atomic.LoadInt64(&g.value) }

// Describe implements prometheus.Collector.
func (g *Gauge) Describe(ch chan<- *prometheus.Desc) { ch <- g.meta.promDesc() }

// Collect implements prometheus.Collector.
func (g *Gauge) Collect(ch chan<- prometheus.Metric) {
	m, err := prometheus.NewConstMetric(g.meta.promDesc(), prometheus.GaugeValue, float64(g.Value()))
	if err == nil {
		ch <- m
	}
}

var _ prometheus.Collector = (*Gauge)(nil)

// Registry collects the metric structs registered with it and exposes them
// as a single prometheus.Collector, so a server need only register one
// object with the Prometheus client regardless of how many components
// report metrics.
type Registry struct {
	collectors []prometheus.Collector
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// metricStruct is implemented by any struct whose exported fields are all
// *Counter, *Gauge, or another metricStruct-satisfying type.
type metricStruct interface {
	// MetricStruct is a marker method; components embed or implement it to
	// opt a struct of metrics into AddMetricStruct.
	MetricStruct()
}

// AddMetricStruct registers every prometheus.Collector field of ms (a
// pointer to a struct of *Counter/*Gauge fields) with the registry.
func (r *Registry) AddMetricStruct(ms metricStruct) {
	v := reflectCollectors(ms)
	r.collectors = append(r.collectors, v...)
}

// Describe implements prometheus.Collector.
func (r *Registry) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range r.collectors {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (r *Registry) Collect(ch chan<- prometheus.Metric) {
	for _, c := range r.collectors {
		c.Collect(ch)
	}
}

var _ prometheus.Collector = (*Registry)(nil)
