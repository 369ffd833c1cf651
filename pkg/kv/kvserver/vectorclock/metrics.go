// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package vectorclock

import "github.com/cockroachdb/vectorclock/pkg/util/metric"

var (
	metaAdvancesAccepted = metric.Metadata{
		Name:        "vectorclock.advance.accepted",
		Help:        "Number of candidate tuples merged into the vector clock",
		Measurement: "Advances",
		Unit:        metric.Unit_COUNT,
	}
	metaAdvancesRejected = metric.Metadata{
		Name:        "vectorclock.advance.rejected",
		Help:        "Number of candidate tuples rejected by the rate limiter",
		Measurement: "Advances",
		Unit:        metric.Unit_COUNT,
	}
	metaComponentsEmitted = metric.Metadata{
		Name:        "vectorclock.gossip.components_emitted",
		Help:        "Number of per-component wire fields written during gossip-out",
		Measurement: "Components",
		Unit:        metric.Unit_COUNT,
	}
	metaComponentsSuppressed = metric.Metadata{
		Name:        "vectorclock.gossip.components_suppressed",
		Help:        "Number of per-component wire fields suppressed during gossip-out (FCV-gated, no validator, or no key available)",
		Measurement: "Components",
		Unit:        metric.Unit_COUNT,
	}
	metaUnsignedTimesDropped = metric.Metadata{
		Name:        "vectorclock.gossip.unsigned_dropped",
		Help:        "Number of unsigned cluster times silently dropped from unauthenticated, non-bypass clients",
		Measurement: "Times",
		Unit:        metric.Unit_COUNT,
	}
	metaVerificationFailures = metric.Metadata{
		Name:        "vectorclock.gossip.verification_failures",
		Help:        "Number of incoming signed times that failed validator verification",
		Measurement: "Times",
		Unit:        metric.Unit_COUNT,
	}
)

// Metrics are the observability counters for a VectorClock's advances and
// gossip traffic.
type Metrics struct {
	AdvancesAccepted     *metric.Counter
	AdvancesRejected     *metric.Counter
	ComponentsEmitted    *metric.Counter
	ComponentsSuppressed *metric.Counter
	UnsignedTimesDropped *metric.Counter
	VerificationFailures *metric.Counter
}

// MetricStruct marks Metrics for metric.Registry.AddMetricStruct.
func (*Metrics) MetricStruct() {}

// NewMetrics constructs a fresh, zeroed Metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		AdvancesAccepted:     metric.NewCounter(metaAdvancesAccepted),
		AdvancesRejected:     metric.NewCounter(metaAdvancesRejected),
		ComponentsEmitted:    metric.NewCounter(metaComponentsEmitted),
		ComponentsSuppressed: metric.NewCounter(metaComponentsSuppressed),
		UnsignedTimesDropped: metric.NewCounter(metaUnsignedTimesDropped),
		VerificationFailures: metric.NewCounter(metaVerificationFailures),
	}
}
