// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Command vectorclockdemo wires up two in-memory VectorClock instances,
// advances one, gossips it to the other, and serves the resulting metrics
// over HTTP for inspection.
package main

import (
	"context"
	"flag"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cockroachdb/vectorclock/pkg/kv/kvserver/vectorclock"
	"github.com/cockroachdb/vectorclock/pkg/kv/kvserver/vectorclock/vectorclockpb"
	"github.com/cockroachdb/vectorclock/pkg/util/log"
	"github.com/cockroachdb/vectorclock/pkg/util/metric"
	"github.com/cockroachdb/vectorclock/pkg/util/timeutil"
)

var httpAddr = flag.String("http-addr", ":8080", "address to serve /metrics on")

func main() {
	flag.Parse()
	ctx := context.Background()

	registry := metric.NewRegistry()
	nodeAMetrics := vectorclock.NewMetrics()
	nodeBMetrics := vectorclock.NewMetrics()
	registry.AddMetricStruct(nodeAMetrics)
	registry.AddMetricStruct(nodeBMetrics)

	fcv := fullyUpgradedFCV{}
	nodeA := vectorclock.NewVectorClock(vectorclock.Collaborators{
		FeatureCompatibility:       fcv,
		IsAuthorizedToAdvanceClock: alwaysAuthorized,
		Metrics:                    nodeAMetrics,
	})
	nodeB := vectorclock.NewVectorClock(vectorclock.Collaborators{
		FeatureCompatibility:       fcv,
		IsAuthorizedToAdvanceClock: alwaysAuthorized,
		Metrics:                    nodeBMetrics,
	})

	seed := vectorclock.MakeLogicalTime(uint32(timeutil.Now().Unix()), 1)
	if err := nodeA.AdvanceClusterTimeForTest(ctx, seed); err != nil {
		log.Fatalf(ctx, "advancing nodeA: %v", err)
	}

	oc := &vectorclock.OperationContext{Ctx: ctx, Client: internalPeer{}}

	env := vectorclockpb.NewEnvelope()
	if _, err := nodeA.GossipOut(oc, env, vectorclock.GossipOutOptions{PermitRefresh: true}, 0); err != nil {
		log.Fatalf(ctx, "gossiping out from nodeA: %v", err)
	}
	if err := nodeB.GossipIn(oc, env, false, 0); err != nil {
		log.Fatalf(ctx, "gossiping into nodeB: %v", err)
	}

	log.Infof(ctx, "nodeA vector time: %+v", nodeA.GetTime())
	log.Infof(ctx, "nodeB vector time after gossip-in: %+v", nodeB.GetTime())

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(registry)
	http.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	log.Infof(ctx, "serving metrics on %s", *httpAddr)
	if err := http.ListenAndServe(*httpAddr, nil); err != nil {
		log.Fatalf(ctx, "http server: %v", err)
	}
}

type fullyUpgradedFCV struct{}

func (fullyUpgradedFCV) IsVersionInitialized() bool { return true }
func (fullyUpgradedFCV) IsFullyUpgraded() bool      { return true }

func alwaysAuthorized(*vectorclock.OperationContext) bool { return true }

// internalPeer stands in for a node-to-node connection: internal session
// tag, always authenticated, no localhost bypass needed.
type internalPeer struct{}

func (internalPeer) SessionTags() vectorclock.SessionTag { return vectorclock.SessionTagInternalClient }
func (internalPeer) Authenticated() bool                 { return true }
func (internalPeer) UsingLocalhostBypass() bool          { return false }
func (internalPeer) ServiceContext() *vectorclock.ServiceContext { return nil }
