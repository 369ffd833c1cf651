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

import (
	"github.com/cockroachdb/vectorclock/pkg/kv/kvserver/vectorclock/vectorclockpb"
	"github.com/cockroachdb/vectorclock/pkg/util/log"
)

// internalGossipComponents lists the components exchanged with a peer
// carrying SessionTagInternalClient: another node in this cluster's own
// trust domain, which is trusted to both advertise and advance every
// component, including the ones that describe internal topology.
var internalGossipComponents = []Component{ClusterTime, ConfigTime}

// externalGossipComponents lists the components exchanged with a peer that
// does not carry SessionTagInternalClient: an application driver or other
// outside caller. Only ClusterTime, the cross-node causality baseline every
// caller needs, crosses this boundary; ConfigTime reflects internal cluster
// topology that an external caller has no business advertising or
// consuming.
var externalGossipComponents = []Component{ClusterTime}

// GossipOutOptions controls a single GossipOut call.
type GossipOutOptions struct {
	// PermitRefresh allows a GossipFormat (namely Signed) to block on I/O
	// refreshing a signing key. Callers on paths that must not block, such
	// as inside an error-unwind reply, should leave this false.
	PermitRefresh bool
}

// GossipOut snapshots vc's current tuple and writes each component whose
// gossip path applies to oc's caller into out. Internal and external
// callers are distinguished by SessionTags, falling back to defaultTags if
// oc or its Client is unknown.
//
// It returns whether the ClusterTime component was written. Whether other
// components were written does not affect the return value: ClusterTime is
// the one component every caller of GossipOut historically checks, since
// it's the one every reply path is required to carry.
func (vc *VectorClock) GossipOut(
	oc *OperationContext, out *vectorclockpb.Envelope, opts GossipOutOptions, defaultTags SessionTag,
) (bool, error) {
	components := vc.componentsFor(oc, defaultTags)
	oc = oc.withComponentTag()
	now := vc.GetTime()

	wasClusterTimeOutput := false
	for _, c := range components {
		wasOutput, err := formatRegistry[c].Out(oc, opts.PermitRefresh, out, now[c], c, &vc.deps)
		if err != nil {
			return false, err
		}
		if wasOutput && vc.deps.Metrics != nil {
			vc.deps.Metrics.ComponentsEmitted.Inc()
		}
		if c == ClusterTime {
			wasClusterTimeOutput = wasOutput
		}
	}
	return wasClusterTimeOutput, nil
}

// GossipIn extracts each component whose gossip path applies to oc's
// caller from in, then advances vc with the resulting candidate tuple.
// Components not in that caller's path, or absent from in, decode to the
// zero LogicalTime and so can never regress vc's state.
func (vc *VectorClock) GossipIn(
	oc *OperationContext, in *vectorclockpb.Envelope, couldBeUnauthenticated bool, defaultTags SessionTag,
) error {
	components := vc.componentsFor(oc, defaultTags)
	oc = oc.withComponentTag()

	var newTime LogicalTimeArray
	for _, c := range components {
		t, err := formatRegistry[c].In(oc, in, couldBeUnauthenticated, c, &vc.deps)
		if err != nil {
			return err
		}
		newTime[c] = t
	}

	ctx := oc.Context()
	if err := vc.Advance(ctx, newTime); err != nil {
		log.Warningf(ctx, "rejected incoming vector time: %v", err)
		return err
	}
	return nil
}

func (vc *VectorClock) componentsFor(oc *OperationContext, defaultTags SessionTag) []Component {
	tags := defaultTags
	if oc != nil && oc.Client != nil {
		tags = oc.Client.SessionTags()
	}
	if tags&SessionTagInternalClient != 0 {
		return internalGossipComponents
	}
	return externalGossipComponents
}
