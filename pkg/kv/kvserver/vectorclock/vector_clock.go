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
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/vectorclock/pkg/settings"
	"github.com/cockroachdb/vectorclock/pkg/util/log"
	"github.com/cockroachdb/vectorclock/pkg/util/syncutil"
	"github.com/cockroachdb/vectorclock/pkg/util/timeutil"
)

// Collaborators bundles the external systems a VectorClock consults while
// advancing and gossiping. Every field is optional: a zero Collaborators
// yields a VectorClock that advances against the real wall clock, never
// signs anything, and never emits feature-compatibility-gated components.
type Collaborators struct {
	// Clock is the wall clock the rate limiter measures drift against. Nil
	// defaults to the real clock.
	Clock timeutil.Source
	// AuthManager reports whether authentication is enabled cluster-wide.
	AuthManager AuthorizationManager
	// FeatureCompatibility gates FcvGatedFormat-wrapped components. Nil
	// suppresses their emission, the same as an uninitialized version.
	FeatureCompatibility FeatureCompatibility
	// Validator signs outgoing signed times and verifies incoming ones. Nil
	// means signed components are emitted only to privileged callers (with a
	// dummy signature), and incoming signed times from non-privileged peers
	// are rejected.
	Validator LogicalTimeValidator
	// IsAuthorizedToAdvanceClock reports whether a caller is a privileged
	// peer that always gets a dummy signature and skips verification.
	IsAuthorizedToAdvanceClock ClockAdvanceAuthorizer
	// Settings backs cluster settings such as MaxAcceptableClockDrift. Nil
	// reads every setting at its default.
	Settings *settings.Values
	// Metrics, if non-nil, is incremented on every advance and gossip call.
	Metrics *Metrics
}

func (c *Collaborators) clockSource() timeutil.Source {
	if c.Clock != nil {
		return c.Clock
	}
	return timeutil.RealTime{}
}

// ServiceContext is the process-wide hosting container a VectorClock is
// registered against. A real server has exactly one; tests construct their
// own to exercise registration without a full server.
type ServiceContext struct {
	mu struct {
		syncutil.Mutex
		clock *VectorClock
	}
}

// NewServiceContext constructs an empty ServiceContext.
func NewServiceContext() *ServiceContext {
	return &ServiceContext{}
}

// VectorClock is the per-process tuple of logical times, one per Component,
// that this node advances on every operation and gossips on every message.
// Advances only ever move a component's time forward: VectorClock has no
// operation that decreases a component or resets one below its current
// value outside of the test-only hooks.
type VectorClock struct {
	deps Collaborators

	mu struct {
		syncutil.Mutex
		vectorTime LogicalTimeArray
		// isEnabled is a lifecycle flag, set false during shutdown. It is
		// not consulted by Advance or the gossip path directly; callers
		// that want to stop gossiping during shutdown check IsEnabled
		// themselves before invoking GossipOut/GossipIn.
		isEnabled bool
	}

	registeredTo *ServiceContext
}

// NewVectorClock constructs an enabled VectorClock with the zero time in
// every component, using deps for its external collaborators.
func NewVectorClock(deps Collaborators) *VectorClock {
	vc := &VectorClock{deps: deps}
	vc.mu.isEnabled = true
	return vc
}

// RegisterVectorClock installs vc as service's VectorClock singleton. It is
// a programmer error to register a VectorClock more than once, or to
// register a second VectorClock against a ServiceContext that already has
// one; both panic with an assertion failure rather than silently keeping
// the first registration.
func RegisterVectorClock(ctx context.Context, service *ServiceContext, vc *VectorClock) {
	if vc.registeredTo != nil {
		panic(errors.AssertionFailedf("vector clock is already registered to a service context"))
	}

	service.mu.Lock()
	defer service.mu.Unlock()
	if service.mu.clock != nil {
		panic(errors.AssertionFailedf("service context already has a vector clock registered"))
	}

	vc.registeredTo = service
	service.mu.clock = vc
	log.Infof(ctx, "vector clock registered")
}

// GetVectorClockForService returns service's registered VectorClock, or nil
// if none has been registered yet.
func GetVectorClockForService(service *ServiceContext) *VectorClock {
	service.mu.Lock()
	defer service.mu.Unlock()
	return service.mu.clock
}

// GetVectorClock returns the VectorClock registered against oc's client's
// ServiceContext, or nil if oc, its Client, or the registration is absent.
func GetVectorClock(oc *OperationContext) *VectorClock {
	if oc == nil || oc.Client == nil {
		return nil
	}
	sc := oc.Client.ServiceContext()
	if sc == nil {
		return nil
	}
	return GetVectorClockForService(sc)
}

// GetTime returns a snapshot of vc's current tuple.
func (vc *VectorClock) GetTime() LogicalTimeArray {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.mu.vectorTime
}

// IsEnabled reports whether Disable has not yet been called on vc. Advance,
// GossipOut and GossipIn do not consult it: a disabled VectorClock still
// advances and gossips.
func (vc *VectorClock) IsEnabled() bool {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.mu.isEnabled
}

// Disable clears vc's enabled flag, so IsEnabled reports false from then on.
// It does not by itself stop Advance, GossipOut or GossipIn. It is a one-way
// transition, used during shutdown; there is no Enable.
func (vc *VectorClock) Disable() {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.mu.isEnabled = false
}

// Advance merges newTime into vc's tuple component-wise, keeping the
// greater of the current and candidate value in each slot. The whole
// candidate tuple is rejected, with none of its components applied, if any
// component fails the rate limiter's drift or max-value check.
//
// The rate limiter runs before vc's mutex is acquired: it reads the wall
// clock and cluster settings, neither of which vc's mutex protects, and
// there is no reason to hold the lock across that work.
func (vc *VectorClock) Advance(ctx context.Context, newTime LogicalTimeArray) error {
	if err := passesRateLimiter(ctx, vc.deps.clockSource(), vc.deps.Settings, newTime); err != nil {
		if vc.deps.Metrics != nil {
			vc.deps.Metrics.AdvancesRejected.Inc()
		}
		return err
	}

	vc.mu.Lock()
	defer vc.mu.Unlock()
	for c := Component(0); c < numComponents; c++ {
		if newTime[c].Greater(vc.mu.vectorTime[c]) {
			vc.mu.vectorTime[c] = newTime[c]
		}
	}

	if vc.deps.Metrics != nil {
		vc.deps.Metrics.AdvancesAccepted.Inc()
	}
	return nil
}

// ResetForTest zeroes vc's tuple and re-enables it. Test-only.
func (vc *VectorClock) ResetForTest() {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.mu.vectorTime = LogicalTimeArray{}
	vc.mu.isEnabled = true
}

// AdvanceClusterTimeForTest advances only the ClusterTime component to t,
// through the normal Advance path (so it still runs the rate limiter; test
// fixtures must pick a t within the configured drift budget or install a
// timeutil.ManualTime as deps.Clock). Test-only.
func (vc *VectorClock) AdvanceClusterTimeForTest(ctx context.Context, t LogicalTime) error {
	newTime := vc.GetTime()
	newTime[ClusterTime] = t
	return vc.Advance(ctx, newTime)
}
