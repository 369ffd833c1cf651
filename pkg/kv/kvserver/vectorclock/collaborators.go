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

	"github.com/cockroachdb/logtags"
)

// SessionTag is a bitmask of classifications a peer's session carries.
type SessionTag uint32

// SessionTagInternalClient marks a session as belonging to the cluster's
// own trust domain (node-to-node traffic) rather than an external driver.
const SessionTagInternalClient SessionTag = 1 << 0

// Client is the minimal peer-classification and authentication surface
// this package needs from the hosting transport layer.
type Client interface {
	// SessionTags reports this client's session classification.
	SessionTags() SessionTag
	// Authenticated reports whether the connection has authenticated.
	Authenticated() bool
	// UsingLocalhostBypass reports whether the connection is exempted from
	// authentication via the loopback bypass.
	UsingLocalhostBypass() bool
	// ServiceContext returns the process-wide hosting context this client
	// is connected to, so GetVectorClock can find the right singleton.
	ServiceContext() *ServiceContext
}

// OperationContext threads a context.Context plus the calling Client (if
// any is known) through the gossip path. A nil *OperationContext represents
// an internal reply path with no associated peer. One with a nil Client has
// no known peer session, so the gossip path falls back to the caller's
// default session tags for it.
type OperationContext struct {
	Ctx    context.Context
	Client Client
}

// Context returns oc's context.Context, or context.Background() if oc (or
// its embedded context) is nil.
func (oc *OperationContext) Context() context.Context {
	if oc == nil || oc.Ctx == nil {
		return context.Background()
	}
	return oc.Ctx
}

// withComponentTag returns an OperationContext carrying the same Client but
// a Ctx tagged with this package's component name, so every log line the
// gossip path emits, directly or through a Validator it calls into, carries
// it. A nil oc is returned unchanged: a nil OperationContext is itself a
// meaningful signal (an internal reply path with no associated peer) that
// callers such as SignedFormat.In and SignedFormat.Out distinguish from a
// real, if tag-less, caller.
func (oc *OperationContext) withComponentTag() *OperationContext {
	if oc == nil {
		return nil
	}
	return &OperationContext{
		Ctx:    logtags.AddTag(oc.Context(), "component", "vectorclock"),
		Client: oc.Client,
	}
}

// AuthorizationManager reports cluster-wide authentication policy.
type AuthorizationManager interface {
	IsAuthEnabled() bool
}

// FeatureCompatibility is the cluster-wide readiness snapshot gating
// emission of newer protocol fields.
type FeatureCompatibility interface {
	IsVersionInitialized() bool
	IsFullyUpgraded() bool
}

// LogicalTimeValidator signs outgoing times and verifies incoming ones
// against a rotating key set. Implementations may perform I/O (key
// refresh); SignLogicalTime in particular should honor ctx cancellation.
type LogicalTimeValidator interface {
	// SignLogicalTime produces a fresh signature for t, refreshing the
	// signing key first if necessary.
	SignLogicalTime(ctx context.Context, t LogicalTime) (SignedLogicalTime, error)
	// TrySignLogicalTime signs t with whatever key is already cached,
	// returning a dummy (KeyID == 0) signature rather than blocking if none
	// is available.
	TrySignLogicalTime(t LogicalTime) SignedLogicalTime
	// Validate checks signed's proof against the key identified by its
	// KeyID.
	Validate(ctx context.Context, signed SignedLogicalTime) error
}

// ClockAdvanceAuthorizer reports whether oc belongs to a privileged
// client/peer that is always handed a dummy-signed time and never needs
// validation on the way in.
type ClockAdvanceAuthorizer func(oc *OperationContext) bool
