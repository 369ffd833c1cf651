// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package vectorclock tracks, advances, and gossips the small, fixed-arity
// tuple of monotonically non-decreasing logical timestamps ("components")
// that order events across the nodes of a cluster. Each component travels
// on every inter-node message, encoded by a per-component wire-format
// strategy (plain or cryptographically signed) that may also consult
// authorization state before emitting to, or accepting from, a peer.
//
// The container itself (VectorClock) is a small mutex-guarded struct; the
// interesting behavior lives in the rate limiter that guards every advance
// against wall-clock drift, and in the gossip-format strategies that decide,
// per component and per caller, whether a time may be emitted or accepted
// at all.
//
// Generating new cluster times, persisting clock state across restarts, and
// reconciling real time with wall clocks beyond the drift gate are handled
// elsewhere; this package only advances and gossips a tuple it's handed.
package vectorclock
