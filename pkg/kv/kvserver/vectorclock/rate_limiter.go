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
	"time"

	"github.com/cockroachdb/vectorclock/pkg/settings"
	"github.com/cockroachdb/vectorclock/pkg/util/log"
	"github.com/cockroachdb/vectorclock/pkg/util/timeutil"
)

// MaxAcceptableClockDrift bounds how far ahead of this node's wall clock a
// candidate component's seconds field may sit before the rate limiter
// rejects the whole advance. Values a driver or peer may legitimately race
// ahead by (clock skew, in-flight message delay) fall under this; values
// far beyond it usually mean a corrupted or malicious payload.
var MaxAcceptableClockDrift = settings.RegisterDurationSetting(
	settings.SystemOnly,
	"kv.vector_clock.max_acceptable_drift",
	"allowed positive drift of an incoming logical time's seconds field beyond this node's wall clock",
	60*time.Second,
	settings.NonNegativeDuration,
)

// driftRejectionLogEvery throttles the drift-rejection warning: a peer
// stuck sending an over-drifted candidate would otherwise flood the log
// once per advance attempt.
var driftRejectionLogEvery = log.Every(10 * time.Second)

// passesRateLimiter runs every component of newTime through the two checks
// that gate an advance: it must not have drifted too far ahead of clock's
// wall-clock reading, and it must not exceed MaxValue. It is called before
// the VectorClock's mutex is acquired, since it may itself contend on
// clock/settings state shared across many concurrent advances.
func passesRateLimiter(
	ctx context.Context, clock timeutil.Source, sv *settings.Values, newTime LogicalTimeArray,
) error {
	wallSecs := uint32(clock.Now().Unix())
	driftSecs := uint32(MaxAcceptableClockDrift.Get(sv) / time.Second)

	for c := Component(0); c < numComponents; c++ {
		t := newTime[c]
		name := componentName(c)

		if !t.WithinMaxValue() {
			return newMaxValueExceededError(name)
		}
		if t.Seconds() > wallSecs && t.Seconds()-wallSecs > driftSecs {
			if driftRejectionLogEvery.ShouldLog(clock.Now()) {
				log.Warningf(ctx, "new %s, %d, is too far from this node's wall clock time, %d", name, t.Seconds(), wallSecs)
			}
			return newRateLimiterError(name, t.Seconds(), wallSecs)
		}
	}
	return nil
}
