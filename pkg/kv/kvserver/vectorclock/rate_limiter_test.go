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
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/cockroachdb/vectorclock/pkg/settings"
	"github.com/cockroachdb/vectorclock/pkg/util/timeutil"
)

func TestPassesRateLimiterAcceptsWithinDrift(t *testing.T) {
	wall := timeutil.NewManualTime(time.Unix(1000, 0))
	var newTime LogicalTimeArray
	newTime[ClusterTime] = MakeLogicalTime(1005, 0)
	newTime[ConfigTime] = MakeLogicalTime(999, 0)

	err := passesRateLimiter(context.Background(), wall, nil, newTime)
	require.NoError(t, err)
}

func TestPassesRateLimiterRejectsExcessiveDrift(t *testing.T) {
	wall := timeutil.NewManualTime(time.Unix(1000, 0))
	var newTime LogicalTimeArray
	newTime[ClusterTime] = MakeLogicalTime(1000+uint32(MaxAcceptableClockDrift.Default()/time.Second)+1, 0)

	err := passesRateLimiter(context.Background(), wall, nil, newTime)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrRateLimiterRejected))
}

func TestPassesRateLimiterRejectsMaxValueExceeded(t *testing.T) {
	wall := timeutil.NewManualTime(time.Unix(1000, 0))
	var newTime LogicalTimeArray
	newTime[ClusterTime] = MakeLogicalTime(MaxValue+1, 0)

	err := passesRateLimiter(context.Background(), wall, nil, newTime)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMaxValueExceeded))
}

func TestPassesRateLimiterHonorsOverriddenDrift(t *testing.T) {
	wall := timeutil.NewManualTime(time.Unix(1000, 0))
	sv := &settings.Values{}
	require.NoError(t, MaxAcceptableClockDrift.Override(context.Background(), sv, time.Second))

	var newTime LogicalTimeArray
	newTime[ClusterTime] = MakeLogicalTime(1002, 0)

	err := passesRateLimiter(context.Background(), wall, sv, newTime)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrRateLimiterRejected))
}
