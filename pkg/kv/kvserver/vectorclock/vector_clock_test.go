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

	"github.com/cockroachdb/vectorclock/pkg/util/timeutil"
)

func newTestVectorClock(wall *timeutil.ManualTime) *VectorClock {
	return NewVectorClock(Collaborators{Clock: wall, Metrics: NewMetrics()})
}

func TestVectorClockStartsAtZero(t *testing.T) {
	vc := newTestVectorClock(timeutil.NewManualTime(time.Unix(1000, 0)))
	require.True(t, vc.GetTime()[ClusterTime].IsZero())
	require.True(t, vc.GetTime()[ConfigTime].IsZero())
	require.True(t, vc.IsEnabled())
}

func TestVectorClockAdvanceIsMonotonic(t *testing.T) {
	wall := timeutil.NewManualTime(time.Unix(1000, 0))
	vc := newTestVectorClock(wall)
	ctx := context.Background()

	var first LogicalTimeArray
	first[ClusterTime] = MakeLogicalTime(1000, 3)
	require.NoError(t, vc.Advance(ctx, first))
	require.Equal(t, MakeLogicalTime(1000, 3), vc.GetTime()[ClusterTime])

	// A candidate behind the current value in one component never regresses
	// it, even while advancing another component.
	var second LogicalTimeArray
	second[ClusterTime] = MakeLogicalTime(1000, 1)
	second[ConfigTime] = MakeLogicalTime(1000, 9)
	require.NoError(t, vc.Advance(ctx, second))
	require.Equal(t, MakeLogicalTime(1000, 3), vc.GetTime()[ClusterTime])
	require.Equal(t, MakeLogicalTime(1000, 9), vc.GetTime()[ConfigTime])

	require.EqualValues(t, 2, vc.deps.Metrics.AdvancesAccepted.Count())
}

func TestVectorClockAdvanceRejectsExcessiveDrift(t *testing.T) {
	wall := timeutil.NewManualTime(time.Unix(1000, 0))
	vc := newTestVectorClock(wall)
	ctx := context.Background()

	var driftTooFar LogicalTimeArray
	driftTooFar[ClusterTime] = MakeLogicalTime(1000+uint32(MaxAcceptableClockDrift.Default()/time.Second)+1, 0)

	err := vc.Advance(ctx, driftTooFar)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrRateLimiterRejected))
	require.True(t, vc.GetTime()[ClusterTime].IsZero())
	require.EqualValues(t, 1, vc.deps.Metrics.AdvancesRejected.Count())
}

func TestVectorClockDisableIsOneWay(t *testing.T) {
	vc := newTestVectorClock(timeutil.NewManualTime(time.Unix(1000, 0)))
	require.True(t, vc.IsEnabled())
	vc.Disable()
	require.False(t, vc.IsEnabled())
}

func TestVectorClockResetForTest(t *testing.T) {
	wall := timeutil.NewManualTime(time.Unix(1000, 0))
	vc := newTestVectorClock(wall)
	ctx := context.Background()

	require.NoError(t, vc.AdvanceClusterTimeForTest(ctx, MakeLogicalTime(1000, 1)))
	require.False(t, vc.GetTime()[ClusterTime].IsZero())

	vc.Disable()
	vc.ResetForTest()
	require.True(t, vc.GetTime()[ClusterTime].IsZero())
	require.True(t, vc.IsEnabled())
}

func TestRegisterVectorClockRejectsDoubleRegistration(t *testing.T) {
	ctx := context.Background()
	service := NewServiceContext()
	vc1 := newTestVectorClock(timeutil.NewManualTime(time.Unix(1000, 0)))
	RegisterVectorClock(ctx, service, vc1)
	require.Same(t, vc1, GetVectorClockForService(service))

	vc2 := newTestVectorClock(timeutil.NewManualTime(time.Unix(1000, 0)))
	require.Panics(t, func() { RegisterVectorClock(ctx, service, vc2) })

	otherService := NewServiceContext()
	require.Panics(t, func() { RegisterVectorClock(ctx, otherService, vc1) })
}

func TestGetVectorClockFromOperationContext(t *testing.T) {
	ctx := context.Background()
	service := NewServiceContext()
	vc := newTestVectorClock(timeutil.NewManualTime(time.Unix(1000, 0)))
	RegisterVectorClock(ctx, service, vc)

	oc := &OperationContext{Ctx: ctx, Client: &fakeClient{}}
	// fakeClient.ServiceContext returns nil, mirroring a client that isn't
	// wired to any service context; GetVectorClock should fail safe to nil
	// rather than panic.
	require.Nil(t, GetVectorClock(oc))
	require.Nil(t, GetVectorClock(nil))
}
