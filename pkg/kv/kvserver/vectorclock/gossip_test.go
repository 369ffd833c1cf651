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

	"github.com/cockroachdb/logtags"
	"github.com/stretchr/testify/require"

	"github.com/cockroachdb/vectorclock/pkg/kv/kvserver/vectorclock/vectorclockpb"
	"github.com/cockroachdb/vectorclock/pkg/util/timeutil"
)

func TestGossipInternalRoundTripAdvancesBothComponents(t *testing.T) {
	wall := timeutil.NewManualTime(time.Unix(1000, 0))
	sender := NewVectorClock(Collaborators{
		Clock:                      wall,
		FeatureCompatibility:       &fakeFCV{initialized: true, upgraded: true},
		Metrics:                    NewMetrics(),
		IsAuthorizedToAdvanceClock: func(*OperationContext) bool { return true },
	})
	receiver := NewVectorClock(Collaborators{
		Clock:                      wall,
		FeatureCompatibility:       &fakeFCV{initialized: true, upgraded: true},
		Metrics:                    NewMetrics(),
		IsAuthorizedToAdvanceClock: func(*OperationContext) bool { return true },
	})
	ctx := context.Background()
	require.NoError(t, sender.Advance(ctx, LogicalTimeArray{
		ClusterTime: MakeLogicalTime(1000, 5),
		ConfigTime:  MakeLogicalTime(1000, 2),
	}))

	internalOC := &OperationContext{Ctx: ctx, Client: &fakeClient{tags: SessionTagInternalClient}}
	env := vectorclockpb.NewEnvelope()
	wasOutput, err := sender.GossipOut(internalOC, env, GossipOutOptions{PermitRefresh: true}, 0)
	require.NoError(t, err)
	require.True(t, wasOutput)

	require.NoError(t, receiver.GossipIn(internalOC, env, false, 0))
	require.Equal(t, MakeLogicalTime(1000, 5), receiver.GetTime()[ClusterTime])
	require.Equal(t, MakeLogicalTime(1000, 2), receiver.GetTime()[ConfigTime])
}

func TestGossipExternalPathOmitsConfigTime(t *testing.T) {
	wall := timeutil.NewManualTime(time.Unix(1000, 0))
	sender := NewVectorClock(Collaborators{
		Clock:                      wall,
		FeatureCompatibility:       &fakeFCV{initialized: true, upgraded: true},
		IsAuthorizedToAdvanceClock: func(*OperationContext) bool { return true },
	})
	ctx := context.Background()
	require.NoError(t, sender.Advance(ctx, LogicalTimeArray{
		ClusterTime: MakeLogicalTime(1000, 5),
		ConfigTime:  MakeLogicalTime(1000, 2),
	}))

	externalOC := &OperationContext{Ctx: ctx, Client: &fakeClient{tags: 0}}
	env := vectorclockpb.NewEnvelope()
	_, err := sender.GossipOut(externalOC, env, GossipOutOptions{PermitRefresh: true}, 0)
	require.NoError(t, err)

	_, ok, err := env.Subdoc(ConfigTimeFieldName)
	require.NoError(t, err)
	require.False(t, ok)

	receiver := NewVectorClock(Collaborators{
		Clock:                      wall,
		IsAuthorizedToAdvanceClock: func(*OperationContext) bool { return true },
	})
	require.NoError(t, receiver.GossipIn(externalOC, env, false, 0))
	require.Equal(t, MakeLogicalTime(1000, 5), receiver.GetTime()[ClusterTime])
	require.True(t, receiver.GetTime()[ConfigTime].IsZero())
}

func TestGossipOutFcvGateOmitsConfigTimeUntilUpgraded(t *testing.T) {
	wall := timeutil.NewManualTime(time.Unix(1000, 0))
	vc := NewVectorClock(Collaborators{
		Clock:                      wall,
		FeatureCompatibility:       &fakeFCV{initialized: false, upgraded: false},
		IsAuthorizedToAdvanceClock: func(*OperationContext) bool { return true },
	})
	require.NoError(t, vc.Advance(context.Background(), LogicalTimeArray{
		ClusterTime: MakeLogicalTime(1000, 1),
		ConfigTime:  MakeLogicalTime(1000, 1),
	}))

	internalOC := &OperationContext{Ctx: context.Background(), Client: &fakeClient{tags: SessionTagInternalClient}}
	env := vectorclockpb.NewEnvelope()
	wasOutput, err := vc.GossipOut(internalOC, env, GossipOutOptions{}, 0)
	require.NoError(t, err)
	require.True(t, wasOutput)

	_, ok, err := env.Subdoc(ConfigTimeFieldName)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGossipInRejectsCandidateFailingRateLimiter(t *testing.T) {
	wall := timeutil.NewManualTime(time.Unix(1000, 0))
	receiver := NewVectorClock(Collaborators{Clock: wall, Metrics: NewMetrics()})

	// ClusterTime is wired to SignedFormat, so the candidate has to be
	// written in its signed shape, not a bare timestamp.
	badSeconds := 1000 + uint32(MaxAcceptableClockDrift.Default()/time.Second) + 100
	env := vectorclockpb.NewEnvelope()
	sub := env.SetSubdoc(ClusterTimeFieldName)
	sub.SetTimestamp(signedClusterTimeFieldName, badSeconds, 0)
	sig := sub.SetSubdoc(signatureFieldName)
	sig.SetBinData(signatureHashFieldName, DummyProof[:])
	sig.SetInt64(signatureKeyIDFieldName, 0)

	receiver.deps.IsAuthorizedToAdvanceClock = func(*OperationContext) bool { return true }
	internalOC := &OperationContext{
		Ctx:    context.Background(),
		Client: &fakeClient{tags: SessionTagInternalClient},
	}

	err := receiver.GossipIn(internalOC, env, false, 0)
	require.Error(t, err)
	require.True(t, receiver.GetTime()[ClusterTime].IsZero())
}

// tagRecordingValidator captures the context it was called with, so tests
// can confirm a component tag attached at the gossip entry point survives
// through to the collaborators the gossip format strategies call into.
type tagRecordingValidator struct {
	fakeValidator
	sawCtx context.Context
}

func (v *tagRecordingValidator) SignLogicalTime(ctx context.Context, t LogicalTime) (SignedLogicalTime, error) {
	v.sawCtx = ctx
	return v.fakeValidator.SignLogicalTime(ctx, t)
}

func (v *tagRecordingValidator) Validate(ctx context.Context, signed SignedLogicalTime) error {
	v.sawCtx = ctx
	return v.fakeValidator.Validate(ctx, signed)
}

func TestGossipAttachesComponentTagToDownstreamCalls(t *testing.T) {
	outValidator := &tagRecordingValidator{fakeValidator: fakeValidator{keyID: 9}}
	sender := NewVectorClock(Collaborators{Validator: outValidator})

	oc := &OperationContext{Ctx: context.Background(), Client: &fakeClient{tags: SessionTagInternalClient, authenticated: true}}
	env := vectorclockpb.NewEnvelope()
	_, err := sender.GossipOut(oc, env, GossipOutOptions{PermitRefresh: true}, 0)
	require.NoError(t, err)
	require.NotNil(t, outValidator.sawCtx)
	tags := logtags.FromContext(outValidator.sawCtx)
	require.NotNil(t, tags)
	require.Contains(t, tags.String(), "vectorclock")

	inValidator := &tagRecordingValidator{fakeValidator: fakeValidator{keyID: 9}}
	receiver := NewVectorClock(Collaborators{Validator: inValidator})
	require.NoError(t, receiver.GossipIn(oc, env, true, 0))
	require.NotNil(t, inValidator.sawCtx)
	tags = logtags.FromContext(inValidator.sawCtx)
	require.NotNil(t, tags)
	require.Contains(t, tags.String(), "vectorclock")
}
