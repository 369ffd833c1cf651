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

import "github.com/cockroachdb/vectorclock/pkg/kv/kvserver/vectorclock/vectorclockpb"

// Wire field names. ClusterTimeFieldName and ConfigTimeFieldName double as
// each component's display name in log lines and error messages.
const (
	ClusterTimeFieldName = "$clusterTime"
	ConfigTimeFieldName  = "$configTime"

	signedClusterTimeFieldName = "clusterTime"
	signatureFieldName         = "signature"
	signatureHashFieldName     = "hash"
	signatureKeyIDFieldName    = "keyId"
)

// GossipFormat is a stateless, per-component strategy for encoding a
// LogicalTime onto an Envelope and decoding one back off it. Out and In are
// both free to suppress a component entirely: Out by writing nothing and
// returning false, In by returning the zero LogicalTime, which can never
// regress a VectorClock's state once merged.
type GossipFormat interface {
	// FieldName is the wire field this format reads and writes, and the
	// component's display name in logs and errors.
	FieldName() string
	// Out writes c's current time t into out, under whatever rules this
	// format enforces (authorization, feature-version gating, signing). It
	// reports whether a value was actually written.
	Out(oc *OperationContext, permitRefresh bool, out *vectorclockpb.Envelope, t LogicalTime, c Component, deps *Collaborators) (bool, error)
	// In extracts c's field from in, applying whatever verification this
	// format requires. It returns the zero LogicalTime if the field is
	// absent or was dropped by a verification policy.
	In(oc *OperationContext, in *vectorclockpb.Envelope, couldBeUnauthenticated bool, c Component, deps *Collaborators) (LogicalTime, error)
}

// PlainFormat writes and reads a component as a bare timestamp field, with
// no authorization or signature check at all.
type PlainFormat struct {
	fieldName string
}

// NewPlainFormat constructs a PlainFormat addressing fieldName.
func NewPlainFormat(fieldName string) *PlainFormat {
	return &PlainFormat{fieldName: fieldName}
}

// FieldName implements GossipFormat.
func (f *PlainFormat) FieldName() string { return f.fieldName }

// Out implements GossipFormat.
func (f *PlainFormat) Out(
	_ *OperationContext, _ bool, out *vectorclockpb.Envelope, t LogicalTime, _ Component, _ *Collaborators,
) (bool, error) {
	out.SetTimestamp(f.fieldName, t.Seconds(), t.Increment())
	return true, nil
}

// In implements GossipFormat.
func (f *PlainFormat) In(
	_ *OperationContext, in *vectorclockpb.Envelope, _ bool, _ Component, _ *Collaborators,
) (LogicalTime, error) {
	secs, inc, ok, err := in.Timestamp(f.fieldName)
	if err != nil {
		return LogicalTime{}, newBadValueError(f.fieldName, err.Error())
	}
	if !ok {
		return LogicalTime{}, nil
	}
	return MakeLogicalTime(secs, inc), nil
}

var _ GossipFormat = (*PlainFormat)(nil)

// SignedFormat writes and reads a component as a signed nested document:
// {<fieldName>: {clusterTime: {seconds, increment}, signature: {hash, keyId}}}.
// A privileged caller (IsAuthorizedToAdvanceClock) always gets a dummy
// signature on the way out and is never asked to pass one on the way in.
// Everyone else gets a real signature from the validator, or nothing at
// all if none is configured or available.
type SignedFormat struct {
	fieldName string
}

// NewSignedFormat constructs a SignedFormat addressing fieldName.
func NewSignedFormat(fieldName string) *SignedFormat {
	return &SignedFormat{fieldName: fieldName}
}

// FieldName implements GossipFormat.
func (f *SignedFormat) FieldName() string { return f.fieldName }

// Out implements GossipFormat.
func (f *SignedFormat) Out(
	oc *OperationContext,
	permitRefresh bool,
	out *vectorclockpb.Envelope,
	t LogicalTime,
	c Component,
	deps *Collaborators,
) (bool, error) {
	authorized := oc != nil && deps.IsAuthorizedToAdvanceClock != nil && deps.IsAuthorizedToAdvanceClock(oc)

	var signed SignedLogicalTime
	switch {
	case authorized:
		signed = MakeSignedLogicalTime(t, DummyProof, 0)
	case deps.Validator == nil:
		f.countSuppressed(deps)
		return false, nil
	case permitRefresh && oc != nil:
		var err error
		signed, err = deps.Validator.SignLogicalTime(oc.Context(), t)
		if err != nil {
			return false, err
		}
	default:
		signed = deps.Validator.TrySignLogicalTime(t)
	}

	if !authorized && signed.IsDummy() {
		f.countSuppressed(deps)
		return false, nil
	}

	sub := out.SetSubdoc(f.fieldName)
	sub.SetTimestamp(signedClusterTimeFieldName, signed.Time().Seconds(), signed.Time().Increment())
	sig := sub.SetSubdoc(signatureFieldName)
	proof := signed.Proof()
	sig.SetBinData(signatureHashFieldName, proof[:])
	sig.SetInt64(signatureKeyIDFieldName, signed.KeyID())
	return true, nil
}

func (f *SignedFormat) countSuppressed(deps *Collaborators) {
	if deps.Metrics != nil {
		deps.Metrics.ComponentsSuppressed.Inc()
	}
}

// In implements GossipFormat.
func (f *SignedFormat) In(
	oc *OperationContext,
	in *vectorclockpb.Envelope,
	couldBeUnauthenticated bool,
	c Component,
	deps *Collaborators,
) (LogicalTime, error) {
	sub, ok, err := in.Subdoc(f.fieldName)
	if err != nil {
		return LogicalTime{}, newBadValueError(f.fieldName, err.Error())
	}
	if !ok {
		return LogicalTime{}, nil
	}

	secs, inc, ok, err := sub.Timestamp(signedClusterTimeFieldName)
	if err != nil {
		return LogicalTime{}, newBadValueError(signedClusterTimeFieldName, err.Error())
	}
	if !ok {
		return LogicalTime{}, newBadValueError(signedClusterTimeFieldName, "is missing")
	}
	t := MakeLogicalTime(secs, inc)

	sigDoc, ok, err := sub.Subdoc(signatureFieldName)
	if err != nil {
		return LogicalTime{}, newBadValueError(signatureFieldName, err.Error())
	}
	if !ok {
		return LogicalTime{}, newBadValueError(signatureFieldName, "is missing")
	}

	hashBytes, ok, err := sigDoc.BinData(signatureHashFieldName)
	if err != nil {
		return LogicalTime{}, newBadValueError(signatureHashFieldName, err.Error())
	}
	if !ok || len(hashBytes) != ProofLen {
		return LogicalTime{}, newBadValueError(signatureHashFieldName, "is not a valid hash")
	}
	var proof Proof
	copy(proof[:], hashBytes)

	keyID, ok, err := sigDoc.Int64(signatureKeyIDFieldName)
	if err != nil {
		return LogicalTime{}, newBadValueError(signatureKeyIDFieldName, err.Error())
	}
	if !ok {
		return LogicalTime{}, newBadValueError(signatureKeyIDFieldName, "is missing")
	}

	signed := MakeSignedLogicalTime(t, proof, keyID)

	if oc == nil {
		// No calling peer to authorize or drop: an internal reply path
		// trusts whatever this process already accepted on the way in.
		return signed.Time(), nil
	}

	if couldBeUnauthenticated && signed.IsDummy() && deps.AuthManager != nil && deps.AuthManager.IsAuthEnabled() {
		if oc.Client != nil && !oc.Client.Authenticated() && !oc.Client.UsingLocalhostBypass() {
			if deps.Metrics != nil {
				deps.Metrics.UnsignedTimesDropped.Inc()
			}
			return LogicalTime{}, nil
		}
	}

	if deps.IsAuthorizedToAdvanceClock != nil && deps.IsAuthorizedToAdvanceClock(oc) {
		return signed.Time(), nil
	}

	if deps.Validator == nil {
		return LogicalTime{}, newCannotVerifyError(signed.Time())
	}
	if err := deps.Validator.Validate(oc.Context(), signed); err != nil {
		if deps.Metrics != nil {
			deps.Metrics.VerificationFailures.Inc()
		}
		return LogicalTime{}, err
	}
	return signed.Time(), nil
}

var _ GossipFormat = (*SignedFormat)(nil)

// FcvGatedFormat wraps another GossipFormat so that outgoing emission is
// suppressed unless the cluster's feature-compatibility version is fully
// initialized and upgraded. Incoming decode is always delegated: an older
// peer may still send the field, and there's no reason to refuse it.
type FcvGatedFormat struct {
	inner GossipFormat
}

// NewFcvGatedFormat wraps inner.
func NewFcvGatedFormat(inner GossipFormat) *FcvGatedFormat {
	return &FcvGatedFormat{inner: inner}
}

// FieldName implements GossipFormat.
func (f *FcvGatedFormat) FieldName() string { return f.inner.FieldName() }

// Out implements GossipFormat.
func (f *FcvGatedFormat) Out(
	oc *OperationContext,
	permitRefresh bool,
	out *vectorclockpb.Envelope,
	t LogicalTime,
	c Component,
	deps *Collaborators,
) (bool, error) {
	fcv := deps.FeatureCompatibility
	if fcv == nil || !fcv.IsVersionInitialized() || !fcv.IsFullyUpgraded() {
		if deps.Metrics != nil {
			deps.Metrics.ComponentsSuppressed.Inc()
		}
		return false, nil
	}
	return f.inner.Out(oc, permitRefresh, out, t, c, deps)
}

// In implements GossipFormat.
func (f *FcvGatedFormat) In(
	oc *OperationContext,
	in *vectorclockpb.Envelope,
	couldBeUnauthenticated bool,
	c Component,
	deps *Collaborators,
) (LogicalTime, error) {
	return f.inner.In(oc, in, couldBeUnauthenticated, c, deps)
}

var _ GossipFormat = (*FcvGatedFormat)(nil)

// formatRegistry binds every Component to the GossipFormat strategy that
// encodes and decodes it, built once at init time.
var formatRegistry = ComponentArray[GossipFormat]{
	ClusterTime: NewSignedFormat(ClusterTimeFieldName),
	ConfigTime:  NewFcvGatedFormat(NewPlainFormat(ConfigTimeFieldName)),
}

// componentName returns c's display name, as used in log lines and errors.
func componentName(c Component) string {
	return formatRegistry[c].FieldName()
}
