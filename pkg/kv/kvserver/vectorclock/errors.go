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
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// Sentinel errors, checkable with errors.Is against whatever the returning
// function actually constructed with errors.Mark.
var (
	// ErrRateLimiterRejected marks an advance whose candidate tuple drifted
	// too far ahead of this node's wall clock.
	ErrRateLimiterRejected = errors.New("candidate time fails rate limiter")
	// ErrMaxValueExceeded marks an advance whose candidate tuple exceeded
	// MaxValue in either field.
	ErrMaxValueExceeded = errors.New("logical time exceeds maximum value")
	// ErrBadValue marks a malformed wire field.
	ErrBadValue = errors.New("bad value")
	// ErrCannotVerifyAndSignLogicalTime marks a signed incoming time that
	// this node has no validator to check.
	ErrCannotVerifyAndSignLogicalTime = errors.New("cannot verify and sign logical time")
)

// MaxValueExceededCode is the stable numeric error code that corresponds to
// ErrMaxValueExceeded, for callers that report errors by code rather than
// by Go error identity. The error values themselves do not carry it; such
// callers map errors.Is(err, ErrMaxValueExceeded) to this code.
const MaxValueExceededCode = 40484

func newRateLimiterError(componentName string, newSecs, wallSecs uint32) error {
	return errors.Mark(
		errors.Newf(
			"new %s, %d, is too far from this node's wall clock time, %d",
			redact.Safe(componentName), newSecs, wallSecs,
		),
		ErrRateLimiterRejected,
	)
}

func newMaxValueExceededError(componentName string) error {
	return errors.Mark(
		errors.Newf("%s cannot be advanced beyond its maximum value", redact.Safe(componentName)),
		ErrMaxValueExceeded,
	)
}

func newBadValueError(fieldName, reason string) error {
	return errors.Mark(
		errors.Newf("%s %s", redact.Safe(fieldName), redact.Safe(reason)),
		ErrBadValue,
	)
}

func newCannotVerifyError(t LogicalTime) error {
	return errors.Mark(
		errors.Newf("cannot accept logicalTime: %s. May not be a part of a sharded cluster", t),
		ErrCannotVerifyAndSignLogicalTime,
	)
}
