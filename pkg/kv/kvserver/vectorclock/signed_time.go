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

import "fmt"

// ProofLen is the fixed length of a signature proof.
const ProofLen = 20

// Proof is the cryptographic proof attached to a SignedLogicalTime. The
// zero Proof is the "dummy" proof; paired with KeyID == 0 it denotes an
// unsigned time handed out to, or received from, a trusted internal peer.
type Proof [ProofLen]byte

// DummyProof is the zero Proof.
var DummyProof Proof

// IsDummy reports whether p is the zero proof.
func (p Proof) IsDummy() bool { return p == DummyProof }

// SignedLogicalTime pairs a LogicalTime with the proof and key ID that
// signed it. KeyID == 0 together with a dummy Proof denotes "unsigned".
type SignedLogicalTime struct {
	time  LogicalTime
	proof Proof
	keyID int64
}

// MakeSignedLogicalTime constructs a SignedLogicalTime.
func MakeSignedLogicalTime(t LogicalTime, proof Proof, keyID int64) SignedLogicalTime {
	return SignedLogicalTime{time: t, proof: proof, keyID: keyID}
}

// Time returns the signed LogicalTime.
func (s SignedLogicalTime) Time() LogicalTime { return s.time }

// Proof returns the signature proof.
func (s SignedLogicalTime) Proof() Proof { return s.proof }

// KeyID returns the ID of the key that produced Proof, or 0 if unsigned.
func (s SignedLogicalTime) KeyID() int64 { return s.keyID }

// IsDummy reports whether s carries no real signature.
func (s SignedLogicalTime) IsDummy() bool { return s.keyID == 0 && s.proof.IsDummy() }

// String implements fmt.Stringer.
func (s SignedLogicalTime) String() string {
	return fmt.Sprintf("SignedLogicalTime{%s, keyId:%d}", s.time, s.keyID)
}
