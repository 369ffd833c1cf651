// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package vectorclockpb defines the wire envelope gossip formats append to
// and read from. It wraps structpb.Struct, giving the document nested
// sub-documents (the way $clusterTime carries a nested signature) without a
// protoc step: structpb's generated types ship inside
// google.golang.org/protobuf itself, so any RPC layer that already
// exchanges protobuf messages can embed an Envelope's Struct as a field.
package vectorclockpb

import (
	"encoding/base64"
	"strconv"

	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/types/known/structpb"
)

// Envelope is a single outgoing or incoming gossip document.
type Envelope struct {
	doc *structpb.Struct
}

// NewEnvelope returns an empty, writable Envelope.
func NewEnvelope() *Envelope {
	return &Envelope{doc: &structpb.Struct{Fields: map[string]*structpb.Value{}}}
}

// Wrap returns an Envelope backed by an existing structpb.Struct, e.g. one
// just unmarshaled off the wire. A nil doc reads as empty; the first write
// allocates a fresh Struct, which Struct then returns.
func Wrap(doc *structpb.Struct) *Envelope {
	return &Envelope{doc: doc}
}

// Struct returns the underlying structpb.Struct, e.g. to marshal onto the
// wire as part of a larger protobuf message.
func (e *Envelope) Struct() *structpb.Struct {
	return e.doc
}

func (e *Envelope) ensure() *structpb.Struct {
	if e.doc == nil {
		e.doc = &structpb.Struct{}
	}
	if e.doc.Fields == nil {
		e.doc.Fields = map[string]*structpb.Value{}
	}
	return e.doc
}

func (e *Envelope) field(name string) (*structpb.Value, bool) {
	if e.doc == nil || e.doc.Fields == nil {
		return nil, false
	}
	v, ok := e.doc.Fields[name]
	return v, ok
}

// SetTimestamp writes name as a nested {seconds, increment} document.
func (e *Envelope) SetTimestamp(name string, seconds, increment uint32) {
	doc := e.ensure()
	doc.Fields[name] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"seconds":   structpb.NewNumberValue(float64(seconds)),
		"increment": structpb.NewNumberValue(float64(increment)),
	}})
}

// Timestamp reads a field written by SetTimestamp. ok is false if the
// field is absent; an error is returned if it is present but malformed.
func (e *Envelope) Timestamp(name string) (seconds, increment uint32, ok bool, err error) {
	v, present := e.field(name)
	if !present {
		return 0, 0, false, nil
	}
	s := v.GetStructValue()
	if s == nil {
		return 0, 0, false, errors.Newf("%s is not a Timestamp", name)
	}
	secV, ok1 := s.Fields["seconds"]
	incV, ok2 := s.Fields["increment"]
	if !ok1 || !ok2 {
		return 0, 0, false, errors.Newf("%s is not a Timestamp", name)
	}
	return uint32(secV.GetNumberValue()), uint32(incV.GetNumberValue()), true, nil
}

// SetSubdoc starts a nested document under name and returns an Envelope
// wrapping it for further writes.
func (e *Envelope) SetSubdoc(name string) *Envelope {
	doc := e.ensure()
	sub := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	doc.Fields[name] = structpb.NewStructValue(sub)
	return &Envelope{doc: sub}
}

// Subdoc reads a nested document written by SetSubdoc. ok is false if the
// field is absent.
func (e *Envelope) Subdoc(name string) (*Envelope, bool, error) {
	v, present := e.field(name)
	if !present {
		return nil, false, nil
	}
	s := v.GetStructValue()
	if s == nil {
		return nil, false, errors.Newf("%s is not an object", name)
	}
	return &Envelope{doc: s}, true, nil
}

// SetBinData writes data as a base64-encoded string field.
func (e *Envelope) SetBinData(name string, data []byte) {
	doc := e.ensure()
	doc.Fields[name] = structpb.NewStringValue(base64.StdEncoding.EncodeToString(data))
}

// BinData reads a field written by SetBinData.
func (e *Envelope) BinData(name string) ([]byte, bool, error) {
	v, present := e.field(name)
	if !present {
		return nil, false, nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return nil, false, errors.Newf("%s is not BinData", name)
	}
	data, err := base64.StdEncoding.DecodeString(sv.StringValue)
	if err != nil {
		return nil, false, errors.Wrapf(err, "%s is not valid BinData", name)
	}
	return data, true, nil
}

// SetInt64 writes v as a decimal string field, avoiding the float64
// precision loss structpb.Value's native number kind would impose on a
// signed 64-bit key ID.
func (e *Envelope) SetInt64(name string, v int64) {
	doc := e.ensure()
	doc.Fields[name] = structpb.NewStringValue(strconv.FormatInt(v, 10))
}

// Int64 reads a field written by SetInt64.
func (e *Envelope) Int64(name string) (int64, bool, error) {
	v, present := e.field(name)
	if !present {
		return 0, false, nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return 0, false, errors.Newf("%s is not an integer", name)
	}
	n, err := strconv.ParseInt(sv.StringValue, 10, 64)
	if err != nil {
		return 0, false, errors.Wrapf(err, "%s is not an integer", name)
	}
	return n, true, nil
}
