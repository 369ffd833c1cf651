// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package timeutil

import (
	"sync"
	"time"
)

// FullTimeFormat is the time format used to display any timestamp
// with date, time and time zone data.
const FullTimeFormat = "2006-01-02 15:04:05.999999-07:00:00"

// Now returns the current wall time, the way every other caller in this
// module should obtain it instead of calling time.Now() directly, so that
// tests can substitute a ManualTime.
func Now() time.Time {
	return time.Now()
}

// Since returns the time elapsed since t.
func Since(t time.Time) time.Duration {
	return time.Since(t)
}

// Source is the narrow wall-clock interface consumed by components that
// need to read, but not set, the current time. It stands in for the
// external wall-clock collaborator (e.g. ServiceContext.getFastClockSource())
// that a hosting process would normally provide.
type Source interface {
	Now() time.Time
}

// RealTime is the production Source, backed by the operating system clock.
type RealTime struct{}

// Now implements Source.
func (RealTime) Now() time.Time { return time.Now() }

var _ Source = RealTime{}

// ManualTime is a Source a test can advance deterministically. Modeled on
// the realClock/manualClock split used elsewhere in this codebase for
// timer-driven components: production code takes a Source and is handed
// RealTime{}, tests are handed a *ManualTime they control directly.
type ManualTime struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualTime constructs a ManualTime initialized to t.
func NewManualTime(t time.Time) *ManualTime {
	return &ManualTime{now: t}
}

// Now implements Source.
func (m *ManualTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the manual clock forward by d. Passing a negative d panics;
// a manual clock never needs to go backwards in these tests.
func (m *ManualTime) Advance(d time.Duration) {
	if d < 0 {
		panic("ManualTime: negative advance")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set pins the manual clock to t.
func (m *ManualTime) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

var _ Source = (*ManualTime)(nil)
