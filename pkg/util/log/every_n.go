// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package log

import (
	"sync"
	"time"
)

// EveryN rate limits spammy log lines: it tracks how recently a given event
// last fired so a caller under, say, a flood of rejected gossip messages
// can log the first occurrence and then go quiet until N has elapsed.
//
// The zero value is usable and is equivalent to Every(0), meaning every
// call to ShouldLog returns true.
type EveryN struct {
	N time.Duration

	mu            sync.Mutex
	lastProcessed time.Time
}

// Every constructs an EveryN allowing one log line every n duration.
func Every(n time.Duration) EveryN {
	return EveryN{N: n}
}

// ShouldLog reports whether it's been at least N since the last call that
// returned true, and if so, records now as the new baseline.
func (e *EveryN) ShouldLog(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if now.Sub(e.lastProcessed) < e.N {
		return false
	}
	e.lastProcessed = now
	return true
}
