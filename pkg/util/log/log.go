// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package log is a small, context-first structured logger exposing the
// subset of the surface that callers elsewhere in this codebase reach for:
// Infof/Warningf/Errorf/Fatalf plus verbosity-gated VInfof. It carries
// logtags from the context and formats its arguments with redact.Sprintf,
// then strips the redaction markers before writing, so unsafe values appear
// in full in the output. It does not reproduce the full channel/vmodule log
// engine that the surface is normally backed by.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
)

// Severity identifies the level of a log line.
type Severity int32

// Severities, least to most severe.
const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "I"
	case SeverityWarning:
		return "W"
	case SeverityError:
		return "E"
	case SeverityFatal:
		return "F"
	default:
		return "?"
	}
}

// vLevel is the process-wide verbosity level consulted by VInfof and
// ExpensiveLogEnabled, mirroring --vmodule-style gating without the
// per-file granularity of the real log engine.
var vLevel int32

// SetVLevel sets the verbosity level used by VInfof/ExpensiveLogEnabled.
// Exposed for tests that want to exercise verbose-only log lines.
func SetVLevel(level int32) {
	atomic.StoreInt32(&vLevel, level)
}

// ExpensiveLogEnabled reports whether a log line gated at the given
// verbosity level would be emitted. Callers building an expensive log
// argument should check this before doing the work, mirroring
// log.ExpensiveLogEnabled in the package this one stands in for.
func ExpensiveLogEnabled(_ context.Context, level int32) bool {
	return atomic.LoadInt32(&vLevel) >= level
}

// output is where every exported logging function in this package
// ultimately funnels through, so tests can intercept it.
var output io.Writer = os.Stderr

func write(ctx context.Context, sev Severity, format string, args ...interface{}) {
	msg := redact.Sprintf(format, args...)
	tagStr := ""
	if tags := logtags.FromContext(ctx); tags != nil && len(tags.Get()) > 0 {
		tagStr = "[" + tags.String() + "] "
	}
	fmt.Fprintf(output, "%s %s%s\n", sev, tagStr, msg.StripMarkers())
}

// Infof logs an informational message.
func Infof(ctx context.Context, format string, args ...interface{}) {
	write(ctx, SeverityInfo, format, args...)
}

// Warningf logs a warning.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	write(ctx, SeverityWarning, format, args...)
}

// Errorf logs an error.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	write(ctx, SeverityError, format, args...)
}

// Fatalf logs a fatal message and terminates the process. Reserved for
// invariant violations that should abort the process rather than limp
// along in a known-bad state.
func Fatalf(ctx context.Context, format string, args ...interface{}) {
	write(ctx, SeverityFatal, format, args...)
	os.Exit(1)
}

// VInfof logs an informational message only if the verbosity level is at
// least `level`, the way log.VInfof/log.V(n).Infof gate expensive or
// high-frequency log lines (e.g. every gossip round trip) behind a level
// that's off by default.
func VInfof(ctx context.Context, level int32, format string, args ...interface{}) {
	if !ExpensiveLogEnabled(ctx, level) {
		return
	}
	write(ctx, SeverityInfo, format, args...)
}
