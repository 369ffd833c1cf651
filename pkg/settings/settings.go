// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package settings provides cluster-setting style configuration: a value
// registered once at init time with a key and default, read through a
// per-process Values container, with an optional change callback. Modeled
// on the RegisterDurationSetting/Get/SetOnChange call sites used throughout
// this codebase's server components.
package settings

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errNegativeDuration = errors.New("cannot be negative")

// Class describes who can set a setting. Only SystemOnly is needed here;
// the other classes that exist in a full multi-tenant settings system are
// out of scope for this module.
type Class int

// SystemOnly settings can only be set at the system level.
const SystemOnly Class = 0

// Values holds the live, possibly-overridden values of every setting
// registered against it. A nil *Values reads as all-defaults.
type Values struct {
	mu        sync.Mutex
	durations map[string]time.Duration
}

func (v *Values) durationsMap() map[string]time.Duration {
	if v.durations == nil {
		v.durations = make(map[string]time.Duration)
	}
	return v.durations
}

// DurationSetting is a cluster setting whose value is a time.Duration.
type DurationSetting struct {
	key        string
	desc       string
	defaultVal time.Duration
	validateFn func(time.Duration) error

	mu struct {
		sync.Mutex
		onChange []func(ctx context.Context)
	}
}

// RegisterDurationSetting registers a new DurationSetting under key, with
// the given description, default value, and optional validators (all must
// pass for Override to accept a new value).
func RegisterDurationSetting(
	_ Class, key, desc string, defaultVal time.Duration, validateFns ...func(time.Duration) error,
) *DurationSetting {
	s := &DurationSetting{key: key, desc: desc, defaultVal: defaultVal}
	if len(validateFns) > 0 {
		fns := validateFns
		s.validateFn = func(v time.Duration) error {
			for _, fn := range fns {
				if err := fn(v); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return s
}

// Key returns the setting's registered key.
func (s *DurationSetting) Key() string { return s.key }

// Description returns the setting's registered description.
func (s *DurationSetting) Description() string { return s.desc }

// Default returns the setting's default value.
func (s *DurationSetting) Default() time.Duration { return s.defaultVal }

// Get returns the current value of the setting in sv, or the default if sv
// is nil or has never been overridden.
func (s *DurationSetting) Get(sv *Values) time.Duration {
	if sv == nil {
		return s.defaultVal
	}
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if v, ok := sv.durationsMap()[s.key]; ok {
		return v
	}
	return s.defaultVal
}

// Override sets the setting's value in sv, running registered validators
// and SetOnChange callbacks.
func (s *DurationSetting) Override(ctx context.Context, sv *Values, v time.Duration) error {
	if s.validateFn != nil {
		if err := s.validateFn(v); err != nil {
			return err
		}
	}
	sv.mu.Lock()
	sv.durationsMap()[s.key] = v
	sv.mu.Unlock()

	s.mu.Lock()
	callbacks := append([]func(context.Context){}, s.mu.onChange...)
	s.mu.Unlock()
	for _, fn := range callbacks {
		fn(ctx)
	}
	return nil
}

// SetOnChange registers fn to be called, with the settings's owning
// context, whenever Override successfully changes the setting's value in
// sv. sv is accepted for API symmetry with the rest of this package's
// setting types; this minimal implementation calls back for any Values the
// setting is overridden on.
func (s *DurationSetting) SetOnChange(_ *Values, fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mu.onChange = append(s.mu.onChange, fn)
}

// NonNegativeDuration is a validator rejecting negative durations.
func NonNegativeDuration(v time.Duration) error {
	if v < 0 {
		return errNegativeDuration
	}
	return nil
}
