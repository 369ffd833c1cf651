// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package metric

import (
	"reflect"

	"github.com/prometheus/client_golang/prometheus"
)

// reflectCollectors walks the exported fields of the struct ms points to
// and returns every field that implements prometheus.Collector, so
// Registry.AddMetricStruct doesn't require a component to hand-list its own
// metric fields.
func reflectCollectors(ms metricStruct) []prometheus.Collector {
	v := reflect.ValueOf(ms)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return nil
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return nil
	}

	var out []prometheus.Collector
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if !f.CanInterface() {
			continue
		}
		if c, ok := f.Interface().(prometheus.Collector); ok && c != nil {
			out = append(out, c)
		}
	}
	return out
}
