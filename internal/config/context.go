//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package config

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Overrides are stage knobs that can be changed from cdk context
// (e.g. `cdk synth -c account=000000000000 -c eventSourceBuckets=a,b`).
type Overrides struct {
	Account            string   `mapstructure:"account"`
	EventSourceBuckets []string `mapstructure:"eventSourceBuckets"`
	ArchiveBucket      string   `mapstructure:"archiveBucket"`
	LogRetentionDays   int      `mapstructure:"logRetentionDays"`
	DatabaseMaxACU     float64  `mapstructure:"databaseMaxACU"`
}

// ContextKeys lists cdk context keys recognised by ApplyContext.
func ContextKeys() []string {
	return []string{"account", "eventSourceBuckets", "archiveBucket", "logRetentionDays", "databaseMaxACU"}
}

// DecodeOverrides decodes loosely typed cdk context values. CLI context is
// always a string, lists are comma separated.
func DecodeOverrides(ctx map[string]any) (Overrides, error) {
	var o Overrides

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		WeaklyTypedInput: true,
		Result:           &o,
	})
	if err != nil {
		return o, errors.Wrap(err, "context decoder")
	}

	if err := decoder.Decode(ctx); err != nil {
		return o, errors.Wrap(err, "invalid cdk context")
	}

	return o, nil
}

// ApplyContext overlays non-zero overrides from cdk context on top of stage knobs.
func ApplyContext(v StageValues, ctx map[string]any) (StageValues, error) {
	if len(ctx) == 0 {
		return v, nil
	}

	o, err := DecodeOverrides(ctx)
	if err != nil {
		return v, err
	}

	if o.Account != "" {
		v.Account = o.Account
	}
	if len(o.EventSourceBuckets) != 0 {
		v.EventSourceBuckets = o.EventSourceBuckets
	}
	if o.ArchiveBucket != "" {
		v.ArchiveBucket = o.ArchiveBucket
	}
	if o.LogRetentionDays != 0 {
		v.LogRetentionDays = o.LogRetentionDays
	}
	if o.DatabaseMaxACU != 0 {
		if o.DatabaseMaxACU < v.Database.MinACU {
			return v, errors.Errorf("databaseMaxACU %v is below min ACU %v", o.DatabaseMaxACU, v.Database.MinACU)
		}
		v.Database.MaxACU = o.DatabaseMaxACU
	}

	return v, nil
}
