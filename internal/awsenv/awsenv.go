//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

// Package awsenv decodes lambda environment into typed config.
package awsenv

import (
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Environ of the process as map
func Environ() map[string]string {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if key, val, ok := strings.Cut(kv, "="); ok {
			env[key] = val
		}
	}
	return env
}

// Decode environment into struct fields tagged with `mapstructure:"NAME"`.
// Required variables must be defined and not empty.
func Decode(env map[string]string, val any, required ...string) error {
	missing := []string{}
	for _, key := range required {
		if env[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("environment variables are not defined: %s", strings.Join(missing, ", "))
	}

	decoder, err := mapstructure.NewDecoder(
		&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           val,
		},
	)
	if err != nil {
		return err
	}

	if err := decoder.Decode(env); err != nil {
		return errors.Wrap(err, "malformed environment")
	}

	return nil
}

// Load is Decode of the process environment
func Load(val any, required ...string) error {
	return Decode(Environ(), val, required...)
}
