//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umccr/orcabus/internal/config"
)

func TestParseStages(t *testing.T) {
	opts := &options{}
	stages, err := opts.parseStages()
	require.NoError(t, err)
	assert.Equal(t, config.Stages(), stages)

	opts.stages = []string{"Gamma", "prod"}
	stages, err = opts.parseStages()
	require.NoError(t, err)
	assert.Equal(t, []config.AppStage{config.Gamma, config.Prod}, stages)

	opts.stages = []string{"dev"}
	_, err = opts.parseStages()
	require.Error(t, err)
}

func TestRootCmdRejectsArgs(t *testing.T) {
	for _, args := range [][]string{
		{"pipeline"},
		{"pipeline", "database"},
		{"stateful", "extra"},
	} {
		root := newRootCmd()
		root.SetArgs(args)
		root.SetOut(io.Discard)
		root.SetErr(io.Discard)
		assert.Error(t, root.Execute(), args)
	}
}
