//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package awsenv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umccr/orcabus/internal/awsenv"
)

type env struct {
	EventBusName string `mapstructure:"EVENT_BUS_NAME"`
	TableName    string `mapstructure:"TABLE_NAME"`
	Verbose      bool   `mapstructure:"VERBOSE"`
	Retries      int    `mapstructure:"RETRIES"`
}

func TestDecode(t *testing.T) {
	var cfg env
	err := awsenv.Decode(
		map[string]string{
			"EVENT_BUS_NAME": "OrcaBusMain",
			"TABLE_NAME":     "IcaEventTranslatorTable",
			"VERBOSE":        "true",
			"RETRIES":        "3",
			"AWS_REGION":     "ap-southeast-2",
		},
		&cfg, "EVENT_BUS_NAME", "TABLE_NAME",
	)
	require.NoError(t, err)
	assert.Equal(t, env{"OrcaBusMain", "IcaEventTranslatorTable", true, 3}, cfg)
}

func TestDecodeRequired(t *testing.T) {
	var cfg env
	err := awsenv.Decode(map[string]string{"TABLE_NAME": ""}, &cfg, "EVENT_BUS_NAME", "TABLE_NAME")
	require.ErrorContains(t, err, "EVENT_BUS_NAME, TABLE_NAME")
}

func TestLoad(t *testing.T) {
	t.Setenv("EVENT_BUS_NAME", "OrcaBusMain")

	var cfg env
	require.NoError(t, awsenv.Load(&cfg, "EVENT_BUS_NAME"))
	assert.Equal(t, "OrcaBusMain", cfg.EventBusName)
}
