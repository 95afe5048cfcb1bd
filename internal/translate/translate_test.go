//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package translate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umccr/orcabus/internal/event"
	"github.com/umccr/orcabus/internal/translate"
)

func detail() *event.WorkflowRunStateChange {
	return &event.WorkflowRunStateChange{
		PortalRunID:     "20240529abcdef12",
		Timestamp:       "2024-00-25T00:07:00Z",
		Status:          event.StatusSucceeded,
		WorkflowName:    "BclConvert",
		WorkflowVersion: "4.2.7",
		WorkflowRunName: "123456_A1234_0000_TestingPattern",
		Payload: &event.Payload{
			Version: "0.1.0",
			Data:    map[string]any{"analysisId": "valid_payload_id"},
		},
	}
}

func TestTranslate(t *testing.T) {
	in := detail()
	now := time.Date(2024, 5, 29, 9, 23, 37, 0, time.UTC)

	out, err := translate.Translate(in, "018fa7ec-281c-7b78-b055-0524cc636ead", now)
	require.NoError(t, err)

	assert.Equal(t, "2024-05-29T09:23:37Z", out.Timestamp)
	assert.Equal(t, "018fa7ec-281c-7b78-b055-0524cc636ead", out.Payload.RefID)
	assert.Equal(t, in.PortalRunID, out.PortalRunID)
	assert.Equal(t, in.Payload.Data, out.Payload.Data)

	// input is not mutated
	assert.Empty(t, in.Payload.RefID)
	assert.Equal(t, "2024-00-25T00:07:00Z", in.Timestamp)
}

func TestTranslateRejects(t *testing.T) {
	now := time.Now()

	_, err := translate.Translate(nil, "ref", now)
	require.Error(t, err)

	_, err = translate.Translate(detail(), "", now)
	require.Error(t, err)

	in := detail()
	in.Payload = nil
	_, err = translate.Translate(in, "ref", now)
	require.ErrorContains(t, err, "payload")
}

func TestRelay(t *testing.T) {
	out, err := translate.Relay(*detail())
	require.NoError(t, err)
	assert.Len(t, out.Payload.RefID, 36)
}
