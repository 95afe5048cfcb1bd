//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

// Package translate relays workflow run state changes of internal
// services as events of the workflow manager.
package translate

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/umccr/orcabus/internal/event"
)

// Translate copies the state change, stamps it with current time and sets
// payload reference id to refID.
func Translate(detail *event.WorkflowRunStateChange, refID string, now time.Time) (event.WorkflowRunStateChange, error) {
	if detail == nil {
		return event.WorkflowRunStateChange{}, errors.New("event detail input is not set")
	}

	if refID == "" {
		return event.WorkflowRunStateChange{}, errors.New("reference id is not set")
	}

	if err := detail.Validate(); err != nil {
		return event.WorkflowRunStateChange{}, errors.Wrap(err, "invalid event detail input")
	}

	out := *detail
	out.Timestamp = event.Timestamp(now)

	payload := *detail.Payload
	payload.RefID = refID
	out.Payload = &payload

	return out, nil
}

// Relay is the lambda of event translator pipeline, it stamps the state
// change with a new reference id.
func Relay(detail event.WorkflowRunStateChange) (event.WorkflowRunStateChange, error) {
	return Translate(&detail, uuid.NewString(), time.Now())
}
