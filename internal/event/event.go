//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

// Package event defines events exchanged over the OrcaBus main bus.
package event

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// AWSEvent is EventBridge envelope of detail T.
type AWSEvent[T any] struct {
	Version    string    `json:"version,omitempty"`
	ID         string    `json:"id,omitempty"`
	DetailType string    `json:"detail-type"`
	Source     string    `json:"source"`
	Account    string    `json:"account,omitempty"`
	Time       time.Time `json:"time"`
	Region     string    `json:"region,omitempty"`
	Resources  []string  `json:"resources,omitempty"`
	Detail     T         `json:"detail"`
}

// Status of workflow run
type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusReady      Status = "READY"
	StatusRunning    Status = "RUNNING"
	StatusSucceeded  Status = "SUCCEEDED"
	StatusFailed     Status = "FAILED"
	StatusAborted    Status = "ABORTED"
	StatusResolved   Status = "RESOLVED"
	StatusDeprecated Status = "DEPRECATED"
)

// IsTerminal is true for statuses that cannot change anymore.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusAborted, StatusResolved, StatusDeprecated:
		return true
	}
	return false
}

// Payload of workflow run state change. RefID is unique per emitted event,
// Data is workflow specific.
type Payload struct {
	RefID   string         `json:"refId,omitempty"`
	Version string         `json:"version"`
	Data    map[string]any `json:"data"`
}

// WorkflowRunStateChange is detail of the event announcing new status of
// the workflow run.
type WorkflowRunStateChange struct {
	PortalRunID     string    `json:"portalRunId"`
	Timestamp       string    `json:"timestamp"`
	Status          Status    `json:"status"`
	WorkflowName    string    `json:"workflowName"`
	WorkflowVersion string    `json:"workflowVersion"`
	WorkflowRunName string    `json:"workflowRunName"`
	LinkedLibraries []Library `json:"linkedLibraries,omitempty"`
	Payload         *Payload  `json:"payload,omitempty"`
}

type Library struct {
	LibraryID string `json:"libraryId"`
	OrcabusID string `json:"orcabusId"`
}

// WorkflowRunStateChangeSync is WorkflowRunStateChange emitted by a state
// machine paused until the workflow manager acknowledges it.
type WorkflowRunStateChangeSync struct {
	WorkflowRunStateChange
	TaskToken string `json:"taskToken"`
}

// Validate checks mandatory attributes of the state change.
func (e WorkflowRunStateChange) Validate() error {
	for attr, val := range map[string]string{
		"portalRunId":     e.PortalRunID,
		"status":          string(e.Status),
		"workflowName":    e.WorkflowName,
		"workflowVersion": e.WorkflowVersion,
		"workflowRunName": e.WorkflowRunName,
	} {
		if val == "" {
			return errors.Errorf("%s is not defined", attr)
		}
	}

	if e.Payload == nil {
		return errors.New("payload is not defined")
	}

	return nil
}

//------------------------------------------------------------------------------

// NewPortalRunID generates portal run id: date (YYYYMMDD) followed by 8
// random hex characters.
func NewPortalRunID(now time.Time) string {
	return now.UTC().Format("20060102") + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Timestamp formats time at second precision in UTC, e.g. 2024-05-29T09:23:37Z.
func Timestamp(now time.Time) string {
	return now.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// Decode parses event received from EventBridge.
func Decode[T any](raw []byte) (AWSEvent[T], error) {
	var evt AWSEvent[T]
	if err := json.Unmarshal(raw, &evt); err != nil {
		return evt, errors.Wrap(err, "malformed event")
	}
	return evt, nil
}
