//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package icav2copy

import (
	"context"

	"github.com/pkg/errors"
	"github.com/umccr/orcabus/internal/tasktoken"
	"go.uber.org/zap"
)

// JobStatusChanged is event code of ICA job state change
const JobStatusChanged = "ICA_JOB_001"

// JobEvent is detail of ICA job notification relayed by the pipe.
type JobEvent struct {
	ICAEvent struct {
		EventCode string `json:"eventCode"`
		ProjectID string `json:"projectId"`
		Payload   struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"payload"`
	} `json:"ica-event"`
}

// Waiter parks task tokens of copy jobs until ICA reports completion.
type Waiter struct {
	tokens *tasktoken.Store
	sfn    tasktoken.SFN
	log    *zap.Logger
}

func NewWaiter(tokens *tasktoken.Store, sfn tasktoken.SFN, log *zap.Logger) *Waiter {
	return &Waiter{tokens: tokens, sfn: sfn, log: log}
}

type SaveTokenRequest struct {
	TaskToken string  `json:"taskToken"`
	JobID     string  `json:"jobId"`
	Data      DataRef `json:"destinationData"`
}

// SaveJobToken parks task token of the execution waiting for copy job.
func (w *Waiter) SaveJobToken(ctx context.Context, req SaveTokenRequest) error {
	if req.JobID == "" {
		return errors.New("jobId is not defined")
	}

	_, err := w.tokens.Put(ctx, req.JobID, req.TaskToken, req)
	if err != nil {
		return err
	}

	w.log.Info("waiting for copy job", zap.String("jobId", req.JobID))
	return nil
}

// ReleaseJob resumes executions waiting for the job once it is terminal.
func (w *Waiter) ReleaseJob(ctx context.Context, evt JobEvent) (int, error) {
	job := evt.ICAEvent.Payload
	if evt.ICAEvent.EventCode != JobStatusChanged || job.ID == "" {
		return 0, errors.Errorf("unexpected ICA event %s", evt.ICAEvent.EventCode)
	}

	status := JobState(job.Status)
	if status == JobRunning {
		return 0, nil
	}

	seq, err := w.tokens.List(ctx, job.ID)
	if err != nil {
		return 0, err
	}

	for _, token := range seq {
		if status == JobSucceeded {
			err = tasktoken.Succeed(ctx, w.sfn, token.TaskToken, JobStatusResponse{JobID: job.ID, JobStatus: status})
		} else {
			err = tasktoken.Fail(ctx, w.sfn, token.TaskToken, "CopyJobFailed", "copy job "+job.ID+" is "+job.Status)
		}
		if err != nil && !errors.Is(err, tasktoken.ErrStale) {
			return 0, err
		}

		if err := w.tokens.Delete(ctx, token); err != nil {
			return 0, err
		}
	}

	w.log.Info("copy job completed",
		zap.String("jobId", job.ID),
		zap.String("status", job.Status),
		zap.Int("released", len(seq)),
	)
	return len(seq), nil
}
