//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package fastqsync

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
)

type JobType string

const (
	JobQc              JobType = "QC"
	JobFileCompression JobType = "FILE_COMPRESSION"
	JobNtsm            JobType = "NTSM"
	JobUnarchiving     JobType = "S3_UNARCHIVING"
)

type JobStatus string

const (
	JobPending   JobStatus = "PENDING"
	JobRunning   JobStatus = "RUNNING"
	JobFailed    JobStatus = "FAILED"
	JobSucceeded JobStatus = "SUCCEEDED"
)

// IsActive is true for jobs still in progress
func (s JobStatus) IsActive() bool {
	return s == JobPending || s == JobRunning
}

// Job of fastq manager or unarchiving manager
type Job struct {
	ID       string    `json:"id"`
	FastqID  string    `json:"fastqId,omitempty"`
	FastqIDs []string  `json:"fastqIds,omitempty"`
	JobType  JobType   `json:"jobType"`
	Status   JobStatus `json:"status"`
}

// Jobs API of fastq manager and unarchiving manager
type Jobs interface {
	Jobs(ctx context.Context, fastqID string) ([]Job, error)
	RunJob(ctx context.Context, fastqID string, jobType JobType) (*Job, error)
	UnarchivingJobs(ctx context.Context, fastqID string) ([]Job, error)
	Unarchive(ctx context.Context, fastqIDs []string) (*Job, error)
}

// jobActions of fastq manager per job type
var jobActions = map[JobType]string{
	JobQc:              "runQcStats",
	JobNtsm:            "runNtsm",
	JobFileCompression: "runFileCompressionInformation",
}

type jobList struct {
	Results []Job `json:"results"`
}

func (c *Client) Jobs(ctx context.Context, fastqID string) ([]Job, error) {
	var seq jobList
	path := fastqListRowEndpoint + "/" + url.PathEscape(fastqID) + "/jobs"
	if err := c.get(ctx, c.baseURL, path, nil, &seq); err != nil {
		return nil, errors.Wrapf(err, "jobs of %s", fastqID)
	}
	return seq.Results, nil
}

func (c *Client) RunJob(ctx context.Context, fastqID string, jobType JobType) (*Job, error) {
	action, has := jobActions[jobType]
	if !has {
		return nil, errors.Errorf("job type %s is not supported by fastq manager", jobType)
	}

	var job Job
	path := fastqListRowEndpoint + "/" + url.PathEscape(fastqID) + ":" + action
	if err := c.post(ctx, c.baseURL, path, nil, &job); err != nil {
		return nil, errors.Wrapf(err, "failed to run %s job for %s", jobType, fastqID)
	}
	return &job, nil
}

func (c *Client) UnarchivingJobs(ctx context.Context, fastqID string) ([]Job, error) {
	var seq jobList
	query := url.Values{"fastqId": []string{fastqID}}
	if err := c.get(ctx, c.unarchivingURL, unarchivingEndpoint, query, &seq); err != nil {
		return nil, errors.Wrapf(err, "unarchiving jobs of %s", fastqID)
	}
	return seq.Results, nil
}

func (c *Client) Unarchive(ctx context.Context, fastqIDs []string) (*Job, error) {
	req := map[string]any{
		"fastqIds": fastqIDs,
		"jobType":  JobUnarchiving,
	}

	var job Job
	if err := c.post(ctx, c.unarchivingURL, unarchivingEndpoint, req, &job); err != nil {
		return nil, errors.Wrap(err, "failed to create unarchiving job")
	}
	return &job, nil
}

func hasActiveJob(seq []Job, jobType JobType) bool {
	for _, job := range seq {
		if job.JobType == jobType && job.Status.IsActive() {
			return true
		}
	}
	return false
}
