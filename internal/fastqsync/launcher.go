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

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Launcher starts jobs producing the unsatisfied requirements of rows.
type Launcher struct {
	fastq      Fastq
	jobs       Jobs
	byobPrefix string
	log        *zap.Logger
}

func NewLauncher(fastq Fastq, jobs Jobs, byobPrefix string, log *zap.Logger) *Launcher {
	return &Launcher{fastq: fastq, jobs: jobs, byobPrefix: byobPrefix, log: log}
}

type LaunchRequest struct {
	FastqListRowID       string        `json:"fastqListRowId"`
	Requirements         []Requirement `json:"requirements"`
	IsUnarchivingAllowed bool          `json:"isUnarchivingAllowed"`
}

type LaunchResponse struct {
	FastqListRowID string   `json:"fastqListRowId"`
	JobIDs         []string `json:"jobIdList"`
}

// jobOf requirement, active read set is produced by unarchiving
var jobOf = map[Requirement]JobType{
	HasActiveReadSet:              JobUnarchiving,
	HasQc:                         JobQc,
	HasFingerprint:                JobNtsm,
	HasFileCompressionInformation: JobFileCompression,
}

// LaunchRequirements launches one job per unsatisfied requirement of the
// row unless job of same type is already pending or running. Jobs other
// than unarchiving need active read set, they are postponed until the
// row is unarchived.
func (l *Launcher) LaunchRequirements(ctx context.Context, req LaunchRequest) (LaunchResponse, error) {
	if req.FastqListRowID == "" {
		return LaunchResponse{}, errors.New("fastqListRowId is not defined")
	}

	row, err := l.fastq.GetFastq(ctx, req.FastqListRowID)
	if err != nil {
		return LaunchResponse{}, err
	}

	_, unsatisfied, err := Check(row, req.Requirements, l.byobPrefix)
	if err != nil {
		return LaunchResponse{}, err
	}

	out := LaunchResponse{FastqListRowID: row.ID, JobIDs: []string{}}
	if len(unsatisfied) == 0 {
		return out, nil
	}

	if row.ReadSet == nil {
		l.log.Info("fastq list row has no read set, nothing to launch",
			zap.String("fastqListRowId", row.ID),
		)
		return out, nil
	}

	if !IsActiveReadSet(row, l.byobPrefix) {
		if !req.IsUnarchivingAllowed {
			return LaunchResponse{}, errors.Wrapf(ErrArchived, "fastq list row %s", row.ID)
		}

		id, err := l.unarchive(ctx, row.ID)
		if err != nil {
			return LaunchResponse{}, err
		}
		if id != "" {
			out.JobIDs = append(out.JobIDs, id)
		}
		return out, nil
	}

	running, err := l.jobs.Jobs(ctx, row.ID)
	if err != nil {
		return LaunchResponse{}, err
	}

	for _, requirement := range unsatisfied {
		jobType := jobOf[requirement]
		if jobType == JobUnarchiving {
			continue
		}

		if hasActiveJob(running, jobType) {
			l.log.Info("job is in progress",
				zap.String("fastqListRowId", row.ID),
				zap.String("jobType", string(jobType)),
			)
			continue
		}

		job, err := l.jobs.RunJob(ctx, row.ID, jobType)
		if err != nil {
			return LaunchResponse{}, err
		}

		l.log.Info("job launched",
			zap.String("fastqListRowId", row.ID),
			zap.String("jobType", string(jobType)),
			zap.String("jobId", job.ID),
		)
		out.JobIDs = append(out.JobIDs, job.ID)
	}

	return out, nil
}

func (l *Launcher) unarchive(ctx context.Context, fastqID string) (string, error) {
	seq, err := l.jobs.UnarchivingJobs(ctx, fastqID)
	if err != nil {
		return "", err
	}

	if hasActiveJob(seq, JobUnarchiving) {
		l.log.Info("unarchiving is in progress", zap.String("fastqListRowId", fastqID))
		return "", nil
	}

	job, err := l.jobs.Unarchive(ctx, []string{fastqID})
	if err != nil {
		return "", err
	}

	l.log.Info("unarchiving job launched",
		zap.String("fastqListRowId", fastqID),
		zap.String("jobId", job.ID),
	)
	return job.ID, nil
}
