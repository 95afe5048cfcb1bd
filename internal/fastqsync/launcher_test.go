//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package fastqsync_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umccr/orcabus/internal/fastqsync"
	"go.uber.org/zap"
)

// fakeJobs launches jobs in memory
type fakeJobs struct {
	jobs        []fastqsync.Job
	unarchiving []fastqsync.Job
	launched    []fastqsync.JobType
}

func (f *fakeJobs) Jobs(ctx context.Context, fastqID string) ([]fastqsync.Job, error) {
	return f.jobs, nil
}

func (f *fakeJobs) RunJob(ctx context.Context, fastqID string, jobType fastqsync.JobType) (*fastqsync.Job, error) {
	f.launched = append(f.launched, jobType)
	return &fastqsync.Job{ID: fmt.Sprintf("fqj.%d", len(f.launched)), FastqID: fastqID, JobType: jobType, Status: fastqsync.JobPending}, nil
}

func (f *fakeJobs) UnarchivingJobs(ctx context.Context, fastqID string) ([]fastqsync.Job, error) {
	return f.unarchiving, nil
}

func (f *fakeJobs) Unarchive(ctx context.Context, fastqIDs []string) (*fastqsync.Job, error) {
	f.launched = append(f.launched, fastqsync.JobUnarchiving)
	return &fastqsync.Job{ID: "ufj.01", FastqIDs: fastqIDs, JobType: fastqsync.JobUnarchiving, Status: fastqsync.JobPending}, nil
}

func newLauncher(r *fastqsync.FastqListRow, jobs *fakeJobs) *fastqsync.Launcher {
	fastq := &fakeFastq{rows: map[string]*fastqsync.FastqListRow{r.ID: r}}
	return fastqsync.NewLauncher(fastq, jobs, byob, zap.NewNop())
}

func TestLaunchRequirements(t *testing.T) {
	jobs := &fakeJobs{
		jobs: []fastqsync.Job{
			{ID: "fqj.00", JobType: fastqsync.JobQc, Status: fastqsync.JobRunning},
			{ID: "fqj.99", JobType: fastqsync.JobNtsm, Status: fastqsync.JobFailed},
		},
	}

	out, err := newLauncher(row(t), jobs).LaunchRequirements(context.Background(),
		fastqsync.LaunchRequest{FastqListRowID: "fqr.01JQ3BETTR9JPV33S3ZXB18HBN", Requirements: all},
	)
	require.NoError(t, err)
	assert.Equal(t, []fastqsync.JobType{fastqsync.JobNtsm, fastqsync.JobFileCompression}, jobs.launched)
	assert.Equal(t, []string{"fqj.1", "fqj.2"}, out.JobIDs)
}

func TestLaunchRequirementsSatisfied(t *testing.T) {
	jobs := &fakeJobs{}

	out, err := newLauncher(row(t), jobs).LaunchRequirements(context.Background(),
		fastqsync.LaunchRequest{
			FastqListRowID: "fqr.01JQ3BETTR9JPV33S3ZXB18HBN",
			Requirements:   []fastqsync.Requirement{fastqsync.HasActiveReadSet},
		},
	)
	require.NoError(t, err)
	assert.Empty(t, out.JobIDs)
	assert.Empty(t, jobs.launched)
}

func TestLaunchRequirementsArchived(t *testing.T) {
	r := row(t)
	r.ReadSet.R1.StorageClass = "DeepArchive"

	jobs := &fakeJobs{}
	_, err := newLauncher(r, jobs).LaunchRequirements(context.Background(),
		fastqsync.LaunchRequest{FastqListRowID: r.ID, Requirements: all},
	)
	require.True(t, errors.Is(err, fastqsync.ErrArchived))

	out, err := newLauncher(r, jobs).LaunchRequirements(context.Background(),
		fastqsync.LaunchRequest{FastqListRowID: r.ID, Requirements: all, IsUnarchivingAllowed: true},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"ufj.01"}, out.JobIDs)
	assert.Equal(t, []fastqsync.JobType{fastqsync.JobUnarchiving}, jobs.launched)

	jobs = &fakeJobs{
		unarchiving: []fastqsync.Job{{ID: "ufj.00", JobType: fastqsync.JobUnarchiving, Status: fastqsync.JobRunning}},
	}
	out, err = newLauncher(r, jobs).LaunchRequirements(context.Background(),
		fastqsync.LaunchRequest{FastqListRowID: r.ID, Requirements: all, IsUnarchivingAllowed: true},
	)
	require.NoError(t, err)
	assert.Empty(t, out.JobIDs)
	assert.Empty(t, jobs.launched)
}

func TestLaunchRequirementsNoReadSet(t *testing.T) {
	r := row(t)
	r.ReadSet = nil
	r.Qc = nil

	for _, unarchiving := range []bool{false, true} {
		jobs := &fakeJobs{}
		out, err := newLauncher(r, jobs).LaunchRequirements(context.Background(),
			fastqsync.LaunchRequest{
				FastqListRowID:       r.ID,
				Requirements:         []fastqsync.Requirement{fastqsync.HasQc},
				IsUnarchivingAllowed: unarchiving,
			},
		)
		require.NoError(t, err)
		assert.Empty(t, out.JobIDs)
		assert.Empty(t, jobs.launched)
	}
}
