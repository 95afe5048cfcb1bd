//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package icav2copy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umccr/orcabus/internal/icav2copy"
	"go.uber.org/zap"
)

func TestJobState(t *testing.T) {
	assert.Equal(t, icav2copy.JobRunning, icav2copy.JobState("WAITING_FOR_RESOURCES"))
	assert.Equal(t, icav2copy.JobSucceeded, icav2copy.JobState("SUCCEEDED"))
	assert.Equal(t, icav2copy.JobFailed, icav2copy.JobState("PARTIALLY_SUCCEEDED"))
	assert.Equal(t, icav2copy.JobFailed, icav2copy.JobState("STOPPED"))
}

func TestServiceFindSinglePartFiles(t *testing.T) {
	s := icav2copy.NewService(newFakeICA(), zap.NewNop())

	out, err := s.FindSinglePartFiles(context.Background(),
		icav2copy.PartsRequest{
			DataList: []icav2copy.DataRef{
				{ProjectID: "prj.src", DataID: "fil.fastq"},
				{ProjectID: "prj.src", DataID: "fil.report"},
			},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, []icav2copy.DataRef{{ProjectID: "prj.src", DataID: "fil.report"}}, out.SinglePartDataList)
	assert.Equal(t, []icav2copy.DataRef{{ProjectID: "prj.src", DataID: "fil.fastq"}}, out.MultiPartDataList)
}

func TestServiceLaunchCopy(t *testing.T) {
	ica := newFakeICA()
	ica.add("prj.dst", "fol.cache", "/cache/", icav2copy.DataTypeFolder, "", "AVAILABLE")
	ica.add("prj.dst", "fil.stale", "/cache/report.html", icav2copy.DataTypeFile, "", icav2copy.StatusPartial)
	s := icav2copy.NewService(ica, zap.NewNop())

	out, err := s.LaunchCopy(context.Background(),
		icav2copy.LaunchRequest{
			SourceDataList:  []icav2copy.DataRef{{ProjectID: "prj.src", DataID: "fil.report"}},
			DestinationData: icav2copy.DataRef{ProjectID: "prj.dst", DataID: "fol.cache"},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "job.1", out.JobID)
	assert.Equal(t, []icav2copy.DataRef{{ProjectID: "prj.dst", DataID: "fil.stale"}}, ica.deleted)
	assert.Equal(t, [][]string{{"fil.report"}}, ica.batches)

	_, err = s.LaunchCopy(context.Background(), icav2copy.LaunchRequest{})
	require.Error(t, err)
}

func TestServiceCheckJobStatus(t *testing.T) {
	ica := newFakeICA()
	ica.status = "INITIALIZED"
	s := icav2copy.NewService(ica, zap.NewNop())

	out, err := s.CheckJobStatus(context.Background(), icav2copy.JobStatusRequest{JobID: "job.1"})
	require.NoError(t, err)
	assert.Equal(t, icav2copy.JobRunning, out.JobStatus)
}

func TestServiceGenerateCopyJobList(t *testing.T) {
	s := icav2copy.NewService(newFakeICA(), zap.NewNop())

	plan, err := s.GenerateCopyJobList(context.Background(),
		icav2copy.CopyJobListRequest{
			SourceURIList:  []string{"icav2://prj.src/primary/run/SampleSheet.csv"},
			DestinationURI: "icav2://prj.dst/cache/",
		},
	)
	require.NoError(t, err)
	assert.Len(t, plan.SourceDataList, 1)
	assert.Empty(t, plan.RecursiveCopyJobsURIList)
}

func TestServiceUploadSinglePartFile(t *testing.T) {
	ica := newFakeICA()
	ica.add("prj.dst", "fol.cache", "/cache/", icav2copy.DataTypeFolder, "", "AVAILABLE")
	s := icav2copy.NewService(ica, zap.NewNop())

	req := icav2copy.UploadRequest{
		SourceData:      icav2copy.DataRef{ProjectID: "prj.src", DataID: "fil.report"},
		DestinationData: icav2copy.DataRef{ProjectID: "prj.dst", DataID: "fol.cache"},
	}

	require.NoError(t, s.UploadSinglePartFile(context.Background(), req))
	assert.Equal(t,
		map[string]string{"https://upload/cache/report.html": "https://download/primary/report.html"},
		ica.uploads,
	)

	// the file exists at destination after the first upload
	require.NoError(t, s.UploadSinglePartFile(context.Background(), req))
	assert.Len(t, ica.uploads, 1)
}

func TestServiceUploadSinglePartFileUnknownSource(t *testing.T) {
	s := icav2copy.NewService(newFakeICA(), zap.NewNop())

	err := s.UploadSinglePartFile(context.Background(),
		icav2copy.UploadRequest{
			SourceData:      icav2copy.DataRef{ProjectID: "prj.src", DataID: "fil.unknown"},
			DestinationData: icav2copy.DataRef{ProjectID: "prj.dst", DataID: "fol.cache"},
		},
	)
	require.Error(t, err)
}
