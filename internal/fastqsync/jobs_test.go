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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umccr/orcabus/internal/fastqsync"
)

func TestJobStatus(t *testing.T) {
	assert.True(t, fastqsync.JobPending.IsActive())
	assert.True(t, fastqsync.JobRunning.IsActive())
	assert.False(t, fastqsync.JobFailed.IsActive())
	assert.False(t, fastqsync.JobSucceeded.IsActive())
}

func TestClientJobs(t *testing.T) {
	var unarchive map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/fastq/fqr.01/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [{"id": "fqj.01", "fastqId": "fqr.01", "jobType": "QC", "status": "RUNNING"}]}`))
	})
	mux.HandleFunc("/api/v1/fastq/fqr.01:runNtsm", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Write([]byte(`{"id": "fqj.02", "fastqId": "fqr.01", "jobType": "NTSM", "status": "PENDING"}`))
	})
	mux.HandleFunc("/unarchiving/api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"results": [{"id": "ufj.01", "fastqIds": ["` + r.URL.Query().Get("fastqId") + `"], "jobType": "S3_UNARCHIVING", "status": "SUCCEEDED"}]}`))
		case http.MethodPost:
			json.NewDecoder(r.Body).Decode(&unarchive)
			w.Write([]byte(`{"id": "ufj.02", "fastqIds": ["fqr.01"], "jobType": "S3_UNARCHIVING", "status": "PENDING"}`))
		}
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := fastqsync.Endpoint{BaseURL: ts.URL, UnarchivingURL: ts.URL + "/unarchiving", Token: "jwt"}.Client()

	seq, err := client.Jobs(context.Background(), "fqr.01")
	require.NoError(t, err)
	require.Len(t, seq, 1)
	assert.Equal(t, fastqsync.JobQc, seq[0].JobType)
	assert.Equal(t, fastqsync.JobRunning, seq[0].Status)

	job, err := client.RunJob(context.Background(), "fqr.01", fastqsync.JobNtsm)
	require.NoError(t, err)
	assert.Equal(t, "fqj.02", job.ID)

	_, err = client.RunJob(context.Background(), "fqr.01", fastqsync.JobUnarchiving)
	require.Error(t, err)

	seq, err = client.UnarchivingJobs(context.Background(), "fqr.01")
	require.NoError(t, err)
	require.Len(t, seq, 1)
	assert.Equal(t, []string{"fqr.01"}, seq[0].FastqIDs)

	job, err = client.Unarchive(context.Background(), []string{"fqr.01"})
	require.NoError(t, err)
	assert.Equal(t, "ufj.02", job.ID)
	assert.Equal(t, "S3_UNARCHIVING", unarchive["jobType"])
	assert.Equal(t, []any{"fqr.01"}, unarchive["fastqIds"])
}
