//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package fastqsync_test

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umccr/orcabus/internal/fastqsync"
)

const byob = "s3://pipeline-dev-cache-503977275616-ap-southeast-2/byob-icav2/development/"

const oraRow = `{
	"id": "fqr.01JQ3BETTR9JPV33S3ZXB18HBN",
	"fastqSetId": "fqs.01JQ3BETXHQP3FEENYNFJAD7F1",
	"index": "TCTCTACT+GAACCGCG",
	"lane": 4,
	"instrumentRunId": "241024_A00130_0336_BHW7MVDSXC",
	"library": {"orcabusId": "lib.01JBB5Y44ZSWKBXJJFHRHJ94CK", "libraryId": "L2401548"},
	"readSet": {
		"r1": {
			"ingestId": "0195c5fb-8352-7a60-b45f-a93989c559a1",
			"s3Uri": "s3://pipeline-dev-cache-503977275616-ap-southeast-2/byob-icav2/development/primary/241024_A00130_0336_BHW7MVDSXC/L2401548_S24_L004_R1_001.fastq.ora",
			"storageClass": "Standard",
			"gzipCompressionSizeInBytes": null,
			"rawMd5sum": null
		},
		"r2": {
			"ingestId": "0195c5fb-8ab5-7f71-8a7d-23fa5bdf3f2d",
			"s3Uri": "s3://pipeline-dev-cache-503977275616-ap-southeast-2/byob-icav2/development/primary/241024_A00130_0336_BHW7MVDSXC/L2401548_S24_L004_R2_001.fastq.ora",
			"storageClass": "Standard",
			"gzipCompressionSizeInBytes": null,
			"rawMd5sum": null
		},
		"compressionFormat": "ORA"
	},
	"qc": null,
	"ntsm": null,
	"readCount": 517512667,
	"baseCountEst": 1035025334,
	"isValid": true
}`

var all = []fastqsync.Requirement{
	fastqsync.HasActiveReadSet,
	fastqsync.HasQc,
	fastqsync.HasFingerprint,
	fastqsync.HasFileCompressionInformation,
}

func row(t *testing.T) *fastqsync.FastqListRow {
	var row fastqsync.FastqListRow
	require.NoError(t, json.Unmarshal([]byte(oraRow), &row))
	return &row
}

func TestCheckOraRow(t *testing.T) {
	satisfied, unsatisfied, err := fastqsync.Check(row(t), all, byob)
	require.NoError(t, err)
	assert.Equal(t, []fastqsync.Requirement{fastqsync.HasActiveReadSet}, satisfied)
	assert.Equal(t,
		[]fastqsync.Requirement{fastqsync.HasQc, fastqsync.HasFingerprint, fastqsync.HasFileCompressionInformation},
		unsatisfied,
	)
}

func TestCheckCompleteRow(t *testing.T) {
	r := row(t)
	size, md5 := int64(1024), "d41d8cd98f00b204e9800998ecf8427e"
	for _, obj := range r.ReadSet.Objects() {
		obj.GzipCompressionSizeInBytes = &size
		obj.RawMd5sum = &md5
	}
	r.Qc = map[string]any{"insertSizeEstimate": 300}
	r.Ntsm = map[string]any{"s3Uri": "s3://bucket/ntsm"}

	satisfied, unsatisfied, err := fastqsync.Check(r, all, byob)
	require.NoError(t, err)
	assert.Equal(t, all, satisfied)
	assert.Empty(t, unsatisfied)
}

func TestActiveReadSet(t *testing.T) {
	r := row(t)
	assert.True(t, fastqsync.IsActiveReadSet(r, byob))
	assert.False(t, fastqsync.IsActiveReadSet(r, "s3://other-bucket/"))

	r.ReadSet.R2.StorageClass = "DeepArchive"
	assert.False(t, fastqsync.IsActiveReadSet(r, byob))

	r.ReadSet.R2 = nil
	assert.True(t, fastqsync.IsActiveReadSet(r, byob))

	r.ReadSet = nil
	assert.False(t, fastqsync.IsActiveReadSet(r, byob))
	assert.False(t, fastqsync.HasCompressionMetadata(r, byob))
}

func TestCompressionMetadataGzip(t *testing.T) {
	r := row(t)
	r.ReadSet.CompressionFormat = "GZIP"
	assert.True(t, fastqsync.HasCompressionMetadata(r, byob))
}

func TestCheckUnknownRequirement(t *testing.T) {
	_, _, err := fastqsync.Check(row(t), []fastqsync.Requirement{"hasMagic"}, byob)
	require.Error(t, err)
}

func TestCheckSet(t *testing.T) {
	set := &fastqsync.FastqSet{ID: "fqs.01JQ3BETXHQP3FEENYNFJAD7F1", FastqSet: []fastqsync.FastqListRow{*row(t)}}

	met, err := fastqsync.CheckSet(set, []fastqsync.Requirement{fastqsync.HasActiveReadSet}, byob, false)
	require.NoError(t, err)
	assert.True(t, met)

	met, err = fastqsync.CheckSet(set, all, byob, false)
	require.NoError(t, err)
	assert.False(t, met)
}

func TestCheckSetArchived(t *testing.T) {
	r := row(t)
	r.ReadSet.R1.StorageClass = "DeepArchive"
	set := &fastqsync.FastqSet{ID: "fqs.01JQ3BETXHQP3FEENYNFJAD7F1", FastqSet: []fastqsync.FastqListRow{*r}}

	_, err := fastqsync.CheckSet(set, all, byob, false)
	require.True(t, errors.Is(err, fastqsync.ErrArchived))

	met, err := fastqsync.CheckSet(set, all, byob, true)
	require.NoError(t, err)
	assert.False(t, met)
}
