//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package fastqsync

// FastqListRow as served by fastq manager, nullable attributes are pointers.
type FastqListRow struct {
	ID              string         `json:"id"`
	FastqSetID      string         `json:"fastqSetId,omitempty"`
	Index           string         `json:"index"`
	Lane            int            `json:"lane"`
	InstrumentRunID string         `json:"instrumentRunId"`
	Library         Library        `json:"library"`
	ReadSet         *ReadSet       `json:"readSet"`
	Qc              map[string]any `json:"qc"`
	Ntsm            map[string]any `json:"ntsm"`
	ReadCount       *int64         `json:"readCount,omitempty"`
	BaseCountEst    *int64         `json:"baseCountEst,omitempty"`
	IsValid         bool           `json:"isValid"`
}

type Library struct {
	OrcabusID string `json:"orcabusId"`
	LibraryID string `json:"libraryId"`
}

type ReadSet struct {
	R1                *FastqStorageObject `json:"r1"`
	R2                *FastqStorageObject `json:"r2"`
	CompressionFormat string              `json:"compressionFormat"`
}

// Objects of read set (R1 and R2 are optional)
func (rs *ReadSet) Objects() []*FastqStorageObject {
	seq := make([]*FastqStorageObject, 0, 2)
	for _, obj := range []*FastqStorageObject{rs.R1, rs.R2} {
		if obj != nil {
			seq = append(seq, obj)
		}
	}
	return seq
}

type FastqStorageObject struct {
	IngestID                   string  `json:"ingestId"`
	S3URI                      string  `json:"s3Uri"`
	StorageClass               string  `json:"storageClass"`
	Sha256                     *string `json:"sha256,omitempty"`
	GzipCompressionSizeInBytes *int64  `json:"gzipCompressionSizeInBytes"`
	RawMd5sum                  *string `json:"rawMd5sum"`
}

type FastqSet struct {
	ID                string         `json:"id"`
	Library           Library        `json:"library"`
	IsCurrentFastqSet bool           `json:"isCurrentFastqSet"`
	FastqSet          []FastqListRow `json:"fastqSet"`
}
