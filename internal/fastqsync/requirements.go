//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

// Package fastqsync holds the sync rules of fastq list rows: a service
// waits (task token) until every row of a fastq set satisfies its
// requirements, jobs are launched for unsatisfied ones.
package fastqsync

import (
	"strings"

	"github.com/pkg/errors"
)

type Requirement string

const (
	HasActiveReadSet              Requirement = "hasActiveReadSet"
	HasQc                         Requirement = "hasQc"
	HasFingerprint                Requirement = "hasFingerprint"
	HasFileCompressionInformation Requirement = "hasFileCompressionInformation"
)

// ActiveStorageClasses are storage classes readable without restore.
var ActiveStorageClasses = []string{"Standard", "StandardIa", "IntelligentTiering", "GlacierIr"}

// ErrArchived is raised when set is archived but unarchiving is not allowed.
var ErrArchived = errors.New("fastq is archived but unarchiving is not allowed")

func isActiveStorageClass(class string) bool {
	for _, x := range ActiveStorageClasses {
		if x == class {
			return true
		}
	}
	return false
}

// IsActiveReadSet is true iff every object of the read set is in active
// storage and located under the bring-your-own-bucket prefix.
func IsActiveReadSet(row *FastqListRow, byobPrefix string) bool {
	if row.ReadSet == nil {
		return false
	}

	for _, obj := range row.ReadSet.Objects() {
		if !isActiveStorageClass(obj.StorageClass) || !strings.HasPrefix(obj.S3URI, byobPrefix) {
			return false
		}
	}

	return true
}

func HasQcStats(row *FastqListRow) bool { return row.Qc != nil }

func HasNtsm(row *FastqListRow) bool { return row.Ntsm != nil }

// HasCompressionMetadata requires active read set. Only ORA compressed
// objects carry gzip size and raw md5sum.
func HasCompressionMetadata(row *FastqListRow, byobPrefix string) bool {
	if !IsActiveReadSet(row, byobPrefix) {
		return false
	}

	if row.ReadSet.CompressionFormat != "ORA" {
		return true
	}

	for _, obj := range row.ReadSet.Objects() {
		if obj.GzipCompressionSizeInBytes == nil || obj.RawMd5sum == nil {
			return false
		}
	}

	return true
}

// Check splits requirements into satisfied and unsatisfied by the row.
func Check(row *FastqListRow, reqs []Requirement, byobPrefix string) (satisfied, unsatisfied []Requirement, err error) {
	satisfied, unsatisfied = []Requirement{}, []Requirement{}

	for _, req := range reqs {
		var ok bool
		switch req {
		case HasActiveReadSet:
			ok = IsActiveReadSet(row, byobPrefix)
		case HasQc:
			ok = HasQcStats(row)
		case HasFingerprint:
			ok = HasNtsm(row)
		case HasFileCompressionInformation:
			ok = HasCompressionMetadata(row, byobPrefix)
		default:
			return nil, nil, errors.Errorf("unknown requirement %q", req)
		}

		if ok {
			satisfied = append(satisfied, req)
		} else {
			unsatisfied = append(unsatisfied, req)
		}
	}

	return satisfied, unsatisfied, nil
}

// CheckSet is true iff every row of the set satisfies all requirements.
// Archived rows fail with ErrArchived unless unarchiving is allowed.
func CheckSet(set *FastqSet, reqs []Requirement, byobPrefix string, unarchivingAllowed bool) (bool, error) {
	wantsActive := false
	for _, req := range reqs {
		if req == HasActiveReadSet {
			wantsActive = true
		}
	}

	for i := range set.FastqSet {
		row := &set.FastqSet[i]
		if !unarchivingAllowed && wantsActive && row.ReadSet != nil && !IsActiveReadSet(row, byobPrefix) {
			return false, errors.Wrapf(ErrArchived, "fastq list row %s", row.ID)
		}

		_, unsatisfied, err := Check(row, reqs, byobPrefix)
		if err != nil {
			return false, err
		}
		if len(unsatisfied) > 0 {
			return false, nil
		}
	}

	return true, nil
}
