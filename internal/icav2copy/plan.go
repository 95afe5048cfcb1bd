//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

// Package icav2copy plans and launches ICAv2 data copy jobs.
package icav2copy

import (
	"context"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

const Scheme = "icav2://"

var multiPartETag = regexp.MustCompile(`^\w+-\d+$`)

// ICA is project data API used by the planner
type ICA interface {
	Get(ctx context.Context, ref DataRef) (*ProjectData, error)
	Lookup(ctx context.Context, projectID, path string) (*ProjectData, error)
	List(ctx context.Context, projectID, folderID string) ([]ProjectData, error)
	CreateFolder(ctx context.Context, projectID, path string) (*ProjectData, error)
}

// ParseURI splits icav2://<project>/<path> into project and absolute path.
func ParseURI(uri string) (string, string, error) {
	if !strings.HasPrefix(uri, Scheme) {
		return "", "", errors.Errorf("invalid uri %q, scheme %s is required", uri, Scheme)
	}

	project, path, _ := strings.Cut(strings.TrimPrefix(uri, Scheme), "/")
	if project == "" {
		return "", "", errors.Errorf("invalid uri %q, project is not defined", uri)
	}

	return project, "/" + path, nil
}

// ValidateDestination requires destination to be a folder
func ValidateDestination(uri string) error {
	if !strings.HasSuffix(uri, "/") {
		return errors.Errorf("destination uri %q must end with a '/'", uri)
	}
	_, _, err := ParseURI(uri)
	return err
}

// IsMultiPart is true for objects uploaded with multipart upload.
func IsMultiPart(pd *ProjectData) bool {
	return multiPartETag.MatchString(pd.Data.Details.ObjectETag)
}

// SplitByPartCount classifies objects by eTag. Single part objects are
// uploaded one by one, multi part objects are copied in batch.
func SplitByPartCount(objects []ProjectData) (single, multi []DataRef) {
	single, multi = []DataRef{}, []DataRef{}
	for i := range objects {
		if IsMultiPart(&objects[i]) {
			multi = append(multi, objects[i].Ref())
		} else {
			single = append(single, objects[i].Ref())
		}
	}
	return single, multi
}

// PlanCopyJobs resolves sources and destination. Files are copied in the
// flat data list, every folder becomes a job copying its direct children
// into a new folder of the same name under destination.
func PlanCopyJobs(ctx context.Context, ica ICA, sources []string, destination string) (*Plan, error) {
	if err := ValidateDestination(destination); err != nil {
		return nil, err
	}

	dest, err := resolve(ctx, ica, destination, true)
	if err != nil {
		return nil, errors.Wrap(err, "destination")
	}

	plan := &Plan{
		SourceDataList:           []DataRef{},
		DestinationData:          dest.Ref(),
		RecursiveCopyJobsURIList: []CopyJob{},
	}

	for _, uri := range sources {
		src, err := resolve(ctx, ica, uri, false)
		if err != nil {
			return nil, errors.Wrapf(err, "source %s", uri)
		}

		if !src.IsFolder() {
			plan.SourceDataList = append(plan.SourceDataList, src.Ref())
			continue
		}

		children, err := ica.List(ctx, src.ProjectID, src.Data.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list %s", uri)
		}

		folder, err := ica.CreateFolder(ctx, dest.ProjectID, dest.Data.Details.Path+src.Data.Details.Name+"/")
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create folder for %s", uri)
		}

		job := CopyJob{DestinationURI: folder.URI(), SourceURIList: make([]string, 0, len(children))}
		for i := range children {
			job.SourceURIList = append(job.SourceURIList, children[i].URI())
		}
		plan.RecursiveCopyJobsURIList = append(plan.RecursiveCopyJobsURIList, job)
	}

	return plan, nil
}

func resolve(ctx context.Context, ica ICA, uri string, create bool) (*ProjectData, error) {
	project, path, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	pd, err := ica.Lookup(ctx, project, path)
	switch {
	case err == nil:
		return pd, nil
	case errors.Is(err, ErrNotFound) && create && strings.HasSuffix(path, "/"):
		return ica.CreateFolder(ctx, project, path)
	default:
		return nil, err
	}
}
