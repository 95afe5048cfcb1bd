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
	"path"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Copier is ICA API required by the lambdas of copy manager
type Copier interface {
	ICA
	Delete(ctx context.Context, ref DataRef) error
	CopyBatch(ctx context.Context, dataIDs []string, destination DataRef) (string, error)
	JobStatus(ctx context.Context, projectID, jobID string) (string, error)
	DownloadURL(ctx context.Context, ref DataRef) (string, error)
	CreateFile(ctx context.Context, folder DataRef, name string) (string, error)
	Transfer(ctx context.Context, downloadURL, uploadURL string) error
}

var _ Copier = (*Client)(nil)

// Job status reported to the state machine
const (
	JobRunning   = "RUNNING"
	JobSucceeded = "SUCCEEDED"
	JobFailed    = "FAILED"
)

// JobState maps copy batch status of ICA into job status.
func JobState(status string) string {
	switch status {
	case "INITIALIZED", "WAITING_FOR_RESOURCES", "RUNNING":
		return JobRunning
	case "SUCCEEDED":
		return JobSucceeded
	default:
		return JobFailed
	}
}

type Service struct {
	ica Copier
	log *zap.Logger
}

func NewService(ica Copier, log *zap.Logger) *Service {
	return &Service{ica: ica, log: log}
}

type CopyJobListRequest struct {
	SourceURIList  []string `json:"sourceUriList"`
	DestinationURI string   `json:"destinationUri"`
}

func (s *Service) GenerateCopyJobList(ctx context.Context, req CopyJobListRequest) (*Plan, error) {
	plan, err := PlanCopyJobs(ctx, s.ica, req.SourceURIList, req.DestinationURI)
	if err != nil {
		return nil, err
	}

	s.log.Info("copy jobs planned",
		zap.String("destinationUri", req.DestinationURI),
		zap.Int("files", len(plan.SourceDataList)),
		zap.Int("folders", len(plan.RecursiveCopyJobsURIList)),
	)

	return plan, nil
}

type PartsRequest struct {
	DataList []DataRef `json:"dataList"`
}

type PartsResponse struct {
	SinglePartDataList []DataRef `json:"singlePartDataList"`
	MultiPartDataList  []DataRef `json:"multiPartDataList"`
}

func (s *Service) FindSinglePartFiles(ctx context.Context, req PartsRequest) (PartsResponse, error) {
	objects := make([]ProjectData, 0, len(req.DataList))
	for _, ref := range req.DataList {
		pd, err := s.ica.Get(ctx, ref)
		if err != nil {
			return PartsResponse{}, err
		}
		objects = append(objects, *pd)
	}

	single, multi := SplitByPartCount(objects)
	return PartsResponse{SinglePartDataList: single, MultiPartDataList: multi}, nil
}

type LaunchRequest struct {
	SourceDataList  []DataRef `json:"sourceDataList"`
	DestinationData DataRef   `json:"destinationData"`
}

type LaunchResponse struct {
	JobID string `json:"jobId"`
}

// LaunchCopy removes partially copied objects of earlier attempts from the
// destination folder, then submits the copy batch.
func (s *Service) LaunchCopy(ctx context.Context, req LaunchRequest) (LaunchResponse, error) {
	if len(req.SourceDataList) == 0 {
		return LaunchResponse{}, errors.New("sourceDataList is empty")
	}

	dest, err := s.ica.Get(ctx, req.DestinationData)
	if err != nil {
		return LaunchResponse{}, err
	}

	existing, err := s.ica.List(ctx, dest.ProjectID, dest.Data.ID)
	if err != nil {
		return LaunchResponse{}, err
	}

	for i := range existing {
		if existing[i].Data.Details.Status != StatusPartial {
			continue
		}
		s.log.Info("deleting partial data before copy",
			zap.String("path", existing[i].Data.Details.Path),
		)
		if err := s.ica.Delete(ctx, existing[i].Ref()); err != nil {
			return LaunchResponse{}, err
		}
	}

	ids := make([]string, 0, len(req.SourceDataList))
	for _, ref := range req.SourceDataList {
		ids = append(ids, ref.DataID)
	}

	jobID, err := s.ica.CopyBatch(ctx, ids, dest.Ref())
	if err != nil {
		return LaunchResponse{}, err
	}

	s.log.Info("copy batch submitted", zap.String("jobId", jobID), zap.Int("objects", len(ids)))
	return LaunchResponse{JobID: jobID}, nil
}

type JobStatusRequest struct {
	DestinationData DataRef `json:"destinationData"`
	JobID           string  `json:"jobId"`
}

type JobStatusResponse struct {
	JobID     string `json:"jobId"`
	JobStatus string `json:"jobStatus"`
}

func (s *Service) CheckJobStatus(ctx context.Context, req JobStatusRequest) (JobStatusResponse, error) {
	status, err := s.ica.JobStatus(ctx, req.DestinationData.ProjectID, req.JobID)
	if err != nil {
		return JobStatusResponse{}, err
	}
	return JobStatusResponse{JobID: req.JobID, JobStatus: JobState(status)}, nil
}

type UploadRequest struct {
	SourceData      DataRef `json:"sourceData"`
	DestinationData DataRef `json:"destinationData"`
}

// UploadSinglePartFile streams single part file into the destination folder
// through presigned urls. The file already present in the folder is kept.
func (s *Service) UploadSinglePartFile(ctx context.Context, req UploadRequest) error {
	src, err := s.ica.Get(ctx, req.SourceData)
	if err != nil {
		return err
	}

	dest, err := s.ica.Get(ctx, req.DestinationData)
	if err != nil {
		return err
	}

	target := path.Join(dest.Data.Details.Path, src.Data.Details.Name)
	switch _, err := s.ica.Lookup(ctx, dest.ProjectID, target); {
	case err == nil:
		s.log.Info("file exists, upload skipped", zap.String("path", target))
		return nil
	case !errors.Is(err, ErrNotFound):
		return err
	}

	download, err := s.ica.DownloadURL(ctx, src.Ref())
	if err != nil {
		return err
	}

	upload, err := s.ica.CreateFile(ctx, dest.Ref(), src.Data.Details.Name)
	if err != nil {
		return err
	}

	if err := s.ica.Transfer(ctx, download, upload); err != nil {
		return errors.Wrapf(err, "failed to upload %s", src.URI())
	}

	s.log.Info("single part file uploaded",
		zap.String("source", src.URI()),
		zap.String("path", target),
	)
	return nil
}
