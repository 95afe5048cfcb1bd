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
	"github.com/umccr/orcabus/internal/tasktoken"
	"go.uber.org/zap"
)

// Syncer parks task tokens of executions waiting for fastq set
// until its requirements are met.
type Syncer struct {
	service *Service
	tokens  *tasktoken.Store
	sfn     tasktoken.SFN
	log     *zap.Logger
}

func NewSyncer(service *Service, tokens *tasktoken.Store, sfn tasktoken.SFN, log *zap.Logger) *Syncer {
	return &Syncer{service: service, tokens: tokens, sfn: sfn, log: log}
}

// SyncRequest is detail of FastqSync event
type SyncRequest struct {
	TaskToken string     `json:"taskToken"`
	Payload   SetRequest `json:"payload"`
}

type SyncResponse struct {
	FastqSetID      string   `json:"fastqSetId"`
	Released        bool     `json:"released"`
	FastqListRowIDs []string `json:"fastqListRowIdList"`
}

// Register parks the task token and checks the set once. The token is
// released immediately if the set is ready (or archived), otherwise rows
// are returned for the launcher.
func (s *Syncer) Register(ctx context.Context, req SyncRequest) (SyncResponse, error) {
	if req.TaskToken == "" {
		return SyncResponse{}, errors.New("taskToken is not defined")
	}

	if _, err := s.tokens.Put(ctx, req.Payload.FastqSetID, req.TaskToken, req.Payload); err != nil {
		return SyncResponse{}, err
	}

	released, err := s.release(ctx, req.Payload.FastqSetID)
	if err != nil {
		return SyncResponse{}, err
	}
	if released > 0 {
		return SyncResponse{FastqSetID: req.Payload.FastqSetID, Released: true, FastqListRowIDs: []string{}}, nil
	}

	rows, err := s.service.FastqListRowIDs(ctx, SetRowsRequest{FastqSetID: req.Payload.FastqSetID})
	if err != nil {
		return SyncResponse{}, err
	}

	return SyncResponse{FastqSetID: req.Payload.FastqSetID, FastqListRowIDs: rows.FastqListRowIDs}, nil
}

// ReleaseRequest names the updated entities, either sets or rows.
type ReleaseRequest struct {
	FastqSetID      string   `json:"fastqSetId"`
	FastqListRowIDs []string `json:"fastqListRowIds"`
}

type ReleaseResponse struct {
	Released int `json:"released"`
}

// Release resumes executions waiting for sets that became ready.
func (s *Syncer) Release(ctx context.Context, req ReleaseRequest) (ReleaseResponse, error) {
	sets := map[string]struct{}{}
	if req.FastqSetID != "" {
		sets[req.FastqSetID] = struct{}{}
	}

	for _, id := range req.FastqListRowIDs {
		row, err := s.service.fastq.GetFastq(ctx, id)
		if err != nil {
			return ReleaseResponse{}, err
		}
		if row.FastqSetID != "" {
			sets[row.FastqSetID] = struct{}{}
		}
	}

	out := ReleaseResponse{}
	for id := range sets {
		n, err := s.release(ctx, id)
		if err != nil {
			return out, err
		}
		out.Released += n
	}

	return out, nil
}

func (s *Syncer) release(ctx context.Context, fastqSetID string) (int, error) {
	seq, err := s.tokens.List(ctx, fastqSetID)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, token := range seq {
		var req SetRequest
		if err := token.Decode(&req); err != nil {
			return released, err
		}

		status, err := s.service.FastqSetAgainstRequirements(ctx, req)
		switch {
		case errors.Is(err, ErrArchived):
			err = tasktoken.Fail(ctx, s.sfn, token.TaskToken, "FastqArchived", err.Error())
		case err != nil:
			return released, err
		case !status.RequirementsMet:
			continue
		default:
			err = tasktoken.Succeed(ctx, s.sfn, token.TaskToken, status)
		}

		if err != nil && !errors.Is(err, tasktoken.ErrStale) {
			return released, err
		}
		if err != nil {
			s.log.Warn("stale task token", zap.String("fastqSetId", fastqSetID), zap.Error(err))
		}

		if err := s.tokens.Delete(ctx, token); err != nil {
			return released, err
		}
		released++
	}

	return released, nil
}
