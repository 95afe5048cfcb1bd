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

// Service implements lambda handlers of fastq sync state machines.
type Service struct {
	fastq      Fastq
	byobPrefix string
	log        *zap.Logger
}

func NewService(fastq Fastq, byobPrefix string, log *zap.Logger) *Service {
	return &Service{fastq: fastq, byobPrefix: byobPrefix, log: log}
}

type RowRequest struct {
	FastqListRowID string        `json:"fastqListRowId"`
	Requirements   []Requirement `json:"requirements"`
}

type RowResponse struct {
	FastqListRow            *FastqListRow `json:"fastqListRowObj"`
	SatisfiedRequirements   []Requirement `json:"satisfiedRequirements"`
	UnsatisfiedRequirements []Requirement `json:"unsatisfiedRequirements"`
}

// FastqListRowAndRequirements fetches the row and splits its requirements.
func (s *Service) FastqListRowAndRequirements(ctx context.Context, req RowRequest) (RowResponse, error) {
	if req.FastqListRowID == "" {
		return RowResponse{}, errors.New("fastqListRowId is not defined")
	}

	row, err := s.fastq.GetFastq(ctx, req.FastqListRowID)
	if err != nil {
		return RowResponse{}, err
	}

	satisfied, unsatisfied, err := Check(row, req.Requirements, s.byobPrefix)
	if err != nil {
		return RowResponse{}, err
	}

	s.log.Info("fastq list row checked",
		zap.String("fastqListRowId", row.ID),
		zap.Int("satisfied", len(satisfied)),
		zap.Int("unsatisfied", len(unsatisfied)),
	)

	return RowResponse{
		FastqListRow:            row,
		SatisfiedRequirements:   satisfied,
		UnsatisfiedRequirements: unsatisfied,
	}, nil
}

type SetRequest struct {
	FastqSetID           string        `json:"fastqSetId"`
	Requirements         []Requirement `json:"requirements"`
	IsUnarchivingAllowed bool          `json:"isUnarchivingAllowed"`
}

type SetResponse struct {
	FastqSetID      string `json:"fastqSetId"`
	RequirementsMet bool   `json:"requirementsMet"`
}

// FastqSetAgainstRequirements is true iff every row of the set is ready.
func (s *Service) FastqSetAgainstRequirements(ctx context.Context, req SetRequest) (SetResponse, error) {
	if req.FastqSetID == "" {
		return SetResponse{}, errors.New("fastqSetId is not defined")
	}

	set, err := s.fastq.GetFastqSet(ctx, req.FastqSetID)
	if err != nil {
		return SetResponse{}, err
	}

	met, err := CheckSet(set, req.Requirements, s.byobPrefix, req.IsUnarchivingAllowed)
	if err != nil {
		return SetResponse{}, err
	}

	s.log.Info("fastq set checked",
		zap.String("fastqSetId", set.ID),
		zap.Bool("requirementsMet", met),
	)

	return SetResponse{FastqSetID: req.FastqSetID, RequirementsMet: met}, nil
}

type SetRowsRequest struct {
	FastqSetID string `json:"fastqSetId"`
}

type SetRowsResponse struct {
	FastqListRowIDs []string `json:"fastqListRowIdList"`
}

// FastqListRowIDs of the fastq set, used by map state of launcher.
func (s *Service) FastqListRowIDs(ctx context.Context, req SetRowsRequest) (SetRowsResponse, error) {
	if req.FastqSetID == "" {
		return SetRowsResponse{}, errors.New("fastqSetId is not defined")
	}

	set, err := s.fastq.GetFastqSet(ctx, req.FastqSetID)
	if err != nil {
		return SetRowsResponse{}, err
	}

	ids := make([]string, 0, len(set.FastqSet))
	for _, row := range set.FastqSet {
		ids = append(ids, row.ID)
	}

	return SetRowsResponse{FastqListRowIDs: ids}, nil
}
