//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/umccr/orcabus/internal/event"
	"github.com/umccr/orcabus/internal/logging"
	"github.com/umccr/orcabus/internal/translate"
	"go.uber.org/zap"
)

func main() {
	log := logging.Lambda("translate")

	lambda.Start(func(detail event.WorkflowRunStateChange) (event.WorkflowRunStateChange, error) {
		log := log.With(
			zap.String("portalRunId", detail.PortalRunID),
			zap.String("status", string(detail.Status)),
		)

		out, err := translate.Relay(detail)
		if err != nil {
			log.Error("failed to relay state change", zap.Error(err))
			return out, err
		}

		log.Info("state change relayed", zap.String("refId", out.Payload.RefID))
		return out, nil
	})
}
