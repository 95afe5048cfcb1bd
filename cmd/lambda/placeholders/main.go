//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/pkg/errors"
	"github.com/umccr/orcabus/internal/awsenv"
	"github.com/umccr/orcabus/internal/logging"
	"github.com/umccr/orcabus/internal/placeholder"
	"go.uber.org/zap"
)

type Config struct {
	ProjectStorageParameter string `mapstructure:"PROJECT_STORAGE_SSM_PARAMETER"`
}

type handler struct {
	storage placeholder.StorageMap
	log     *zap.Logger
}

func (h handler) fill(ctx context.Context, raw map[string]any) (placeholder.Outputs, error) {
	in, err := placeholder.Decode(raw)
	if err != nil {
		return placeholder.Outputs{}, err
	}

	params, err := placeholder.Fill(in, h.storage)
	if err != nil {
		h.log.Error("failed to fill placeholders",
			zap.String("portalRunId", in.PortalRunID),
			zap.Error(err),
		)
		return placeholder.Outputs{}, err
	}

	return placeholder.Outputs{EngineParametersUpdated: params}, nil
}

func storage(ctx context.Context, client *ssm.Client, name string) (placeholder.StorageMap, error) {
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{Name: aws.String(name)})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read parameter %s", name)
	}
	if out.Parameter == nil {
		return nil, errors.Errorf("parameter %s is empty", name)
	}
	return placeholder.ParseStorageMap(aws.ToString(out.Parameter.Value))
}

func main() {
	log := logging.Lambda("placeholders")

	var env Config
	if err := awsenv.Load(&env, "PROJECT_STORAGE_SSM_PARAMETER"); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal("failed to load aws config", zap.Error(err))
	}

	sm, err := storage(context.Background(), ssm.NewFromConfig(cfg), env.ProjectStorageParameter)
	if err != nil {
		log.Fatal("failed to load project storage", zap.Error(err))
	}

	lambda.Start(handler{storage: sm, log: log}.fill)
}
