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
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/umccr/orcabus/internal/awsenv"
	"github.com/umccr/orcabus/internal/icav2copy"
	"github.com/umccr/orcabus/internal/logging"
	"github.com/umccr/orcabus/internal/tasktoken"
	"go.uber.org/zap"
)

// Config of the function, HANDLER selects the entry point.
type Config struct {
	Handler       string `mapstructure:"HANDLER"`
	TableName     string `mapstructure:"TABLE_NAME"`
	TokenSecretID string `mapstructure:"ICAV2_ACCESS_TOKEN_SECRET_ID"`
}

type app struct {
	env     Config
	secrets *secretsmanager.Client
	waiter  *icav2copy.Waiter
	log     *zap.Logger
}

func (a *app) service(ctx context.Context) (*icav2copy.Service, error) {
	token, err := icav2copy.AccessToken(ctx, a.secrets, a.env.TokenSecretID)
	if err != nil {
		return nil, err
	}
	return icav2copy.NewService(icav2copy.NewClient(icav2copy.BaseURL, token), a.log), nil
}

func (a *app) generateCopyJobList(ctx context.Context, req icav2copy.CopyJobListRequest) (*icav2copy.Plan, error) {
	s, err := a.service(ctx)
	if err != nil {
		return nil, err
	}
	return s.GenerateCopyJobList(ctx, req)
}

func (a *app) findSinglePartFiles(ctx context.Context, req icav2copy.PartsRequest) (icav2copy.PartsResponse, error) {
	s, err := a.service(ctx)
	if err != nil {
		return icav2copy.PartsResponse{}, err
	}
	return s.FindSinglePartFiles(ctx, req)
}

func (a *app) uploadSinglePartFile(ctx context.Context, req icav2copy.UploadRequest) error {
	s, err := a.service(ctx)
	if err != nil {
		return err
	}
	return s.UploadSinglePartFile(ctx, req)
}

func (a *app) launchCopy(ctx context.Context, req icav2copy.LaunchRequest) (icav2copy.LaunchResponse, error) {
	s, err := a.service(ctx)
	if err != nil {
		return icav2copy.LaunchResponse{}, err
	}
	return s.LaunchCopy(ctx, req)
}

func (a *app) checkJobStatus(ctx context.Context, req icav2copy.JobStatusRequest) (icav2copy.JobStatusResponse, error) {
	s, err := a.service(ctx)
	if err != nil {
		return icav2copy.JobStatusResponse{}, err
	}
	return s.CheckJobStatus(ctx, req)
}

func main() {
	log := logging.Lambda("icav2copy")

	var env Config
	if err := awsenv.Load(&env, "HANDLER", "ICAV2_ACCESS_TOKEN_SECRET_ID"); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal("failed to load aws config", zap.Error(err))
	}

	log = log.With(zap.String("handler", env.Handler))
	a := &app{
		env:     env,
		secrets: secretsmanager.NewFromConfig(cfg),
		waiter: icav2copy.NewWaiter(
			tasktoken.NewStore(dynamodb.NewFromConfig(cfg), env.TableName),
			sfn.NewFromConfig(cfg),
			log,
		),
		log: log,
	}

	switch env.Handler {
	case "generate-copy-job-list":
		lambda.Start(a.generateCopyJobList)
	case "find-single-part-files":
		lambda.Start(a.findSinglePartFiles)
	case "upload-single-part-file":
		lambda.Start(a.uploadSinglePartFile)
	case "launch-copy":
		lambda.Start(a.launchCopy)
	case "check-job-status":
		lambda.Start(a.checkJobStatus)
	case "save-token":
		lambda.Start(a.waiter.SaveJobToken)
	case "release-job":
		lambda.Start(a.waiter.ReleaseJob)
	default:
		log.Fatal("unknown handler")
	}
}
