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
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/umccr/orcabus/internal/awsenv"
	"github.com/umccr/orcabus/internal/fastqsync"
	"github.com/umccr/orcabus/internal/logging"
	"github.com/umccr/orcabus/internal/tasktoken"
	"go.uber.org/zap"
)

// Config of the function, HANDLER selects the entry point.
type Config struct {
	Handler           string `mapstructure:"HANDLER"`
	TableName         string `mapstructure:"TABLE_NAME"`
	HostnameParameter string `mapstructure:"HOSTNAME_SSM_PARAMETER"`
	TokenSecretID     string `mapstructure:"ORCABUS_TOKEN_SECRET_ID"`
	ByobPrefix        string `mapstructure:"BYOB_BUCKET_PREFIX"`
}

type app struct {
	env     Config
	ssm     *ssm.Client
	secrets *secretsmanager.Client
	tokens  *tasktoken.Store
	sfn     *sfn.Client
	log     *zap.Logger
}

// client is resolved per invocation, the service token is rotated.
func (a *app) client(ctx context.Context) (*fastqsync.Client, error) {
	ep, err := fastqsync.Resolve(ctx, a.ssm, a.secrets, a.env.HostnameParameter, a.env.TokenSecretID)
	if err != nil {
		return nil, err
	}
	return ep.Client(), nil
}

func (a *app) syncer(ctx context.Context) (*fastqsync.Syncer, error) {
	c, err := a.client(ctx)
	if err != nil {
		return nil, err
	}
	service := fastqsync.NewService(c, a.env.ByobPrefix, a.log)
	return fastqsync.NewSyncer(service, a.tokens, a.sfn, a.log), nil
}

func (a *app) register(ctx context.Context, req fastqsync.SyncRequest) (fastqsync.SyncResponse, error) {
	s, err := a.syncer(ctx)
	if err != nil {
		return fastqsync.SyncResponse{}, err
	}
	return s.Register(ctx, req)
}

func (a *app) release(ctx context.Context, req fastqsync.ReleaseRequest) (fastqsync.ReleaseResponse, error) {
	s, err := a.syncer(ctx)
	if err != nil {
		return fastqsync.ReleaseResponse{}, err
	}
	return s.Release(ctx, req)
}

func (a *app) launch(ctx context.Context, req fastqsync.LaunchRequest) (fastqsync.LaunchResponse, error) {
	c, err := a.client(ctx)
	if err != nil {
		return fastqsync.LaunchResponse{}, err
	}
	return fastqsync.NewLauncher(c, c, a.env.ByobPrefix, a.log).LaunchRequirements(ctx, req)
}

func main() {
	log := logging.Lambda("fastqsync")

	var env Config
	if err := awsenv.Load(&env, "HANDLER", "HOSTNAME_SSM_PARAMETER", "ORCABUS_TOKEN_SECRET_ID"); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal("failed to load aws config", zap.Error(err))
	}

	a := &app{
		env:     env,
		ssm:     ssm.NewFromConfig(cfg),
		secrets: secretsmanager.NewFromConfig(cfg),
		tokens:  tasktoken.NewStore(dynamodb.NewFromConfig(cfg), env.TableName),
		sfn:     sfn.NewFromConfig(cfg),
		log:     log.With(zap.String("handler", env.Handler)),
	}

	switch env.Handler {
	case "register":
		lambda.Start(a.register)
	case "release":
		lambda.Start(a.release)
	case "launch":
		lambda.Start(a.launch)
	default:
		log.Fatal("unknown handler", zap.String("handler", env.Handler))
	}
}
