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
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/umccr/orcabus/internal/archive"
	"github.com/umccr/orcabus/internal/awsenv"
	"github.com/umccr/orcabus/internal/logging"
	"go.uber.org/zap"
)

type Config struct {
	BucketName string `mapstructure:"BUCKET_NAME"`
}

func main() {
	log := logging.Lambda("archiver")

	var env Config
	if err := awsenv.Load(&env, "BUCKET_NAME"); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal("failed to load aws config", zap.Error(err))
	}

	archiver := archive.New(s3.NewFromConfig(cfg), env.BucketName, log)
	lambda.Start(archiver.Archive)
}
