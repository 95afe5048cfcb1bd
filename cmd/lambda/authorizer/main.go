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
	"github.com/aws/aws-sdk-go-v2/service/verifiedpermissions"
	"github.com/umccr/orcabus/internal/authz"
	"github.com/umccr/orcabus/internal/awsenv"
	"github.com/umccr/orcabus/internal/logging"
	"go.uber.org/zap"
)

type Config struct {
	PolicyStoreID string `mapstructure:"POLICY_STORE_ID"`
}

func main() {
	log := logging.Lambda("authorizer")

	var env Config
	if err := awsenv.Load(&env, "POLICY_STORE_ID"); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal("failed to load aws config", zap.Error(err))
	}

	authorizer := authz.New(verifiedpermissions.NewFromConfig(cfg), env.PolicyStoreID, log)
	lambda.Start(authorizer.Authorize)
}
