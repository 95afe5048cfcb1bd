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
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/umccr/orcabus/internal/awsenv"
	"github.com/umccr/orcabus/internal/icaevent"
	"github.com/umccr/orcabus/internal/logging"
	"go.uber.org/zap"
)

type Config struct {
	EventBusName string `mapstructure:"EVENT_BUS_NAME"`
	TableName    string `mapstructure:"TABLE_NAME"`
}

func main() {
	log := logging.Lambda("icaevent")

	var env Config
	if err := awsenv.Load(&env, "EVENT_BUS_NAME", "TABLE_NAME"); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal("failed to load aws config", zap.Error(err))
	}

	translator := icaevent.NewTranslator(
		dynamodb.NewFromConfig(cfg),
		eventbridge.NewFromConfig(cfg),
		env.EventBusName,
		env.TableName,
		log,
	)
	lambda.Start(translator.Handle)
}
