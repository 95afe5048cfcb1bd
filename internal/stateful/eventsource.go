//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package stateful

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awseventstargets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/iancoleman/strcase"
	"github.com/umccr/orcabus/internal/config"
	"github.com/umccr/orcabus/internal/platform"
)

// S3 object events delivered to the default bus by EventBridge notifications
var objectEvents = []string{
	"Object Created",
	"Object Deleted",
	"Object Restore Completed",
	"Object Restore Expired",
	"Object Storage Class Changed",
	"Object Access Tier Changed",
}

// EventSource routes S3 object events of buckets into the queue,
// the queue is consumed by file manager.
type EventSource struct {
	constructs.Construct
	Queue           awssqs.Queue
	DeadLetterQueue awssqs.Queue
	Rules           []awsevents.Rule
}

func NewEventSource(scope constructs.Construct, id string, cfg config.EventSourceConfig) *EventSource {
	c := &EventSource{Construct: constructs.NewConstruct(scope, jsii.String(id))}

	c.DeadLetterQueue = platform.NewQueue(c.Construct, "DeadLetterQueue",
		&platform.QueueProps{
			QueueName: cfg.QueueName + "-dlq",
		},
	)

	c.Queue = platform.NewQueue(c.Construct, "Queue",
		&platform.QueueProps{
			QueueName:       cfg.QueueName,
			DeadLetterQueue: c.DeadLetterQueue,
			MaxReceiveCount: cfg.MaxReceiveCount,
		},
	)

	detailType := make([]*string, len(objectEvents))
	for i, dt := range objectEvents {
		detailType[i] = jsii.String(dt)
	}

	bus := awsevents.EventBus_FromEventBusName(c.Construct, jsii.String("DefaultBus"), jsii.String("default"))

	for _, bucket := range cfg.Buckets {
		rule := awsevents.NewRule(c.Construct, jsii.String("Rule"+strcase.ToCamel(bucket)),
			&awsevents.RuleProps{
				EventBus:    bus,
				Description: jsii.String("Object events of s3://" + bucket),
				EventPattern: &awsevents.EventPattern{
					Source:     jsii.Strings("aws.s3"),
					DetailType: &detailType,
					Detail: &map[string]interface{}{
						"bucket": map[string]interface{}{
							"name": []string{bucket},
						},
					},
				},
			},
		)
		rule.AddTarget(awseventstargets.NewSqsQueue(c.Queue, nil))
		c.Rules = append(c.Rules, rule)
	}

	return c
}
