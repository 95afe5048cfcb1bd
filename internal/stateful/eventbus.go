//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package stateful

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awseventstargets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/umccr/orcabus/internal/config"
	"github.com/umccr/orcabus/internal/platform"
)

type EventBusProps struct {
	Config  config.EventBusConfig
	Builder platform.Builder
	Vpc     awsec2.IVpc
}

// EventBus is the main bus of OrcaBus with its archives.
type EventBus struct {
	constructs.Construct
	Bus      awsevents.EventBus
	Archive  awsevents.Archive
	Bucket   awss3.Bucket
	Archiver awslambda.Function
}

func NewEventBus(scope constructs.Construct, id string, props *EventBusProps) *EventBus {
	c := &EventBus{Construct: constructs.NewConstruct(scope, jsii.String(id))}
	cfg := props.Config

	c.Bus = awsevents.NewEventBus(c.Construct, jsii.String("Bus"),
		&awsevents.EventBusProps{
			EventBusName: jsii.String(cfg.EventBusName),
		},
	)

	c.Archive = c.Bus.Archive(jsii.String("Archive"),
		&awsevents.BaseArchiveProps{
			ArchiveName: jsii.String(cfg.ArchiveName),
			Description: jsii.String(cfg.ArchiveDescription),
			Retention:   awscdk.Duration_Days(jsii.Number(cfg.ArchiveRetentionDays)),
			EventPattern: &awsevents.EventPattern{
				Account: &[]*string{awscdk.Stack_Of(c.Construct).Account()},
			},
		},
	)

	if cfg.CustomEventArchiver {
		c.newArchiver(props)
	}

	return c
}

// newArchiver copies every event of the bus into the bucket.
func (c *EventBus) newArchiver(props *EventBusProps) {
	cfg := props.Config

	c.Bucket = platform.NewBucket(c.Construct, "ArchiveBucket",
		&platform.BucketProps{
			BucketName: cfg.ArchiveBucketName,
			Retain:     cfg.RetainArchiveBucket,
		},
	)

	fprops := &platform.FunctionProps{
		Lambda:      "cmd/lambda/archiver",
		Description: "Copies events of " + cfg.EventBusName + " into the archive bucket",
		Environment: map[string]string{
			"BUCKET_NAME": cfg.ArchiveBucketName,
		},
	}

	if props.Vpc != nil {
		sg := awsec2.NewSecurityGroup(c.Construct, jsii.String("ArchiverSecurityGroup"),
			&awsec2.SecurityGroupProps{
				Vpc:               props.Vpc,
				SecurityGroupName: jsii.String(cfg.ArchiveSecurityGroupName),
				Description:       jsii.String("Security group of event bus archiver"),
				AllowAllOutbound:  jsii.Bool(true),
			},
		)
		fprops.Vpc = props.Vpc
		fprops.SecurityGroups = []awsec2.ISecurityGroup{sg}
	}

	c.Archiver = platform.NewFunction(props.Builder, c.Construct, "Archiver", fprops)
	c.Bucket.GrantPut(c.Archiver, nil)

	rule := awsevents.NewRule(c.Construct, jsii.String("ArchiverRule"),
		&awsevents.RuleProps{
			EventBus:    c.Bus,
			Description: jsii.String("Sends every event of the bus to the archiver"),
			EventPattern: &awsevents.EventPattern{
				Account: &[]*string{awscdk.Stack_Of(c.Construct).Account()},
			},
		},
	)
	rule.AddTarget(awseventstargets.NewLambdaFunction(c.Archiver, nil))
}
