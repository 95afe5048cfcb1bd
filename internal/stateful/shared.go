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
	"github.com/aws/aws-cdk-go/awscdk/v2/awseventschemas"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/umccr/orcabus/internal/compliance"
	"github.com/umccr/orcabus/internal/config"
	"github.com/umccr/orcabus/internal/platform"
)

type SharedStackProps struct {
	*awscdk.StackProps
	Config  config.SharedConfig
	Builder platform.Builder

	// Vpc is looked up by name and tags of config when nil
	Vpc awsec2.IVpc
}

// SharedStack owns resources used by every service: event bus, schema
// registry, database, compute security group and event source queue.
type SharedStack struct {
	awscdk.Stack
	EventBus    *EventBus
	Database    *Database
	Compute     awsec2.SecurityGroup
	EventSource *EventSource
	Registry    awseventschemas.CfnRegistry
}

func NewSharedStack(scope constructs.Construct, id string, props *SharedStackProps) *SharedStack {
	stack := &SharedStack{
		Stack: awscdk.NewStack(scope, jsii.String(id), props.StackProps),
	}
	cfg := props.Config

	vpc := LookupVpc(stack.Stack, props.Vpc, cfg.Vpc)

	stack.EventBus = NewEventBus(stack.Stack, "OrcaBusEventBus",
		&EventBusProps{
			Config:  cfg.EventBus,
			Builder: props.Builder,
			Vpc:     vpc,
		},
	)

	stack.Registry = awseventschemas.NewCfnRegistry(stack.Stack, jsii.String("SchemaRegistry"),
		&awseventschemas.CfnRegistryProps{
			RegistryName: jsii.String(cfg.SchemaRegistry.RegistryName),
			Description:  jsii.String(cfg.SchemaRegistry.Description),
		},
	)

	stack.Compute = awsec2.NewSecurityGroup(stack.Stack, jsii.String("ComputeSecurityGroup"),
		&awsec2.SecurityGroupProps{
			Vpc:               vpc,
			SecurityGroupName: jsii.String(cfg.Compute.SecurityGroupName),
			Description:       jsii.String("Security group of OrcaBus shared compute"),
			AllowAllOutbound:  jsii.Bool(true),
		},
	)

	stack.Database = NewDatabase(stack.Stack, "OrcaBusDatabase",
		&DatabaseProps{
			Config:  cfg.Database,
			Vpc:     vpc,
			Compute: stack.Compute,
		},
	)

	stack.EventSource = NewEventSource(stack.Stack, "EventSource", cfg.EventSource)

	compliance.Apply(stack.Stack)

	return stack
}
