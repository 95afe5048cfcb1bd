//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package stateless

import (
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/umccr/orcabus/internal/config"
	"github.com/umccr/orcabus/internal/platform"
)

// StackCollection is every stateless stack of the stage.
type StackCollection struct {
	Schema                   *SchemaStack
	WorkflowTaskTokenManager *WorkflowTaskTokenManagerStack
	FastqSyncManager         *FastqSyncManagerStack
	Icav2DataCopyManager     *Icav2DataCopyManagerStack
	ReadyEvent               *ReadyEventStack
	EventTranslatorGlue      *EventTranslatorGlueStack
}

type StackCollectionProps struct {
	Env     *config.EnvironmentConfig
	Builder platform.Builder
}

// NewStackCollection deploys stateless stacks of the stage into scope,
// either the app or a pipeline stage. Stateful stacks of the stage must
// be deployed first.
func NewStackCollection(scope constructs.Construct, props *StackCollectionProps) (*StackCollection, error) {
	env := props.Env
	cfg := env.Stateless

	common := func(service string) Props {
		return Props{
			StackProps:   config.TemplateProps(env, service),
			EventBusName: cfg.EventBusName,
			LogRetention: platform.Retention(cfg.LogRetentionDays),
			Builder:      props.Builder,
		}
	}

	c := &StackCollection{}

	schema, err := NewSchemaStack(scope, "EventSchemaStack",
		&SchemaStackProps{
			StackProps:   config.TemplateProps(env, "EventSchemaStack"),
			RegistryName: env.Stateful.Shared.SchemaRegistry.RegistryName,
			Schemas:      cfg.Schemas,
		},
	)
	if err != nil {
		return nil, err
	}
	c.Schema = schema

	c.WorkflowTaskTokenManager = NewWorkflowTaskTokenManagerStack(scope, "WorkflowTaskTokenManagerStack",
		&WorkflowTaskTokenManagerStackProps{
			Props:  common("WorkflowTaskTokenManagerStack"),
			Config: cfg.WorkflowTaskTokenManager,
		},
	)

	c.FastqSyncManager = NewFastqSyncManagerStack(scope, "FastqSyncManagerStack",
		&FastqSyncManagerStackProps{
			Props:  common("FastqSyncManagerStack"),
			Config: cfg.FastqSync,
		},
	)

	c.Icav2DataCopyManager = NewIcav2DataCopyManagerStack(scope, "Icav2DataCopyManagerStack",
		&Icav2DataCopyManagerStackProps{
			Props:  common("Icav2DataCopyManagerStack"),
			Config: cfg.Icav2DataCopy,
		},
	)

	c.ReadyEvent = NewReadyEventStack(scope, "ReadyEventStack",
		&ReadyEventStackProps{
			Props:  common("ReadyEventStack"),
			Config: cfg.ReadyEvent,
		},
	)

	c.EventTranslatorGlue = NewEventTranslatorGlueStack(scope, "EventTranslatorGlueStack",
		&EventTranslatorGlueStackProps{
			Props:  common("EventTranslatorGlueStack"),
			Config: cfg.EventTranslator,
		},
	)

	return c, nil
}
