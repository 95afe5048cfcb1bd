//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package stateful

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/umccr/orcabus/internal/config"
	"github.com/umccr/orcabus/internal/platform"
)

// StackCollection is every stateful stack of the stage.
type StackCollection struct {
	Shared               *SharedStack
	TokenService         *TokenServiceStack
	AuthorizationManager *AuthorizationManagerStack
	DataSharing          *DataSharingStack
	IcaEventPipe         *IcaEventPipeStack
	Tables               *StatefulTablesStack
}

type StackCollectionProps struct {
	Env     *config.EnvironmentConfig
	Builder platform.Builder

	// Vpc overrides lookup of the networking stack
	Vpc awsec2.IVpc
}

// NewStackCollection deploys stateful stacks of the stage into scope,
// either the app or a pipeline stage.
func NewStackCollection(scope constructs.Construct, props *StackCollectionProps) (*StackCollection, error) {
	env := props.Env
	cfg := env.Stateful

	c := &StackCollection{}

	c.Shared = NewSharedStack(scope, "SharedStack",
		&SharedStackProps{
			StackProps: config.TemplateProps(env, "SharedStack"),
			Config:     cfg.Shared,
			Builder:    props.Builder,
			Vpc:        props.Vpc,
		},
	)

	tokenService, err := NewTokenServiceStack(scope, "TokenServiceStack",
		&TokenServiceStackProps{
			StackProps: config.TemplateProps(env, "TokenServiceStack"),
			Config:     cfg.TokenService,
		},
	)
	if err != nil {
		return nil, err
	}
	c.TokenService = tokenService

	c.AuthorizationManager = NewAuthorizationManagerStack(scope, "AuthorizationManagerStack",
		&AuthorizationManagerStackProps{
			StackProps: config.TemplateProps(env, "AuthorizationManagerStack"),
			Config:     cfg.AuthorizationManager,
			Builder:    props.Builder,
		},
	)

	c.DataSharing = NewDataSharingStack(scope, "DataSharingStack",
		&DataSharingStackProps{
			StackProps: config.TemplateProps(env, "DataSharingStack"),
			Config:     cfg.DataSharing,
		},
	)

	c.IcaEventPipe = NewIcaEventPipeStack(scope, "IcaEventPipeStack",
		&IcaEventPipeStackProps{
			StackProps: config.TemplateProps(env, "IcaEventPipeStack"),
			Config:     cfg.IcaEventPipe,
			Builder:    props.Builder,
		},
	)
	c.IcaEventPipe.AddDependency(c.Shared.Stack, nil)

	c.Tables = NewStatefulTablesStack(scope, "StatefulTablesStack",
		&StatefulTablesStackProps{
			StackProps: config.TemplateProps(env, "StatefulTablesStack"),
			Config:     cfg.Tables,
		},
	)

	return c, nil
}
