//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package stateful

import (
	_ "embed"
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsssm"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsverifiedpermissions"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/umccr/orcabus/internal/compliance"
	"github.com/umccr/orcabus/internal/config"
	"github.com/umccr/orcabus/internal/platform"
)

//go:embed cedar_schema.json
var cedarSchema string

type AuthorizationManagerStackProps struct {
	*awscdk.StackProps
	Config  config.AuthorizationManagerConfig
	Builder platform.Builder
}

// AuthorizationManagerStack is Verified Permissions policy store sourcing
// identities from Cognito, and the HTTP API authorizer evaluating it.
type AuthorizationManagerStack struct {
	awscdk.Stack
	PolicyStore awsverifiedpermissions.CfnPolicyStore
	Authorizer  awslambda.Function
}

func NewAuthorizationManagerStack(scope constructs.Construct, id string, props *AuthorizationManagerStackProps) *AuthorizationManagerStack {
	stack := &AuthorizationManagerStack{
		Stack: awscdk.NewStack(scope, jsii.String(id), props.StackProps),
	}
	cfg := props.Config

	stack.PolicyStore = awsverifiedpermissions.NewCfnPolicyStore(stack.Stack, jsii.String("PolicyStore"),
		&awsverifiedpermissions.CfnPolicyStoreProps{
			Description: jsii.String("OrcaBus authorization policy"),
			ValidationSettings: &awsverifiedpermissions.CfnPolicyStore_ValidationSettingsProperty{
				Mode: jsii.String("STRICT"),
			},
			Schema: &awsverifiedpermissions.CfnPolicyStore_SchemaDefinitionProperty{
				CedarJson: jsii.String(cedarSchema),
			},
		},
	)

	userPoolID := awsssm.StringParameter_ValueForStringParameter(stack.Stack,
		jsii.String(cfg.CognitoUserPoolIDParameterName), nil)

	awsverifiedpermissions.NewCfnIdentitySource(stack.Stack, jsii.String("IdentitySource"),
		&awsverifiedpermissions.CfnIdentitySourceProps{
			PolicyStoreId:       stack.PolicyStore.AttrPolicyStoreId(),
			PrincipalEntityType: jsii.String("OrcaBus::User"),
			Configuration: &awsverifiedpermissions.CfnIdentitySource_IdentitySourceConfigurationProperty{
				CognitoUserPoolConfiguration: &awsverifiedpermissions.CfnIdentitySource_CognitoUserPoolConfigurationProperty{
					UserPoolArn: jsii.String(
						fmt.Sprintf("arn:aws:cognito-idp:%s:%s:userpool/%s",
							cfg.CognitoRegion, cfg.CognitoAccountNumber, *userPoolID),
					),
					GroupConfiguration: &awsverifiedpermissions.CfnIdentitySource_CognitoGroupConfigurationProperty{
						GroupEntityType: jsii.String("OrcaBus::CognitoUserGroup"),
					},
				},
			},
		},
	)

	// members of admin group are allowed any action
	awsverifiedpermissions.NewCfnPolicy(stack.Stack, jsii.String("AdminPolicy"),
		&awsverifiedpermissions.CfnPolicyProps{
			PolicyStoreId: stack.PolicyStore.AttrPolicyStoreId(),
			Definition: &awsverifiedpermissions.CfnPolicy_PolicyDefinitionProperty{
				Static: &awsverifiedpermissions.CfnPolicy_StaticPolicyDefinitionProperty{
					Description: jsii.String("Allow all action for all resource for user in the admin cognito user pool group"),
					Statement: jsii.String(
						fmt.Sprintf(`permit (principal in OrcaBus::CognitoUserGroup::"%s|admin", action, resource);`, *userPoolID),
					),
				},
			},
		},
	)

	stack.Authorizer = platform.NewFunction(props.Builder, stack.Stack, "HTTPAuthorizer",
		&platform.FunctionProps{
			Lambda:      "cmd/lambda/authorizer",
			Description: "HTTP API authorizer backed by Verified Permissions",
			Environment: map[string]string{
				"POLICY_STORE_ID": *stack.PolicyStore.AttrPolicyStoreId(),
			},
		},
	)
	stack.Authorizer.AddToRolePolicy(
		awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
			Actions:   jsii.Strings("verifiedpermissions:IsAuthorizedWithToken"),
			Resources: &[]*string{stack.PolicyStore.AttrArn()},
		}),
	)

	awsssm.NewStringParameter(stack.Stack, jsii.String("HTTPAuthorizerArn"),
		&awsssm.StringParameterProps{
			ParameterName: jsii.String(cfg.AuthorizerParameterName),
			Description:   jsii.String("ARN of the HTTP lambda authorizer that allow access defined in Amazon Verified Permission"),
			StringValue:   stack.Authorizer.FunctionArn(),
		},
	)

	compliance.Apply(stack.Stack)

	return stack
}
