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
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/umccr/orcabus/internal/compliance"
	"github.com/umccr/orcabus/internal/config"
)

type TokenServiceStackProps struct {
	*awscdk.StackProps
	Config config.TokenServiceConfig
}

// TokenServiceStack holds credentials of the service user and the JWT
// issued for it. Services read the JWT to call each other's API.
type TokenServiceStack struct {
	awscdk.Stack
	ServiceUser awssecretsmanager.Secret
	JWT         awssecretsmanager.Secret
}

func NewTokenServiceStack(scope constructs.Construct, id string, props *TokenServiceStackProps) (*TokenServiceStack, error) {
	for _, name := range []string{props.Config.ServiceUserSecretName, props.Config.JWTSecretName} {
		if err := config.ValidateSecretName(name); err != nil {
			return nil, err
		}
	}

	stack := &TokenServiceStack{
		Stack: awscdk.NewStack(scope, jsii.String(id), props.StackProps),
	}

	stack.ServiceUser = awssecretsmanager.NewSecret(stack.Stack, jsii.String("ServiceUserSecret"),
		&awssecretsmanager.SecretProps{
			SecretName:  jsii.String(props.Config.ServiceUserSecretName),
			Description: jsii.String("Credentials of OrcaBus service user"),
			GenerateSecretString: &awssecretsmanager.SecretStringGenerator{
				SecretStringTemplate: jsii.String(`{"username": "orcabus-service-user"}`),
				GenerateStringKey:    jsii.String("password"),
				PasswordLength:       jsii.Number(32),
			},
		},
	)

	stack.JWT = awssecretsmanager.NewSecret(stack.Stack, jsii.String("JWTSecret"),
		&awssecretsmanager.SecretProps{
			SecretName:  jsii.String(props.Config.JWTSecretName),
			Description: jsii.String("JWT of OrcaBus service user, the id_token key holds the token"),
		},
	)

	compliance.Apply(stack.Stack)

	return stack, nil
}
