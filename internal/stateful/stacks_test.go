//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package stateful_test

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/require"
	"github.com/umccr/orcabus/internal/config"
	"github.com/umccr/orcabus/internal/stateful"
)

func TestTokenServiceStack(t *testing.T) {
	// GIVEN
	env := environment(t, config.Beta)
	app := awscdk.NewApp(nil)

	// THEN
	stack, err := stateful.NewTokenServiceStack(app, "TokenServiceStack",
		&stateful.TokenServiceStackProps{
			StackProps: config.TemplateProps(env, "TokenServiceStack"),
			Config:     env.Stateful.TokenService,
		},
	)
	require.NoError(t, err)

	// WHEN
	noErrors(stack.Stack)

	template := assertions.Template_FromStack(stack.Stack, nil)
	template.ResourceCountIs(jsii.String("AWS::SecretsManager::Secret"), jsii.Number(2))
	template.HasResourceProperties(jsii.String("AWS::SecretsManager::Secret"),
		map[string]interface{}{
			"Name": config.ServiceUserSecretName,
		},
	)
	template.HasResourceProperties(jsii.String("AWS::SecretsManager::Secret"),
		map[string]interface{}{
			"Name": config.JWTSecretName,
		},
	)
}

func TestTokenServiceStackSecretName(t *testing.T) {
	env := environment(t, config.Beta)
	app := awscdk.NewApp(nil)

	cfg := env.Stateful.TokenService
	cfg.JWTSecretName = "orcabus/jwt-abcdef"

	_, err := stateful.NewTokenServiceStack(app, "TokenServiceStack",
		&stateful.TokenServiceStackProps{
			StackProps: config.TemplateProps(env, "TokenServiceStack"),
			Config:     cfg,
		},
	)
	require.Error(t, err)
}

func TestAuthorizationManagerStack(t *testing.T) {
	// GIVEN
	env := environment(t, config.Beta)
	app := awscdk.NewApp(nil)

	// THEN
	stack := stateful.NewAuthorizationManagerStack(app, "AuthorizationManagerStack",
		&stateful.AuthorizationManagerStackProps{
			StackProps: config.TemplateProps(env, "AuthorizationManagerStack"),
			Config:     env.Stateful.AuthorizationManager,
			Builder:    prebuilt,
		},
	)

	// WHEN
	noErrors(stack.Stack)

	template := assertions.Template_FromStack(stack.Stack, nil)
	template.HasResourceProperties(jsii.String("AWS::VerifiedPermissions::PolicyStore"),
		map[string]interface{}{
			"ValidationSettings": map[string]interface{}{"Mode": "STRICT"},
			"Schema": map[string]interface{}{
				"CedarJson": assertions.Match_StringLikeRegexp(jsii.String("readAccess")),
			},
		},
	)
	template.HasResourceProperties(jsii.String("AWS::VerifiedPermissions::IdentitySource"),
		map[string]interface{}{
			"PrincipalEntityType": "OrcaBus::User",
			"Configuration": map[string]interface{}{
				"CognitoUserPoolConfiguration": map[string]interface{}{
					"GroupConfiguration": map[string]interface{}{
						"GroupEntityType": "OrcaBus::CognitoUserGroup",
					},
				},
			},
		},
	)
	template.ResourceCountIs(jsii.String("AWS::VerifiedPermissions::Policy"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::IAM::Policy"),
		map[string]interface{}{
			"PolicyDocument": map[string]interface{}{
				"Statement": assertions.Match_ArrayWith(&[]interface{}{
					like(map[string]interface{}{
						"Action": "verifiedpermissions:IsAuthorizedWithToken",
					}),
				}),
			},
		},
	)
	template.HasResourceProperties(jsii.String("AWS::SSM::Parameter"),
		map[string]interface{}{
			"Name": config.AuthorizerLambdaARNParameterName,
		},
	)
}

func TestDataSharingStack(t *testing.T) {
	// GIVEN
	env := environment(t, config.Beta)
	app := awscdk.NewApp(nil)

	// THEN
	stack := stateful.NewDataSharingStack(app, "DataSharingStack",
		&stateful.DataSharingStackProps{
			StackProps: config.TemplateProps(env, "DataSharingStack"),
			Config:     env.Stateful.DataSharing,
		},
	)

	// WHEN
	noErrors(stack.Stack)

	template := assertions.Template_FromStack(stack.Stack, nil)
	template.HasResource(jsii.String("AWS::S3::Bucket"),
		map[string]interface{}{
			"DeletionPolicy": "Retain",
			"Properties": like(map[string]interface{}{
				"BucketName": "data-sharing-artifacts-843407916570-ap-southeast-2",
			}),
		},
	)
	template.ResourceCountIs(jsii.String("AWS::DynamoDB::GlobalTable"), jsii.Number(3))
	template.HasResourceProperties(jsii.String("AWS::DynamoDB::GlobalTable"),
		map[string]interface{}{
			"TableName": config.DataSharingPackagingLookUpTableName,
			"TimeToLiveSpecification": map[string]interface{}{
				"AttributeName": "expire_at",
				"Enabled":       true,
			},
		},
	)
	template.HasResourceProperties(jsii.String("AWS::DynamoDB::GlobalTable"),
		map[string]interface{}{
			"TableName": config.DataSharingPushJobAPITableName,
			"GlobalSecondaryIndexes": assertions.Match_ArrayWith(&[]interface{}{
				like(map[string]interface{}{"IndexName": "package_id-index"}),
			}),
		},
	)
}

func TestStatefulTablesStack(t *testing.T) {
	// GIVEN
	env := environment(t, config.Beta)
	app := awscdk.NewApp(nil)

	// THEN
	stack := stateful.NewStatefulTablesStack(app, "StatefulTablesStack",
		&stateful.StatefulTablesStackProps{
			StackProps: config.TemplateProps(env, "StatefulTablesStack"),
			Config:     env.Stateful.Tables,
		},
	)

	// WHEN
	template := assertions.Template_FromStack(stack.Stack, nil)
	template.ResourceCountIs(jsii.String("AWS::DynamoDB::GlobalTable"), jsii.Number(3))
	for _, name := range []string{config.WorkflowTaskTokenTableName, config.FastqSyncTableName, config.Icav2DataCopyTableName} {
		template.HasResourceProperties(jsii.String("AWS::DynamoDB::GlobalTable"),
			map[string]interface{}{
				"TableName": name,
				"KeySchema": []interface{}{
					map[string]interface{}{"AttributeName": stateful.KeyID, "KeyType": "HASH"},
					map[string]interface{}{"AttributeName": stateful.KeyIDType, "KeyType": "RANGE"},
				},
			},
		)
	}
}

func TestIcaEventPipeStack(t *testing.T) {
	// GIVEN
	env := environment(t, config.Beta)
	app := awscdk.NewApp(nil)

	// THEN
	stack := stateful.NewIcaEventPipeStack(app, "IcaEventPipeStack",
		&stateful.IcaEventPipeStackProps{
			StackProps: config.TemplateProps(env, "IcaEventPipeStack"),
			Config:     env.Stateful.IcaEventPipe,
			Builder:    prebuilt,
		},
	)

	// WHEN
	noErrors(stack.Stack)

	template := assertions.Template_FromStack(stack.Stack, nil)
	template.HasResourceProperties(jsii.String("AWS::SQS::Queue"),
		map[string]interface{}{
			"QueueName":         config.ICAQueueName,
			"VisibilityTimeout": config.ICAQueueVisibilityTimeoutSeconds,
		},
	)
	template.HasResourceProperties(jsii.String("AWS::SQS::Queue"),
		map[string]interface{}{
			"QueueName": config.ICAQueueName + "-dlq",
		},
	)
	template.HasResourceProperties(jsii.String("AWS::CloudWatch::Alarm"),
		map[string]interface{}{
			"Threshold":          config.ICADLQMessageThreshold,
			"ComparisonOperator": "GreaterThanOrEqualToThreshold",
			"AlarmActions":       []interface{}{"arn:aws:sns:ap-southeast-2:843407916570:AwsChatBotTopic"},
		},
	)
	template.HasResourceProperties(jsii.String("AWS::Pipes::Pipe"),
		map[string]interface{}{
			"Name": config.ICAEventPipeName,
			"TargetParameters": map[string]interface{}{
				"InputTemplate": `{"ica-event": <$.body>}`,
			},
		},
	)
	template.HasResourceProperties(jsii.String("AWS::DynamoDB::GlobalTable"),
		map[string]interface{}{
			"TableName": config.ICAEventTranslatorTableName,
			"GlobalSecondaryIndexes": []interface{}{
				like(map[string]interface{}{"IndexName": config.ICAEventTranslatorAnalysisIndex}),
			},
		},
	)
	template.HasResourceProperties(jsii.String("AWS::Events::Rule"),
		map[string]interface{}{
			"EventBusName": config.EventBusName,
			"EventPattern": map[string]interface{}{
				"source": []string{"Pipe " + config.ICAEventPipeName},
				"detail": map[string]interface{}{
					"ica-event": map[string]interface{}{"eventCode": []string{"ICA_EXEC_028"}},
				},
			},
		},
	)
	template.HasResourceProperties(jsii.String("AWS::Lambda::Function"),
		map[string]interface{}{
			"Environment": map[string]interface{}{
				"Variables": map[string]interface{}{
					"EVENT_BUS_NAME": config.EventBusName,
					"TABLE_NAME":     config.ICAEventTranslatorTableName,
				},
			},
		},
	)
}

func TestStackCollection(t *testing.T) {
	// GIVEN
	env := environment(t, config.Gamma)
	app := awscdk.NewApp(nil)
	network := awscdk.NewStack(app, jsii.String("Networking"), config.TemplateProps(env, "Networking"))

	// THEN
	c, err := stateful.NewStackCollection(app,
		&stateful.StackCollectionProps{
			Env:     env,
			Builder: prebuilt,
			Vpc:     testVpc(network),
		},
	)
	require.NoError(t, err)

	// WHEN
	for _, stack := range []awscdk.Stack{
		c.Shared.Stack,
		c.TokenService.Stack,
		c.AuthorizationManager.Stack,
		c.DataSharing.Stack,
		c.IcaEventPipe.Stack,
		c.Tables.Stack,
	} {
		require.Equal(t, "455634345446", *stack.Account())
		noErrors(stack)
	}
}
