//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package stateless_test

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umccr/orcabus/internal/config"
	"github.com/umccr/orcabus/internal/stateless"
)

func TestWorkflowTaskTokenManagerStack(t *testing.T) {
	// GIVEN
	env := environment(t, config.Beta)
	app := awscdk.NewApp(nil)

	// THEN
	stack := stateless.NewWorkflowTaskTokenManagerStack(app, "WorkflowTaskTokenManagerStack",
		&stateless.WorkflowTaskTokenManagerStackProps{
			Props:  props(env, "WorkflowTaskTokenManagerStack"),
			Config: env.Stateless.WorkflowTaskTokenManager,
		},
	)

	// WHEN
	noErrors(stack.Stack)

	template := assertions.Template_FromStack(stack.Stack, nil)
	template.ResourceCountIs(jsii.String("AWS::StepFunctions::StateMachine"), jsii.Number(2))
	template.HasResourceProperties(jsii.String("AWS::StepFunctions::StateMachine"),
		map[string]interface{}{
			"StateMachineName": "workflow-sync-launch-state-machine-sfn",
			"TracingConfiguration": map[string]interface{}{
				"Enabled": true,
			},
		},
	)
	template.HasResourceProperties(jsii.String("AWS::StepFunctions::StateMachine"),
		map[string]interface{}{
			"StateMachineName": "workflow-sync-send-task-token-sfn",
		},
	)
	template.HasResourceProperties(jsii.String("AWS::Events::Rule"),
		map[string]interface{}{
			"Name":         "workflow-sync-launch-wrsc-rule",
			"EventBusName": config.EventBusName,
			"EventPattern": map[string]interface{}{
				"detail-type": []interface{}{config.WorkflowRunStateChangeSync},
				"detail": map[string]interface{}{
					"portalRunId": exists(),
					"taskToken":   exists(),
				},
			},
		},
	)
	template.HasResourceProperties(jsii.String("AWS::Events::Rule"),
		map[string]interface{}{
			"Name": "workflow-sync-send-task-token-event-rule",
			"EventPattern": like(map[string]interface{}{
				"detail-type": []interface{}{config.WorkflowRunStateChange},
				"detail": like(map[string]interface{}{
					"status": assertions.Match_ArrayWith(&[]interface{}{
						map[string]interface{}{"equals-ignore-case": "SUCCEEDED"},
						map[string]interface{}{"equals-ignore-case": "FAILED"},
					}),
				}),
			}),
			"Targets": []interface{}{
				like(map[string]interface{}{"InputPath": "$.detail"}),
			},
		},
	)
	template.HasResourceProperties(jsii.String("AWS::IAM::Policy"),
		map[string]interface{}{
			"PolicyDocument": map[string]interface{}{
				"Statement": assertions.Match_ArrayWith(&[]interface{}{
					like(map[string]interface{}{
						"Action": []interface{}{"states:SendTaskSuccess", "states:SendTaskFailure", "states:SendTaskHeartbeat"},
					}),
				}),
			},
		},
	)
}

func TestWorkflowTaskTokenManagerStatusCasing(t *testing.T) {
	// GIVEN
	env := environment(t, config.Beta)
	app := awscdk.NewApp(nil)
	stack := stateless.NewWorkflowTaskTokenManagerStack(app, "WorkflowTaskTokenManagerStack",
		&stateless.WorkflowTaskTokenManagerStackProps{
			Props:  props(env, "WorkflowTaskTokenManagerStack"),
			Config: env.Stateless.WorkflowTaskTokenManager,
		},
	)

	// THEN
	raw, err := json.Marshal(assertions.Template_FromStack(stack.Stack, nil).ToJSON())
	require.NoError(t, err)

	// WHEN
	for _, status := range []string{"SUCCEEDED", "succeeded", "Succeeded"} {
		assert.Contains(t, string(raw), `\"StringEquals\":\"`+status+`\"`)
	}
}

func TestFastqSyncManagerStack(t *testing.T) {
	// GIVEN
	env := environment(t, config.Beta)
	app := awscdk.NewApp(nil)

	// THEN
	stack := stateless.NewFastqSyncManagerStack(app, "FastqSyncManagerStack",
		&stateless.FastqSyncManagerStackProps{
			Props:  props(env, "FastqSyncManagerStack"),
			Config: env.Stateless.FastqSync,
		},
	)

	// WHEN
	noErrors(stack.Stack)

	template := assertions.Template_FromStack(stack.Stack, nil)
	template.ResourcePropertiesCountIs(jsii.String("AWS::Lambda::Function"), bootstrap, jsii.Number(3))
	template.HasResourceProperties(jsii.String("AWS::Lambda::Function"),
		map[string]interface{}{
			"Environment": map[string]interface{}{
				"Variables": like(map[string]interface{}{
					"HANDLER":                stateless.FastqSyncRegister,
					"TABLE_NAME":             config.FastqSyncTableName,
					"HOSTNAME_SSM_PARAMETER": config.HostedZoneNameParameterName,
				}),
			},
		},
	)
	template.ResourceCountIs(jsii.String("AWS::StepFunctions::StateMachine"), jsii.Number(3))
	for _, name := range []string{
		"fastq-sync-launch-fqlr-requirements",
		"fastq-sync-initialise-task-token",
		"fastq-sync-fastq-list-row-id-updated",
	} {
		template.HasResourceProperties(jsii.String("AWS::StepFunctions::StateMachine"),
			map[string]interface{}{"StateMachineName": name},
		)
	}
	template.ResourceCountIs(jsii.String("AWS::Events::Rule"), jsii.Number(3))
	template.HasResourceProperties(jsii.String("AWS::Events::Rule"),
		map[string]interface{}{
			"Name": "fastq-sync-task-token-initialiser",
			"EventPattern": map[string]interface{}{
				"detail-type": []interface{}{config.FastqSyncDetailType},
				"detail": map[string]interface{}{
					"taskToken": exists(),
				},
			},
		},
	)
	template.HasResourceProperties(jsii.String("AWS::Events::Rule"),
		map[string]interface{}{
			"Name": "fastq-sync-fastq-list-row-updated",
			"EventPattern": like(map[string]interface{}{
				"source":      []interface{}{config.FastqManagerSource},
				"detail-type": []interface{}{config.FastqListRowStateChange},
			}),
		},
	)
	template.HasResourceProperties(jsii.String("AWS::Events::Rule"),
		map[string]interface{}{
			"Name": "fastq-sync-unarchiving-complete",
			"EventPattern": map[string]interface{}{
				"source":      []interface{}{config.FastqUnarchivingSource},
				"detail-type": []interface{}{config.FastqUnarchivingJobStateChange},
				"detail": map[string]interface{}{
					"status": equalsIgnoreCase("SUCCEEDED"),
				},
			},
		},
	)
}

func TestIcav2DataCopyManagerStack(t *testing.T) {
	// GIVEN
	env := environment(t, config.Beta)
	app := awscdk.NewApp(nil)

	// THEN
	stack := stateless.NewIcav2DataCopyManagerStack(app, "Icav2DataCopyManagerStack",
		&stateless.Icav2DataCopyManagerStackProps{
			Props:  props(env, "Icav2DataCopyManagerStack"),
			Config: env.Stateless.Icav2DataCopy,
		},
	)

	// WHEN
	noErrors(stack.Stack)
	assert.Len(t, stack.Functions, 7)

	template := assertions.Template_FromStack(stack.Stack, nil)
	template.ResourcePropertiesCountIs(jsii.String("AWS::Lambda::Function"), bootstrap, jsii.Number(7))
	template.HasResourceProperties(jsii.String("AWS::Lambda::Function"),
		map[string]interface{}{
			"Timeout": 900,
			"Environment": map[string]interface{}{
				"Variables": like(map[string]interface{}{
					"HANDLER": stateless.Icav2CopyUploadSinglePart,
				}),
			},
		},
	)
	template.HasResourceProperties(jsii.String("AWS::Lambda::Function"),
		map[string]interface{}{
			"Environment": map[string]interface{}{
				"Variables": like(map[string]interface{}{
					"HANDLER":                      stateless.Icav2CopyLaunch,
					"ICAV2_ACCESS_TOKEN_SECRET_ID": config.ICAv2AccessSecretName,
				}),
			},
		},
	)
	template.ResourceCountIs(jsii.String("AWS::StepFunctions::StateMachine"), jsii.Number(3))
	template.HasResourceProperties(jsii.String("AWS::StepFunctions::StateMachine"),
		map[string]interface{}{
			"StateMachineName": "icav2-data-copy-handle-copy-jobs",
		},
	)
	template.HasResourceProperties(jsii.String("AWS::Events::Rule"),
		map[string]interface{}{
			"EventPattern": map[string]interface{}{
				"detail-type": []interface{}{config.Icav2DataCopySyncDetailType},
				"detail": map[string]interface{}{
					"sourceUriList":  exists(),
					"destinationUri": exists(),
					"taskToken":      exists(),
				},
			},
		},
	)
	template.HasResourceProperties(jsii.String("AWS::Events::Rule"),
		map[string]interface{}{
			"EventPattern": map[string]interface{}{
				"source":      []interface{}{config.Icav2DataCopySource},
				"detail-type": []interface{}{config.Icav2DataCopyInternalDetailType},
				"detail": map[string]interface{}{
					"jobId":     exists(),
					"taskToken": exists(),
				},
			},
		},
	)
	template.HasResourceProperties(jsii.String("AWS::Events::Rule"),
		map[string]interface{}{
			"EventPattern": map[string]interface{}{
				"source": []interface{}{"Pipe " + config.ICAEventPipeName},
				"detail": map[string]interface{}{
					"ica-event": map[string]interface{}{
						"eventCode": []interface{}{"ICA_JOB_001"},
					},
				},
			},
		},
	)
}

func TestReadyEventTimestampSeconds(t *testing.T) {
	// GIVEN
	env := environment(t, config.Beta)
	app := awscdk.NewApp(nil)
	stack := stateless.NewReadyEventStack(app, "ReadyEventStack",
		&stateless.ReadyEventStackProps{
			Props:  props(env, "ReadyEventStack"),
			Config: env.Stateless.ReadyEvent,
		},
	)

	// THEN
	raw, err := json.Marshal(assertions.Template_FromStack(stack.Stack, nil).ToJSON())
	require.NoError(t, err)

	// WHEN
	assert.Contains(t, string(raw), "States.StringSplit($$.State.EnteredTime")
	assert.NotContains(t, string(raw), `\"timestamp.$\":\"$$.State.EnteredTime\"`)
}

func TestReadyEventStack(t *testing.T) {
	// GIVEN
	env := environment(t, config.Beta)
	app := awscdk.NewApp(nil)

	// THEN
	stack := stateless.NewReadyEventStack(app, "ReadyEventStack",
		&stateless.ReadyEventStackProps{
			Props:  props(env, "ReadyEventStack"),
			Config: env.Stateless.ReadyEvent,
		},
	)

	// WHEN
	noErrors(stack.Stack)
	workflows := len(env.Stateless.ReadyEvent.Workflows)
	require.Len(t, stack.Generators, workflows)

	template := assertions.Template_FromStack(stack.Stack, nil)
	template.ResourcePropertiesCountIs(jsii.String("AWS::Lambda::Function"), bootstrap, jsii.Number(1))
	template.ResourceCountIs(jsii.String("AWS::StepFunctions::StateMachine"), jsii.Number(2*workflows))
	template.HasResourceProperties(jsii.String("AWS::StepFunctions::StateMachine"),
		map[string]interface{}{
			"StateMachineName": config.ReadyEventGeneratorStateMachinePrefix + "-cttsov2-draft-to-ready-sfn",
		},
	)
	template.HasResourceProperties(jsii.String("AWS::Events::Rule"),
		map[string]interface{}{
			"EventPattern": map[string]interface{}{
				"source":      []interface{}{config.WorkflowManagerSource},
				"detail-type": []interface{}{config.WorkflowDraftRunStateChange},
				"detail": map[string]interface{}{
					"status":       equalsIgnoreCase("DRAFT"),
					"workflowName": equalsIgnoreCase("cttsov2"),
				},
			},
		},
	)
	template.HasResourceProperties(jsii.String("AWS::IAM::Policy"),
		map[string]interface{}{
			"PolicyDocument": map[string]interface{}{
				"Statement": assertions.Match_ArrayWith(&[]interface{}{
					like(map[string]interface{}{"Action": "ssm:GetParameters"}),
				}),
			},
		},
	)
}

func TestEventTranslatorGlueStack(t *testing.T) {
	// GIVEN
	env := environment(t, config.Beta)
	app := awscdk.NewApp(nil)

	// THEN
	stack := stateless.NewEventTranslatorGlueStack(app, "EventTranslatorGlueStack",
		&stateless.EventTranslatorGlueStackProps{
			Props:  props(env, "EventTranslatorGlueStack"),
			Config: env.Stateless.EventTranslator,
		},
	)

	// WHEN
	noErrors(stack.Stack)
	require.NotNil(t, stack.Pipeline.StateMachine())

	template := assertions.Template_FromStack(stack.Stack, nil)
	template.HasResourceProperties(jsii.String("AWS::StepFunctions::StateMachine"),
		map[string]interface{}{
			"StateMachineName": "orcabus-event-translator-glue",
		},
	)
	template.HasResourceProperties(jsii.String("AWS::Events::Rule"),
		map[string]interface{}{
			"EventPattern": like(map[string]interface{}{
				"source":      []interface{}{config.BclConvertSource},
				"detail-type": []interface{}{config.WorkflowRunStateChange},
				"detail": map[string]interface{}{
					"status": equalsIgnoreCase("SUCCEEDED"),
				},
			}),
		},
	)
	template.HasResourceProperties(jsii.String("AWS::SQS::Queue"),
		map[string]interface{}{
			"QueueName":           "orcabus-event-translator-dlq",
			"SqsManagedSseEnabled": true,
		},
	)
}

func TestSchemaStack(t *testing.T) {
	// GIVEN
	env := environment(t, config.Beta)
	app := awscdk.NewApp(nil)

	// THEN
	stack, err := stateless.NewSchemaStack(app, "EventSchemaStack",
		&stateless.SchemaStackProps{
			StackProps:   config.TemplateProps(env, "EventSchemaStack"),
			RegistryName: config.RegistryName,
			Schemas:      env.Stateless.Schemas,
		},
	)
	require.NoError(t, err)

	// WHEN
	template := assertions.Template_FromStack(stack.Stack, nil)
	template.ResourceCountIs(jsii.String("AWS::EventSchemas::Schema"), jsii.Number(len(env.Stateless.Schemas)))
	template.HasResourceProperties(jsii.String("AWS::EventSchemas::Schema"),
		map[string]interface{}{
			"RegistryName": config.RegistryName,
			"SchemaName":   "WorkflowRunStateChange",
			"Type":         "OpenApi3",
			"Content":      assertions.Match_StringLikeRegexp(jsii.String("portalRunId")),
		},
	)
}

func TestSchemaStackUnknownFile(t *testing.T) {
	env := environment(t, config.Beta)
	app := awscdk.NewApp(nil)

	_, err := stateless.NewSchemaStack(app, "EventSchemaStack",
		&stateless.SchemaStackProps{
			StackProps:   config.TemplateProps(env, "EventSchemaStack"),
			RegistryName: config.RegistryName,
			Schemas:      []config.SchemaConfig{{Name: "Unknown", Type: "OpenApi3", File: "Unknown.json"}},
		},
	)
	require.Error(t, err)
}

func TestStackCollection(t *testing.T) {
	env := environment(t, config.Gamma)
	app := awscdk.NewApp(nil)

	c, err := stateless.NewStackCollection(app,
		&stateless.StackCollectionProps{Env: env, Builder: prebuilt},
	)
	require.NoError(t, err)

	for _, stack := range []awscdk.Stack{
		c.Schema.Stack,
		c.WorkflowTaskTokenManager.Stack,
		c.FastqSyncManager.Stack,
		c.Icav2DataCopyManager.Stack,
		c.ReadyEvent.Stack,
		c.EventTranslatorGlue.Stack,
	} {
		noErrors(stack)
		assert.Equal(t, "455634345446", *stack.Account())
	}
}
