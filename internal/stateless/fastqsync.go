//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package stateless

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdynamodb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awseventstargets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsssm"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsstepfunctions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsstepfunctionstasks"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/umccr/orcabus/internal/compliance"
	"github.com/umccr/orcabus/internal/config"
	"github.com/umccr/orcabus/internal/platform"
)

// Handlers of cmd/lambda/fastqsync, selected by HANDLER variable
const (
	FastqSyncRegister = "register"
	FastqSyncLaunch   = "launch"
	FastqSyncRelease  = "release"
)

// Status of fastq list row that may satisfy pending requirements
var fastqListRowUpdates = []string{
	"READ_SET_ADDED",
	"FILE_COMPRESSION_UPDATED",
	"QC_UPDATED",
	"NTSM_UPDATED",
}

type FastqSyncManagerStackProps struct {
	Props
	Config config.FastqSyncConfig
}

// FastqSyncManagerStack holds FastqSync task tokens until the fastq set
// satisfies requirements of the caller, launching jobs that produce the
// missing requirements.
type FastqSyncManagerStack struct {
	awscdk.Stack
	Register    awslambda.Function
	Launch      awslambda.Function
	Release     awslambda.Function
	Initialise  awsstepfunctions.StateMachine
	Launcher    awsstepfunctions.StateMachine
	RowsUpdated awsstepfunctions.StateMachine
}

func NewFastqSyncManagerStack(scope constructs.Construct, id string, props *FastqSyncManagerStackProps) *FastqSyncManagerStack {
	stack := &FastqSyncManagerStack{
		Stack: awscdk.NewStack(scope, jsii.String(id), props.StackProps),
	}
	cfg := props.Config

	bus := props.bus(stack.Stack)
	table := awsdynamodb.TableV2_FromTableName(stack.Stack, jsii.String("Table"), jsii.String(cfg.TableName))
	hostname := awsssm.StringParameter_FromStringParameterName(stack.Stack, jsii.String("Hostname"), jsii.String(cfg.HostnameParameterName))
	token := awssecretsmanager.Secret_FromSecretNameV2(stack.Stack, jsii.String("OrcabusToken"), jsii.String(cfg.OrcabusTokenSecretName))

	function := func(id, handler, description string) awslambda.Function {
		f := platform.NewFunction(props.Builder, stack.Stack, id,
			&platform.FunctionProps{
				Lambda:      "cmd/lambda/fastqsync",
				Description: description,
				Timeout:     awscdk.Duration_Seconds(jsii.Number(60)),
				Environment: map[string]string{
					"HANDLER":                 handler,
					"TABLE_NAME":              cfg.TableName,
					"HOSTNAME_SSM_PARAMETER":  cfg.HostnameParameterName,
					"ORCABUS_TOKEN_SECRET_ID": cfg.OrcabusTokenSecretName,
					"BYOB_BUCKET_PREFIX":      "s3://" + cfg.PipelineCacheBucket + "/" + cfg.PipelineCachePrefix,
				},
				LogRetention: props.LogRetention,
			},
		)
		hostname.GrantRead(f)
		token.GrantRead(f, nil)
		return f
	}

	stack.Register = function("Register", FastqSyncRegister, "Parks FastqSync task token until the fastq set is ready")
	table.GrantReadWriteData(stack.Register)
	grantTaskResponse(stack.Stack, stack.Register)

	stack.Launch = function("Launch", FastqSyncLaunch, "Launches jobs producing missing requirements of fastq list row")

	stack.Release = function("Release", FastqSyncRelease, "Releases FastqSync task tokens of updated fastq list rows")
	table.GrantReadWriteData(stack.Release)
	grantTaskResponse(stack.Stack, stack.Release)

	stack.Launcher = platform.NewStateMachine(stack.Stack, "LaunchRequirements",
		&platform.StateMachineProps{
			StateMachineName: cfg.StateMachinePrefix + "-launch-fqlr-requirements",
			Definition:       invoke(stack.Stack, "LaunchJobs", stack.Launch, awsstepfunctions.JsonPath_DISCARD()),
			LogRetention:     props.LogRetention,
		},
	)

	stack.Initialise = platform.NewStateMachine(stack.Stack, "InitialiseTaskToken",
		&platform.StateMachineProps{
			StateMachineName: cfg.StateMachinePrefix + "-initialise-task-token",
			Definition:       stack.initialise(),
			LogRetention:     props.LogRetention,
		},
	)

	stack.RowsUpdated = platform.NewStateMachine(stack.Stack, "FastqListRowUpdated",
		&platform.StateMachineProps{
			StateMachineName: cfg.StateMachinePrefix + "-fastq-list-row-id-updated",
			Definition:       invoke(stack.Stack, "ReleaseTaskTokens", stack.Release, awsstepfunctions.JsonPath_DISCARD()),
			LogRetention:     props.LogRetention,
		},
	)

	sync := awsevents.NewRule(stack.Stack, jsii.String("TaskTokenInitialiser"),
		&awsevents.RuleProps{
			RuleName: jsii.String(cfg.RuleNamePrefix + "-task-token-initialiser"),
			EventBus: bus,
			EventPattern: &awsevents.EventPattern{
				DetailType: jsii.Strings(cfg.SyncDetailType),
				Detail: &map[string]interface{}{
					"taskToken": exists(),
				},
			},
		},
	)
	trigger(sync, stack.Initialise)

	updated := awsevents.NewRule(stack.Stack, jsii.String("FastqListRowUpdatedRule"),
		&awsevents.RuleProps{
			RuleName: jsii.String(cfg.RuleNamePrefix + "-fastq-list-row-updated"),
			EventBus: bus,
			EventPattern: &awsevents.EventPattern{
				Source:     jsii.Strings(config.FastqManagerSource),
				DetailType: jsii.Strings(cfg.FastqStateChangeType),
				Detail: &map[string]interface{}{
					"id":     exists(),
					"status": anyOf(fastqListRowUpdates...),
				},
			},
		},
	)
	updated.AddTarget(
		awseventstargets.NewSfnStateMachine(stack.RowsUpdated,
			&awseventstargets.SfnStateMachineProps{
				Input: awsevents.RuleTargetInput_FromObject(
					map[string]interface{}{
						"fastqListRowIds": []interface{}{awsevents.EventField_FromPath(jsii.String("$.detail.id"))},
					},
				),
			},
		),
	)

	unarchived := awsevents.NewRule(stack.Stack, jsii.String("UnarchivingCompleteRule"),
		&awsevents.RuleProps{
			RuleName: jsii.String(cfg.RuleNamePrefix + "-unarchiving-complete"),
			EventBus: bus,
			EventPattern: &awsevents.EventPattern{
				Source:     jsii.Strings(config.FastqUnarchivingSource),
				DetailType: jsii.Strings(cfg.UnarchivingDetailType),
				Detail: &map[string]interface{}{
					"status": anyOf("SUCCEEDED"),
				},
			},
		},
	)
	unarchived.AddTarget(
		awseventstargets.NewSfnStateMachine(stack.RowsUpdated,
			&awseventstargets.SfnStateMachineProps{
				Input: awsevents.RuleTargetInput_FromObject(
					map[string]interface{}{
						"fastqListRowIds": awsevents.EventField_FromPath(jsii.String("$.detail.fastqIds")),
					},
				),
			},
		),
	)

	compliance.Apply(stack.Stack)

	return stack
}

// initialise registers the task token, rows of the set not yet ready are
// passed to the launcher one by one.
func (stack *FastqSyncManagerStack) initialise() awsstepfunctions.IChainable {
	register := invoke(stack.Stack, "RegisterTaskToken", stack.Register, jsii.String("$.register"))

	launch := awsstepfunctionstasks.NewStepFunctionsStartExecution(stack.Stack, jsii.String("LaunchRowRequirements"),
		&awsstepfunctionstasks.StepFunctionsStartExecutionProps{
			StateMachine:       stack.Launcher,
			IntegrationPattern: awsstepfunctions.IntegrationPattern_REQUEST_RESPONSE,
			Input:              awsstepfunctions.TaskInput_FromJsonPathAt(jsii.String("$")),
			ResultPath:         awsstepfunctions.JsonPath_DISCARD(),
		},
	)

	rows := awsstepfunctions.NewMap(stack.Stack, jsii.String("ForEachFastqListRow"),
		&awsstepfunctions.MapProps{
			ItemsPath: jsii.String("$.register.fastqListRowIdList"),
			ItemSelector: &map[string]interface{}{
				"fastqListRowId":       awsstepfunctions.JsonPath_StringAt(jsii.String("$$.Map.Item.Value")),
				"requirements":         awsstepfunctions.JsonPath_ListAt(jsii.String("$.payload.requirements")),
				"isUnarchivingAllowed": awsstepfunctions.JsonPath_StringAt(jsii.String("$.payload.isUnarchivingAllowed")),
			},
			MaxConcurrency: jsii.Number(10),
			ResultPath:     awsstepfunctions.JsonPath_DISCARD(),
		},
	)
	rows.ItemProcessor(launch, nil)

	released := awsstepfunctions.NewSucceed(stack.Stack, jsii.String("Released"), nil)

	return register.Next(
		awsstepfunctions.NewChoice(stack.Stack, jsii.String("IsReleased"), nil).
			When(awsstepfunctions.Condition_BooleanEquals(jsii.String("$.register.released"), jsii.Bool(true)), released, nil).
			Otherwise(rows),
	)
}

// invoke lambda with state input, payload of response is placed at resultPath
func invoke(scope constructs.Construct, id string, f awslambda.IFunction, resultPath *string) awsstepfunctionstasks.LambdaInvoke {
	return awsstepfunctionstasks.NewLambdaInvoke(scope, jsii.String(id),
		&awsstepfunctionstasks.LambdaInvokeProps{
			LambdaFunction:           f,
			PayloadResponseOnly:      jsii.Bool(true),
			ResultPath:               resultPath,
			RetryOnServiceExceptions: jsii.Bool(true),
		},
	)
}
