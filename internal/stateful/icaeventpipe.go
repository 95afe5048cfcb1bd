//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package stateful

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatchactions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdynamodb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awseventstargets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awspipes"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/umccr/orcabus/internal/compliance"
	"github.com/umccr/orcabus/internal/config"
	"github.com/umccr/orcabus/internal/icaevent"
	"github.com/umccr/orcabus/internal/platform"
)

type IcaEventPipeStackProps struct {
	*awscdk.StackProps
	Config  config.IcaEventPipeConfig
	Builder platform.Builder
}

// IcaEventPipeStack receives ICA notifications into the queue and relays
// them to the main bus, where the translator turns analysis state changes
// into WorkflowRunStateChange events.
type IcaEventPipeStack struct {
	awscdk.Stack
	Queue           awssqs.Queue
	DeadLetterQueue awssqs.Queue
	Alarm           awscloudwatch.Alarm
	Pipe            awspipes.CfnPipe
	Translator      awslambda.Function
	Table           awsdynamodb.TableV2
}

func NewIcaEventPipeStack(scope constructs.Construct, id string, props *IcaEventPipeStackProps) *IcaEventPipeStack {
	stack := &IcaEventPipeStack{
		Stack: awscdk.NewStack(scope, jsii.String(id), props.StackProps),
	}
	cfg := props.Config

	bus := awsevents.EventBus_FromEventBusName(stack.Stack, jsii.String("EventBus"), jsii.String(cfg.EventBusName))

	stack.newMonitoredQueue(cfg)
	stack.newPipe(cfg, bus)
	stack.newTranslator(cfg, bus, props.Builder)

	compliance.Apply(stack.Stack)

	return stack
}

func (stack *IcaEventPipeStack) newMonitoredQueue(cfg config.IcaEventPipeConfig) {
	timeout := awscdk.Duration_Seconds(jsii.Number(cfg.VisibilityTimeoutSeconds))

	stack.DeadLetterQueue = platform.NewQueue(stack.Stack, "DeadLetterQueue",
		&platform.QueueProps{
			QueueName:         cfg.QueueName + "-dlq",
			VisibilityTimeout: timeout,
		},
	)

	stack.Queue = platform.NewQueue(stack.Stack, "Queue",
		&platform.QueueProps{
			QueueName:         cfg.QueueName,
			VisibilityTimeout: timeout,
			DeadLetterQueue:   stack.DeadLetterQueue,
		},
	)
	stack.Queue.GrantSendMessages(awsiam.NewAccountPrincipal(jsii.String(cfg.ICAAccountNumber)))

	stack.Alarm = awscloudwatch.NewAlarm(stack.Stack, jsii.String("DeadLetterQueueAlarm"),
		&awscloudwatch.AlarmProps{
			AlarmDescription:   jsii.String(fmt.Sprintf("Messages of %s are not delivered", cfg.QueueName)),
			Metric:             stack.DeadLetterQueue.MetricApproximateNumberOfMessagesVisible(nil),
			Threshold:          jsii.Number(cfg.DLQMessageThreshold),
			EvaluationPeriods:  jsii.Number(1),
			ComparisonOperator: awscloudwatch.ComparisonOperator_GREATER_THAN_OR_EQUAL_TO_THRESHOLD,
			TreatMissingData:   awscloudwatch.TreatMissingData_NOT_BREACHING,
		},
	)

	topic := awssns.Topic_FromTopicArn(stack.Stack, jsii.String("SlackTopic"),
		jsii.String(fmt.Sprintf("arn:aws:sns:%s:%s:%s", *stack.Region(), *stack.Account(), cfg.SlackTopicName)),
	)
	stack.Alarm.AddAlarmAction(awscloudwatchactions.NewSnsAction(topic))
}

func (stack *IcaEventPipeStack) newPipe(cfg config.IcaEventPipeConfig, bus awsevents.IEventBus) {
	role := awsiam.NewRole(stack.Stack, jsii.String("PipeRole"),
		&awsiam.RoleProps{
			AssumedBy: awsiam.NewServicePrincipal(jsii.String("pipes.amazonaws.com"), nil),
		},
	)
	stack.Queue.GrantConsumeMessages(role)
	platform.GrantPutEvents(role, bus)

	stack.Pipe = awspipes.NewCfnPipe(stack.Stack, jsii.String("Pipe"),
		&awspipes.CfnPipeProps{
			Name:    jsii.String(cfg.PipeName),
			RoleArn: role.RoleArn(),
			Source:  stack.Queue.QueueArn(),
			Target:  bus.EventBusArn(),
			SourceParameters: &awspipes.CfnPipe_PipeSourceParametersProperty{
				SqsQueueParameters: &awspipes.CfnPipe_PipeSourceSqsQueueParametersProperty{
					BatchSize: jsii.Number(1),
				},
			},
			TargetParameters: &awspipes.CfnPipe_PipeTargetParametersProperty{
				InputTemplate: jsii.String(`{"ica-event": <$.body>}`),
			},
		},
	)
	stack.Pipe.Node().AddDependency(role)
}

func (stack *IcaEventPipeStack) newTranslator(cfg config.IcaEventPipeConfig, bus awsevents.IEventBus, builder platform.Builder) {
	stack.Table = newTable(stack.Stack, "TranslatorTable",
		tableSpec{
			name:         cfg.TranslatorTableName,
			partitionKey: KeyID,
			sortKey:      KeyIDType,
			indexes: []index{
				{name: config.ICAEventTranslatorAnalysisIndex, partitionKey: "analysis_id"},
			},
		},
	)

	stack.Translator = platform.NewFunction(builder, stack.Stack, "Translator",
		&platform.FunctionProps{
			Lambda:      "cmd/lambda/icaevent",
			Description: "Translates ICA analysis state changes into WorkflowRunStateChange",
			Timeout:     awscdk.Duration_Seconds(jsii.Number(28)),
			Environment: map[string]string{
				"EVENT_BUS_NAME": cfg.EventBusName,
				"TABLE_NAME":     cfg.TranslatorTableName,
			},
		},
	)
	stack.Table.GrantReadWriteData(stack.Translator)
	platform.GrantPutEvents(stack.Translator, bus)

	rule := awsevents.NewRule(stack.Stack, jsii.String("TranslatorRule"),
		&awsevents.RuleProps{
			EventBus:    bus,
			Description: jsii.String("ICA analysis state changes relayed by " + cfg.PipeName),
			EventPattern: &awsevents.EventPattern{
				Source: jsii.Strings("Pipe " + cfg.PipeName),
				Detail: &map[string]interface{}{
					"ica-event": map[string]interface{}{
						"eventCode": []string{icaevent.AnalysisStatusChanged},
					},
				},
			},
		},
	)
	rule.AddTarget(awseventstargets.NewLambdaFunction(stack.Translator, nil))
}
