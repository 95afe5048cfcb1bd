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
	"github.com/aws/aws-cdk-go/awscdk/v2/awsstepfunctions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsstepfunctionstasks"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/umccr/orcabus/internal/compliance"
	"github.com/umccr/orcabus/internal/config"
	"github.com/umccr/orcabus/internal/event"
	"github.com/umccr/orcabus/internal/platform"
)

type WorkflowTaskTokenManagerStackProps struct {
	Props
	Config config.WorkflowTaskTokenManagerConfig
}

// WorkflowTaskTokenManagerStack lets state machine wait for a workflow run.
// The state machine emits WorkflowRunStateChangeSync with its task token,
// the token is parked under the portal run id and the state change is
// re-emitted as WorkflowRunStateChange. Terminal state change of the run
// resumes the waiting execution.
type WorkflowTaskTokenManagerStack struct {
	awscdk.Stack
	Launch        awsstepfunctions.StateMachine
	SendTaskToken awsstepfunctions.StateMachine
	LaunchRule    awsevents.Rule
	ReleaseRule   awsevents.Rule
}

func NewWorkflowTaskTokenManagerStack(scope constructs.Construct, id string, props *WorkflowTaskTokenManagerStackProps) *WorkflowTaskTokenManagerStack {
	stack := &WorkflowTaskTokenManagerStack{
		Stack: awscdk.NewStack(scope, jsii.String(id), props.StackProps),
	}
	cfg := props.Config

	bus := props.bus(stack.Stack)
	table := awsdynamodb.TableV2_FromTableName(stack.Stack, jsii.String("Table"), jsii.String(cfg.TableName))

	stack.Launch = platform.NewStateMachine(stack.Stack, "LaunchStateMachine",
		&platform.StateMachineProps{
			StateMachineName: cfg.StateMachinePrefix + "-launch-state-machine-sfn",
			Definition:       stack.launch(cfg, table, bus),
			LogRetention:     props.LogRetention,
		},
	)

	stack.SendTaskToken = platform.NewStateMachine(stack.Stack, "SendTaskTokenStateMachine",
		&platform.StateMachineProps{
			StateMachineName: cfg.StateMachinePrefix + "-send-task-token-sfn",
			Definition:       stack.sendTaskToken(cfg, table),
			LogRetention:     props.LogRetention,
		},
	)
	grantTaskResponse(stack.Stack, stack.SendTaskToken)

	// EventBridge cannot express $or over detail type and detail, hence two rules
	stack.LaunchRule = awsevents.NewRule(stack.Stack, jsii.String("LaunchRule"),
		&awsevents.RuleProps{
			RuleName: jsii.String(cfg.RuleNamePrefix + "-launch-wrsc-rule"),
			EventBus: bus,
			EventPattern: &awsevents.EventPattern{
				DetailType: jsii.Strings(cfg.TriggerDetailType),
				Detail: &map[string]interface{}{
					"portalRunId": exists(),
					"taskToken":   exists(),
				},
			},
		},
	)
	trigger(stack.LaunchRule, stack.Launch)

	stack.ReleaseRule = awsevents.NewRule(stack.Stack, jsii.String("SendTaskTokenRule"),
		&awsevents.RuleProps{
			RuleName: jsii.String(cfg.RuleNamePrefix + "-send-task-token-event-rule"),
			EventBus: bus,
			EventPattern: &awsevents.EventPattern{
				DetailType: jsii.Strings(cfg.OutputDetailType),
				Detail: &map[string]interface{}{
					"portalRunId": exists(),
					"status": anyOf(
						string(event.StatusSucceeded),
						string(event.StatusFailed),
						string(event.StatusAborted),
						string(event.StatusDeprecated),
					),
				},
			},
		},
	)
	trigger(stack.ReleaseRule, stack.SendTaskToken)

	compliance.Apply(stack.Stack)

	return stack
}

func (stack *WorkflowTaskTokenManagerStack) key(cfg config.WorkflowTaskTokenManagerConfig) *map[string]awsstepfunctionstasks.DynamoAttributeValue {
	return &map[string]awsstepfunctionstasks.DynamoAttributeValue{
		"id":      awsstepfunctionstasks.DynamoAttributeValue_FromString(awsstepfunctions.JsonPath_StringAt(jsii.String("$.portalRunId"))),
		"id_type": awsstepfunctionstasks.DynamoAttributeValue_FromString(jsii.String(cfg.TablePartitionName)),
	}
}

// launch parks task token and emits the state change without it.
func (stack *WorkflowTaskTokenManagerStack) launch(cfg config.WorkflowTaskTokenManagerConfig, table awsdynamodb.ITableV2, bus awsevents.IEventBus) awsstepfunctions.IChainable {
	item := *stack.key(cfg)
	item["task_token"] = awsstepfunctionstasks.DynamoAttributeValue_FromString(awsstepfunctions.JsonPath_StringAt(jsii.String("$.taskToken")))

	park := awsstepfunctionstasks.NewDynamoPutItem(stack.Stack, jsii.String("ParkTaskToken"),
		&awsstepfunctionstasks.DynamoPutItemProps{
			Table:      table,
			Item:       &item,
			ResultPath: awsstepfunctions.JsonPath_DISCARD(),
		},
	)

	emit := func(id string, libraries bool) awsstepfunctions.IChainable {
		detail := map[string]interface{}{
			"portalRunId":     awsstepfunctions.JsonPath_StringAt(jsii.String("$.portalRunId")),
			"timestamp":       awsstepfunctions.JsonPath_StringAt(jsii.String("$.timestamp")),
			"status":          awsstepfunctions.JsonPath_StringAt(jsii.String("$.status")),
			"workflowName":    awsstepfunctions.JsonPath_StringAt(jsii.String("$.workflowName")),
			"workflowVersion": awsstepfunctions.JsonPath_StringAt(jsii.String("$.workflowVersion")),
			"workflowRunName": awsstepfunctions.JsonPath_StringAt(jsii.String("$.workflowRunName")),
			"payload":         awsstepfunctions.JsonPath_ObjectAt(jsii.String("$.payload")),
		}
		if libraries {
			detail["linkedLibraries"] = awsstepfunctions.JsonPath_ListAt(jsii.String("$.linkedLibraries"))
		}

		return awsstepfunctionstasks.NewEventBridgePutEvents(stack.Stack, jsii.String(id),
			&awsstepfunctionstasks.EventBridgePutEventsProps{
				Entries: &[]*awsstepfunctionstasks.EventBridgePutEventsEntry{
					{
						EventBus:   bus,
						Source:     jsii.String(cfg.EventSource),
						DetailType: jsii.String(cfg.OutputDetailType),
						Detail:     awsstepfunctions.TaskInput_FromObject(&detail),
					},
				},
				ResultPath: awsstepfunctions.JsonPath_DISCARD(),
			},
		)
	}

	hasLibraries := awsstepfunctions.NewChoice(stack.Stack, jsii.String("HasLinkedLibraries"), nil).
		When(awsstepfunctions.Condition_IsPresent(jsii.String("$.linkedLibraries")), emit("EmitWithLibraries", true), nil).
		Otherwise(emit("Emit", false))

	return park.Next(hasLibraries)
}

// sendTaskToken resumes execution waiting for the run: success when the
// run succeeded, failure otherwise. The token is deleted in both cases.
func (stack *WorkflowTaskTokenManagerStack) sendTaskToken(cfg config.WorkflowTaskTokenManagerConfig, table awsdynamodb.ITableV2) awsstepfunctions.IChainable {
	lookup := awsstepfunctionstasks.NewDynamoGetItem(stack.Stack, jsii.String("LookupTaskToken"),
		&awsstepfunctionstasks.DynamoGetItemProps{
			Table:      table,
			Key:        stack.key(cfg),
			ResultPath: jsii.String("$.token"),
		},
	)

	token := awsstepfunctions.JsonPath_StringAt(jsii.String("$.token.Item.task_token.S"))

	success := awsstepfunctionstasks.NewCallAwsService(stack.Stack, jsii.String("SendTaskSuccess"),
		&awsstepfunctionstasks.CallAwsServiceProps{
			Service:      jsii.String("sfn"),
			Action:       jsii.String("sendTaskSuccess"),
			IamAction:    jsii.String("states:SendTaskSuccess"),
			IamResources: jsii.Strings("*"),
			Parameters: &map[string]interface{}{
				"TaskToken": token,
				"Output":    awsstepfunctions.JsonPath_JsonToString(awsstepfunctions.JsonPath_ObjectAt(jsii.String("$.payload"))),
			},
			ResultPath: awsstepfunctions.JsonPath_DISCARD(),
		},
	)

	failure := awsstepfunctionstasks.NewCallAwsService(stack.Stack, jsii.String("SendTaskFailure"),
		&awsstepfunctionstasks.CallAwsServiceProps{
			Service:      jsii.String("sfn"),
			Action:       jsii.String("sendTaskFailure"),
			IamAction:    jsii.String("states:SendTaskFailure"),
			IamResources: jsii.Strings("*"),
			Parameters: &map[string]interface{}{
				"TaskToken": token,
				"Error":     awsstepfunctions.JsonPath_StringAt(jsii.String("$.status")),
				"Cause":     awsstepfunctions.JsonPath_Format(jsii.String("workflow run {} is {}"), awsstepfunctions.JsonPath_StringAt(jsii.String("$.portalRunId")), awsstepfunctions.JsonPath_StringAt(jsii.String("$.status"))),
			},
			ResultPath: awsstepfunctions.JsonPath_DISCARD(),
		},
	)

	// task token is stale if execution is gone, the item is deleted anyway
	stale := []*string{jsii.String("Sfn.TaskTimedOutException"), jsii.String("Sfn.InvalidTokenException"), jsii.String("Sfn.TaskDoesNotExistException")}

	remove := awsstepfunctionstasks.NewDynamoDeleteItem(stack.Stack, jsii.String("DeleteTaskToken"),
		&awsstepfunctionstasks.DynamoDeleteItemProps{
			Table:      table,
			Key:        stack.key(cfg),
			ResultPath: awsstepfunctions.JsonPath_DISCARD(),
		},
	)
	success.AddCatch(remove, &awsstepfunctions.CatchProps{Errors: &stale, ResultPath: awsstepfunctions.JsonPath_DISCARD()})
	failure.AddCatch(remove, &awsstepfunctions.CatchProps{Errors: &stale, ResultPath: awsstepfunctions.JsonPath_DISCARD()})

	send := awsstepfunctions.NewChoice(stack.Stack, jsii.String("IsSucceeded"), nil).
		When(statusIs("$.status", string(event.StatusSucceeded)), success.Next(remove), nil).
		Otherwise(failure.Next(remove))

	noop := awsstepfunctions.NewSucceed(stack.Stack, jsii.String("NoTaskToken"),
		&awsstepfunctions.SucceedProps{Comment: jsii.String("no execution waits for the run")},
	)

	hasToken := awsstepfunctions.NewChoice(stack.Stack, jsii.String("HasTaskToken"), nil).
		When(awsstepfunctions.Condition_IsPresent(jsii.String("$.token.Item")), send, nil).
		Otherwise(noop)

	return lookup.Next(hasToken)
}
