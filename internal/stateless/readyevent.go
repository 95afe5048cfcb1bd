//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package stateless

import (
	"sort"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsssm"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsstepfunctions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsstepfunctionstasks"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/iancoleman/strcase"
	"github.com/umccr/orcabus/internal/compliance"
	"github.com/umccr/orcabus/internal/config"
	"github.com/umccr/orcabus/internal/event"
	"github.com/umccr/orcabus/internal/platform"
)

type ReadyEventGeneratorProps struct {
	StateMachinePrefix string
	Bus                awsevents.IEventBus
	TriggerSource      string
	TriggerDetailType  string
	OutputSource       string
	OutputDetailType   string
	Workflow           config.ReadyWorkflowConfig
	FillPlaceholders   awslambda.IFunction
	LogRetention       awslogs.RetentionDays
}

// ReadyEventGenerator turns DRAFT state change of the workflow into READY:
// engine parameters of the draft are completed with SSM defaults, their
// placeholders are filled and the run is emitted as READY.
type ReadyEventGenerator struct {
	constructs.Construct
	EngineParameters awsstepfunctions.StateMachine
	StateMachine     awsstepfunctions.StateMachine
	Rule             awsevents.Rule
}

func NewReadyEventGenerator(scope constructs.Construct, id string, props *ReadyEventGeneratorProps) *ReadyEventGenerator {
	c := &ReadyEventGenerator{Construct: constructs.NewConstruct(scope, jsii.String(id))}
	wf := props.Workflow

	c.EngineParameters = platform.NewStateMachine(c.Construct, "EngineParameters",
		&platform.StateMachineProps{
			StateMachineName: props.StateMachinePrefix + "-" + wf.Name + "-engineparameter-sfn",
			Definition:       c.engineParameters(props),
			LogRetention:     props.LogRetention,
		},
	)

	c.StateMachine = platform.NewStateMachine(c.Construct, "StateMachine",
		&platform.StateMachineProps{
			StateMachineName: props.StateMachinePrefix + "-" + wf.Name + "-draft-to-ready-sfn",
			Definition:       c.draftToReady(props),
			LogRetention:     props.LogRetention,
		},
	)

	c.Rule = awsevents.NewRule(c.Construct, jsii.String("DraftRule"),
		&awsevents.RuleProps{
			EventBus:    props.Bus,
			Description: jsii.String("DRAFT runs of " + wf.Name + " ready for launch"),
			EventPattern: &awsevents.EventPattern{
				Source:     jsii.Strings(props.TriggerSource),
				DetailType: jsii.Strings(props.TriggerDetailType),
				Detail: &map[string]interface{}{
					"status":       anyOf(string(event.StatusDraft)),
					"workflowName": anyOf(wf.Name),
				},
			},
		},
	)
	trigger(c.Rule, c.StateMachine)

	return c
}

// engineParameters reads defaults from SSM and fills placeholders
func (c *ReadyEventGenerator) engineParameters(props *ReadyEventGeneratorProps) awsstepfunctions.IChainable {
	wf := props.Workflow
	stack := awscdk.Stack_Of(c.Construct)

	keys := make([]string, 0, len(wf.Parameters))
	for key := range wf.Parameters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	names := make([]*string, 0, len(keys))
	arns := make([]*string, 0, len(keys))
	for _, key := range keys {
		names = append(names, jsii.String(wf.Parameters[key]))
		arns = append(arns, stack.FormatArn(&awscdk.ArnComponents{
			Service:      jsii.String("ssm"),
			Resource:     jsii.String("parameter"),
			ResourceName: jsii.String(strings.TrimPrefix(wf.Parameters[key], "/")),
		}))
	}

	payload := map[string]interface{}{
		"portal_run_id":     awsstepfunctions.JsonPath_StringAt(jsii.String("$.portal_run_id")),
		"workflow_name":     awsstepfunctions.JsonPath_StringAt(jsii.String("$.workflow_name")),
		"workflow_version":  awsstepfunctions.JsonPath_StringAt(jsii.String("$.workflow_version")),
		"event_data_inputs": awsstepfunctions.JsonPath_ObjectAt(jsii.String("$.event_data_inputs")),
		"engine_parameters": awsstepfunctions.JsonPath_ObjectAt(jsii.String("$.engine_parameters")),
	}

	fill := func(payload map[string]interface{}) awsstepfunctionstasks.LambdaInvoke {
		return awsstepfunctionstasks.NewLambdaInvoke(c.Construct, jsii.String("FillPlaceholders"),
			&awsstepfunctionstasks.LambdaInvokeProps{
				LambdaFunction:           props.FillPlaceholders,
				Payload:                  awsstepfunctions.TaskInput_FromObject(&payload),
				PayloadResponseOnly:      jsii.Bool(true),
				RetryOnServiceExceptions: jsii.Bool(true),
			},
		)
	}

	if len(keys) == 0 {
		return fill(payload)
	}

	defaults := map[string]interface{}{}
	for key, name := range wf.Parameters {
		defaults[key] = name
	}
	payload["ssm_parameter_names"] = defaults
	payload["ssm_parameters"] = awsstepfunctions.JsonPath_ListAt(jsii.String("$.ssm.Parameters"))

	lookup := awsstepfunctionstasks.NewCallAwsService(c.Construct, jsii.String("GetParameters"),
		&awsstepfunctionstasks.CallAwsServiceProps{
			Service:      jsii.String("ssm"),
			Action:       jsii.String("getParameters"),
			IamAction:    jsii.String("ssm:GetParameters"),
			IamResources: &arns,
			Parameters: &map[string]interface{}{
				"Names": names,
			},
			ResultSelector: &map[string]interface{}{
				"Parameters": awsstepfunctions.JsonPath_ListAt(jsii.String("$.Parameters")),
			},
			ResultPath: jsii.String("$.ssm"),
		},
	)

	return lookup.Next(fill(payload))
}

// draftToReady runs engine parameters state machine and emits READY
func (c *ReadyEventGenerator) draftToReady(props *ReadyEventGeneratorProps) awsstepfunctions.IChainable {
	engine := awsstepfunctionstasks.NewStepFunctionsStartExecution(c.Construct, jsii.String("GenerateEngineParameters"),
		&awsstepfunctionstasks.StepFunctionsStartExecutionProps{
			StateMachine:       c.EngineParameters,
			IntegrationPattern: awsstepfunctions.IntegrationPattern_RUN_JOB,
			Input: awsstepfunctions.TaskInput_FromObject(&map[string]interface{}{
				"portal_run_id":     awsstepfunctions.JsonPath_StringAt(jsii.String("$.portalRunId")),
				"workflow_name":     awsstepfunctions.JsonPath_StringAt(jsii.String("$.workflowName")),
				"workflow_version":  awsstepfunctions.JsonPath_StringAt(jsii.String("$.workflowVersion")),
				"event_data_inputs": awsstepfunctions.JsonPath_ObjectAt(jsii.String("$.payload.data.inputs")),
				"engine_parameters": awsstepfunctions.JsonPath_ObjectAt(jsii.String("$.payload.data.engineParameters")),
			}),
			ResultSelector: &map[string]interface{}{
				"engineParameters": awsstepfunctions.JsonPath_ObjectAt(jsii.String("$.Output.engine_parameters_updated")),
			},
			ResultPath: jsii.String("$.engine"),
		},
	)

	emit := func(id string, libraries bool) awsstepfunctions.IChainable {
		detail := map[string]interface{}{
			"portalRunId":     awsstepfunctions.JsonPath_StringAt(jsii.String("$.portalRunId")),
			"timestamp":       enteredAt(),
			"status":          string(event.StatusReady),
			"workflowName":    awsstepfunctions.JsonPath_StringAt(jsii.String("$.workflowName")),
			"workflowVersion": awsstepfunctions.JsonPath_StringAt(jsii.String("$.workflowVersion")),
			"workflowRunName": awsstepfunctions.JsonPath_StringAt(jsii.String("$.workflowRunName")),
			"payload": map[string]interface{}{
				"refId":   awsstepfunctions.JsonPath_Uuid(),
				"version": props.Workflow.PayloadVersion,
				"data": awsstepfunctions.JsonPath_JsonMerge(
					awsstepfunctions.JsonPath_ObjectAt(jsii.String("$.payload.data")),
					awsstepfunctions.JsonPath_ObjectAt(jsii.String("$.engine")),
				),
			},
		}
		if libraries {
			detail["linkedLibraries"] = awsstepfunctions.JsonPath_ListAt(jsii.String("$.linkedLibraries"))
		}

		return awsstepfunctionstasks.NewEventBridgePutEvents(c.Construct, jsii.String(id),
			&awsstepfunctionstasks.EventBridgePutEventsProps{
				Entries: &[]*awsstepfunctionstasks.EventBridgePutEventsEntry{
					{
						EventBus:   props.Bus,
						Source:     jsii.String(props.OutputSource),
						DetailType: jsii.String(props.OutputDetailType),
						Detail:     awsstepfunctions.TaskInput_FromObject(&detail),
					},
				},
				ResultPath: awsstepfunctions.JsonPath_DISCARD(),
			},
		)
	}

	engine.Next(
		awsstepfunctions.NewChoice(c.Construct, jsii.String("HasLinkedLibraries"), nil).
			When(awsstepfunctions.Condition_IsPresent(jsii.String("$.linkedLibraries")), emit("EmitReadyWithLibraries", true), nil).
			Otherwise(emit("EmitReady", false)),
	)

	empty := awsstepfunctions.NewPass(c.Construct, jsii.String("NoEngineParameters"),
		&awsstepfunctions.PassProps{
			Result:     awsstepfunctions.Result_FromObject(&map[string]interface{}{}),
			ResultPath: jsii.String("$.payload.data.engineParameters"),
		},
	)
	empty.Next(engine)

	return awsstepfunctions.NewChoice(c.Construct, jsii.String("HasEngineParameters"), nil).
		When(awsstepfunctions.Condition_IsPresent(jsii.String("$.payload.data.engineParameters")), engine, nil).
		Otherwise(empty)
}

//------------------------------------------------------------------------------

type ReadyEventStackProps struct {
	Props
	Config config.ReadyEventConfig
}

// ReadyEventStack deploys ready event generator of each configured workflow,
// they share the lambda filling placeholders.
type ReadyEventStack struct {
	awscdk.Stack
	FillPlaceholders awslambda.Function
	Generators       []*ReadyEventGenerator
}

func NewReadyEventStack(scope constructs.Construct, id string, props *ReadyEventStackProps) *ReadyEventStack {
	stack := &ReadyEventStack{
		Stack: awscdk.NewStack(scope, jsii.String(id), props.StackProps),
	}
	cfg := props.Config

	bus := props.bus(stack.Stack)
	storage := awsssm.StringParameter_FromStringParameterName(stack.Stack, jsii.String("ProjectStorage"), jsii.String(cfg.ProjectStorageParameterName))

	stack.FillPlaceholders = platform.NewFunction(props.Builder, stack.Stack, "FillPlaceholders",
		&platform.FunctionProps{
			Lambda:      "cmd/lambda/placeholders",
			Description: "Fills placeholders of engine parameters of the draft workflow run",
			Timeout:     awscdk.Duration_Seconds(jsii.Number(60)),
			Environment: map[string]string{
				"PROJECT_STORAGE_SSM_PARAMETER": cfg.ProjectStorageParameterName,
			},
			LogRetention: props.LogRetention,
		},
	)
	storage.GrantRead(stack.FillPlaceholders)

	for _, wf := range cfg.Workflows {
		g := NewReadyEventGenerator(stack.Stack, strcase.ToCamel(wf.Name),
			&ReadyEventGeneratorProps{
				StateMachinePrefix: cfg.StateMachinePrefix,
				Bus:                bus,
				TriggerSource:      cfg.EventSource,
				TriggerDetailType:  cfg.DraftDetailType,
				OutputSource:       cfg.EventSource,
				OutputDetailType:   cfg.OutputDetailType,
				Workflow:           wf,
				FillPlaceholders:   stack.FillPlaceholders,
				LogRetention:       props.LogRetention,
			},
		)
		stack.Generators = append(stack.Generators, g)
	}

	compliance.Apply(stack.Stack)

	return stack
}

// enteredAt is the entered time of the state truncated to seconds
func enteredAt() *string {
	return awsstepfunctions.JsonPath_Format(jsii.String("{}Z"),
		awsstepfunctions.JsonPath_ArrayGetItem(
			awsstepfunctions.JsonPath_StringSplit(
				awsstepfunctions.JsonPath_StringAt(jsii.String("$$.State.EnteredTime")),
				jsii.String("."),
			),
			jsii.Number(0),
		),
	)
}
