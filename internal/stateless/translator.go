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
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/umccr/orcabus/internal/compliance"
	"github.com/umccr/orcabus/internal/config"
	"github.com/umccr/orcabus/internal/event"
	"github.com/umccr/orcabus/internal/platform"
	"github.com/umccr/orcabus/internal/translate"
	"github.com/umccr/orcabus/internal/typestep"
)

type EventTranslatorGlueStackProps struct {
	Props
	Config config.EventTranslatorConfig
}

// EventTranslatorGlueStack relays workflow run state changes of the
// service to the bus under the glue source with fresh reference id.
type EventTranslatorGlueStack struct {
	awscdk.Stack
	Relay           awslambda.IFunction
	DeadLetterQueue awssqs.Queue
	Pipeline        typestep.TypeStep
}

func NewEventTranslatorGlueStack(scope constructs.Construct, id string, props *EventTranslatorGlueStackProps) *EventTranslatorGlueStack {
	stack := &EventTranslatorGlueStack{
		Stack: awscdk.NewStack(scope, jsii.String(id), props.StackProps),
	}
	cfg := props.Config

	bus := props.bus(stack.Stack)

	relay := newRelay(stack.Stack, props.Builder,
		&platform.FunctionProps{
			Lambda:       "cmd/lambda/translate",
			Description:  "Relays " + cfg.DetailType + " of " + cfg.InputSource + " as " + cfg.Source,
			LogRetention: props.LogRetention,
		},
	)
	stack.Relay = relay.F()

	stack.DeadLetterQueue = platform.NewQueue(stack.Stack, "DeadLetterQueue",
		&platform.QueueProps{
			QueueName: "orcabus-event-translator-dlq",
		},
	)

	p1 := typestep.FromEvents[event.WorkflowRunStateChange](bus,
		typestep.EventFilter{
			Source:     []string{cfg.InputSource},
			DetailType: []string{cfg.DetailType},
			Detail: map[string]interface{}{
				"status": anyOf(cfg.TriggerStatus),
			},
		},
	)
	p2 := typestep.Join(relay, p1)
	p3 := typestep.ToEventBus(cfg.Source, bus, p2, cfg.DetailType)

	stack.Pipeline = typestep.NewTypeStep(stack.Stack, jsii.String("Glue"),
		&typestep.TypeStepProps{
			StateMachineName: jsii.String("orcabus-event-translator-glue"),
			DeadLetterQueue:  stack.DeadLetterQueue,
			LogRetention:     props.LogRetention,
		},
	)
	typestep.StateMachine(stack.Pipeline, p3)

	compliance.Apply(stack.Stack)

	return stack
}

// newRelay binds the lambda to the signature of translate.Relay, the
// sources are type checked against the pipeline when built at synth time.
func newRelay(scope constructs.Construct, builder platform.Builder, props *platform.FunctionProps) typestep.FunctionTyped[event.WorkflowRunStateChange, event.WorkflowRunStateChange] {
	switch builder.(type) {
	case nil, platform.GoSource:
		return typestep.NewFunctionTyped(scope, jsii.String("Relay"),
			typestep.NewFunctionTypedProps(translate.Relay, platform.GoProps(props)),
		)
	default:
		return typestep.Typed[event.WorkflowRunStateChange, event.WorkflowRunStateChange](
			builder.NewFunction(scope, "Relay", props),
		)
	}
}
