//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

// Package typestep compiles typed event pipelines (morphisms) into
// EventBridge rules and Step Functions state machines. A pipeline starts
// from events on the bus, passes them through typed lambda functions and
// yields the result either to a queue or back to the bus.
package typestep

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awseventstargets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsstepfunctions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsstepfunctionstasks"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/fogfish/golem/duct"
	"github.com/pkg/errors"
)

var (
	ErrNoSource    = errors.New("undefined event source for pipeline")
	ErrUnbalanced  = errors.New("unbalanced sequence in pipeline")
	ErrUnknownNode = errors.New("unknown pipeline node")
	ErrCompiled    = errors.New("pipeline is already compiled")
)

// F is a function A → B deployed as AWS Lambda.
//
// HKT1 is a phantom method, it carries the signature func(A) B at type
// level so that pipelines cannot compose functions of mismatched types.
type F[A, B any] interface {
	HKT1(func(A) B)
	F() awslambda.IFunction
}

// EventFilter narrows the events that trigger a pipeline. Empty fields
// are not part of the pattern, DetailType defaults to the name of the
// pipeline input type.
type EventFilter struct {
	Source     []string
	DetailType []string
	Detail     map[string]interface{}
}

// From creates pipeline 𝑚: A ⟼ A consuming events of detail type `A` from the bus.
func From[A any](bus awsevents.IEventBus, detailType ...string) duct.Morphism[A, A] {
	return duct.From(duct.L1[A](source{bus: bus, filter: EventFilter{DetailType: detailType}}))
}

// FromEvents is From with complete event filter.
func FromEvents[A any](bus awsevents.IEventBus, filter EventFilter) duct.Morphism[A, A] {
	return duct.From(duct.L1[A](source{bus: bus, filter: filter}))
}

type source struct {
	bus    awsevents.IEventBus
	filter EventFilter
}

// Join composes lambda 𝑓: B ⟼ C with 𝑚: A ⟼ B into 𝑚: A ⟼ C.
func Join[A, B, C any](f F[B, C], m duct.Morphism[A, B]) duct.Morphism[A, C] {
	return duct.Join(duct.L2[B, C](task{concurrency: 1, f: f.F()}), m)
}

type task struct {
	concurrency int
	f           awslambda.IFunction
}

// Lift composes lambda 𝑓: B ⟼ C with 𝑚: A ⟼ []B, the lambda is applied
// to each element within Map state (see [duct.LiftF]). Use Unit to
// collapse the nested context back into 𝑚: A ⟼ []C.
func Lift[A, B, C any](f F[B, C], m duct.Morphism[A, []B]) duct.Morphism[A, C] {
	return duct.LiftF(duct.L2[B, C](task{concurrency: 1, f: f.F()}), m)
}

// LiftP is Lift with at most n concurrent lambda invocations.
func LiftP[A, B, C any](n int, f F[B, C], m duct.Morphism[A, []B]) duct.Morphism[A, C] {
	return duct.LiftF(duct.L2[B, C](task{concurrency: n, f: f.F()}), m)
}

// Wrap yields elements of 𝑚: A ⟼ []B one by one without transformation.
func Wrap[A, B any](m duct.Morphism[A, []B]) duct.Morphism[A, B] {
	return duct.WrapF(m)
}

// Unit collapses the nested context created by Lift or Wrap.
func Unit[A, B any](m duct.Morphism[A, B]) duct.Morphism[A, []B] {
	return duct.Unit(m)
}

// ToQueue sends results of 𝑚: A ⟼ B to SQS.
func ToQueue[A, B any](q awssqs.IQueue, m duct.Morphism[A, B]) duct.Morphism[A, duct.Void] {
	return duct.Yield(duct.L1[B](q), m)
}

// ToEventBus emits results of 𝑚: A ⟼ B as events of `source`. The detail
// type is the name of type B unless given explicitly.
func ToEventBus[A, B any](source string, bus awsevents.IEventBus, m duct.Morphism[A, B], detailType ...string) duct.Morphism[A, duct.Void] {
	return duct.Yield(duct.L1[B](sink{bus: bus, source: source, detailType: detailType}), m)
}

type sink struct {
	bus        awsevents.IEventBus
	source     string
	detailType []string
}

//------------------------------------------------------------------------------

// TypeStep is L3 construct, the compiled pipeline.
type TypeStep interface {
	constructs.IConstruct
	StateMachine() awsstepfunctions.StateMachine
	Rule() awsevents.Rule
}

type TypeStepProps struct {
	// StateMachineName is physical name of the state machine, generated if nil.
	StateMachineName *string

	// DeadLetterQueue receives input JSON and "error" of any failed lambda
	// invocation. Failures are not caught if nil.
	DeadLetterQueue awssqs.IQueue

	// LogRetention of state machine execution logs, one week by default.
	LogRetention awslogs.RetentionDays
}

type typeStep struct {
	constructs.Construct
	props        TypeStepProps
	bus          awsevents.IEventBus
	eventPattern *awsevents.EventPattern
	inputPath    string
	chains       []awsstepfunctions.Chain
	names        []string
	stateMachine awsstepfunctions.StateMachine
	rule         awsevents.Rule
}

type state interface {
	constructs.IConstruct
	awsstepfunctions.INextable
	awsstepfunctions.IChainable
}

var _ duct.Visitor = (*typeStep)(nil)

func NewTypeStep(scope constructs.Construct, id *string, props *TypeStepProps) TypeStep {
	ts := &typeStep{
		Construct: constructs.NewConstruct(scope, id),
		chains:    []awsstepfunctions.Chain{nil},
		names:     []string{""},
	}
	if props != nil {
		ts.props = *props
	}
	if ts.props.LogRetention == "" {
		ts.props.LogRetention = awslogs.RetentionDays_ONE_WEEK
	}
	return ts
}

func (ts *typeStep) StateMachine() awsstepfunctions.StateMachine { return ts.stateMachine }
func (ts *typeStep) Rule() awsevents.Rule                         { return ts.rule }

// StateMachine compiles pipeline 𝑚 into the state machine and the rule
// triggering it. It panics if the pipeline is malformed, the error is a
// programming error discovered at synth time.
func StateMachine[A, B any](ts TypeStep, m duct.Morphism[A, B]) {
	if err := Compile(ts, m); err != nil {
		panic(err)
	}
}

// Compile is StateMachine returning the error.
func Compile[A, B any](ts TypeStep, m duct.Morphism[A, B]) error {
	b, ok := ts.(*typeStep)
	if !ok {
		return errors.Wrapf(ErrUnknownNode, "construct %T", ts)
	}
	if b.stateMachine != nil {
		return ErrCompiled
	}
	return m.Apply(b)
}

func (ts *typeStep) append(s state) {
	at := len(ts.chains) - 1
	if ts.chains[at] == nil {
		ts.chains[at] = awsstepfunctions.Chain_Start(s)
	} else {
		ts.chains[at] = ts.chains[at].Next(s)
	}
	ts.names[at] += *s.Node().Id()
}

func (ts *typeStep) OnEnterMorphism(depth int, node duct.AstSeq) error {
	return nil
}

func (ts *typeStep) OnLeaveMorphism(depth int, node duct.AstSeq) error {
	if len(ts.chains) != 1 || ts.chains[0] == nil {
		return ErrUnbalanced
	}

	if ts.bus == nil {
		return ErrNoSource
	}

	logs := awslogs.NewLogGroup(ts.Construct, jsii.String("Logs"),
		&awslogs.LogGroupProps{
			Retention: ts.props.LogRetention,
		},
	)

	ts.stateMachine = awsstepfunctions.NewStateMachine(ts.Construct, jsii.String("StateMachine"),
		&awsstepfunctions.StateMachineProps{
			StateMachineName: ts.props.StateMachineName,
			DefinitionBody:   awsstepfunctions.ChainDefinitionBody_FromChainable(ts.chains[0]),
			TracingEnabled:   jsii.Bool(true),
			Logs: &awsstepfunctions.LogOptions{
				Destination: logs,
				Level:       awsstepfunctions.LogLevel_ERROR,
			},
		},
	)

	ts.rule = awsevents.NewRule(ts.Construct, jsii.String("Rule"),
		&awsevents.RuleProps{
			EventBus:     ts.bus,
			EventPattern: ts.eventPattern,
		},
	)
	ts.rule.AddTarget(
		awseventstargets.NewSfnStateMachine(ts.stateMachine,
			&awseventstargets.SfnStateMachineProps{},
		),
	)

	return nil
}

func (ts *typeStep) OnEnterSeq(depth int, node duct.AstSeq) error {
	ts.chains = append(ts.chains, nil)
	ts.names = append(ts.names, "")
	ts.inputPath = "$"
	return nil
}

func (ts *typeStep) OnLeaveSeq(depth int, node duct.AstSeq) error {
	at := len(ts.chains) - 1
	if at == 0 || ts.chains[at] == nil {
		return ErrUnbalanced
	}

	hash := sha256.Sum256([]byte(ts.names[at]))
	id := hex.EncodeToString(hash[:])[:8]

	concurrency := 1
	if f, ok := node.Seq[0].(duct.AstMap); ok {
		if f, ok := f.F.(task); ok {
			concurrency = f.concurrency
		}
	}

	// sequence is always produced by lambda, its response is packed
	foreach := awsstepfunctions.NewMap(ts.Construct, jsii.String("Seq"+id),
		&awsstepfunctions.MapProps{
			ItemsPath:      jsii.String("$.Payload"),
			MaxConcurrency: jsii.Number(concurrency),
		},
	)
	foreach.ItemProcessor(ts.chains[at], &awsstepfunctions.ProcessorConfig{})

	ts.chains = ts.chains[:at]
	ts.names = ts.names[:at]
	ts.append(foreach)
	ts.inputPath = "$"

	return nil
}

func (ts *typeStep) OnEnterMap(depth int, node duct.AstMap) error {
	f, ok := node.F.(task)
	if !ok {
		return errors.Wrapf(ErrUnknownNode, "compute %T", node.F)
	}

	id := *f.f.Node().Id()
	invoke := awsstepfunctionstasks.NewLambdaInvoke(ts.Construct, jsii.String("Map"+id),
		&awsstepfunctionstasks.LambdaInvokeProps{
			InputPath:      jsii.String(ts.inputPath),
			LambdaFunction: f.f,
		},
	)

	if ts.props.DeadLetterQueue != nil {
		dlq := awsstepfunctionstasks.NewSqsSendMessage(ts.Construct, jsii.String("Try"+id),
			&awsstepfunctionstasks.SqsSendMessageProps{
				Queue:       ts.props.DeadLetterQueue,
				MessageBody: awsstepfunctions.TaskInput_FromJsonPathAt(jsii.String("$")),
			},
		)
		fail := awsstepfunctions.NewFail(ts.Construct, jsii.String("Err"+id),
			&awsstepfunctions.FailProps{},
		)
		invoke.AddCatch(dlq.Next(fail),
			&awsstepfunctions.CatchProps{ResultPath: jsii.String("$.error")},
		)
	}

	ts.append(invoke)
	return nil
}

func (ts *typeStep) OnLeaveMap(depth int, node duct.AstMap) error {
	ts.inputPath = "$.Payload"
	return nil
}

func (ts *typeStep) OnEnterFrom(depth int, node duct.AstFrom) error {
	f, ok := node.Source.(source)
	if !ok {
		return errors.Wrapf(ErrUnknownNode, "source %T", node.Source)
	}

	ts.bus = f.bus
	ts.eventPattern = &awsevents.EventPattern{
		DetailType: jsii.Strings(node.Type),
	}
	if len(f.filter.DetailType) != 0 {
		ts.eventPattern.DetailType = jsii.Strings(f.filter.DetailType...)
	}
	if len(f.filter.Source) != 0 {
		ts.eventPattern.Source = jsii.Strings(f.filter.Source...)
	}
	if len(f.filter.Detail) != 0 {
		detail := f.filter.Detail
		ts.eventPattern.Detail = &detail
	}
	ts.inputPath = "$.detail"

	return nil
}

func (ts *typeStep) OnLeaveFrom(depth int, node duct.AstFrom) error {
	return nil
}

func (ts *typeStep) OnEnterYield(depth int, node duct.AstYield) error {
	switch f := node.Target.(type) {
	case awssqs.IQueue:
		ts.append(
			awsstepfunctionstasks.NewSqsSendMessage(ts.Construct, jsii.String("Sink"),
				&awsstepfunctionstasks.SqsSendMessageProps{
					Queue:       f,
					MessageBody: awsstepfunctions.TaskInput_FromJsonPathAt(jsii.String(ts.inputPath)),
				},
			),
		)
		return nil

	case sink:
		detailType := node.Type
		if len(f.detailType) != 0 {
			detailType = f.detailType[0]
		}

		ts.append(
			awsstepfunctionstasks.NewEventBridgePutEvents(ts.Construct, jsii.String("Sink"),
				&awsstepfunctionstasks.EventBridgePutEventsProps{
					Entries: &[]*awsstepfunctionstasks.EventBridgePutEventsEntry{
						{
							Detail:     awsstepfunctions.TaskInput_FromJsonPathAt(jsii.String(ts.inputPath)),
							DetailType: jsii.String(detailType),
							Source:     jsii.String(f.source),
							EventBus:   f.bus,
						},
					},
				},
			),
		)
		return nil

	default:
		return errors.Wrapf(ErrUnknownNode, "target %T", f)
	}
}

func (ts *typeStep) OnLeaveYield(depth int, node duct.AstYield) error {
	return nil
}
