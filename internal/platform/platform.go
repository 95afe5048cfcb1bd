//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

// Package platform declares OrcaBus defaults for the constructs used by
// every stack: Go lambdas, state machines, queues and buckets.
package platform

import (
	"path"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsstepfunctions"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/fogfish/scud"
)

// Module is the Go module of lambda sources.
const Module = "github.com/umccr/orcabus"

// Retention maps days into the closest CloudWatch retention bucket.
func Retention(days int) awslogs.RetentionDays {
	switch {
	case days <= 0:
		return awslogs.RetentionDays_ONE_WEEK
	case days <= 1:
		return awslogs.RetentionDays_ONE_DAY
	case days <= 7:
		return awslogs.RetentionDays_ONE_WEEK
	case days <= 14:
		return awslogs.RetentionDays_TWO_WEEKS
	case days <= 30:
		return awslogs.RetentionDays_ONE_MONTH
	case days <= 90:
		return awslogs.RetentionDays_THREE_MONTHS
	case days <= 180:
		return awslogs.RetentionDays_SIX_MONTHS
	default:
		return awslogs.RetentionDays_ONE_YEAR
	}
}

//------------------------------------------------------------------------------

type FunctionProps struct {
	// Lambda is path to main package relative to the module, e.g. cmd/lambda/archiver
	Lambda       string
	Description  string
	Timeout      awscdk.Duration
	MemorySize   float64
	Environment  map[string]string
	LogRetention awslogs.RetentionDays

	// Vpc places lambda into private subnets (with egress) of the vpc
	Vpc            awsec2.IVpc
	SecurityGroups []awsec2.ISecurityGroup
}

func (props *FunctionProps) functionProps() *awslambda.FunctionProps {
	env := map[string]*string{}
	for k, v := range props.Environment {
		env[k] = jsii.String(v)
	}

	timeout := props.Timeout
	if timeout == nil {
		timeout = awscdk.Duration_Seconds(jsii.Number(30))
	}

	memory := props.MemorySize
	if memory == 0 {
		memory = 256
	}

	retention := props.LogRetention
	if retention == "" {
		retention = awslogs.RetentionDays_ONE_WEEK
	}

	fp := &awslambda.FunctionProps{
		Description:  jsii.String(props.Description),
		Timeout:      timeout,
		MemorySize:   jsii.Number(memory),
		Environment:  &env,
		Tracing:      awslambda.Tracing_ACTIVE,
		LogRetention: retention,
	}

	if props.Vpc != nil {
		fp.Vpc = props.Vpc
		fp.VpcSubnets = &awsec2.SubnetSelection{SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS}
		if len(props.SecurityGroups) > 0 {
			fp.SecurityGroups = &props.SecurityGroups
		}
	}

	return fp
}

// Builder of Go lambdas
type Builder interface {
	NewFunction(scope constructs.Construct, id string, props *FunctionProps) awslambda.Function
}

// GoSource builds lambda from the module sources at synth time.
type GoSource struct{}

func (GoSource) NewFunction(scope constructs.Construct, id string, props *FunctionProps) awslambda.Function {
	return scud.NewFunctionGo(scope, jsii.String(id), GoProps(props))
}

// GoProps of the lambda built from the module sources.
func GoProps(props *FunctionProps) *scud.FunctionGoProps {
	return &scud.FunctionGoProps{
		SourceCodeModule: Module,
		SourceCodeLambda: props.Lambda,
		FunctionProps:    props.functionProps(),
	}
}

// Prebuilt deploys lambda from the artifact bucket, the binary of
// cmd/lambda/<name> is expected at s3://<Bucket>/<Prefix><name>.zip
type Prebuilt struct {
	Bucket string
	Prefix string
}

func (p Prebuilt) NewFunction(scope constructs.Construct, id string, props *FunctionProps) awslambda.Function {
	fp := props.functionProps()
	bucket := awss3.Bucket_FromBucketName(scope, jsii.String(id+"Artifacts"), jsii.String(p.Bucket))
	fp.Code = awslambda.Code_FromBucket(bucket, jsii.String(p.Prefix+path.Base(props.Lambda)+".zip"), nil)
	fp.Runtime = awslambda.Runtime_PROVIDED_AL2023()
	fp.Architecture = awslambda.Architecture_ARM_64()
	fp.Handler = jsii.String("bootstrap")

	return awslambda.NewFunction(scope, jsii.String(id), fp)
}

// NewFunction deploys Go lambda, builder defaults to GoSource.
func NewFunction(builder Builder, scope constructs.Construct, id string, props *FunctionProps) awslambda.Function {
	if builder == nil {
		builder = GoSource{}
	}
	return builder.NewFunction(scope, id, props)
}

//------------------------------------------------------------------------------

type StateMachineProps struct {
	StateMachineName string
	Definition       awsstepfunctions.IChainable
	Timeout          awscdk.Duration
	LogRetention     awslogs.RetentionDays
}

// NewStateMachine deploys state machine with execution logs and X-Ray tracing.
func NewStateMachine(scope constructs.Construct, id string, props *StateMachineProps) awsstepfunctions.StateMachine {
	retention := props.LogRetention
	if retention == "" {
		retention = awslogs.RetentionDays_ONE_WEEK
	}

	logs := awslogs.NewLogGroup(scope, jsii.String(id+"Logs"),
		&awslogs.LogGroupProps{
			Retention:     retention,
			RemovalPolicy: awscdk.RemovalPolicy_DESTROY,
		},
	)

	var name *string
	if props.StateMachineName != "" {
		name = jsii.String(props.StateMachineName)
	}

	return awsstepfunctions.NewStateMachine(scope, jsii.String(id),
		&awsstepfunctions.StateMachineProps{
			StateMachineName: name,
			DefinitionBody:   awsstepfunctions.DefinitionBody_FromChainable(props.Definition),
			Timeout:          props.Timeout,
			TracingEnabled:   jsii.Bool(true),
			Logs: &awsstepfunctions.LogOptions{
				Destination: logs,
				Level:       awsstepfunctions.LogLevel_ERROR,
			},
		},
	)
}

//------------------------------------------------------------------------------

type QueueProps struct {
	QueueName         string
	VisibilityTimeout awscdk.Duration
	DeadLetterQueue   awssqs.IQueue
	MaxReceiveCount   int
}

// NewQueue deploys SSE encrypted queue accepting TLS requests only.
func NewQueue(scope constructs.Construct, id string, props *QueueProps) awssqs.Queue {
	qp := &awssqs.QueueProps{
		Encryption: awssqs.QueueEncryption_SQS_MANAGED,
		EnforceSSL: jsii.Bool(true),
	}
	if props.QueueName != "" {
		qp.QueueName = jsii.String(props.QueueName)
	}
	if props.VisibilityTimeout != nil {
		qp.VisibilityTimeout = props.VisibilityTimeout
	}
	if props.DeadLetterQueue != nil {
		receive := props.MaxReceiveCount
		if receive == 0 {
			receive = 3
		}
		qp.DeadLetterQueue = &awssqs.DeadLetterQueue{
			Queue:           props.DeadLetterQueue,
			MaxReceiveCount: jsii.Number(receive),
		}
	}

	return awssqs.NewQueue(scope, jsii.String(id), qp)
}

//------------------------------------------------------------------------------

type BucketProps struct {
	BucketName string
	Retain     bool
	Versioned  bool
}

// NewBucket deploys private bucket with S3 managed encryption.
func NewBucket(scope constructs.Construct, id string, props *BucketProps) awss3.Bucket {
	bp := &awss3.BucketProps{
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		EnforceSSL:        jsii.Bool(true),
		Versioned:         jsii.Bool(props.Versioned),
		RemovalPolicy:     awscdk.RemovalPolicy_DESTROY,
	}
	if props.BucketName != "" {
		bp.BucketName = jsii.String(props.BucketName)
	}
	if props.Retain {
		bp.RemovalPolicy = awscdk.RemovalPolicy_RETAIN
	}

	return awss3.NewBucket(scope, jsii.String(id), bp)
}

//------------------------------------------------------------------------------

// GrantPutEvents allows grantee to put events to the bus.
func GrantPutEvents(grantee awsiam.IGrantable, bus awsevents.IEventBus) awsiam.Grant {
	return awsiam.Grant_AddToPrincipal(
		&awsiam.GrantOnPrincipalOptions{
			Grantee:      grantee,
			Actions:      jsii.Strings("events:PutEvents"),
			ResourceArns: &[]*string{bus.EventBusArn()},
		},
	)
}
