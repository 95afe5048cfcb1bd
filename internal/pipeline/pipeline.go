//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

// Package pipeline declares the self mutating CodePipelines promoting a
// workload (stateful or stateless stacks) through beta, gamma and prod.
package pipeline

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awschatbot"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodebuild"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipeline"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodestarnotifications"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsssm"
	"github.com/aws/aws-cdk-go/awscdk/v2/pipelines"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/pkg/errors"
	"github.com/umccr/orcabus/internal/config"
	"github.com/umccr/orcabus/internal/platform"
	"github.com/umccr/orcabus/internal/stateful"
	"github.com/umccr/orcabus/internal/stateless"
)

// Workload deploys stack collection of the environment into the stage.
type Workload func(stage awscdk.Stage, env *config.EnvironmentConfig) error

// Stateful workload of the pipeline
func Stateful(builder platform.Builder) Workload {
	return func(stage awscdk.Stage, env *config.EnvironmentConfig) error {
		_, err := stateful.NewStackCollection(stage,
			&stateful.StackCollectionProps{Env: env, Builder: builder},
		)
		return err
	}
}

// Stateless workload of the pipeline
func Stateless(builder platform.Builder) Workload {
	return func(stage awscdk.Stage, env *config.EnvironmentConfig) error {
		_, err := stateless.NewStackCollection(stage,
			&stateless.StackCollectionProps{Env: env, Builder: builder},
		)
		return err
	}
}

type PipelineStackProps struct {
	*awscdk.StackProps

	// Name of the workload, either stateful or stateless
	Name       string
	Workload   Workload
	Repository string
	Branch     string

	// Stages in promotion order, every stage but first requires approval
	Stages []config.AppStage
}

type PipelineStack struct {
	awscdk.Stack
	Pipeline     pipelines.CodePipeline
	Deployments  []awscdk.Stage
	Notification awscodestarnotifications.INotificationRule
}

var buildEnvironment = &awscodebuild.BuildEnvironment{
	ComputeType: awscodebuild.ComputeType_LARGE,
	BuildImage:  awscodebuild.LinuxArmBuildImage_AMAZON_LINUX_2_STANDARD_3_0(),
}

// StageID is id of the deployment stage, e.g. OrcaBusBeta
func StageID(stage config.AppStage) string {
	return "OrcaBus" + stage.Title()
}

func NewPipelineStack(scope constructs.Construct, id string, props *PipelineStackProps) (*PipelineStack, error) {
	if props.Workload == nil {
		return nil, errors.Errorf("pipeline %s has no workload", props.Name)
	}

	stack := &PipelineStack{
		Stack: awscdk.NewStack(scope, jsii.String(id), props.StackProps),
	}

	connection := awsssm.StringParameter_ValueForStringParameter(stack.Stack,
		jsii.String(config.CodeStarConnectionARNParameterName), nil,
	)
	source := pipelines.CodePipelineSource_Connection(
		jsii.String(props.Repository),
		jsii.String(props.Branch),
		&pipelines.ConnectionSourceOptions{ConnectionArn: connection},
	)

	unitTest := pipelines.NewCodeBuildStep(jsii.String("UnitTest"),
		&pipelines.CodeBuildStepProps{
			Commands: jsii.Strings(
				"go vet ./...",
				"go test -v ./... 2>&1 | tee target/report/go-test.log",
			),
			InstallCommands:        jsii.Strings("mkdir -p target/report"),
			Input:                  source,
			PrimaryOutputDirectory: jsii.String("."),
			BuildEnvironment: &awscodebuild.BuildEnvironment{
				Privileged:  jsii.Bool(true),
				ComputeType: buildEnvironment.ComputeType,
				BuildImage:  buildEnvironment.BuildImage,
			},
		},
	)

	synth := pipelines.NewCodeBuildStep(jsii.String("Synth"),
		&pipelines.CodeBuildStepProps{
			InstallCommands: jsii.Strings("npm install -g aws-cdk"),
			Commands: jsii.Strings(
				"cdk synth --app 'go run ./cmd/orcabus pipeline " + props.Name + "'",
			),
			Input:                  unitTest,
			PrimaryOutputDirectory: jsii.String("cdk.out"),
			RolePolicyStatements: &[]awsiam.PolicyStatement{
				awsiam.NewPolicyStatement(
					&awsiam.PolicyStatementProps{
						Effect:    awsiam.Effect_ALLOW,
						Actions:   jsii.Strings("sts:AssumeRole"),
						Resources: jsii.Strings("*"),
					},
				),
			},
		},
	)

	stack.Pipeline = pipelines.NewCodePipeline(stack.Stack, jsii.String("Pipeline"),
		&pipelines.CodePipelineProps{
			Synth:                        synth,
			SelfMutation:                 jsii.Bool(true),
			CrossAccountKeys:             jsii.Bool(true),
			DockerEnabledForSynth:        jsii.Bool(true),
			DockerEnabledForSelfMutation: jsii.Bool(true),
			CodeBuildDefaults: &pipelines.CodeBuildOptions{
				BuildEnvironment: buildEnvironment,
			},
		},
	)

	for i, name := range props.Stages {
		env, err := config.GetEnvironmentConfig(name)
		if err != nil {
			return nil, err
		}

		stage := awscdk.NewStage(stack.Stack, jsii.String(StageID(name)),
			&awscdk.StageProps{
				Env: &awscdk.Environment{
					Account: jsii.String(env.AccountID),
					Region:  jsii.String(env.Region),
				},
			},
		)
		if err := props.Workload(stage, env); err != nil {
			return nil, errors.Wrapf(err, "%s workload of %s", props.Name, name)
		}

		var opts *pipelines.AddStageOpts
		if i > 0 {
			opts = &pipelines.AddStageOpts{
				Pre: &[]pipelines.Step{
					pipelines.NewManualApprovalStep(jsii.String("PromoteTo"+name.Title()), nil),
				},
			}
		}
		stack.Pipeline.AddStage(stage, opts)
		stack.Deployments = append(stack.Deployments, stage)
	}

	// notification requires pipeline to be built
	stack.Pipeline.BuildPipeline()

	alerts := awsssm.StringParameter_ValueForStringParameter(stack.Stack,
		jsii.String(config.ChatbotSlackAlertsARNParameterName), nil,
	)
	target := awschatbot.SlackChannelConfiguration_FromSlackChannelConfigurationArn(stack.Stack,
		jsii.String("SlackChannelConfiguration"), alerts,
	)

	stack.Notification = stack.Pipeline.Pipeline().NotifyOn(jsii.String("PipelineSlackNotification"), target,
		&awscodepipeline.PipelineNotifyOnOptions{
			Events: &[]awscodepipeline.PipelineNotificationEvents{
				awscodepipeline.PipelineNotificationEvents_PIPELINE_EXECUTION_FAILED,
				awscodepipeline.PipelineNotificationEvents_PIPELINE_EXECUTION_SUCCEEDED,
			},
			DetailType:           awscodestarnotifications.DetailType_FULL,
			NotificationRuleName: jsii.String("orcabus_" + props.Name + "_pipeline_notification"),
		},
	)

	return stack, nil
}

// NewStatefulPipelineStack promotes stateful stacks through beta and gamma.
// Prod stateful stacks are deployed once, outside of the pipeline.
func NewStatefulPipelineStack(scope constructs.Construct, builder platform.Builder) (*PipelineStack, error) {
	return NewPipelineStack(scope, "OrcaBusStatefulPipeline",
		&PipelineStackProps{
			StackProps: toolchain("StatefulPipeline"),
			Name:       "stateful",
			Workload:   Stateful(builder),
			Repository: config.Repository,
			Branch:     config.Branch,
			Stages:     []config.AppStage{config.Beta, config.Gamma},
		},
	)
}

// NewStatelessPipelineStack promotes stateless stacks through every stage.
func NewStatelessPipelineStack(scope constructs.Construct, builder platform.Builder) (*PipelineStack, error) {
	return NewPipelineStack(scope, "OrcaBusStatelessPipeline",
		&PipelineStackProps{
			StackProps: toolchain("StatelessPipeline"),
			Name:       "stateless",
			Workload:   Stateless(builder),
			Repository: config.Repository,
			Branch:     config.Branch,
			Stages:     config.Stages(),
		},
	)
}

func toolchain(service string) *awscdk.StackProps {
	return &awscdk.StackProps{
		Env: &awscdk.Environment{
			Account: jsii.String(config.ToolchainAccount),
			Region:  jsii.String(config.Region),
		},
		Tags: &map[string]*string{
			config.TagProduct: jsii.String("OrcaBus"),
			config.TagCreator: jsii.String("CDK"),
			config.TagService: jsii.String(service),
		},
	}
}
