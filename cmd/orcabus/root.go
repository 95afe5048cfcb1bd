//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/umccr/orcabus/internal/config"
	"github.com/umccr/orcabus/internal/logging"
	"github.com/umccr/orcabus/internal/pipeline"
	"github.com/umccr/orcabus/internal/platform"
	"go.uber.org/zap"
)

type options struct {
	stages  []string
	verbose bool
	output  string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "orcabus",
		Short:        "Synthesize OrcaBus cloud assembly",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringSliceVarP(&opts.stages, "stage", "s", nil, "stage to synthesize: beta, gamma, prod (default all)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	flags.StringVarP(&opts.output, "output", "o", "", "cloud assembly directory (default cdk.out or CDK_OUTDIR)")

	root.AddCommand(
		&cobra.Command{
			Use:   "stateful",
			Short: "Stateful stacks of the stages, deployed directly",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.synth("stateful", pipeline.Stateful(platform.GoSource{}))
			},
		},
		&cobra.Command{
			Use:   "stateless",
			Short: "Stateless stacks of the stages, deployed directly",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.synth("stateless", pipeline.Stateless(platform.GoSource{}))
			},
		},
		&cobra.Command{
			Use:       "pipeline {stateful|stateless}",
			Short:     "Deployment pipeline of the workload",
			Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
			ValidArgs: []string{"stateful", "stateless"},
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.pipeline(args[0])
			},
		},
	)

	return root
}

func (opts *options) logger() *zap.Logger {
	return logging.LogOpts{Verbose: opts.verbose}.NewLogger().Named("orcabus")
}

func (opts *options) app() awscdk.App {
	if opts.output == "" {
		return awscdk.NewApp(nil)
	}
	return awscdk.NewApp(&awscdk.AppProps{Outdir: jsii.String(opts.output)})
}

func (opts *options) parseStages() ([]config.AppStage, error) {
	if len(opts.stages) == 0 {
		return config.Stages(), nil
	}

	seq := make([]config.AppStage, 0, len(opts.stages))
	for _, s := range opts.stages {
		stage, err := config.ParseStage(s)
		if err != nil {
			return nil, err
		}
		seq = append(seq, stage)
	}
	return seq, nil
}

// overridesOf stage knobs given as cdk context
func overridesOf(app awscdk.App) map[string]any {
	ctx := map[string]any{}
	for _, key := range config.ContextKeys() {
		if val := app.Node().TryGetContext(jsii.String(key)); val != nil {
			ctx[key] = val
		}
	}
	return ctx
}

func (opts *options) synth(name string, workload pipeline.Workload) error {
	defer jsii.Close()

	log := opts.logger()
	defer log.Sync()

	stages, err := opts.parseStages()
	if err != nil {
		return err
	}

	app := opts.app()
	overrides := overridesOf(app)
	log.Debug("cdk context", zap.Any("overrides", overrides))

	for _, stage := range stages {
		v, err := config.Values(stage)
		if err != nil {
			return err
		}

		v, err = config.ApplyContext(v, overrides)
		if err != nil {
			return errors.Wrapf(err, "stage %s", stage)
		}

		env, err := config.NewEnvironmentConfig(stage, v)
		if err != nil {
			return err
		}

		deployment := awscdk.NewStage(app, jsii.String(pipeline.StageID(stage)),
			&awscdk.StageProps{
				Env: &awscdk.Environment{
					Account: jsii.String(env.AccountID),
					Region:  jsii.String(env.Region),
				},
			},
		)
		if err := workload(deployment, env); err != nil {
			return errors.Wrapf(err, "%s stacks of %s", name, stage)
		}

		log.Info("stage declared",
			zap.String("workload", name),
			zap.String("stage", stage.String()),
			zap.String("account", env.AccountID),
		)
	}

	assembly := app.Synth(nil)
	log.Info("cloud assembly", zap.String("directory", *assembly.Directory()))

	return nil
}

func (opts *options) pipeline(name string) error {
	defer jsii.Close()

	log := opts.logger()
	defer log.Sync()

	app := opts.app()

	var (
		stack *pipeline.PipelineStack
		err   error
	)
	switch name {
	case "stateful":
		stack, err = pipeline.NewStatefulPipelineStack(app, platform.GoSource{})
	case "stateless":
		stack, err = pipeline.NewStatelessPipelineStack(app, platform.GoSource{})
	default:
		err = errors.Errorf("unknown workload %q", name)
	}
	if err != nil {
		return err
	}

	log.Info("pipeline declared",
		zap.String("workload", name),
		zap.String("stack", *stack.StackName()),
		zap.Int("stages", len(stack.Deployments)),
	)

	assembly := app.Synth(nil)
	log.Info("cloud assembly", zap.String("directory", *assembly.Directory()))

	return nil
}
