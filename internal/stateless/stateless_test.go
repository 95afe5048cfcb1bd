//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package stateless_test

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/require"
	"github.com/umccr/orcabus/internal/config"
	"github.com/umccr/orcabus/internal/platform"
	"github.com/umccr/orcabus/internal/stateless"
)

var prebuilt = platform.Prebuilt{Bucket: "orcabus-artifacts", Prefix: "lambda/"}

// bootstrap matches Go lambdas, excluding lambdas of CDK custom resources
var bootstrap = map[string]interface{}{"Handler": "bootstrap"}

func environment(t *testing.T, stage config.AppStage) *config.EnvironmentConfig {
	t.Helper()

	env, err := config.GetEnvironmentConfig(stage)
	require.NoError(t, err)
	return env
}

func props(env *config.EnvironmentConfig, service string) stateless.Props {
	return stateless.Props{
		StackProps:   config.TemplateProps(env, service),
		EventBusName: env.Stateless.EventBusName,
		LogRetention: platform.Retention(env.Stateless.LogRetentionDays),
		Builder:      prebuilt,
	}
}

func noErrors(stack awscdk.Stack) {
	assertions.Annotations_FromStack(stack).HasNoError(jsii.String("*"), assertions.Match_AnyValue())
}

func like(v map[string]interface{}) assertions.Matcher {
	return assertions.Match_ObjectLike(&v)
}

func exists() []interface{} {
	return []interface{}{map[string]interface{}{"exists": true}}
}

func equalsIgnoreCase(v string) []interface{} {
	return []interface{}{map[string]interface{}{"equals-ignore-case": v}}
}
