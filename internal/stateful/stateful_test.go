//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package stateful_test

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/require"
	"github.com/umccr/orcabus/internal/config"
	"github.com/umccr/orcabus/internal/platform"
)

var prebuilt = platform.Prebuilt{Bucket: "orcabus-artifacts", Prefix: "lambda/"}

func environment(t *testing.T, stage config.AppStage) *config.EnvironmentConfig {
	t.Helper()

	env, err := config.GetEnvironmentConfig(stage)
	require.NoError(t, err)
	return env
}

func testVpc(scope constructs.Construct) awsec2.IVpc {
	return awsec2.Vpc_FromVpcAttributes(scope, jsii.String("TestVpc"),
		&awsec2.VpcAttributes{
			VpcId:             jsii.String("vpc-00000000000000000"),
			AvailabilityZones: jsii.Strings("ap-southeast-2a", "ap-southeast-2b"),
			PrivateSubnetIds:  jsii.Strings("subnet-private-a", "subnet-private-b"),
			IsolatedSubnetIds: jsii.Strings("subnet-isolated-a", "subnet-isolated-b"),
		},
	)
}

func noErrors(stack awscdk.Stack) {
	assertions.Annotations_FromStack(stack).HasNoError(jsii.String("*"), assertions.Match_AnyValue())
}

func like(v map[string]interface{}) assertions.Matcher {
	return assertions.Match_ObjectLike(&v)
}
