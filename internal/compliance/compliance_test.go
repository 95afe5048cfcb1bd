//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package compliance_test

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/umccr/orcabus/internal/compliance"
)

func newStack() awscdk.Stack {
	app := awscdk.NewApp(nil)
	stack := awscdk.NewStack(app, jsii.String("Test"), nil)
	compliance.Apply(stack)
	return stack
}

func rule(r compliance.Rule) assertions.Matcher {
	return assertions.Match_StringLikeRegexp(jsii.String(`\[` + string(r) + `\]`))
}

func TestBucketPublicAccess(t *testing.T) {
	// GIVEN
	stack := newStack()

	// THEN
	awss3.NewCfnBucket(stack, jsii.String("Open"), &awss3.CfnBucketProps{})
	awss3.NewCfnBucket(stack, jsii.String("Closed"),
		&awss3.CfnBucketProps{
			PublicAccessBlockConfiguration: &awss3.CfnBucket_PublicAccessBlockConfigurationProperty{
				BlockPublicAcls:       jsii.Bool(true),
				BlockPublicPolicy:     jsii.Bool(true),
				IgnorePublicAcls:      jsii.Bool(true),
				RestrictPublicBuckets: jsii.Bool(true),
			},
		},
	)

	// WHEN
	annotations := assertions.Annotations_FromStack(stack)
	annotations.HasError(jsii.String("/Test/Open"), rule(compliance.BucketPublicAccess))
	annotations.HasNoError(jsii.String("/Test/Closed"), assertions.Match_AnyValue())
}

func TestQueueEncryption(t *testing.T) {
	// GIVEN
	stack := newStack()

	// THEN
	awssqs.NewCfnQueue(stack, jsii.String("Plain"), &awssqs.CfnQueueProps{})
	awssqs.NewCfnQueue(stack, jsii.String("Managed"),
		&awssqs.CfnQueueProps{SqsManagedSseEnabled: jsii.Bool(true)},
	)
	awssqs.NewQueue(stack, jsii.String("L2"),
		&awssqs.QueueProps{Encryption: awssqs.QueueEncryption_SQS_MANAGED},
	)

	// WHEN
	annotations := assertions.Annotations_FromStack(stack)
	annotations.HasError(jsii.String("/Test/Plain"), rule(compliance.QueueEncryption))
	annotations.HasNoError(jsii.String("/Test/Managed"), assertions.Match_AnyValue())
	annotations.HasNoError(jsii.String("/Test/L2/Resource"), assertions.Match_AnyValue())
}

func TestSuppress(t *testing.T) {
	// GIVEN
	stack := newStack()
	scope := constructs.NewConstruct(stack, jsii.String("Legacy"))

	// THEN
	awssqs.NewCfnQueue(scope, jsii.String("Plain"), &awssqs.CfnQueueProps{})
	compliance.Suppress(scope, compliance.QueueEncryption, "legacy queue")

	// WHEN
	assertions.Annotations_FromStack(stack).
		HasNoError(jsii.String("*"), rule(compliance.QueueEncryption))
}
