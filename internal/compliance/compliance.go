//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

// Package compliance checks synthesized resources against OrcaBus rules.
// Violations are reported as error annotations, `cdk synth` fails on them.
package compliance

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsstepfunctions"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

type Rule string

const (
	LambdaRuntime       Rule = "ORCA-L1"
	BucketPublicAccess  Rule = "ORCA-S1"
	QueueEncryption     Rule = "ORCA-Q1"
	StateMachineLogging Rule = "ORCA-SF1"
	StateMachineTracing Rule = "ORCA-SF2"
)

var description = map[Rule]string{
	LambdaRuntime:       "lambda runtime is deprecated",
	BucketPublicAccess:  "bucket does not block public access",
	QueueEncryption:     "queue is not encrypted at rest",
	StateMachineLogging: "state machine does not log executions",
	StateMachineTracing: "state machine does not enable X-Ray tracing",
}

var deprecatedRuntimes = map[string]struct{}{
	"go1.x":         {},
	"provided":      {},
	"nodejs12.x":    {},
	"nodejs14.x":    {},
	"nodejs16.x":    {},
	"python3.6":     {},
	"python3.7":     {},
	"python3.8":     {},
	"java8":         {},
	"dotnetcore3.1": {},
}

const suppressKey = "orcabus:suppress:"

// Suppress excludes the construct and its children from the rule.
func Suppress(scope constructs.IConstruct, rule Rule, reason string) {
	scope.Node().AddMetadata(jsii.String(suppressKey+string(rule)), jsii.String(reason), nil)
}

// Apply registers the checks with the scope, typically a stack or the app.
func Apply(scope constructs.IConstruct) {
	awscdk.Aspects_Of(scope).Add(&Checks{}, nil)
}

// Checks is the aspect visiting L1 resources.
type Checks struct{}

var _ awscdk.IAspect = (*Checks)(nil)

func (c *Checks) Visit(node constructs.IConstruct) {
	for _, rule := range c.violations(node) {
		if isSuppressed(node, rule) {
			continue
		}
		awscdk.Annotations_Of(node).AddError(
			jsii.String(fmt.Sprintf("[%s] %s", rule, description[rule])),
		)
	}
}

func (c *Checks) violations(node constructs.IConstruct) []Rule {
	switch r := node.(type) {
	case awslambda.CfnFunction:
		if r.Runtime() != nil {
			if _, has := deprecatedRuntimes[*r.Runtime()]; has {
				return []Rule{LambdaRuntime}
			}
		}
	case awss3.CfnBucket:
		if r.PublicAccessBlockConfiguration() == nil {
			return []Rule{BucketPublicAccess}
		}
	case awssqs.CfnQueue:
		if r.KmsMasterKeyId() == nil && !isTrue(r.SqsManagedSseEnabled()) {
			return []Rule{QueueEncryption}
		}
	case awsstepfunctions.CfnStateMachine:
		var seq []Rule
		if r.LoggingConfiguration() == nil {
			seq = append(seq, StateMachineLogging)
		}
		if r.TracingConfiguration() == nil {
			seq = append(seq, StateMachineTracing)
		}
		return seq
	}

	return nil
}

func isTrue(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case *bool:
		return b != nil && *b
	}
	return false
}

func isSuppressed(node constructs.IConstruct, rule Rule) bool {
	for scope := node; scope != nil; scope = scope.Node().Scope() {
		meta := scope.Node().Metadata()
		if meta == nil {
			continue
		}
		for _, entry := range *meta {
			if entry != nil && entry.Type != nil && *entry.Type == suppressKey+string(rule) {
				return true
			}
		}
	}
	return false
}
