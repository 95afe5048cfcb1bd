//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

// Package stateless declares stacks that own no data: lambdas, state
// machines and rules choreographing the services over the main bus. The
// stateful resources they use (bus, tables, secrets, parameters) are
// looked up by name.
package stateless

import (
	"fmt"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awseventstargets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsstepfunctions"
	"github.com/aws/jsii-runtime-go"
	"github.com/umccr/orcabus/internal/platform"
)

// Props common to every stateless stack
type Props struct {
	*awscdk.StackProps
	EventBusName string
	LogRetention awslogs.RetentionDays
	Builder      platform.Builder
}

func (props Props) bus(stack awscdk.Stack) awsevents.IEventBus {
	return awsevents.EventBus_FromEventBusName(stack, jsii.String("EventBus"), jsii.String(props.EventBusName))
}

// exists is event pattern matching any value of the attribute
func exists() []interface{} {
	return []interface{}{map[string]interface{}{"exists": true}}
}

// anyOf is event pattern matching case-insensitive values
func anyOf(values ...string) []interface{} {
	seq := make([]interface{}, 0, len(values))
	for _, v := range values {
		seq = append(seq, map[string]interface{}{"equals-ignore-case": v})
	}
	return seq
}

// statusIs matches status in upper, lower or title case, the casings
// accepted by anyOf rules
func statusIs(path, status string) awsstepfunctions.Condition {
	lower := strings.ToLower(status)
	title := strings.ToUpper(lower[:1]) + lower[1:]

	return awsstepfunctions.Condition_Or(
		awsstepfunctions.Condition_StringEquals(jsii.String(path), jsii.String(strings.ToUpper(status))),
		awsstepfunctions.Condition_StringEquals(jsii.String(path), jsii.String(lower)),
		awsstepfunctions.Condition_StringEquals(jsii.String(path), jsii.String(title)),
	)
}

// trigger starts the state machine with detail of matched events
func trigger(rule awsevents.Rule, sm awsstepfunctions.IStateMachine) {
	rule.AddTarget(
		awseventstargets.NewSfnStateMachine(sm,
			&awseventstargets.SfnStateMachineProps{
				Input: awsevents.RuleTargetInput_FromEventPath(jsii.String("$.detail")),
			},
		),
	)
}

// grantTaskResponse allows sending task results to executions of any
// state machine of the account, tokens are issued by foreign services.
func grantTaskResponse(stack awscdk.Stack, grantee awsiam.IGrantable) {
	awsiam.Grant_AddToPrincipal(
		&awsiam.GrantOnPrincipalOptions{
			Grantee: grantee,
			Actions: jsii.Strings("states:SendTaskSuccess", "states:SendTaskFailure", "states:SendTaskHeartbeat"),
			ResourceArns: jsii.Strings(
				fmt.Sprintf("arn:aws:states:%s:%s:stateMachine:*", *stack.Region(), *stack.Account()),
			),
		},
	)
}
