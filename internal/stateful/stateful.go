//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

// Package stateful declares stacks owning persistent resources: event bus,
// database, tables, buckets and secrets. Stateless stacks look them up by
// name, so stateless deployments never replace data.
package stateful

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/umccr/orcabus/internal/config"
)

// LookupVpc of upstream networking stack, unless vpc is given.
func LookupVpc(scope constructs.Construct, vpc awsec2.IVpc, cfg config.VpcConfig) awsec2.IVpc {
	if vpc != nil {
		return vpc
	}

	tags := map[string]*string{}
	for k, v := range cfg.Tags {
		tags[k] = jsii.String(v)
	}

	return awsec2.Vpc_FromLookup(scope, jsii.String("MainVpc"),
		&awsec2.VpcLookupOptions{
			VpcName: jsii.String(cfg.Name),
			Tags:    &tags,
		},
	)
}
