//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package stateful

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdynamodb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/umccr/orcabus/internal/compliance"
	"github.com/umccr/orcabus/internal/config"
	"github.com/umccr/orcabus/internal/platform"
)

type DataSharingStackProps struct {
	*awscdk.StackProps
	Config config.DataSharingConfig
}

// DataSharingStack holds packages of shared data and API tables of the
// packaging and push jobs.
type DataSharingStack struct {
	awscdk.Stack
	Bucket        awss3.Bucket
	PackagingAPI  awsdynamodb.TableV2
	PushJobAPI    awsdynamodb.TableV2
	PackagingList awsdynamodb.TableV2
}

func NewDataSharingStack(scope constructs.Construct, id string, props *DataSharingStackProps) *DataSharingStack {
	stack := &DataSharingStack{
		Stack: awscdk.NewStack(scope, jsii.String(id), props.StackProps),
	}
	cfg := props.Config

	stack.Bucket = platform.NewBucket(stack.Stack, "Bucket",
		&platform.BucketProps{
			BucketName: cfg.BucketName,
			Retain:     true,
		},
	)

	stack.PackagingList = newTable(stack.Stack, "PackagingLookUpTable",
		tableSpec{
			name:         cfg.PackagingLookUpTableName,
			partitionKey: KeyID,
			sortKey:      KeyJobID,
			ttl:          TTL,
			indexes: []index{
				{name: "context-index", partitionKey: "context", sortKey: KeyID, include: []string{KeyJobID}},
				{name: "content-index", partitionKey: "context", sortKey: KeyID, include: []string{KeyJobID, "content", "presigned_url", "presigned_expiry"}},
			},
		},
	)

	stack.PackagingAPI = newTable(stack.Stack, "PackagingAPITable",
		tableSpec{
			name:         cfg.PackagingAPITableName,
			partitionKey: KeyID,
			indexes: []index{
				{name: "package_name-index", partitionKey: "package_name", sortKey: KeyID, include: []string{"status", "request_time", "completion_time"}},
				{name: "status-index", partitionKey: "status", sortKey: KeyID, include: []string{"package_name", "request_time", "completion_time"}},
			},
		},
	)

	stack.PushJobAPI = newTable(stack.Stack, "PushJobAPITable",
		tableSpec{
			name:         cfg.PushJobAPITableName,
			partitionKey: KeyID,
			indexes: []index{
				{name: "package_id-index", partitionKey: "package_id", sortKey: KeyID, include: []string{"package_name", "status", "start_time", "end_time"}},
				{name: "package_name-index", partitionKey: "package_name", sortKey: KeyID, include: []string{"package_id", "status", "start_time", "end_time"}},
				{name: "status-index", partitionKey: "status", sortKey: KeyID, include: []string{"package_id", "package_name", "start_time", "end_time"}},
			},
		},
	)

	compliance.Apply(stack.Stack)

	return stack
}
