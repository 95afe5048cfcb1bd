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
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/umccr/orcabus/internal/compliance"
	"github.com/umccr/orcabus/internal/config"
)

// Key attributes of tables owned by OrcaBus services
const (
	KeyID     = "id"
	KeyIDType = "id_type"
	KeyJobID  = "job_id"
	TTL       = "expire_at"
)

type index struct {
	name         string
	partitionKey string
	sortKey      string
	include      []string
}

type tableSpec struct {
	name          string
	partitionKey  string
	sortKey       string
	ttl           string
	indexes       []index
	removalPolicy awscdk.RemovalPolicy
}

func str(name string) *awsdynamodb.Attribute {
	return &awsdynamodb.Attribute{Name: jsii.String(name), Type: awsdynamodb.AttributeType_STRING}
}

// newTable deploys on-demand table with point in time recovery.
func newTable(scope constructs.Construct, id string, spec tableSpec) awsdynamodb.TableV2 {
	removal := spec.removalPolicy
	if removal == "" {
		removal = awscdk.RemovalPolicy_RETAIN_ON_UPDATE_OR_DELETE
	}

	props := &awsdynamodb.TablePropsV2{
		TableName:           jsii.String(spec.name),
		PartitionKey:        str(spec.partitionKey),
		RemovalPolicy:       removal,
		PointInTimeRecovery: jsii.Bool(true),
	}
	if spec.sortKey != "" {
		props.SortKey = str(spec.sortKey)
	}
	if spec.ttl != "" {
		props.TimeToLiveAttribute = jsii.String(spec.ttl)
	}

	if len(spec.indexes) > 0 {
		gsi := make([]*awsdynamodb.GlobalSecondaryIndexPropsV2, 0, len(spec.indexes))
		for _, idx := range spec.indexes {
			p := &awsdynamodb.GlobalSecondaryIndexPropsV2{
				IndexName:    jsii.String(idx.name),
				PartitionKey: str(idx.partitionKey),
			}
			if idx.sortKey != "" {
				p.SortKey = str(idx.sortKey)
			}
			if len(idx.include) > 0 {
				p.ProjectionType = awsdynamodb.ProjectionType_INCLUDE
				p.NonKeyAttributes = jsii.Strings(idx.include...)
			}
			gsi = append(gsi, p)
		}
		props.GlobalSecondaryIndexes = &gsi
	}

	return awsdynamodb.NewTableV2(scope, jsii.String(id), props)
}

//------------------------------------------------------------------------------

type StatefulTablesStackProps struct {
	*awscdk.StackProps
	Config config.TablesConfig
}

// StatefulTablesStack owns tables of stateless managers, tables survive
// redeployment of their managers.
type StatefulTablesStack struct {
	awscdk.Stack
	WorkflowTaskToken awsdynamodb.TableV2
	FastqSync         awsdynamodb.TableV2
	Icav2DataCopy     awsdynamodb.TableV2
}

func NewStatefulTablesStack(scope constructs.Construct, id string, props *StatefulTablesStackProps) *StatefulTablesStack {
	stack := &StatefulTablesStack{
		Stack: awscdk.NewStack(scope, jsii.String(id), props.StackProps),
	}

	stack.WorkflowTaskToken = newTable(stack.Stack, "WorkflowTaskTokenTable",
		tableSpec{
			name:          props.Config.WorkflowTaskToken,
			partitionKey:  KeyID,
			sortKey:       KeyIDType,
			removalPolicy: awscdk.RemovalPolicy_DESTROY,
		},
	)

	stack.FastqSync = newTable(stack.Stack, "FastqSyncTable",
		tableSpec{
			name:          props.Config.FastqSync,
			partitionKey:  KeyID,
			sortKey:       KeyIDType,
			ttl:           TTL,
			removalPolicy: awscdk.RemovalPolicy_DESTROY,
		},
	)

	stack.Icav2DataCopy = newTable(stack.Stack, "Icav2DataCopyTable",
		tableSpec{
			name:          props.Config.Icav2DataCopy,
			partitionKey:  KeyID,
			sortKey:       KeyIDType,
			ttl:           TTL,
			removalPolicy: awscdk.RemovalPolicy_DESTROY,
		},
	)

	compliance.Apply(stack.Stack)

	return stack
}
