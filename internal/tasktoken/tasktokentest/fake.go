//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

// Package tasktokentest provides in-memory DynamoDB and Step Functions
// for tests of task token consumers.
package tasktokentest

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/umccr/orcabus/internal/tasktoken"
)

var (
	_ tasktoken.DynamoDB = (*DynamoDB)(nil)
	_ tasktoken.SFN      = (*SFN)(nil)
)

// DynamoDB keeps items of single table keyed by id and id_type
type DynamoDB struct {
	items map[string]map[string]types.AttributeValue
}

func NewDynamoDB() *DynamoDB {
	return &DynamoDB{items: map[string]map[string]types.AttributeValue{}}
}

// Len is number of items
func (f *DynamoDB) Len() int { return len(f.items) }

func key(item map[string]types.AttributeValue) string {
	return str(item["id"]) + "|" + str(item["id_type"])
}

func str(v types.AttributeValue) string {
	if s, ok := v.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *DynamoDB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.items[key(params.Item)] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *DynamoDB) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	id := str(params.ExpressionAttributeValues[":id"])
	prefix := str(params.ExpressionAttributeValues[":prefix"])

	seq := []map[string]types.AttributeValue{}
	for _, item := range f.items {
		if str(item["id"]) == id && strings.HasPrefix(str(item["id_type"]), prefix) {
			seq = append(seq, item)
		}
	}
	return &dynamodb.QueryOutput{Items: seq}, nil
}

func (f *DynamoDB) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	delete(f.items, key(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

// SFN records task results, Err fails every call
type SFN struct {
	Output  map[string]string
	Failure map[string]string
	Err     error
}

func (f *SFN) SendTaskSuccess(ctx context.Context, params *sfn.SendTaskSuccessInput, optFns ...func(*sfn.Options)) (*sfn.SendTaskSuccessOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Output == nil {
		f.Output = map[string]string{}
	}
	f.Output[aws.ToString(params.TaskToken)] = aws.ToString(params.Output)
	return &sfn.SendTaskSuccessOutput{}, nil
}

func (f *SFN) SendTaskFailure(ctx context.Context, params *sfn.SendTaskFailureInput, optFns ...func(*sfn.Options)) (*sfn.SendTaskFailureOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Failure == nil {
		f.Failure = map[string]string{}
	}
	f.Failure[aws.ToString(params.TaskToken)] = aws.ToString(params.Error)
	return &sfn.SendTaskFailureOutput{}, nil
}
