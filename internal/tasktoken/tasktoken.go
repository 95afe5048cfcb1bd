//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

// Package tasktoken parks Step Functions task tokens in DynamoDB until
// the awaited condition holds, then resumes the execution.
//
// Tokens are keyed by the awaited entity (id) and a deterministic digest
// of the token (id_type), registering the same token twice is a no-op.
package tasktoken

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	sfntypes "github.com/aws/aws-sdk-go-v2/service/sfn/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// IDTypePrefix of task token records
const IDTypePrefix = "task_token#"

// TTL of parked tokens, Step Functions standard workflows run up to a year
const TTL = 365 * 24 * time.Hour

type DynamoDB interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type SFN interface {
	SendTaskSuccess(ctx context.Context, params *sfn.SendTaskSuccessInput, optFns ...func(*sfn.Options)) (*sfn.SendTaskSuccessOutput, error)
	SendTaskFailure(ctx context.Context, params *sfn.SendTaskFailureInput, optFns ...func(*sfn.Options)) (*sfn.SendTaskFailureOutput, error)
}

var (
	_ DynamoDB = (*dynamodb.Client)(nil)
	_ SFN      = (*sfn.Client)(nil)
)

// Token is parked task token with the payload of the waiting execution.
type Token struct {
	ID        string `dynamodbav:"id"`
	IDType    string `dynamodbav:"id_type"`
	TaskToken string `dynamodbav:"task_token"`
	Payload   string `dynamodbav:"payload,omitempty"`
	CreatedAt string `dynamodbav:"created_at"`
	ExpireAt  int64  `dynamodbav:"expire_at"`
}

// Decode payload of the token.
func (t Token) Decode(val any) error {
	if t.Payload == "" {
		return errors.Errorf("task token of %s has no payload", t.ID)
	}
	if err := json.Unmarshal([]byte(t.Payload), val); err != nil {
		return errors.Wrapf(err, "malformed payload of %s", t.ID)
	}
	return nil
}

// IDType of the task token
func IDType(taskToken string) string {
	return IDTypePrefix + uuid.NewSHA1(uuid.NameSpaceOID, []byte(taskToken)).String()
}

// Store of task tokens
type Store struct {
	db    DynamoDB
	table string
	now   func() time.Time
}

func NewStore(db DynamoDB, table string) *Store {
	return &Store{db: db, table: table, now: time.Now}
}

// Put parks the task token of execution waiting for id.
func (s *Store) Put(ctx context.Context, id, taskToken string, payload any) (Token, error) {
	if id == "" || taskToken == "" {
		return Token{}, errors.New("id and task token are required")
	}

	now := s.now().UTC()
	token := Token{
		ID:        id,
		IDType:    IDType(taskToken),
		TaskToken: taskToken,
		CreatedAt: now.Format(time.RFC3339),
		ExpireAt:  now.Add(TTL).Unix(),
	}

	if payload != nil {
		doc, err := json.Marshal(payload)
		if err != nil {
			return Token{}, errors.Wrap(err, "payload")
		}
		token.Payload = string(doc)
	}

	item, err := attributevalue.MarshalMap(token)
	if err != nil {
		return Token{}, err
	}

	_, err = s.db.PutItem(ctx,
		&dynamodb.PutItemInput{
			TableName: aws.String(s.table),
			Item:      item,
		},
	)
	if err != nil {
		return Token{}, errors.Wrapf(err, "failed to park task token of %s", id)
	}

	return token, nil
}

// List task tokens waiting for id.
func (s *Store) List(ctx context.Context, id string) ([]Token, error) {
	seq := []Token{}

	var cursor map[string]types.AttributeValue
	for {
		out, err := s.db.Query(ctx,
			&dynamodb.QueryInput{
				TableName:              aws.String(s.table),
				KeyConditionExpression: aws.String("id = :id and begins_with(id_type, :prefix)"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":id":     &types.AttributeValueMemberS{Value: id},
					":prefix": &types.AttributeValueMemberS{Value: IDTypePrefix},
				},
				ExclusiveStartKey: cursor,
			},
		)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list task tokens of %s", id)
		}

		page := []Token{}
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, errors.Wrap(err, "malformed task token")
		}
		seq = append(seq, page...)

		if len(out.LastEvaluatedKey) == 0 {
			return seq, nil
		}
		cursor = out.LastEvaluatedKey
	}
}

func (s *Store) Delete(ctx context.Context, token Token) error {
	_, err := s.db.DeleteItem(ctx,
		&dynamodb.DeleteItemInput{
			TableName: aws.String(s.table),
			Key: map[string]types.AttributeValue{
				"id":      &types.AttributeValueMemberS{Value: token.ID},
				"id_type": &types.AttributeValueMemberS{Value: token.IDType},
			},
		},
	)
	if err != nil {
		return errors.Wrapf(err, "failed to delete task token of %s", token.ID)
	}
	return nil
}

//------------------------------------------------------------------------------

// ErrStale is returned when execution no longer waits for the token.
var ErrStale = errors.New("task token is stale")

// Succeed resumes execution with output.
func Succeed(ctx context.Context, client SFN, taskToken string, output any) error {
	doc, err := json.Marshal(output)
	if err != nil {
		return errors.Wrap(err, "task output")
	}

	_, err = client.SendTaskSuccess(ctx,
		&sfn.SendTaskSuccessInput{
			TaskToken: aws.String(taskToken),
			Output:    aws.String(string(doc)),
		},
	)
	return stale(err)
}

// Fail resumes execution with error.
func Fail(ctx context.Context, client SFN, taskToken, code, cause string) error {
	_, err := client.SendTaskFailure(ctx,
		&sfn.SendTaskFailureInput{
			TaskToken: aws.String(taskToken),
			Error:     aws.String(truncate(code, 256)),
			Cause:     aws.String(truncate(cause, 32768)),
		},
	)
	return stale(err)
}

func stale(err error) error {
	if err == nil {
		return nil
	}

	var (
		timedOut *sfntypes.TaskTimedOut
		invalid  *sfntypes.InvalidToken
		missing  *sfntypes.TaskDoesNotExist
	)
	if errors.As(err, &timedOut) || errors.As(err, &invalid) || errors.As(err, &missing) {
		return errors.Wrap(ErrStale, err.Error())
	}

	return errors.Wrap(err, "failed to send task result")
}

// truncate limits s to n bytes without splitting a rune
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
