//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package icaevent

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umccr/orcabus/internal/event"
	"go.uber.org/zap"
)

type fakeDB struct {
	items   map[[2]string]map[string]types.AttributeValue
	updates []*dynamodb.UpdateItemInput
}

func newFakeDB() *fakeDB {
	return &fakeDB{items: map[[2]string]map[string]types.AttributeValue{}}
}

func key(item map[string]types.AttributeValue) [2]string {
	id := item["id"].(*types.AttributeValueMemberS).Value
	idType := item["id_type"].(*types.AttributeValueMemberS).Value
	return [2]string{id, idType}
}

func (db *fakeDB) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	k := [2]string{
		params.ExpressionAttributeValues[":id"].(*types.AttributeValueMemberS).Value,
		params.ExpressionAttributeValues[":id_type"].(*types.AttributeValueMemberS).Value,
	}
	out := &dynamodb.QueryOutput{}
	if item, has := db.items[k]; has {
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func (db *fakeDB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	db.items[key(params.Item)] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (db *fakeDB) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	db.updates = append(db.updates, params)
	return &dynamodb.UpdateItemOutput{}, nil
}

type fakeBus struct {
	entries []*eventbridge.PutEventsInput
}

func (bus *fakeBus) PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	bus.entries = append(bus.entries, params)
	return &eventbridge.PutEventsOutput{}, nil
}

const icaEvent = `{
	"version": "0",
	"id": "f15b5eb7-1bbd-030f-1a6c-fecbaccbfe6e",
	"detail-type": "Event from aws:sqs",
	"source": "Pipe IcaEventPipe",
	"account": "843407916570",
	"time": "2024-05-28T03:54:20Z",
	"region": "ap-southeast-2",
	"resources": [],
	"detail": {
		"ica-event": {
			"correlationId": "94739e11-f3dc-486b-8a85-2d5a9e237b52",
			"timestamp": "2024-03-25T10:07:09.990Z",
			"eventCode": "ICA_EXEC_028",
			"eventParameters": {
				"pipelineExecution": "01bd501f-dde6-42b5-b281-5de60e43e1d7",
				"analysisPreviousStatus": "INPROGRESS",
				"analysisStatus": "SUCCEEDED"
			},
			"description": "Analysis status changed",
			"projectId": "b23fb516-d852-4985-adcc-831c12e8cd22",
			"payloadVersion": "v3",
			"payload": {
				"id": "01bd501f-dde6-42b5-b281-5de60e43e1d7",
				"timeCreated": "2024-03-25T08:04:40Z",
				"timeModified": "2024-03-25T10:07:06Z",
				"userReference": "240229_A00130_0288_BH5HM2DSXC_844951_4ce192",
				"pipeline": {
					"id": "bf93b5cf-cb27-4dfa-846e-acd6eb081aca",
					"code": "BclConvert v4_2_7",
					"urn": "urn:ilmn:ica:pipeline:bf93b5cf-cb27-4dfa-846e-acd6eb081aca#BclConvert_v4_2_7",
					"description": "This is an autolaunch BclConvert pipeline for use by the metaworkflow"
				}
			}
		}
	}
}`

func newTestTranslator(db *fakeDB, bus *fakeBus) *Translator {
	t := NewTranslator(db, bus, "OrcaBusMain", "IcaEventTranslatorTable", zap.NewNop())
	t.now = func() time.Time { return time.Date(2024, 3, 25, 10, 7, 10, 0, time.UTC) }
	t.newID = func() string { return "db-uuid" }
	return t
}

func TestParsePipelineCode(t *testing.T) {
	name, version, err := ParsePipelineCode("BclConvert v4_2_7")
	require.NoError(t, err)
	assert.Equal(t, "BclConvert", name)
	assert.Equal(t, "4.2.7", version)

	for _, code := range []string{"BclConvert", "BclConvert 4_2_7", "BclConvert v4_2", "a b c"} {
		_, _, err := ParsePipelineCode(code)
		assert.Error(t, err, code)
	}
}

func TestHandleNewAnalysis(t *testing.T) {
	db, bus := newFakeDB(), &fakeBus{}
	translator := newTestTranslator(db, bus)

	evt, err := event.Decode[Detail]([]byte(icaEvent))
	require.NoError(t, err)
	require.NoError(t, translator.Handle(context.Background(), evt))

	require.Len(t, bus.entries, 1)
	entry := bus.entries[0].Entries[0]
	assert.Equal(t, "orcabus.bclconvertmanager", *entry.Source)
	assert.Equal(t, "WorkflowRunStateChange", *entry.DetailType)
	assert.Equal(t, "OrcaBusMain", *entry.EventBusName)

	var change event.WorkflowRunStateChange
	require.NoError(t, json.Unmarshal([]byte(*entry.Detail), &change))
	assert.Equal(t, event.StatusSucceeded, change.Status)
	assert.Equal(t, "BclConvert", change.WorkflowName)
	assert.Equal(t, "4.2.7", change.WorkflowVersion)
	assert.Equal(t, "2024-03-25T10:07:10Z", change.Timestamp)
	assert.Regexp(t, `^20240325[0-9a-f]{8}$`, change.PortalRunID)
	assert.Equal(t, "01bd501f-dde6-42b5-b281-5de60e43e1d7", change.Payload.Data["analysisId"])

	// analysis ↔ portal run mapping, event record
	var mapping runMapping
	require.NoError(t, attributevalue.UnmarshalMap(db.items[[2]string{"01bd501f-dde6-42b5-b281-5de60e43e1d7", "analysis_id"}], &mapping))
	assert.Equal(t, change.PortalRunID, mapping.PortalRunID)
	assert.Contains(t, db.items, [2]string{change.PortalRunID, "portal_run_id"})

	var record eventRecord
	require.NoError(t, attributevalue.UnmarshalMap(db.items[[2]string{"db-uuid", "db_uuid"}], &record))
	assert.Equal(t, "SUCCEEDED", record.AnalysisStatus)
	assert.Contains(t, record.OriginalEvent, "ICA_EXEC_028")
	assert.Len(t, db.updates, 2)
}

func TestHandleKnownAnalysis(t *testing.T) {
	db, bus := newFakeDB(), &fakeBus{}
	item, err := attributevalue.MarshalMap(runMapping{
		ID:          "01bd501f-dde6-42b5-b281-5de60e43e1d7",
		IDType:      "analysis_id",
		PortalRunID: "20240301deadbeef",
	})
	require.NoError(t, err)
	db.items[key(item)] = item

	translator := newTestTranslator(db, bus)
	evt, err := event.Decode[Detail]([]byte(icaEvent))
	require.NoError(t, err)
	evt.Detail.ICAEvent.EventParameters.AnalysisStatus = "FAILED"

	require.NoError(t, translator.Handle(context.Background(), evt))

	var change event.WorkflowRunStateChange
	require.NoError(t, json.Unmarshal([]byte(*bus.entries[0].Entries[0].Detail), &change))
	assert.Equal(t, "20240301deadbeef", change.PortalRunID)
	assert.Equal(t, event.StatusFailed, change.Status)
	require.NotNil(t, change.Payload)
	assert.Equal(t, "01bd501f-dde6-42b5-b281-5de60e43e1d7", change.Payload.Data["analysisId"])
}

func TestHandleIgnoresOtherEvents(t *testing.T) {
	db, bus := newFakeDB(), &fakeBus{}
	translator := newTestTranslator(db, bus)

	evt, err := event.Decode[Detail]([]byte(icaEvent))
	require.NoError(t, err)
	evt.Detail.ICAEvent.EventCode = "ICA_JOB_001"

	require.NoError(t, translator.Handle(context.Background(), evt))
	assert.Empty(t, bus.entries)
	assert.Empty(t, db.items)
}
