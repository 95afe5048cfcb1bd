//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

// Package icaevent translates ICAv2 analysis state changes into
// WorkflowRunStateChange events of the BCL convert manager.
package icaevent

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/umccr/orcabus/internal/config"
	"github.com/umccr/orcabus/internal/event"
	"go.uber.org/zap"
)

// DynamoDB is the subset of client used by the translator.
type DynamoDB interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// EventBridge is the subset of client used by the translator.
type EventBridge interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

var (
	_ DynamoDB    = (*dynamodb.Client)(nil)
	_ EventBridge = (*eventbridge.Client)(nil)
)

// Translator is the service behind ICA event translator lambda.
type Translator struct {
	db        DynamoDB
	bus       EventBridge
	busName   string
	tableName string
	log       *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewTranslator(db DynamoDB, bus EventBridge, busName, tableName string, log *zap.Logger) *Translator {
	return &Translator{
		db:        db,
		bus:       bus,
		busName:   busName,
		tableName: tableName,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// ParsePipelineCode splits ICA pipeline code "BclConvert v4_2_7" into
// workflow name and semantic version.
func ParsePipelineCode(code string) (name string, version string, err error) {
	parts := strings.Split(code, " ")
	if len(parts) != 2 {
		return "", "", errors.Errorf("pipeline code %q is not 'Name vMajor_Minor_Patch'", code)
	}

	semver, ok := strings.CutPrefix(parts[1], "v")
	if !ok {
		return "", "", errors.Errorf("version of %q must start with 'v'", code)
	}

	seq := strings.Split(semver, "_")
	if len(seq) != 3 {
		return "", "", errors.Errorf("version of %q is not Major_Minor_Patch", code)
	}

	return parts[0], strings.Join(seq, "."), nil
}

// StateChange translates ICA event into WorkflowRunStateChange of the portal
// run. The payload describes the analysis whatever its status is.
func StateChange(ica ICAEvent, portalRunID string, now time.Time) (event.WorkflowRunStateChange, error) {
	name, version, err := ParsePipelineCode(ica.Payload.Pipeline.Code)
	if err != nil {
		return event.WorkflowRunStateChange{}, err
	}

	status := ica.EventParameters.AnalysisStatus
	if status == "" {
		status = "UNSPECIFIED"
	}

	change := event.WorkflowRunStateChange{
		PortalRunID:     portalRunID,
		Timestamp:       event.Timestamp(now),
		Status:          event.Status(status),
		WorkflowName:    name,
		WorkflowVersion: version,
		WorkflowRunName: ica.Payload.UserReference,
		Payload: &event.Payload{
			Version: "0.1.0",
			Data: map[string]any{
				"projectId":           ica.ProjectID,
				"analysisId":          ica.Payload.ID,
				"userReference":       ica.Payload.UserReference,
				"timeCreated":         ica.Payload.TimeCreated,
				"timeModified":        ica.Payload.TimeModified,
				"pipelineId":          ica.Payload.Pipeline.ID,
				"pipelineCode":        ica.Payload.Pipeline.Code,
				"pipelineDescription": ica.Payload.Pipeline.Description,
				"pipelineUrn":         ica.Payload.Pipeline.URN,
			},
		},
	}

	return change, nil
}

// Handle translates the event, emits it to the bus and keeps both original
// and translated events in the table. Events other than analysis state
// change are ignored.
func (t *Translator) Handle(ctx context.Context, evt event.AWSEvent[Detail]) error {
	ica := evt.Detail.ICAEvent
	if ica.EventCode != AnalysisStatusChanged {
		t.log.Info("event is ignored", zap.String("eventCode", ica.EventCode))
		return nil
	}

	analysisID := ica.Payload.ID
	if analysisID == "" {
		return errors.New("analysis id is not defined")
	}

	portalRunID, err := t.portalRunID(ctx, analysisID)
	if err != nil {
		return err
	}

	change, err := StateChange(ica, portalRunID, t.now())
	if err != nil {
		return err
	}

	log := t.log.With(
		zap.String("analysisId", analysisID),
		zap.String("portalRunId", portalRunID),
		zap.String("status", string(change.Status)),
	)

	translated, err := json.Marshal(change)
	if err != nil {
		return errors.Wrap(err, "translated event")
	}

	out, err := t.bus.PutEvents(ctx,
		&eventbridge.PutEventsInput{
			Entries: []ebtypes.PutEventsRequestEntry{
				{
					EventBusName: aws.String(t.busName),
					Source:       aws.String(config.BclConvertSource),
					DetailType:   aws.String(config.WorkflowRunStateChange),
					Detail:       aws.String(string(translated)),
				},
			},
		},
	)
	if err != nil {
		return errors.Wrap(err, "failed to send event to the bus")
	}
	if out.FailedEntryCount > 0 {
		return errors.Errorf("event bus rejected %d events", out.FailedEntryCount)
	}
	log.Info("internal event sent to the bus")

	if err := t.store(ctx, ica, change, translated); err != nil {
		return err
	}
	log.Info("original and internal events are stored")

	return nil
}

func (t *Translator) portalRunID(ctx context.Context, analysisID string) (string, error) {
	out, err := t.db.Query(ctx,
		&dynamodb.QueryInput{
			TableName:              aws.String(t.tableName),
			KeyConditionExpression: aws.String("id = :id and id_type = :id_type"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":id":      &types.AttributeValueMemberS{Value: analysisID},
				":id_type": &types.AttributeValueMemberS{Value: idTypeAnalysis},
			},
		},
	)
	if err != nil {
		return "", errors.Wrapf(err, "lookup of analysis %s", analysisID)
	}

	if len(out.Items) != 0 {
		var known runMapping
		if err := attributevalue.UnmarshalMap(out.Items[0], &known); err != nil {
			return "", errors.Wrap(err, "malformed run mapping")
		}
		if known.PortalRunID != "" {
			return known.PortalRunID, nil
		}
	}

	portalRunID := event.NewPortalRunID(t.now())
	for _, mapping := range []runMapping{
		{ID: analysisID, IDType: idTypeAnalysis, PortalRunID: portalRunID},
		{ID: portalRunID, IDType: idTypePortalRun, AnalysisID: analysisID},
	} {
		if err := t.put(ctx, mapping); err != nil {
			return "", errors.Wrap(err, "failed to store new portal run id")
		}
	}

	return portalRunID, nil
}

func (t *Translator) store(ctx context.Context, ica ICAEvent, change event.WorkflowRunStateChange, translated []byte) error {
	original, err := json.Marshal(ica)
	if err != nil {
		return errors.Wrap(err, "original event")
	}

	dbID := t.newID()
	err = t.put(ctx,
		eventRecord{
			ID:              dbID,
			IDType:          idTypeDB,
			AnalysisID:      ica.Payload.ID,
			AnalysisStatus:  string(change.Status),
			PortalRunID:     change.PortalRunID,
			OriginalEvent:   string(original),
			TranslatedEvent: string(translated),
			Timestamp:       change.Timestamp,
		},
	)
	if err != nil {
		return errors.Wrap(err, "failed to store events")
	}

	for id, idType := range map[string]string{
		ica.Payload.ID:     idTypeAnalysis,
		change.PortalRunID: idTypePortalRun,
	} {
		_, err := t.db.UpdateItem(ctx,
			&dynamodb.UpdateItemInput{
				TableName: aws.String(t.tableName),
				Key: map[string]types.AttributeValue{
					"id":      &types.AttributeValueMemberS{Value: id},
					"id_type": &types.AttributeValueMemberS{Value: idType},
				},
				UpdateExpression: aws.String("SET db_uuid = :db_uuid"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":db_uuid": &types.AttributeValueMemberS{Value: dbID},
				},
			},
		)
		if err != nil {
			return errors.Wrapf(err, "failed to link %s %s", idType, id)
		}
	}

	return nil
}

func (t *Translator) put(ctx context.Context, item any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}

	_, err = t.db.PutItem(ctx,
		&dynamodb.PutItemInput{
			TableName: aws.String(t.tableName),
			Item:      av,
		},
	)
	return err
}
