//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package archive_test

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umccr/orcabus/internal/archive"
	"go.uber.org/zap"
)

type fakeS3 struct {
	objects map[string][]byte
	err     error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*params.Bucket+"/"+*params.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func sample() events.CloudWatchEvent {
	return events.CloudWatchEvent{
		Version:    "0",
		ID:         "6a7e8feb-b491-4cf7-a9f1-bf3703467718",
		DetailType: "WorkflowRunStateChange",
		Source:     "orcabus.workflowmanager",
		AccountID:  "843407916570",
		Time:       time.Date(2024, 5, 9, 23, 59, 59, 0, time.UTC),
		Region:     "ap-southeast-2",
		Detail:     json.RawMessage(`{"status":"READY"}`),
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t,
		"events/year=2024/month=05/day=09/orcabus.workflowmanager/6a7e8feb-b491-4cf7-a9f1-bf3703467718.json",
		archive.Key(sample()),
	)
}

func TestArchive(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{}}
	a := archive.New(client, "orcabus-event-archive", zap.NewNop())

	require.NoError(t, a.Archive(context.Background(), sample()))

	doc, has := client.objects["orcabus-event-archive/"+archive.Key(sample())]
	require.True(t, has)

	var evt events.CloudWatchEvent
	require.NoError(t, json.Unmarshal(doc, &evt))
	assert.JSONEq(t, `{"status":"READY"}`, string(evt.Detail))
}

func TestArchiveFails(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{}, err: errors.New("denied")}
	a := archive.New(client, "orcabus-event-archive", zap.NewNop())

	require.ErrorContains(t, a.Archive(context.Background(), sample()), "denied")
	require.Error(t, a.Archive(context.Background(), events.CloudWatchEvent{}))
}
