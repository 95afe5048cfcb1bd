//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

// Package archive copies every event of the main bus into the archive bucket.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type S3 interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var _ S3 = (*s3.Client)(nil)

type Archiver struct {
	s3     S3
	bucket string
	log    *zap.Logger
}

func New(client S3, bucket string, log *zap.Logger) *Archiver {
	return &Archiver{s3: client, bucket: bucket, log: log}
}

// Key of the archived event, partitioned by day of the event:
// events/year=YYYY/month=MM/day=DD/<source>/<id>.json
func Key(evt events.CloudWatchEvent) string {
	t := evt.Time.UTC()
	source := strings.ReplaceAll(evt.Source, "/", "_")
	if source == "" {
		source = "unknown"
	}

	return fmt.Sprintf("events/year=%04d/month=%02d/day=%02d/%s/%s.json",
		t.Year(), t.Month(), t.Day(), source, evt.ID)
}

// Archive writes the event as JSON document.
func (a *Archiver) Archive(ctx context.Context, evt events.CloudWatchEvent) error {
	if evt.ID == "" {
		return errors.New("event id is not defined")
	}

	doc, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "malformed event")
	}

	key := Key(evt)
	_, err = a.s3.PutObject(ctx,
		&s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(doc),
			ContentType: aws.String("application/json"),
		},
	)
	if err != nil {
		return errors.Wrapf(err, "failed to archive event %s", evt.ID)
	}

	a.log.Debug("event archived",
		zap.String("id", evt.ID),
		zap.String("source", evt.Source),
		zap.String("detailType", evt.DetailType),
		zap.String("key", key),
	)

	return nil
}
