//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package icaevent

// AnalysisStatusChanged is event code of ICA analysis state change
const AnalysisStatusChanged = "ICA_EXEC_028"

// Detail of event relayed from ICA notification queue by the pipe.
type Detail struct {
	ICAEvent ICAEvent `json:"ica-event"`
}

// ICAEvent is ICAv2 event notification.
type ICAEvent struct {
	CorrelationID   string          `json:"correlationId"`
	Timestamp       string          `json:"timestamp"`
	EventCode       string          `json:"eventCode"`
	EventParameters EventParameters `json:"eventParameters"`
	Description     string          `json:"description,omitempty"`
	ProjectID       string          `json:"projectId"`
	PayloadVersion  string          `json:"payloadVersion,omitempty"`
	Payload         Analysis        `json:"payload"`
}

type EventParameters struct {
	PipelineExecution      string `json:"pipelineExecution"`
	AnalysisPreviousStatus string `json:"analysisPreviousStatus"`
	AnalysisStatus         string `json:"analysisStatus"`
}

type Analysis struct {
	ID            string   `json:"id"`
	TimeCreated   string   `json:"timeCreated"`
	TimeModified  string   `json:"timeModified"`
	Reference     string   `json:"reference,omitempty"`
	UserReference string   `json:"userReference"`
	Pipeline      Pipeline `json:"pipeline"`
}

type Pipeline struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	URN         string `json:"urn"`
	Description string `json:"description"`
}

// record types of the translator table, the table is keyed by (id, id_type)
const (
	idTypeAnalysis  = "analysis_id"
	idTypePortalRun = "portal_run_id"
	idTypeDB        = "db_uuid"
)

// runMapping links analysis and portal run, stored both ways.
type runMapping struct {
	ID          string `dynamodbav:"id"`
	IDType      string `dynamodbav:"id_type"`
	PortalRunID string `dynamodbav:"portal_run_id,omitempty"`
	AnalysisID  string `dynamodbav:"analysis_id,omitempty"`
}

// eventRecord keeps original and translated events.
type eventRecord struct {
	ID              string `dynamodbav:"id"`
	IDType          string `dynamodbav:"id_type"`
	AnalysisID      string `dynamodbav:"analysis_id"`
	AnalysisStatus  string `dynamodbav:"analysis_status"`
	PortalRunID     string `dynamodbav:"portal_run_id"`
	OriginalEvent   string `dynamodbav:"original_external_event"`
	TranslatedEvent string `dynamodbav:"translated_internal_ica_event"`
	Timestamp       string `dynamodbav:"timestamp"`
}
