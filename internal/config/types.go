//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package config

// EnvironmentConfig is the complete configuration of the stage
type EnvironmentConfig struct {
	Name      AppStage
	Region    string
	AccountID string
	Stateful  StatefulConfig
	Stateless StatelessConfig
}

type StatefulConfig struct {
	Shared               SharedConfig
	TokenService         TokenServiceConfig
	AuthorizationManager AuthorizationManagerConfig
	DataSharing          DataSharingConfig
	IcaEventPipe         IcaEventPipeConfig
	Tables               TablesConfig
}

type SharedConfig struct {
	Vpc            VpcConfig
	SchemaRegistry SchemaRegistryConfig
	EventBus       EventBusConfig
	Database       DatabaseConfig
	Compute        ComputeConfig
	EventSource    EventSourceConfig
}

// VpcConfig is lookup options of the upstream vpc
type VpcConfig struct {
	Name string
	Tags map[string]string
}

type SchemaRegistryConfig struct {
	RegistryName string
	Description  string
}

type EventBusConfig struct {
	EventBusName         string
	ArchiveName          string
	ArchiveDescription   string
	ArchiveRetentionDays int

	// CustomEventArchiver deploys lambda that copies every event into the bucket
	CustomEventArchiver      bool
	ArchiveBucketName        string
	ArchiveSecurityGroupName string
	RetainArchiveBucket      bool
}

type DatabaseConfig struct {
	DatabaseValues

	ClusterIdentifier                string
	DefaultDatabaseName              string
	Username                         string
	Port                             int
	MasterSecretName                 string
	ClusterResourceIDParameterName   string
	ClusterEndpointHostParameterName string
	RotationDays                     int
}

type ComputeConfig struct {
	SecurityGroupName string
}

// EventSourceConfig routes S3 object events of buckets into the queue
type EventSourceConfig struct {
	QueueName       string
	MaxReceiveCount int
	Buckets         []string
}

type TokenServiceConfig struct {
	ServiceUserSecretName                 string
	JWTSecretName                         string
	CognitoUserPoolIDParameterName        string
	CognitoPortalAppClientIDParameterName string
}

type AuthorizationManagerConfig struct {
	CognitoUserPoolIDParameterName string
	CognitoRegion                  string
	CognitoAccountNumber           string
	AuthorizerParameterName        string
}

type DataSharingConfig struct {
	BucketName               string
	PackagesPrefix           string
	PushLogsPrefix           string
	PackagingAPITableName    string
	PushJobAPITableName      string
	PackagingLookUpTableName string
}

type IcaEventPipeConfig struct {
	PipeName                 string
	QueueName                string
	VisibilityTimeoutSeconds int
	DLQMessageThreshold      int
	SlackTopicName           string
	ICAAccountNumber         string
	EventBusName             string
	TranslatorTableName      string
}

type TablesConfig struct {
	WorkflowTaskToken string
	FastqSync         string
	Icav2DataCopy     string
}

//------------------------------------------------------------------------------

type StatelessConfig struct {
	EventBusName             string
	LogRetentionDays         int
	Schemas                  []SchemaConfig
	WorkflowTaskTokenManager WorkflowTaskTokenManagerConfig
	FastqSync                FastqSyncConfig
	Icav2DataCopy            Icav2DataCopyConfig
	ReadyEvent               ReadyEventConfig
	EventTranslator          EventTranslatorConfig
}

// SchemaConfig declares event schema, File is relative to the embedded schemas
type SchemaConfig struct {
	Name        string
	Description string
	Type        string
	File        string
}

type WorkflowTaskTokenManagerConfig struct {
	TableName          string
	TablePartitionName string
	StateMachinePrefix string
	RuleNamePrefix     string
	EventSource        string
	TriggerDetailType  string
	OutputDetailType   string
}

type FastqSyncConfig struct {
	TableName              string
	StateMachinePrefix     string
	RuleNamePrefix         string
	EventSource            string
	SyncDetailType         string
	FastqStateChangeType   string
	UnarchivingDetailType  string
	HostnameParameterName  string
	OrcabusTokenSecretName string
	PipelineCacheBucket    string
	PipelineCachePrefix    string
}

type Icav2DataCopyConfig struct {
	TableName             string
	StateMachinePrefix    string
	RuleNamePrefix        string
	EventSource           string
	ExternalDetailType    string
	InternalDetailType    string
	ICAv2AccessSecretName string
	ICAEventPipeName      string
}

type ReadyEventConfig struct {
	StateMachinePrefix          string
	ProjectStorageParameterName string
	EventSource                 string
	DraftDetailType             string
	OutputDetailType            string
	Workflows                   []ReadyWorkflowConfig
}

// ReadyWorkflowConfig turns drafts of the workflow into READY runs. Engine
// parameters missing in the draft default to values of SSM parameters,
// Parameters maps engine parameter into name of SSM parameter.
type ReadyWorkflowConfig struct {
	Name           string
	PayloadVersion string
	Parameters     map[string]string
}

// EventTranslatorConfig relays state changes of InputSource having
// TriggerStatus as Source.
type EventTranslatorConfig struct {
	InputSource   string
	Source        string
	DetailType    string
	TriggerStatus string
}
