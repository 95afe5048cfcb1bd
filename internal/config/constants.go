//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package config

// Names shared by stateful and stateless stacks. Stateless stacks never own
// these resources, they look them up by name.
const (
	Region = "ap-southeast-2"

	// toolchain account hosts the deployment pipelines
	ToolchainAccount = "383856791668"
	Repository       = "umccr/orcabus"
	Branch           = "main"

	// upstream infra: vpc
	VpcName      = "main-vpc"
	VpcStackName = "networking"

	// upstream infra: cognito
	CognitoUserPoolIDParameterName        = "/data_portal/client/cog_user_pool_id"
	CognitoPortalAppClientIDParameterName = "/data_portal/client/data2/cog_app_client_id_stage"

	RegistryName  = "OrcaBusSchemaRegistry"
	EventBusName  = "OrcaBusMain"
	ArchiveName   = "OrcaBusMainArchive"
	ArchiveDays   = 365
	EventArchiver = "OrcaBusEventArchiver"

	ComputeSecurityGroupName = "OrcaBusSharedComputeSecurityGroup"
	ArchiveSecurityGroupName = "OrcaBusSharedEventBusArchiveSecurityGroup"
	LambdaSecurityGroupName  = "OrcaBusLambdaSecurityGroup"

	DBClusterIdentifier                = "orcabus-db"
	DBClusterResourceIDParameterName   = "/orcabus/db-cluster-resource-id"
	DBClusterEndpointHostParameterName = "/orcabus/db-cluster-endpoint-host"
	DBDefaultName                      = "orcabus"
	DBParameterGroupName               = "default.aurora-postgresql15"
	DBUsername                         = "postgres"
	DBPort                             = 5432
	DBRotationDays                     = 7

	EventSourceQueueName = "orcabus-event-source-queue"

	// Must not end with a hyphen and 6 characters, see ValidateSecretName.
	RDSMasterSecretName   = "orcabus/master-rds"
	ServiceUserSecretName = "orcabus/token-service-user"
	JWTSecretName         = "orcabus/token-service-jwt"
	ICAv2AccessSecretName = "IcaSecretsPortal"

	HostedZoneNameParameterName           = "/hosted_zone/umccr/name"
	AuthorizerLambdaARNParameterName      = "/orcabus/authorization-stack/http-lambda-authorization-arn"
	ICAv2ProjectStorageParameterName      = "/orcabus/icav2/project-storage"
	WorkflowParameterPrefix               = "/orcabus/workflows/"
	CodeStarConnectionARNParameterName    = "codestar_github_arn"
	ChatbotSlackAlertsARNParameterName    = "/chatbot_arn/slack/alerts-build"
	SlackTopicName                        = "AwsChatBotTopic"
	ICAEventPipeName                      = "IcaEventPipeName"
	ICAQueueName                          = "ica-ens-queue"
	ICAQueueVisibilityTimeoutSeconds      = 30
	ICADLQMessageThreshold                = 1
	ICAAccountNumber                      = "079623148045"
	ICAEventTranslatorTableName           = "IcaEventTranslatorTable"
	ICAEventTranslatorAnalysisIndex       = "analysis_id-index"
	WorkflowTaskTokenTableName            = "OrcaBusWorkflowTaskTokenTable"
	WorkflowTaskTokenTablePartitionName   = "portal_run_id_task_token"
	FastqSyncTableName                    = "OrcaBusFastqSyncTokenTable"
	Icav2DataCopyTableName                = "OrcaBusIcav2DataCopyJobTable"
	DataSharingPackagingAPITableName      = "data-sharing-packaging-api-table"
	DataSharingPushJobAPITableName        = "data-sharing-push-api-table"
	DataSharingPackagingLookUpTableName   = "data-sharing-packaging-lookup-table"
	DataSharingPackagesPrefix             = "packages/"
	DataSharingPushLogsPrefix             = "push-logs/"
	PipelineCachePrefix                   = "byob-icav2/"
	ReadyEventGeneratorStateMachinePrefix = "orcabus-ready-event"
)

// Event sources and detail types observed on the OrcaBus main bus.
const (
	WorkflowManagerSource           = "orcabus.workflowmanager"
	WorkflowSyncSource              = "orcabus.workflowsync"
	FastqSyncSource                 = "orcabus.fastqsync"
	FastqManagerSource              = "orcabus.fastqmanager"
	FastqUnarchivingSource          = "orcabus.fastqunarchiving"
	Icav2DataCopySource             = "orcabus.icav2datacopymanager"
	BclConvertSource                = "orcabus.bclconvertmanager"
	EventTranslatorGlueSource       = "orcabus.eventtranslator"
	WorkflowRunStateChange          = "WorkflowRunStateChange"
	WorkflowRunStateChangeSync      = "WorkflowRunStateChangeSync"
	WorkflowDraftRunStateChange     = "WorkflowDraftRunStateChange"
	FastqSyncDetailType             = "FastqSync"
	FastqListRowStateChange         = "FastqListRowStateChange"
	FastqUnarchivingJobStateChange  = "FastqUnarchivingJobStateChange"
	Icav2DataCopySyncDetailType     = "Icav2WesDataCopySync"
	Icav2DataCopyInternalDetailType = "Icav2DataCopyInternalSync"
)

// Tags applied to every stack.
const (
	TagProduct = "umccr-org:Product"
	TagCreator = "umccr-org:Creator"
	TagService = "umccr-org:Service"
)
