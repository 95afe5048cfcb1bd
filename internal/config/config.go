//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package config

import (
	_ "embed"
	"regexp"
	"sync"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed stages.yaml
var stagesYAML []byte

// RemovalPolicy of stateful resources, as written in stages.yaml
type RemovalPolicy string

const (
	Destroy RemovalPolicy = "destroy"
	Retain  RemovalPolicy = "retain"
)

// CDK maps policy to its CDK counterpart, unknown values are retained.
func (p RemovalPolicy) CDK() awscdk.RemovalPolicy {
	if p == Destroy {
		return awscdk.RemovalPolicy_DESTROY
	}
	return awscdk.RemovalPolicy_RETAIN
}

// StageValues are the stage specific knobs.
type StageValues struct {
	Account             string         `yaml:"account" mapstructure:"account"`
	EventSourceBuckets  []string       `yaml:"eventSourceBuckets" mapstructure:"eventSourceBuckets"`
	ArchiveBucket       string         `yaml:"archiveBucket" mapstructure:"archiveBucket"`
	RetainArchiveBucket bool           `yaml:"retainArchiveBucket" mapstructure:"retainArchiveBucket"`
	DataSharingBucket   string         `yaml:"dataSharingBucket" mapstructure:"dataSharingBucket"`
	PipelineCacheBucket string         `yaml:"pipelineCacheBucket" mapstructure:"pipelineCacheBucket"`
	PipelineCachePrefix string         `yaml:"pipelineCachePrefix" mapstructure:"pipelineCachePrefix"`
	LogRetentionDays    int            `yaml:"logRetentionDays" mapstructure:"logRetentionDays"`
	Database            DatabaseValues `yaml:"database" mapstructure:"database"`
}

// DatabaseValues sizes the Aurora serverless v2 cluster.
type DatabaseValues struct {
	Instances                 int           `yaml:"instances" mapstructure:"instances"`
	MinACU                    float64       `yaml:"minACU" mapstructure:"minACU"`
	MaxACU                    float64       `yaml:"maxACU" mapstructure:"maxACU"`
	EnhancedMonitoringSeconds int           `yaml:"enhancedMonitoringSeconds" mapstructure:"enhancedMonitoringSeconds"`
	PerformanceInsights       bool          `yaml:"performanceInsights" mapstructure:"performanceInsights"`
	RemovalPolicy             RemovalPolicy `yaml:"removalPolicy" mapstructure:"removalPolicy"`
	Backup                    bool          `yaml:"backup" mapstructure:"backup"`
}

var (
	stagesOnce   sync.Once
	stagesValues map[AppStage]StageValues
	stagesErr    error
)

func loadStages() (map[AppStage]StageValues, error) {
	stagesOnce.Do(func() {
		stagesValues = map[AppStage]StageValues{}
		if err := yaml.Unmarshal(stagesYAML, &stagesValues); err != nil {
			stagesErr = errors.Wrap(err, "malformed stages.yaml")
		}
	})
	return stagesValues, stagesErr
}

// Values returns a copy of stage knobs from stages.yaml.
func Values(stage AppStage) (StageValues, error) {
	all, err := loadStages()
	if err != nil {
		return StageValues{}, err
	}

	v, has := all[stage]
	if !has {
		return StageValues{}, errors.Wrapf(ErrUnknownStage, "%q is not configured", stage)
	}
	v.EventSourceBuckets = append([]string(nil), v.EventSourceBuckets...)
	return v, nil
}

//------------------------------------------------------------------------------

var secretNameSuffix = regexp.MustCompile(`-(.){6}$`)

// ValidateSecretName rejects names ending with a hyphen and 6 characters,
// Secrets Manager cannot resolve such names from a partial ARN.
func ValidateSecretName(name string) error {
	if name == "" {
		return errors.New("secret name is empty")
	}
	if secretNameSuffix.MatchString(name) {
		return errors.Errorf("secret name %q should not end with a hyphen and 6 characters", name)
	}
	return nil
}

// GetEnvironmentConfig assembles the complete configuration of the stage.
func GetEnvironmentConfig(stage AppStage) (*EnvironmentConfig, error) {
	v, err := Values(stage)
	if err != nil {
		return nil, err
	}

	return NewEnvironmentConfig(stage, v)
}

// NewEnvironmentConfig assembles the configuration from stage knobs.
func NewEnvironmentConfig(stage AppStage, v StageValues) (*EnvironmentConfig, error) {
	for _, secret := range []string{RDSMasterSecretName, ServiceUserSecretName, JWTSecretName} {
		if err := ValidateSecretName(secret); err != nil {
			return nil, err
		}
	}

	if v.Account == "" {
		return nil, errors.Errorf("account is not defined for %s", stage)
	}

	vpc := VpcConfig{
		Name: VpcName,
		Tags: map[string]string{"Stack": VpcStackName},
	}

	env := &EnvironmentConfig{
		Name:      stage,
		Region:    Region,
		AccountID: v.Account,
		Stateful: StatefulConfig{
			Shared: SharedConfig{
				Vpc: vpc,
				SchemaRegistry: SchemaRegistryConfig{
					RegistryName: RegistryName,
					Description:  "Registry for OrcaBus Events",
				},
				EventBus: EventBusConfig{
					EventBusName:             EventBusName,
					ArchiveName:              ArchiveName,
					ArchiveDescription:       "OrcaBus main event bus archive",
					ArchiveRetentionDays:     ArchiveDays,
					CustomEventArchiver:      true,
					ArchiveBucketName:        v.ArchiveBucket,
					ArchiveSecurityGroupName: ArchiveSecurityGroupName,
					RetainArchiveBucket:      v.RetainArchiveBucket,
				},
				Database: DatabaseConfig{
					ClusterIdentifier:                DBClusterIdentifier,
					DefaultDatabaseName:              DBDefaultName,
					Username:                         DBUsername,
					Port:                             DBPort,
					MasterSecretName:                 RDSMasterSecretName,
					ClusterResourceIDParameterName:   DBClusterResourceIDParameterName,
					ClusterEndpointHostParameterName: DBClusterEndpointHostParameterName,
					RotationDays:                     DBRotationDays,
					DatabaseValues:                   v.Database,
				},
				Compute: ComputeConfig{
					SecurityGroupName: ComputeSecurityGroupName,
				},
				EventSource: EventSourceConfig{
					QueueName:       EventSourceQueueName,
					MaxReceiveCount: 3,
					Buckets:         v.EventSourceBuckets,
				},
			},
			TokenService: TokenServiceConfig{
				ServiceUserSecretName:                 ServiceUserSecretName,
				JWTSecretName:                         JWTSecretName,
				CognitoUserPoolIDParameterName:        CognitoUserPoolIDParameterName,
				CognitoPortalAppClientIDParameterName: CognitoPortalAppClientIDParameterName,
			},
			AuthorizationManager: AuthorizationManagerConfig{
				CognitoUserPoolIDParameterName: CognitoUserPoolIDParameterName,
				CognitoRegion:                  Region,
				CognitoAccountNumber:           v.Account,
				AuthorizerParameterName:        AuthorizerLambdaARNParameterName,
			},
			DataSharing: DataSharingConfig{
				BucketName:               v.DataSharingBucket,
				PackagesPrefix:           DataSharingPackagesPrefix,
				PushLogsPrefix:           DataSharingPushLogsPrefix,
				PackagingAPITableName:    DataSharingPackagingAPITableName,
				PushJobAPITableName:      DataSharingPushJobAPITableName,
				PackagingLookUpTableName: DataSharingPackagingLookUpTableName,
			},
			IcaEventPipe: IcaEventPipeConfig{
				PipeName:                 ICAEventPipeName,
				QueueName:                ICAQueueName,
				VisibilityTimeoutSeconds: ICAQueueVisibilityTimeoutSeconds,
				DLQMessageThreshold:      ICADLQMessageThreshold,
				SlackTopicName:           SlackTopicName,
				ICAAccountNumber:         ICAAccountNumber,
				EventBusName:             EventBusName,
				TranslatorTableName:      ICAEventTranslatorTableName,
			},
			Tables: TablesConfig{
				WorkflowTaskToken: WorkflowTaskTokenTableName,
				FastqSync:         FastqSyncTableName,
				Icav2DataCopy:     Icav2DataCopyTableName,
			},
		},
		Stateless: StatelessConfig{
			EventBusName:     EventBusName,
			LogRetentionDays: v.LogRetentionDays,
			Schemas: []SchemaConfig{
				{
					Name:        "BclConvertWorkflowRequest",
					Description: "Request event for BclConvertWorkflow",
					Type:        "OpenApi3",
					File:        "BclConvertWorkflowRequest.json",
				},
				{
					Name:        "DragenWgsQcWorkflowRequest",
					Description: "Request event for DragenWgsQcWorkflowRequest",
					Type:        "OpenApi3",
					File:        "DragenWgsQcWorkflowRequest.json",
				},
				{
					Name:        "WorkflowRunStateChange",
					Description: "Workflow run state change emitted by workflow manager",
					Type:        "OpenApi3",
					File:        "WorkflowRunStateChange.json",
				},
			},
			WorkflowTaskTokenManager: WorkflowTaskTokenManagerConfig{
				TableName:          WorkflowTaskTokenTableName,
				TablePartitionName: WorkflowTaskTokenTablePartitionName,
				StateMachinePrefix: "workflow-sync",
				RuleNamePrefix:     "workflow-sync",
				EventSource:        WorkflowSyncSource,
				TriggerDetailType:  WorkflowRunStateChangeSync,
				OutputDetailType:   WorkflowRunStateChange,
			},
			FastqSync: FastqSyncConfig{
				TableName:              FastqSyncTableName,
				StateMachinePrefix:     "fastq-sync",
				RuleNamePrefix:         "fastq-sync",
				EventSource:            FastqSyncSource,
				SyncDetailType:         FastqSyncDetailType,
				FastqStateChangeType:   FastqListRowStateChange,
				UnarchivingDetailType:  FastqUnarchivingJobStateChange,
				HostnameParameterName:  HostedZoneNameParameterName,
				OrcabusTokenSecretName: JWTSecretName,
				PipelineCacheBucket:    v.PipelineCacheBucket,
				PipelineCachePrefix:    v.PipelineCachePrefix,
			},
			Icav2DataCopy: Icav2DataCopyConfig{
				TableName:             Icav2DataCopyTableName,
				StateMachinePrefix:    "icav2-data-copy",
				RuleNamePrefix:        "icav2-data-copy",
				EventSource:           Icav2DataCopySource,
				ExternalDetailType:    Icav2DataCopySyncDetailType,
				InternalDetailType:    Icav2DataCopyInternalDetailType,
				ICAv2AccessSecretName: ICAv2AccessSecretName,
				ICAEventPipeName:      ICAEventPipeName,
			},
			ReadyEvent: ReadyEventConfig{
				StateMachinePrefix:          ReadyEventGeneratorStateMachinePrefix,
				ProjectStorageParameterName: ICAv2ProjectStorageParameterName,
				EventSource:                 WorkflowManagerSource,
				DraftDetailType:             WorkflowDraftRunStateChange,
				OutputDetailType:            WorkflowRunStateChange,
				Workflows: []ReadyWorkflowConfig{
					{
						Name:           "bclconvert-interop-qc",
						PayloadVersion: "2024.05.24",
						Parameters: map[string]string{
							"outputUri": WorkflowParameterPrefix + "bclconvert_interop_qc/output_prefix",
							"logsUri":   WorkflowParameterPrefix + "bclconvert_interop_qc/logs_prefix",
							"projectId": WorkflowParameterPrefix + "bclconvert_interop_qc/project_id",
						},
					},
					{
						Name:           "cttsov2",
						PayloadVersion: "2024.07.23",
						Parameters: map[string]string{
							"outputUri": WorkflowParameterPrefix + "cttsov2/output_prefix",
							"logsUri":   WorkflowParameterPrefix + "cttsov2/logs_prefix",
							"cacheUri":  WorkflowParameterPrefix + "cttsov2/cache_prefix",
							"projectId": WorkflowParameterPrefix + "cttsov2/project_id",
						},
					},
				},
			},
			EventTranslator: EventTranslatorConfig{
				InputSource:   BclConvertSource,
				Source:        EventTranslatorGlueSource,
				DetailType:    WorkflowRunStateChange,
				TriggerStatus: "SUCCEEDED",
			},
		},
	}

	return env, nil
}

// TemplateProps is stack properties of the service deployed into the stage:
// account and region of the stage, with product tags.
func TemplateProps(env *EnvironmentConfig, service string) *awscdk.StackProps {
	return &awscdk.StackProps{
		Env: &awscdk.Environment{
			Account: jsii.String(env.AccountID),
			Region:  jsii.String(env.Region),
		},
		Tags: &map[string]*string{
			TagProduct: jsii.String("OrcaBus"),
			TagCreator: jsii.String("CDK"),
			TagService: jsii.String(service),
		},
	}
}
