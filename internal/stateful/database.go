//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package stateful

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsbackup"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsrds"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsssm"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/umccr/orcabus/internal/config"
)

type DatabaseProps struct {
	Config config.DatabaseConfig
	Vpc    awsec2.IVpc

	// Compute is allowed to connect to the database
	Compute awsec2.ISecurityGroup
}

// Database is Aurora Postgres serverless v2 cluster shared by services.
type Database struct {
	constructs.Construct
	Cluster       awsrds.DatabaseCluster
	Secret        awsrds.DatabaseSecret
	SecurityGroup awsec2.SecurityGroup
}

func NewDatabase(scope constructs.Construct, id string, props *DatabaseProps) *Database {
	c := &Database{Construct: constructs.NewConstruct(scope, jsii.String(id))}
	cfg := props.Config

	c.Secret = awsrds.NewDatabaseSecret(c.Construct, jsii.String("Secret"),
		&awsrds.DatabaseSecretProps{
			Username:   jsii.String(cfg.Username),
			SecretName: jsii.String(cfg.MasterSecretName),
		},
	)

	c.SecurityGroup = awsec2.NewSecurityGroup(c.Construct, jsii.String("SecurityGroup"),
		&awsec2.SecurityGroupProps{
			Vpc:              props.Vpc,
			Description:      jsii.String("Security group of OrcaBus database"),
			AllowAllOutbound: jsii.Bool(false),
		},
	)
	if props.Compute != nil {
		c.SecurityGroup.AddIngressRule(props.Compute,
			awsec2.Port_Tcp(jsii.Number(cfg.Port)),
			jsii.String("allow connections from compute"),
			nil,
		)
	}

	readers := []awsrds.IClusterInstance{}
	for i := 1; i < cfg.Instances; i++ {
		readers = append(readers,
			awsrds.ClusterInstance_ServerlessV2(jsii.String(fmt.Sprintf("Reader%d", i)),
				&awsrds.ServerlessV2ClusterInstanceProps{
					EnablePerformanceInsights: jsii.Bool(cfg.PerformanceInsights),
					ScaleWithWriter:           jsii.Bool(true),
				},
			),
		)
	}

	spec := &awsrds.DatabaseClusterProps{
		Engine: awsrds.DatabaseClusterEngine_AuroraPostgres(
			&awsrds.AuroraPostgresClusterEngineProps{
				Version: awsrds.AuroraPostgresEngineVersion_VER_15_4(),
			},
		),
		ParameterGroup: awsrds.ParameterGroup_FromParameterGroupName(c.Construct,
			jsii.String("ParameterGroup"),
			jsii.String(config.DBParameterGroupName),
		),
		ClusterIdentifier:   jsii.String(cfg.ClusterIdentifier),
		DefaultDatabaseName: jsii.String(cfg.DefaultDatabaseName),
		Credentials:         awsrds.Credentials_FromSecret(c.Secret, jsii.String(cfg.Username)),
		Port:                jsii.Number(cfg.Port),
		Vpc:                 props.Vpc,
		VpcSubnets:          &awsec2.SubnetSelection{SubnetType: awsec2.SubnetType_PRIVATE_ISOLATED},
		SecurityGroups:      &[]awsec2.ISecurityGroup{c.SecurityGroup},
		Writer: awsrds.ClusterInstance_ServerlessV2(jsii.String("Writer"),
			&awsrds.ServerlessV2ClusterInstanceProps{
				EnablePerformanceInsights: jsii.Bool(cfg.PerformanceInsights),
			},
		),
		Readers:                 &readers,
		ServerlessV2MinCapacity: jsii.Number(cfg.MinACU),
		ServerlessV2MaxCapacity: jsii.Number(cfg.MaxACU),
		IamAuthentication:       jsii.Bool(true),
		StorageEncrypted:        jsii.Bool(true),
		EnableDataApi:           jsii.Bool(true),
		RemovalPolicy:           cfg.RemovalPolicy.CDK(),
		Backup: &awsrds.BackupProps{
			Retention: awscdk.Duration_Days(jsii.Number(7)),
		},
	}
	if cfg.EnhancedMonitoringSeconds > 0 {
		spec.MonitoringInterval = awscdk.Duration_Seconds(jsii.Number(cfg.EnhancedMonitoringSeconds))
	}

	c.Cluster = awsrds.NewDatabaseCluster(c.Construct, jsii.String("Cluster"), spec)

	c.Cluster.AddRotationSingleUser(
		&awsrds.RotationSingleUserOptions{
			AutomaticallyAfter: awscdk.Duration_Days(jsii.Number(cfg.RotationDays)),
		},
	)

	awsssm.NewStringParameter(c.Construct, jsii.String("ClusterResourceId"),
		&awsssm.StringParameterProps{
			ParameterName: jsii.String(cfg.ClusterResourceIDParameterName),
			StringValue:   c.Cluster.ClusterResourceIdentifier(),
		},
	)

	awsssm.NewStringParameter(c.Construct, jsii.String("ClusterEndpointHost"),
		&awsssm.StringParameterProps{
			ParameterName: jsii.String(cfg.ClusterEndpointHostParameterName),
			StringValue:   c.Cluster.ClusterEndpoint().Hostname(),
		},
	)

	if cfg.Backup {
		c.newBackup()
	}

	return c
}

// newBackup keeps weekly snapshots of the cluster for six weeks.
func (c *Database) newBackup() {
	vault := awsbackup.NewBackupVault(c.Construct, jsii.String("BackupVault"),
		&awsbackup.BackupVaultProps{
			BackupVaultName: jsii.String("OrcaBusDatabaseBackupVault"),
			RemovalPolicy:   awscdk.RemovalPolicy_RETAIN,
		},
	)

	plan := awsbackup.NewBackupPlan(c.Construct, jsii.String("BackupPlan"),
		&awsbackup.BackupPlanProps{
			BackupPlanName: jsii.String("OrcaBusDatabaseBackupPlan"),
			BackupVault:    vault,
			BackupPlanRules: &[]awsbackup.BackupPlanRule{
				awsbackup.NewBackupPlanRule(
					&awsbackup.BackupPlanRuleProps{
						RuleName: jsii.String("Weekly"),
						ScheduleExpression: awsevents.Schedule_Cron(
							&awsevents.CronOptions{
								Minute:  jsii.String("0"),
								Hour:    jsii.String("17"),
								WeekDay: jsii.String("SUN"),
							},
						),
						DeleteAfter: awscdk.Duration_Days(jsii.Number(42)),
					},
				),
			},
		},
	)

	plan.AddSelection(jsii.String("Cluster"),
		&awsbackup.BackupSelectionOptions{
			Resources: &[]awsbackup.BackupResource{
				awsbackup.BackupResource_FromArn(c.Cluster.ClusterArn()),
			},
			AllowRestores: jsii.Bool(true),
		},
	)
}
