//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package stateless

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdynamodb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsstepfunctions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsstepfunctionstasks"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/umccr/orcabus/internal/compliance"
	"github.com/umccr/orcabus/internal/config"
	"github.com/umccr/orcabus/internal/icav2copy"
	"github.com/umccr/orcabus/internal/platform"
)

// Handlers of cmd/lambda/icav2copy, selected by HANDLER variable
const (
	Icav2CopyGenerateJobList  = "generate-copy-job-list"
	Icav2CopyFindSinglePart   = "find-single-part-files"
	Icav2CopyUploadSinglePart = "upload-single-part-file"
	Icav2CopyLaunch           = "launch-copy"
	Icav2CopyCheckStatus      = "check-job-status"
	Icav2CopySaveToken        = "save-token"
	Icav2CopyReleaseJob       = "release-job"
)

type Icav2DataCopyManagerStackProps struct {
	Props
	Config config.Icav2DataCopyConfig

	// CopyJobTimeout is the interval of polling status of the copy job
	// when ICA notification does not arrive, defaults to one hour.
	CopyJobTimeout awscdk.Duration
}

// Icav2DataCopyManagerStack copies data between ICAv2 projects on behalf of
// the state machine emitting Icav2WesDataCopySync with its task token.
type Icav2DataCopyManagerStack struct {
	awscdk.Stack
	Functions        map[string]awslambda.Function
	HandleCopyJobs   awsstepfunctions.StateMachine
	SaveTaskToken    awsstepfunctions.StateMachine
	ReleaseTaskToken awsstepfunctions.StateMachine

	cfg     config.Icav2DataCopyConfig
	bus     awsevents.IEventBus
	timeout awscdk.Duration
}

func NewIcav2DataCopyManagerStack(scope constructs.Construct, id string, props *Icav2DataCopyManagerStackProps) *Icav2DataCopyManagerStack {
	stack := &Icav2DataCopyManagerStack{
		Stack:     awscdk.NewStack(scope, jsii.String(id), props.StackProps),
		Functions: map[string]awslambda.Function{},
		cfg:       props.Config,
		timeout:   props.CopyJobTimeout,
	}
	cfg := props.Config
	if stack.timeout == nil {
		stack.timeout = awscdk.Duration_Hours(jsii.Number(1))
	}

	stack.bus = props.bus(stack.Stack)
	table := awsdynamodb.TableV2_FromTableName(stack.Stack, jsii.String("Table"), jsii.String(cfg.TableName))
	secret := awssecretsmanager.Secret_FromSecretNameV2(stack.Stack, jsii.String("ICAv2AccessToken"), jsii.String(cfg.ICAv2AccessSecretName))

	for _, f := range []struct{ id, handler, description string }{
		{"GenerateCopyJobList", Icav2CopyGenerateJobList, "Plans copy of ICAv2 files and folders"},
		{"FindSinglePartFiles", Icav2CopyFindSinglePart, "Splits ICAv2 files by part count"},
		{"UploadSinglePartFile", Icav2CopyUploadSinglePart, "Streams single part ICAv2 file into destination folder"},
		{"LaunchCopy", Icav2CopyLaunch, "Submits ICAv2 copy batch"},
		{"CheckJobStatus", Icav2CopyCheckStatus, "Polls status of ICAv2 copy batch"},
		{"SaveTaskToken", Icav2CopySaveToken, "Parks task token of execution waiting for ICAv2 copy batch"},
		{"ReleaseTaskToken", Icav2CopyReleaseJob, "Resumes executions waiting for completed ICAv2 copy batch"},
	} {
		fn := platform.NewFunction(props.Builder, stack.Stack, f.id,
			&platform.FunctionProps{
				Lambda:      "cmd/lambda/icav2copy",
				Description: f.description,
				Timeout:     awscdk.Duration_Seconds(jsii.Number(900)),
				Environment: map[string]string{
					"HANDLER":                      f.handler,
					"TABLE_NAME":                   cfg.TableName,
					"ICAV2_ACCESS_TOKEN_SECRET_ID": cfg.ICAv2AccessSecretName,
				},
				LogRetention: props.LogRetention,
			},
		)
		secret.GrantRead(fn, nil)
		stack.Functions[f.handler] = fn
	}
	table.GrantReadWriteData(stack.Functions[Icav2CopySaveToken])
	table.GrantReadWriteData(stack.Functions[Icav2CopyReleaseJob])
	grantTaskResponse(stack.Stack, stack.Functions[Icav2CopyReleaseJob])

	stack.HandleCopyJobs = platform.NewStateMachine(stack.Stack, "HandleCopyJobs",
		&platform.StateMachineProps{
			StateMachineName: cfg.StateMachinePrefix + "-handle-copy-jobs",
			Definition:       stack.handleCopyJobs(),
			LogRetention:     props.LogRetention,
		},
	)

	stack.SaveTaskToken = platform.NewStateMachine(stack.Stack, "SaveInternalTaskToken",
		&platform.StateMachineProps{
			StateMachineName: cfg.StateMachinePrefix + "-save-internal-task-token",
			Definition:       invoke(stack.Stack, "SaveJobToken", stack.Functions[Icav2CopySaveToken], awsstepfunctions.JsonPath_DISCARD()),
			LogRetention:     props.LogRetention,
		},
	)

	stack.ReleaseTaskToken = platform.NewStateMachine(stack.Stack, "SendInternalTaskToken",
		&platform.StateMachineProps{
			StateMachineName: cfg.StateMachinePrefix + "-send-internal-task-token",
			Definition:       invoke(stack.Stack, "ReleaseJobToken", stack.Functions[Icav2CopyReleaseJob], awsstepfunctions.JsonPath_DISCARD()),
			LogRetention:     props.LogRetention,
		},
	)

	external := awsevents.NewRule(stack.Stack, jsii.String("ExternalCopyRule"),
		&awsevents.RuleProps{
			RuleName: jsii.String(cfg.RuleNamePrefix + "-external-copy"),
			EventBus: stack.bus,
			EventPattern: &awsevents.EventPattern{
				DetailType: jsii.Strings(cfg.ExternalDetailType),
				Detail: &map[string]interface{}{
					"sourceUriList":  exists(),
					"destinationUri": exists(),
					"taskToken":      exists(),
				},
			},
		},
	)
	trigger(external, stack.HandleCopyJobs)

	internal := awsevents.NewRule(stack.Stack, jsii.String("InternalTaskTokenRule"),
		&awsevents.RuleProps{
			RuleName: jsii.String(cfg.RuleNamePrefix + "-internal-task-token"),
			EventBus: stack.bus,
			EventPattern: &awsevents.EventPattern{
				Source:     jsii.Strings(cfg.EventSource),
				DetailType: jsii.Strings(cfg.InternalDetailType),
				Detail: &map[string]interface{}{
					"jobId":     exists(),
					"taskToken": exists(),
				},
			},
		},
	)
	trigger(internal, stack.SaveTaskToken)

	jobs := awsevents.NewRule(stack.Stack, jsii.String("CopyJobStateChangeRule"),
		&awsevents.RuleProps{
			RuleName: jsii.String(cfg.RuleNamePrefix + "-ica-job-state-change"),
			EventBus: stack.bus,
			EventPattern: &awsevents.EventPattern{
				Source: jsii.Strings("Pipe " + cfg.ICAEventPipeName),
				Detail: &map[string]interface{}{
					"ica-event": map[string]interface{}{
						"eventCode": []string{icav2copy.JobStatusChanged},
					},
				},
			},
		},
	)
	trigger(jobs, stack.ReleaseTaskToken)

	compliance.Apply(stack.Stack)

	return stack
}

func (stack *Icav2DataCopyManagerStack) lambda(id, handler string, payload map[string]interface{}, resultPath string) awsstepfunctionstasks.LambdaInvoke {
	return awsstepfunctionstasks.NewLambdaInvoke(stack.Stack, jsii.String(id),
		&awsstepfunctionstasks.LambdaInvokeProps{
			LambdaFunction:           stack.Functions[handler],
			Payload:                  awsstepfunctions.TaskInput_FromObject(&payload),
			PayloadResponseOnly:      jsii.Bool(true),
			ResultPath:               jsii.String(resultPath),
			RetryOnServiceExceptions: jsii.Bool(true),
		},
	)
}

// emit event on behalf of the state machine, it waits for the task token
func (stack *Icav2DataCopyManagerStack) emit(id, detailType string, detail map[string]interface{}, resultPath *string, timeout awscdk.Duration) awsstepfunctionstasks.EventBridgePutEvents {
	detail["taskToken"] = awsstepfunctions.JsonPath_TaskToken()

	var taskTimeout awsstepfunctions.Timeout
	if timeout != nil {
		taskTimeout = awsstepfunctions.Timeout_Duration(timeout)
	}

	return awsstepfunctionstasks.NewEventBridgePutEvents(stack.Stack, jsii.String(id),
		&awsstepfunctionstasks.EventBridgePutEventsProps{
			IntegrationPattern: awsstepfunctions.IntegrationPattern_WAIT_FOR_TASK_TOKEN,
			TaskTimeout:        taskTimeout,
			Entries: &[]*awsstepfunctionstasks.EventBridgePutEventsEntry{
				{
					EventBus:   stack.bus,
					Source:     jsii.String(stack.cfg.EventSource),
					DetailType: jsii.String(detailType),
					Detail:     awsstepfunctions.TaskInput_FromObject(&detail),
				},
			},
			ResultPath: resultPath,
		},
	)
}

// handleCopyJobs copies files of the request in batches, folders are
// copied by recursive requests. The caller is notified through its task
// token.
func (stack *Icav2DataCopyManagerStack) handleCopyJobs() awsstepfunctions.IChainable {
	plan := stack.lambda("PlanCopyJobs", Icav2CopyGenerateJobList,
		map[string]interface{}{
			"sourceUriList":  awsstepfunctions.JsonPath_ListAt(jsii.String("$.sourceUriList")),
			"destinationUri": awsstepfunctions.JsonPath_StringAt(jsii.String("$.destinationUri")),
		},
		"$.plan",
	)

	folders := awsstepfunctions.NewMap(stack.Stack, jsii.String("ForEachFolder"),
		&awsstepfunctions.MapProps{
			ItemsPath:      jsii.String("$.plan.recursiveCopyJobsUriList"),
			MaxConcurrency: jsii.Number(5),
			ResultPath:     awsstepfunctions.JsonPath_DISCARD(),
		},
	)
	folders.ItemProcessor(
		stack.emit("CopyFolder", stack.cfg.ExternalDetailType,
			map[string]interface{}{
				"sourceUriList":  awsstepfunctions.JsonPath_ListAt(jsii.String("$.sourceUriList")),
				"destinationUri": awsstepfunctions.JsonPath_StringAt(jsii.String("$.destinationUri")),
			},
			awsstepfunctions.JsonPath_DISCARD(),
			nil,
		),
		nil,
	)

	parts := stack.lambda("SplitByPartCount", Icav2CopyFindSinglePart,
		map[string]interface{}{
			"dataList": awsstepfunctions.JsonPath_ListAt(jsii.String("$.plan.sourceDataList")),
		},
		"$.parts",
	)

	files := awsstepfunctions.NewParallel(stack.Stack, jsii.String("CopyFiles"),
		&awsstepfunctions.ParallelProps{
			ResultPath: awsstepfunctions.JsonPath_DISCARD(),
		},
	)
	files.Branch(stack.uploadFiles("$.parts.singlePartDataList"))
	files.Branch(stack.copyBatch("MultiPart", "$.parts.multiPartDataList"))

	jobs := awsstepfunctions.NewParallel(stack.Stack, jsii.String("CopyJobs"),
		&awsstepfunctions.ParallelProps{
			ResultPath: awsstepfunctions.JsonPath_DISCARD(),
		},
	)
	jobs.Branch(plan.Next(folders).Next(parts).Next(files))

	success := awsstepfunctionstasks.NewCallAwsService(stack.Stack, jsii.String("NotifySuccess"),
		&awsstepfunctionstasks.CallAwsServiceProps{
			Service:      jsii.String("sfn"),
			Action:       jsii.String("sendTaskSuccess"),
			IamAction:    jsii.String("states:SendTaskSuccess"),
			IamResources: jsii.Strings("*"),
			Parameters: &map[string]interface{}{
				"TaskToken": awsstepfunctions.JsonPath_StringAt(jsii.String("$.taskToken")),
				"Output": awsstepfunctions.JsonPath_JsonToString(
					awsstepfunctions.JsonPath_ObjectAt(jsii.String("$$.Execution.Input")),
				),
			},
			ResultPath: awsstepfunctions.JsonPath_DISCARD(),
		},
	)

	failure := awsstepfunctionstasks.NewCallAwsService(stack.Stack, jsii.String("NotifyFailure"),
		&awsstepfunctionstasks.CallAwsServiceProps{
			Service:      jsii.String("sfn"),
			Action:       jsii.String("sendTaskFailure"),
			IamAction:    jsii.String("states:SendTaskFailure"),
			IamResources: jsii.Strings("*"),
			Parameters: &map[string]interface{}{
				"TaskToken": awsstepfunctions.JsonPath_StringAt(jsii.String("$.taskToken")),
				"Error":     awsstepfunctions.JsonPath_StringAt(jsii.String("$.error.Error")),
				"Cause":     awsstepfunctions.JsonPath_StringAt(jsii.String("$.error.Cause")),
			},
			ResultPath: awsstepfunctions.JsonPath_DISCARD(),
		},
	)
	jobs.AddCatch(
		failure.Next(awsstepfunctions.NewFail(stack.Stack, jsii.String("CopyFailed"),
			&awsstepfunctions.FailProps{
				ErrorPath: awsstepfunctions.JsonPath_StringAt(jsii.String("$.error.Error")),
				CausePath: awsstepfunctions.JsonPath_StringAt(jsii.String("$.error.Cause")),
			},
		)),
		&awsstepfunctions.CatchProps{
			Errors:     jsii.Strings("States.ALL"),
			ResultPath: jsii.String("$.error"),
		},
	)

	return jobs.Next(success)
}

// uploadFiles streams single part files one by one
func (stack *Icav2DataCopyManagerStack) uploadFiles(dataList string) awsstepfunctions.IChainable {
	upload := stack.lambda("UploadFile", Icav2CopyUploadSinglePart,
		map[string]interface{}{
			"sourceData":      awsstepfunctions.JsonPath_ObjectAt(jsii.String("$.sourceData")),
			"destinationData": awsstepfunctions.JsonPath_ObjectAt(jsii.String("$.destinationData")),
		},
		*awsstepfunctions.JsonPath_DISCARD(),
	)

	files := awsstepfunctions.NewMap(stack.Stack, jsii.String("ForEachSinglePartFile"),
		&awsstepfunctions.MapProps{
			ItemsPath: jsii.String(dataList),
			ItemSelector: &map[string]interface{}{
				"sourceData":      awsstepfunctions.JsonPath_ObjectAt(jsii.String("$$.Map.Item.Value")),
				"destinationData": awsstepfunctions.JsonPath_ObjectAt(jsii.String("$.plan.destinationData")),
			},
			MaxConcurrency: jsii.Number(10),
			ResultPath:     awsstepfunctions.JsonPath_DISCARD(),
		},
	)
	files.ItemProcessor(upload, nil)

	return awsstepfunctions.NewChoice(stack.Stack, jsii.String("SinglePartHasData"), nil).
		When(awsstepfunctions.Condition_IsPresent(jsii.String(dataList+"[0]")), files, nil).
		Otherwise(awsstepfunctions.NewSucceed(stack.Stack, jsii.String("SinglePartNothingToCopy"), nil))
}

// copyBatch launches copy of data list and waits for ICA notification of
// the job. Status of the job is polled if notification times out.
func (stack *Icav2DataCopyManagerStack) copyBatch(prefix, dataList string) awsstepfunctions.IChainable {
	destination := awsstepfunctions.JsonPath_ObjectAt(jsii.String("$.plan.destinationData"))
	jobID := awsstepfunctions.JsonPath_StringAt(jsii.String("$.job.jobId"))

	launch := stack.lambda(prefix+"LaunchCopy", Icav2CopyLaunch,
		map[string]interface{}{
			"sourceDataList":  awsstepfunctions.JsonPath_ListAt(jsii.String(dataList)),
			"destinationData": destination,
		},
		"$.job",
	)

	wait := stack.emit(prefix+"WaitForCopyJob", stack.cfg.InternalDetailType,
		map[string]interface{}{
			"jobId":           jobID,
			"destinationData": destination,
		},
		jsii.String("$.status"),
		stack.timeout,
	)
	wait.AddRetry(&awsstepfunctions.RetryProps{
		Errors:      jsii.Strings("EventBridge.EventBridgeException"),
		MaxAttempts: jsii.Number(3),
	})

	check := stack.lambda(prefix+"CheckJobStatus", Icav2CopyCheckStatus,
		map[string]interface{}{
			"jobId":           jobID,
			"destinationData": destination,
		},
		"$.status",
	)
	wait.AddCatch(check,
		&awsstepfunctions.CatchProps{
			Errors:     jsii.Strings("States.Timeout"),
			ResultPath: awsstepfunctions.JsonPath_DISCARD(),
		},
	)

	done := awsstepfunctions.NewSucceed(stack.Stack, jsii.String(prefix+"Copied"), nil)
	failed := awsstepfunctions.NewFail(stack.Stack, jsii.String(prefix+"CopyJobFailed"),
		&awsstepfunctions.FailProps{
			Error:     jsii.String("CopyJobFailed"),
			CausePath: awsstepfunctions.JsonPath_Format(jsii.String("copy job {} is {}"),
				awsstepfunctions.JsonPath_StringAt(jsii.String("$.status.jobId")),
				awsstepfunctions.JsonPath_StringAt(jsii.String("$.status.jobStatus")),
			),
		},
	)

	status := func(id string) awsstepfunctions.Choice {
		return awsstepfunctions.NewChoice(stack.Stack, jsii.String(prefix+id), nil).
			When(awsstepfunctions.Condition_StringEquals(jsii.String("$.status.jobStatus"), jsii.String(icav2copy.JobSucceeded)), done, nil).
			When(awsstepfunctions.Condition_StringEquals(jsii.String("$.status.jobStatus"), jsii.String(icav2copy.JobRunning)), wait, nil).
			Otherwise(failed)
	}
	wait.Next(status("IsJobDone"))
	check.Next(status("IsJobStatusDone"))

	return awsstepfunctions.NewChoice(stack.Stack, jsii.String(prefix+"HasData"), nil).
		When(awsstepfunctions.Condition_IsPresent(jsii.String(dataList+"[0]")), launch.Next(wait), nil).
		Otherwise(awsstepfunctions.NewSucceed(stack.Stack, jsii.String(prefix+"NothingToCopy"), nil))
}
