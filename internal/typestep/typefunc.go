//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package typestep

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/fogfish/scud"
)

// FunctionTyped is Go lambda annotated with its signature func(A) B.
type FunctionTyped[A, B any] interface {
	F[A, B]
}

type function[A, B any] struct {
	f awslambda.IFunction
}

func (function[A, B]) HKT1(func(A) B)           {}
func (f function[A, B]) F() awslambda.IFunction { return f.f }

// FunctionTypedProps binds lambda handler `func(A) (B, error)` with its
// source code. The handler itself is never called at synth time, it only
// fixes types A and B.
type FunctionTypedProps[A, B any] struct {
	*scud.FunctionGoProps
}

func NewFunctionTypedProps[A, B any](f func(A) (B, error), props *scud.FunctionGoProps) *FunctionTypedProps[A, B] {
	return &FunctionTypedProps[A, B]{FunctionGoProps: props}
}

// NewFunctionTyped builds Go lambda from the source code at synth time.
func NewFunctionTyped[A, B any](scope constructs.Construct, id *string, props *FunctionTypedProps[A, B]) FunctionTyped[A, B] {
	return function[A, B]{
		f: scud.NewFunctionGo(scope, id, props.FunctionGoProps),
	}
}

// Function_FromFunctionArn imports existing lambda with the given signature.
func Function_FromFunctionArn[A, B any](scope constructs.Construct, id *string, arn *string) FunctionTyped[A, B] {
	return function[A, B]{
		f: awslambda.Function_FromFunctionArn(scope, id, arn),
	}
}

// Typed annotates lambda built elsewhere with signature func(A) B.
func Typed[A, B any](f awslambda.IFunction) FunctionTyped[A, B] {
	return function[A, B]{f: f}
}
