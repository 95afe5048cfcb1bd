//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

package stateless

import (
	"embed"
	"path"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awseventschemas"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/pkg/errors"
	"github.com/umccr/orcabus/internal/config"
)

//go:embed schemas/*.json
var schemas embed.FS

type SchemaStackProps struct {
	*awscdk.StackProps
	RegistryName string
	Schemas      []config.SchemaConfig
}

// SchemaStack publishes event schemas into the registry of the shared stack.
type SchemaStack struct {
	awscdk.Stack
	Schemas []awseventschemas.CfnSchema
}

func NewSchemaStack(scope constructs.Construct, id string, props *SchemaStackProps) (*SchemaStack, error) {
	stack := &SchemaStack{
		Stack: awscdk.NewStack(scope, jsii.String(id), props.StackProps),
	}

	for _, s := range props.Schemas {
		content, err := schemas.ReadFile(path.Join("schemas", s.File))
		if err != nil {
			return nil, errors.Wrapf(err, "schema %s", s.Name)
		}

		schema := awseventschemas.NewCfnSchema(stack.Stack, jsii.String(s.Name),
			&awseventschemas.CfnSchemaProps{
				RegistryName: jsii.String(props.RegistryName),
				SchemaName:   jsii.String(s.Name),
				Description:  jsii.String(s.Description),
				Type:         jsii.String(s.Type),
				Content:      jsii.String(string(content)),
			},
		)
		stack.Schemas = append(stack.Schemas, schema)
	}

	return stack, nil
}
