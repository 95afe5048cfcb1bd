//
// Copyright (C) 2025 UMCCR
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/umccr/orcabus
//

// Package placeholder fills engine parameters of the draft workflow run.
//
// Engine parameters are templates, e.g.
//
//	outputUri: icav2://development/primary/__instrument_run_id__/__portal_run_id__/
//
// Placeholders __portal_run_id__, __workflow_name__, __workflow_version__
// and __<snake_case(key)>__ of every string input are replaced with
// actual values.
package placeholder

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

const (
	PortalRunID     = "__portal_run_id__"
	WorkflowName    = "__workflow_name__"
	WorkflowVersion = "__workflow_version__"
)

// Inputs of the fill-placeholders lambda.
type Inputs struct {
	PortalRunID      string         `json:"portal_run_id" mapstructure:"portal_run_id"`
	WorkflowName     string         `json:"workflow_name" mapstructure:"workflow_name"`
	WorkflowVersion  string         `json:"workflow_version" mapstructure:"workflow_version"`
	EventDataInputs  map[string]any `json:"event_data_inputs" mapstructure:"event_data_inputs"`
	EngineParameters map[string]any `json:"engine_parameters" mapstructure:"engine_parameters"`

	// engine parameters missing in the draft default to SSM parameters
	ParameterNames map[string]string `json:"ssm_parameter_names,omitempty" mapstructure:"ssm_parameter_names"`
	Parameters     []Parameter       `json:"ssm_parameters,omitempty" mapstructure:"ssm_parameters"`
}

// Parameter is SSM parameter as returned by GetParameters.
type Parameter struct {
	Name  string `json:"Name" mapstructure:"Name"`
	Value string `json:"Value" mapstructure:"Value"`
}

// Outputs of the fill-placeholders lambda.
type Outputs struct {
	EngineParametersUpdated map[string]any `json:"engine_parameters_updated"`
}

// Converter rewrites icav2:// uri into s3:// uri.
type Converter interface {
	ToS3(uri string) (string, error)
}

// Decode reads loosely typed inputs, e.g. state machine payload.
func Decode(raw map[string]any) (Inputs, error) {
	var in Inputs
	if err := mapstructure.Decode(raw, &in); err != nil {
		return in, errors.Wrap(err, "invalid inputs")
	}
	return in, nil
}

func (in Inputs) validate() error {
	switch {
	case in.PortalRunID == "":
		return errors.New("portal run id is required")
	case in.WorkflowName == "":
		return errors.New("workflow name is required")
	case in.WorkflowVersion == "":
		return errors.New("workflow version is required")
	case in.EventDataInputs == nil:
		return errors.New("input event data is required")
	case in.EngineParameters == nil:
		return errors.New("engine parameters are required")
	}
	return nil
}

// Fill replaces placeholders in engine parameters, drops empty parameters
// and converts icav2:// uris using the converter, if given.
func Fill(in Inputs, conv Converter) (map[string]any, error) {
	if len(in.ParameterNames) > 0 {
		engine, err := Defaults(in.EngineParameters, in.ParameterNames, in.Parameters)
		if err != nil {
			return nil, err
		}
		in.EngineParameters = engine
	}

	if err := in.validate(); err != nil {
		return nil, err
	}

	r := replacer{
		fixed: strings.NewReplacer(
			PortalRunID, in.PortalRunID,
			WorkflowName, sanitise(in.WorkflowName),
			WorkflowVersion, sanitise(in.WorkflowVersion),
		),
		inputs: map[string]string{},
	}
	for key, val := range in.EventDataInputs {
		if s, ok := val.(string); ok {
			r.inputs["__"+snake(key)+"__"] = s
		}
	}

	filled := r.object(in.EngineParameters)

	params := map[string]any{}
	for key, val := range filled {
		if val == nil || val == "" {
			continue
		}

		if s, ok := val.(string); ok && conv != nil && strings.HasPrefix(s, "icav2://") {
			uri, err := conv.ToS3(s)
			if err != nil {
				return nil, errors.Wrapf(err, "%s", key)
			}
			val = uri
		}

		params[key] = val
	}

	return params, nil
}

// Defaults sets engine parameters that are missing or empty from values of
// SSM parameters, names maps engine parameter into SSM parameter name.
func Defaults(engine map[string]any, names map[string]string, params []Parameter) (map[string]any, error) {
	values := make(map[string]string, len(params))
	for _, p := range params {
		values[p.Name] = p.Value
	}

	out := make(map[string]any, len(engine)+len(names))
	for key, val := range engine {
		out[key] = val
	}

	for key, name := range names {
		if val, has := out[key]; has && val != nil && val != "" {
			continue
		}
		val, has := values[name]
		if !has {
			return nil, errors.Errorf("parameter %s of %s is not found", name, key)
		}
		out[key] = val
	}

	return out, nil
}

// dots are not allowed in uri path segments of workflow outputs
func sanitise(s string) string {
	return strings.ReplaceAll(s, ".", "-")
}

// snake prefixes every upper case letter with underscore, digits stay
// within the word: s3Uri is s3_uri.
func snake(key string) string {
	var sb strings.Builder
	for _, r := range key {
		if unicode.IsUpper(r) {
			sb.WriteRune('_')
			r = unicode.ToLower(r)
		}
		sb.WriteRune(r)
	}
	return strings.TrimLeft(sb.String(), "_")
}

type replacer struct {
	fixed  *strings.Replacer
	inputs map[string]string
}

func (r replacer) object(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for key, val := range obj {
		out[key] = r.value(key, val)
	}
	return out
}

func (r replacer) value(key string, val any) any {
	switch v := val.(type) {
	case map[string]any:
		return r.object(v)
	case []any:
		seq := make([]any, len(v))
		for i, x := range v {
			// strings of list are kept as is, objects are filled
			if obj, ok := x.(map[string]any); ok {
				seq[i] = r.object(obj)
			} else {
				seq[i] = x
			}
		}
		return seq
	case string:
		return r.text(key, v)
	default:
		return v
	}
}

func (r replacer) text(key, s string) string {
	s = r.fixed.Replace(s)
	isURI := strings.HasSuffix(key, "Uri")
	for placeholder, val := range r.inputs {
		if isURI {
			val = sanitise(val)
		}
		s = strings.ReplaceAll(s, placeholder, val)
	}
	return s
}

//------------------------------------------------------------------------------

// StorageMap converts icav2://<project>/<path> into <prefix><path>, where
// prefix is s3:// location of the project storage.
type StorageMap map[string]string

var _ Converter = StorageMap(nil)

// ParseStorageMap decodes JSON object project → s3 prefix.
func ParseStorageMap(raw string) (StorageMap, error) {
	m := StorageMap{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, errors.Wrap(err, "malformed project storage")
	}
	for project, prefix := range m {
		if !strings.HasPrefix(prefix, "s3://") {
			return nil, errors.Errorf("storage of %s is not s3 uri: %s", project, prefix)
		}
		if !strings.HasSuffix(prefix, "/") {
			m[project] = prefix + "/"
		}
	}
	return m, nil
}

func (m StorageMap) ToS3(uri string) (string, error) {
	path, ok := strings.CutPrefix(uri, "icav2://")
	if !ok {
		return "", errors.Errorf("not icav2 uri: %s", uri)
	}

	project, key, _ := strings.Cut(path, "/")
	prefix, has := m[project]
	if !has {
		return "", errors.Errorf("unknown storage of project %s", project)
	}

	return prefix + key, nil
}
